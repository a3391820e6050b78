package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findChrome(t *testing.T) string {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no chrome binary on PATH")
	return ""
}

func TestBrowser_QueryClickText(t *testing.T) {
	execPath := findChrome(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body>
<button data-testid="more" onclick="document.getElementById('x').style.display='block'">Mostrar 12 evaluaciones</button>
<div data-review-id="1">Primera reseña</div>
<div data-review-id="2">Segunda reseña</div>
<div id="x" style="display:none">oculto</div>
</body></html>`))
	}))
	defer ts.Close()

	b, err := New(Options{Headless: true, ExecPath: execPath, NodeTimeout: 3 * time.Second})
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p, err := b.Open(ctx, ts.URL)
	require.NoError(t, err)

	els, err := p.Query(ctx, "[data-review-id]")
	require.NoError(t, err)
	require.Len(t, els, 2)
	txt, err := p.Text(ctx, els[1])
	require.NoError(t, err)
	assert.Equal(t, "Segunda reseña", txt)

	none, err := p.Query(ctx, ".does-not-exist")
	require.NoError(t, err)
	assert.Empty(t, none)

	btn, err := p.Query(ctx, `[data-testid="more"]`)
	require.NoError(t, err)
	require.Len(t, btn, 1)
	require.NoError(t, p.Click(ctx, btn[0]))
	require.NoError(t, p.Wait(ctx, 50*time.Millisecond))

	hidden, err := p.Query(ctx, "#x")
	require.NoError(t, err)
	txt, err = p.Text(ctx, hidden[0])
	require.NoError(t, err)
	assert.Equal(t, "oculto", txt)
}

func TestLazy_StartErrorIsReturned(t *testing.T) {
	l := NewLazy(Options{Headless: true, ExecPath: "/nonexistent/chrome"})
	_, err := l.Open(context.Background(), "about:blank")
	assert.Error(t, err)
	assert.NoError(t, l.Close())
}
