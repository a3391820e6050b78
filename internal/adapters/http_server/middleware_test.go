package httpserver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func TestObserve_LogsRoutePatternAndLevel(t *testing.T) {
	var buf bytes.Buffer
	m := chi.NewRouter()
	m.Use(Observe(zerolog.New(&buf)))
	m.Get("/v1/reviews/{hash}/reply", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	m.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })

	rec := httptest.NewRecorder()
	m.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reviews/abc123/reply", nil))
	line := buf.String()
	if !strings.Contains(line, `"route":"/v1/reviews/{hash}/reply"`) {
		t.Fatalf("route pattern not logged: %s", line)
	}
	if !strings.Contains(line, `"level":"warn"`) || !strings.Contains(line, `"status":404`) {
		t.Fatalf("4xx should log at warn: %s", line)
	}

	buf.Reset()
	m.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("healthz should be quiet, got %s", buf.String())
	}
}

func TestServer_UnknownRouteIsProblem(t *testing.T) {
	s := New(time.Second)
	rec := httptest.NewRecorder()
	s.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("content-type %q", ct)
	}
}

func TestClientHost(t *testing.T) {
	if got := clientHost("10.0.0.1:5555"); got != "10.0.0.1" {
		t.Fatalf("got %q", got)
	}
	if got := clientHost("10.0.0.1"); got != "10.0.0.1" {
		t.Fatalf("got %q", got)
	}
}
