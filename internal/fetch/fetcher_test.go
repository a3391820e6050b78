package fetch_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_monitor/internal/domain"
	"review_monitor/internal/fetch"
)

// ---- fakes ----

type fakeNode struct {
	text     string
	children map[string][]string
}

type fakePage struct {
	// before/after the reveal click
	dom      map[string][]fakeNode
	revealed map[string][]fakeNode
	clicked  []string
	waits    []time.Duration
	ids      map[int64]fakeNode
	idSel    map[int64]string
	next     int64
}

func (p *fakePage) current() map[string][]fakeNode {
	if len(p.clicked) > 0 && p.revealed != nil {
		return p.revealed
	}
	return p.dom
}

func (p *fakePage) Wait(ctx context.Context, d time.Duration) error {
	p.waits = append(p.waits, d)
	return nil
}

func (p *fakePage) register(sel string, nodes []fakeNode) []domain.Element {
	out := make([]domain.Element, 0, len(nodes))
	for _, n := range nodes {
		p.next++
		p.ids[p.next] = n
		p.idSel[p.next] = sel
		out = append(out, domain.Element{ID: p.next})
	}
	return out
}

func (p *fakePage) Query(ctx context.Context, sel string) ([]domain.Element, error) {
	return p.register(sel, p.current()[sel]), nil
}

func (p *fakePage) QueryWithin(ctx context.Context, parent domain.Element, sel string) ([]domain.Element, error) {
	var nodes []fakeNode
	for _, t := range p.ids[parent.ID].children[sel] {
		nodes = append(nodes, fakeNode{text: t})
	}
	return p.register(sel, nodes), nil
}

func (p *fakePage) Click(ctx context.Context, el domain.Element) error {
	p.clicked = append(p.clicked, p.idSel[el.ID]+"="+p.ids[el.ID].text)
	return nil
}

func (p *fakePage) Text(ctx context.Context, el domain.Element) (string, error) {
	n, ok := p.ids[el.ID]
	if !ok {
		return "", errors.New("stale node")
	}
	return n.text, nil
}

type fakeBrowser struct {
	pages   map[string]*fakePage
	opened  []string
	openErr error
}

func (b *fakeBrowser) Open(ctx context.Context, url string) (domain.Page, error) {
	b.opened = append(b.opened, url)
	if b.openErr != nil {
		return nil, b.openErr
	}
	p, ok := b.pages[url]
	if !ok {
		return nil, errors.New("404")
	}
	p.ids = map[int64]fakeNode{}
	p.idSel = map[int64]string{}
	return p, nil
}

func (b *fakeBrowser) Close() error { return nil }

func nodes(texts ...string) []fakeNode {
	out := make([]fakeNode, 0, len(texts))
	for _, t := range texts {
		out = append(out, fakeNode{text: t})
	}
	return out
}

func fastProfiles() map[domain.Platform]fetch.Profile {
	ps := fetch.DefaultProfiles()
	for k, p := range ps {
		p.Settle, p.RevealSettle = time.Millisecond, time.Millisecond
		ps[k] = p
	}
	return ps
}

var longA = "Un apartamento precioso, todo estaba impecable y limpio."
var longB = "La ubicación es perfecta, cerca de la playa y restaurantes."

// ---- tests ----

func TestFetch_AirbnbFallsBackToLabelButtonAndSecondSelector(t *testing.T) {
	page := &fakePage{
		dom: map[string][]fakeNode{
			"button": nodes("Compartir", "Mostrar las 123 evaluaciones"),
			"span":   nodes("Superanfitrión", "4,87"),
		},
		revealed: map[string][]fakeNode{
			`span[class*="ll4r2nl"]`: nodes(longA, "corto", longA, longB),
		},
	}
	b := &fakeBrowser{pages: map[string]*fakePage{"https://airbnb/1": page}}

	res := fetch.New(b, fastProfiles()).Fetch(context.Background(), "https://airbnb/1", domain.Airbnb)

	assert.Equal(t, []string{longA, longB}, res.Blocks, "short and duplicate blocks dropped")
	assert.Equal(t, []string{"button=Mostrar las 123 evaluaciones"}, page.clicked)
	require.NotNil(t, res.ListingRating)
	assert.InDelta(t, 4.87, *res.ListingRating, 1e-9)
	assert.Contains(t, strings.Join(res.Log, "\n"), `[data-review-id]: no blocks`)
}

func TestFetch_AirbnbSkipsLongOrDigitlessLabels(t *testing.T) {
	page := &fakePage{
		dom: map[string][]fakeNode{
			"button": nodes("Ver evaluaciones", strings.Repeat("reviews 1 ", 10)),
		},
	}
	b := &fakeBrowser{pages: map[string]*fakePage{"u": page}}
	res := fetch.New(b, fastProfiles()).Fetch(context.Background(), "u", domain.Airbnb)
	assert.Empty(t, page.clicked)
	assert.Empty(t, res.Blocks)
	assert.NotEmpty(t, res.Log)
}

func TestFetch_BookingPrefixesCardScore(t *testing.T) {
	card := fakeNode{
		text:     "Ana\nES\nMuy buena ubicación y personal atento",
		children: map[string][]string{`[data-testid="review-score"]`: {"9,0"}},
	}
	page := &fakePage{
		dom: map[string][]fakeNode{
			`[data-testid="read-all-actionable"]`:       nodes("Leer todos los comentarios"),
			`div[data-testid="review-score-component"]`: nodes("Puntuación 8,6 Fabuloso"),
		},
		revealed: map[string][]fakeNode{
			`[data-testid="review-card"]`: {card, {text: "ok"}},
		},
	}
	b := &fakeBrowser{pages: map[string]*fakePage{"bk": page}}

	res := fetch.New(b, fastProfiles()).Fetch(context.Background(), "bk", domain.Booking)

	require.Len(t, res.Blocks, 1)
	assert.Equal(t, "⭐ 9,0 | Ana\nMuy buena ubicación y personal atento", res.Blocks[0])
	require.NotNil(t, res.ListingRating)
	assert.InDelta(t, 4.3, *res.ListingRating, 1e-9)
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, page.waits)
}

func TestFetch_OpenErrorNeverFails(t *testing.T) {
	b := &fakeBrowser{openErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	res := fetch.New(b, fastProfiles()).Fetch(context.Background(), "x", domain.Airbnb)
	assert.Empty(t, res.Blocks)
	assert.Nil(t, res.ListingRating)
	require.NotEmpty(t, res.Log)
	assert.Contains(t, res.Log[0], "ERR_NAME_NOT_RESOLVED")
}

func TestRunBatch_CountsAndCallback(t *testing.T) {
	good := &fakePage{dom: map[string][]fakeNode{`[data-review-id]`: nodes(longA)}}
	b := &fakeBrowser{pages: map[string]*fakePage{"good": good}}
	targets := []domain.Target{
		{ListingName: "Loft", Platform: domain.Airbnb, URL: "good"},
		{ListingName: "Loft", Platform: domain.Booking, URL: "missing"},
	}

	var calls []int
	rep := fetch.New(b, fastProfiles()).RunBatch(context.Background(), targets, func(done, total int, tg domain.Target, r fetch.Result) {
		assert.Equal(t, 2, total)
		calls = append(calls, done)
	})

	assert.Equal(t, []int{1, 2}, calls)
	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)
	require.Len(t, rep.Failures, 1)
	assert.Equal(t, "missing", rep.Failures[0].Target.URL)
	assert.Equal(t, []string{"good", "missing"}, b.opened)
}

func TestRunBatch_CanceledContextFailsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep := fetch.New(&fakeBrowser{}, fastProfiles()).RunBatch(ctx, []domain.Target{{URL: "a"}, {URL: "b"}}, nil)
	assert.Equal(t, 0, rep.Succeeded)
	assert.Equal(t, 2, rep.Failed)
}
