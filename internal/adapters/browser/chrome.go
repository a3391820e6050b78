// Package browser drives a headless Chrome through chromedp. One Browser
// owns one tab that is reused for every page of a batch.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"review_monitor/internal/domain"
)

type Options struct {
	UserAgent string
	Headless  bool
	ExecPath  string
	// NodeTimeout bounds clicks and text reads on a single node.
	NodeTimeout time.Duration
}

type Browser struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	nodeTimeout time.Duration
	mu          sync.Mutex
}

// New starts Chrome. The process lives until Close.
func New(opts Options) (*Browser, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// first Run launches the browser
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	nt := opts.NodeTimeout
	if nt <= 0 {
		nt = 5 * time.Second
	}
	return &Browser{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc, nodeTimeout: nt}, nil
}

// run executes actions on the shared tab, aborting when ctx is done.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (b *Browser) Open(ctx context.Context, url string) (domain.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	return &page{b: b, nodes: map[int64]*cdp.Node{}}, nil
}

func (b *Browser) Close() error {
	b.cancelTab()
	b.cancelAlloc()
	return nil
}

type page struct {
	b *Browser
	// nodes remembers what Query returned so QueryWithin can scope to it.
	nodes map[int64]*cdp.Node
}

func (p *page) Wait(ctx context.Context, d time.Duration) error {
	return p.b.run(ctx, 0, chromedp.Sleep(d))
}

func (p *page) Query(ctx context.Context, selector string) ([]domain.Element, error) {
	return p.query(ctx, selector)
}

func (p *page) QueryWithin(ctx context.Context, parent domain.Element, selector string) ([]domain.Element, error) {
	n, ok := p.nodes[parent.ID]
	if !ok {
		return nil, fmt.Errorf("unknown parent node %d", parent.ID)
	}
	return p.query(ctx, selector, chromedp.FromNode(n))
}

func (p *page) query(ctx context.Context, selector string, extra ...chromedp.QueryOption) ([]domain.Element, error) {
	var nodes []*cdp.Node
	opts := append([]chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}, extra...)
	if err := p.b.run(ctx, p.b.nodeTimeout, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	out := make([]domain.Element, 0, len(nodes))
	for _, n := range nodes {
		p.nodes[int64(n.NodeID)] = n
		out = append(out, domain.Element{ID: int64(n.NodeID)})
	}
	return out, nil
}

func (p *page) Click(ctx context.Context, el domain.Element) error {
	return p.b.run(ctx, p.b.nodeTimeout, chromedp.Click([]cdp.NodeID{cdp.NodeID(el.ID)}, chromedp.ByNodeID))
}

func (p *page) Text(ctx context.Context, el domain.Element) (string, error) {
	var s string
	if err := p.b.run(ctx, p.b.nodeTimeout, chromedp.Text([]cdp.NodeID{cdp.NodeID(el.ID)}, &s, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return s, nil
}
