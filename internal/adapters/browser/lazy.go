package browser

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"review_monitor/internal/domain"
)

// Lazy starts Chrome on the first Open, so processes that may never fetch
// do not need a Chrome binary at boot.
type Lazy struct {
	opts  Options
	start func(Options) (*Browser, error)

	mu sync.Mutex
	b  *Browser
}

func NewLazy(opts Options) *Lazy { return &Lazy{opts: opts, start: New} }

func (l *Lazy) Open(ctx context.Context, url string) (domain.Page, error) {
	l.mu.Lock()
	if l.b == nil {
		b, err := l.start(l.opts)
		if err != nil {
			l.mu.Unlock()
			return nil, err
		}
		log.Info().Bool("headless", l.opts.Headless).Msg("chrome started")
		l.b = b
	}
	b := l.b
	l.mu.Unlock()
	return b.Open(ctx, url)
}

// Close stops Chrome if it was started. A later Open starts a new one.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.b == nil {
		return nil
	}
	err := l.b.Close()
	l.b = nil
	return err
}
