package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker/v2"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/domain"
)

type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before a trial call.
	Timeout  time.Duration
	Interval time.Duration
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{ConsecutiveFailures: 3, Timeout: 30 * time.Second, Interval: 60 * time.Second}
}

// BreakerCloud skips a cloud backend that keeps failing, so every Load and
// Save falls back to the local mirror immediately instead of waiting on
// timeouts.
type BreakerCloud struct {
	inner domain.CloudStore
	cb    *gobreaker.CircuitBreaker[domain.Table]
}

func NewBreakerCloud(inner domain.CloudStore, cfg BreakerConfig) *BreakerCloud {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 3
	}
	name := "cloud-" + inner.Name()
	observability.BreakerState.WithLabelValues(name).Set(stateToFloat(gobreaker.StateClosed))
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
			observability.BreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	return &BreakerCloud{inner: inner, cb: gobreaker.NewCircuitBreaker[domain.Table](settings)}
}

// stateToFloat maps gobreaker states to gauge values.
func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return -1
}

func (b *BreakerCloud) Name() string { return b.inner.Name() }

func (b *BreakerCloud) State() gobreaker.State { return b.cb.State() }

func (b *BreakerCloud) Connect(ctx context.Context) error {
	_, err := b.cb.Execute(func() (domain.Table, error) {
		return domain.Table{}, b.inner.Connect(ctx)
	})
	return wrapOpen(err)
}

func (b *BreakerCloud) Read(ctx context.Context, sheet string) (domain.Table, error) {
	t, err := b.cb.Execute(func() (domain.Table, error) {
		return b.inner.Read(ctx, sheet)
	})
	return t, wrapOpen(err)
}

func (b *BreakerCloud) Write(ctx context.Context, sheet string, t domain.Table) error {
	_, err := b.cb.Execute(func() (domain.Table, error) {
		return domain.Table{}, b.inner.Write(ctx, sheet, t)
	})
	return wrapOpen(err)
}

func wrapOpen(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", domain.ErrCloudUnavailable, err)
	}
	return err
}
