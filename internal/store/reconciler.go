// Package store reconciles the optional cloud copy of the Reviews table with
// the local mirror. The cloud wins on load when it has rows; saves go to
// both, and only a local failure is an error.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/codec"
	"review_monitor/internal/domain"
	"review_monitor/internal/identity"
)

type Source string

const (
	SourceCloud Source = "cloud"
	SourceLocal Source = "local"
	SourceEmpty Source = "empty"
)

type Reconciler struct {
	cloud domain.CloudStore
	local domain.LocalStore
	sheet string

	// mu serializes read-modify-write cycles of this process.
	mu     sync.Mutex
	srcMu  sync.Mutex
	source Source
}

// New builds a Reconciler; cloud may be nil.
func New(cloud domain.CloudStore, local domain.LocalStore, sheet string) *Reconciler {
	if sheet == "" {
		sheet = domain.ReviewsSheet
	}
	return &Reconciler{cloud: cloud, local: local, sheet: sheet}
}

// Source reports which backend served the last Load.
func (r *Reconciler) Source() Source {
	r.srcMu.Lock()
	defer r.srcMu.Unlock()
	return r.source
}

func (r *Reconciler) setSource(s Source) {
	r.srcMu.Lock()
	r.source = s
	r.srcMu.Unlock()
}

// Load returns the deduplicated table. Cloud problems are logged and
// absorbed; a local read failure is returned.
func (r *Reconciler) Load(ctx context.Context) ([]domain.Review, error) {
	if t, ok := r.loadCloud(ctx); ok {
		r.setSource(SourceCloud)
		return decode(t), nil
	}

	t, err := r.local.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("load local: %w", err)
	}
	if t.Empty() {
		r.setSource(SourceEmpty)
		return []domain.Review{}, nil
	}
	r.setSource(SourceLocal)
	return decode(t), nil
}

// decode keys rows without a stored hash before dropping duplicates.
func decode(t domain.Table) []domain.Review {
	rs := codec.DecodeReviews(t)
	identity.Assign(rs)
	return identity.Dedup(rs)
}

func (r *Reconciler) loadCloud(ctx context.Context) (domain.Table, bool) {
	if r.cloud == nil {
		return domain.Table{}, false
	}
	l := log.With().Str("backend", r.cloud.Name()).Str("sheet", r.sheet).Logger()
	if err := r.cloud.Connect(ctx); err != nil {
		l.Warn().Err(err).Msg("cloud unreachable, using local mirror")
		observability.ObserveFallback("load", r.cloud.Name())
		return domain.Table{}, false
	}
	t, err := r.cloud.Read(ctx, r.sheet)
	if err != nil {
		l.Warn().Err(err).Msg("cloud read failed, using local mirror")
		observability.ObserveFallback("load", r.cloud.Name())
		return domain.Table{}, false
	}
	if t.Empty() {
		l.Info().Msg("cloud table empty, using local mirror")
		return domain.Table{}, false
	}
	l.Debug().Int("rows", len(t.Rows)).Msg("cloud table loaded")
	return t, true
}

// Save writes the whole table to the cloud (best effort) and then to the
// local mirror (always).
func (r *Reconciler) Save(ctx context.Context, reviews []domain.Review) error {
	t := codec.EncodeReviews(reviews)

	if r.cloud != nil {
		l := log.With().Str("backend", r.cloud.Name()).Str("sheet", r.sheet).Logger()
		if err := r.cloud.Connect(ctx); err != nil {
			l.Warn().Err(err).Msg("cloud unreachable, saving local mirror only")
			observability.ObserveFallback("save", r.cloud.Name())
		} else if err := r.cloud.Write(ctx, r.sheet, t); err != nil {
			l.Error().Err(err).Msg("cloud write failed, saving local mirror only")
			observability.ObserveFallback("save", r.cloud.Name())
		}
	}

	if err := r.local.Write(ctx, t); err != nil {
		return fmt.Errorf("save local: %w", err)
	}
	return nil
}

// MutateFunc edits the full table; returning an error aborts the save.
type MutateFunc func(reviews []domain.Review) ([]domain.Review, error)

// Mutate reloads the full table, applies fn and saves the result, so an edit
// made on a filtered view never drops rows outside it.
func (r *Reconciler) Mutate(ctx context.Context, fn MutateFunc) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.Load(ctx)
	if err != nil {
		return err
	}
	out, err := fn(all)
	if err != nil {
		return err
	}
	return r.Save(ctx, out)
}

// Update edits the single review with hash. It returns domain.ErrNotFound,
// without saving, when no row has that hash.
func (r *Reconciler) Update(ctx context.Context, hash string, fn func(*domain.Review) error) error {
	return r.Mutate(ctx, func(all []domain.Review) ([]domain.Review, error) {
		for i := range all {
			if all[i].Hash == hash {
				if err := fn(&all[i]); err != nil {
					return nil, err
				}
				return all, nil
			}
		}
		return nil, fmt.Errorf("review %s: %w", hash, domain.ErrNotFound)
	})
}
