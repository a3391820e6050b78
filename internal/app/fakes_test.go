package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"review_monitor/internal/domain"
	"review_monitor/internal/fetch"
	"review_monitor/internal/store"
)

// ---- fakes ----

type fakeStore struct {
	mu    sync.Mutex
	rows  []domain.Review
	saves int
}

func (f *fakeStore) snapshot() []domain.Review {
	out := make([]domain.Review, len(f.rows))
	copy(out, f.rows)
	return out
}

func (f *fakeStore) Load(context.Context) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot(), nil
}

func (f *fakeStore) Mutate(_ context.Context, fn store.MutateFunc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, err := fn(f.snapshot())
	if err != nil {
		return err
	}
	f.rows = out
	f.saves++
	return nil
}

func (f *fakeStore) Update(ctx context.Context, hash string, fn func(*domain.Review) error) error {
	return f.Mutate(ctx, func(all []domain.Review) ([]domain.Review, error) {
		for i := range all {
			if all[i].Hash == hash {
				return all, fn(&all[i])
			}
		}
		return nil, fmt.Errorf("review %s: %w", hash, domain.ErrNotFound)
	})
}

type fakeFetcher struct {
	blocks map[string][]string // by URL
	calls  int
}

func (f *fakeFetcher) RunBatch(_ context.Context, targets []domain.Target, onItem fetch.ItemFunc) fetch.BatchReport {
	f.calls++
	var rep fetch.BatchReport
	for i, t := range targets {
		r := fetch.Result{Blocks: f.blocks[t.URL]}
		if len(r.Blocks) > 0 {
			rep.Succeeded++
		} else {
			rep.Failed++
			rep.Failures = append(rep.Failures, fetch.Failure{Target: t, Log: []string{"no blocks"}})
		}
		if onItem != nil {
			onItem(i+1, len(targets), t, r)
		}
	}
	return rep
}

type fakeRoster struct {
	accs     []domain.Accommodation
	cleaners []string
}

func (f *fakeRoster) Accommodations(context.Context) ([]domain.Accommodation, error) {
	return f.accs, nil
}
func (f *fakeRoster) SaveAccommodations(_ context.Context, list []domain.Accommodation) error {
	f.accs = list
	return nil
}
func (f *fakeRoster) Cleaners(context.Context) ([]string, error) { return f.cleaners, nil }
func (f *fakeRoster) SaveCleaners(_ context.Context, names []string) error {
	f.cleaners = names
	return nil
}

// fakeCache round-trips through JSON like the redis cache does.
type fakeCache struct {
	store map[string][]byte
	dels  int
}

func (c *fakeCache) Get(_ context.Context, key string, dst any) (bool, error) {
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}
func (c *fakeCache) Set(_ context.Context, key string, v any, _ int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}
func (c *fakeCache) Del(_ context.Context, key string) error {
	c.dels++
	delete(c.store, key)
	return nil
}

type fakeResolutions struct {
	events []domain.ResolutionEvent
}

func (f *fakeResolutions) Append(_ context.Context, ev domain.ResolutionEvent) error {
	f.events = append([]domain.ResolutionEvent{ev}, f.events...)
	return nil
}
func (f *fakeResolutions) List(_ context.Context, limit int) ([]domain.ResolutionEvent, error) {
	if limit > 0 && len(f.events) > limit {
		return f.events[:limit], nil
	}
	return f.events, nil
}

type busyLock struct{}

func (busyLock) Acquire(context.Context, time.Duration) (bool, error) { return false, nil }
func (busyLock) Release(context.Context) error                       { return nil }

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

func rv(hash string, daysAgo int, p domain.Platform, text string) domain.Review {
	return domain.Review{
		Date:        fixedNow.AddDate(0, 0, -daysAgo),
		Platform:    p,
		ListingName: "Loft Centro",
		Text:        text,
		Hash:        hash,
		Category:    domain.CategoryGeneral,
	}
}
