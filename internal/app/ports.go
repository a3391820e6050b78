package app

import (
	"context"

	"review_monitor/internal/domain"
	"review_monitor/internal/fetch"
	"review_monitor/internal/store"
)

// ReviewStore is the full-table load/mutate contract of store.Reconciler.
// Every write goes through Mutate or Update so it starts from a fresh, full
// load.
type ReviewStore interface {
	Load(ctx context.Context) ([]domain.Review, error)
	Mutate(ctx context.Context, fn store.MutateFunc) error
	Update(ctx context.Context, hash string, fn func(*domain.Review) error) error
}

type BatchFetcher interface {
	RunBatch(ctx context.Context, targets []domain.Target, onItem fetch.ItemFunc) fetch.BatchReport
}
