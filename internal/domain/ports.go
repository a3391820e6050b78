package domain

import (
	"context"
	"time"
)

// CloudStore is a remote tabular backend addressed by sheet name.
type CloudStore interface {
	Name() string
	Connect(ctx context.Context) error
	Read(ctx context.Context, sheet string) (Table, error)
	// Write replaces the whole sheet.
	Write(ctx context.Context, sheet string, t Table) error
}

// LocalStore is the always-available flat file mirror.
type LocalStore interface {
	Read(ctx context.Context) (Table, error)
	Write(ctx context.Context, t Table) error
}

type Browser interface {
	Open(ctx context.Context, url string) (Page, error)
	Close() error
}

// Element is an opaque handle to a node of the current page.
type Element struct{ ID int64 }

type Page interface {
	Wait(ctx context.Context, d time.Duration) error
	Query(ctx context.Context, selector string) ([]Element, error)
	// QueryWithin searches the subtree of an element returned by Query.
	QueryWithin(ctx context.Context, parent Element, selector string) ([]Element, error)
	Click(ctx context.Context, el Element) error
	Text(ctx context.Context, el Element) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// RunLock keeps two ingestion batches from writing at the same time.
type RunLock interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

type ResolutionLog interface {
	Append(ctx context.Context, ev ResolutionEvent) error
	List(ctx context.Context, limit int) ([]ResolutionEvent, error)
}

type RosterRepository interface {
	Accommodations(ctx context.Context) ([]Accommodation, error)
	SaveAccommodations(ctx context.Context, list []Accommodation) error
	Cleaners(ctx context.Context) ([]string, error)
	SaveCleaners(ctx context.Context, names []string) error
}
