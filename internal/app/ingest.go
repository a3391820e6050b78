package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/classify"
	"review_monitor/internal/domain"
	"review_monitor/internal/extract"
	"review_monitor/internal/fetch"
	"review_monitor/internal/identity"
)

type IngestReport struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Duration  string          `json:"duration"`
	Targets   int             `json:"targets"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Added     int             `json:"added"`
	Skipped   int             `json:"skipped"`
	Failures  []fetch.Failure `json:"failures,omitempty"`
}

type IngestionService struct {
	fetcher BatchFetcher
	norm    *extract.Normalizer
	cls     *classify.Classifier
	store   ReviewStore
	roster  domain.RosterRepository
	lock    domain.RunLock
	lockTTL time.Duration
	cache   domain.Cache
	now     func() time.Time
}

// NewIngestionService wires the pipeline. lock and cache may be nil; a nil
// lock falls back to an in-process one.
func NewIngestionService(f BatchFetcher, n *extract.Normalizer, c *classify.Classifier, st ReviewStore,
	roster domain.RosterRepository, lock domain.RunLock, lockTTL time.Duration, cache domain.Cache) *IngestionService {
	if lock == nil {
		lock = &LocalLock{}
	}
	if lockTTL <= 0 {
		lockTTL = time.Hour
	}
	return &IngestionService{
		fetcher: f, norm: n, cls: c, store: st, roster: roster,
		lock: lock, lockTTL: lockTTL, cache: cache, now: time.Now,
	}
}

// WithClock replaces time.Now.
func (s *IngestionService) WithClock(now func() time.Time) *IngestionService {
	s.now = now
	return s
}

// Run fetches every roster target (or only the accommodation named listing)
// and merges the new reviews into the table.
func (s *IngestionService) Run(ctx context.Context, listing string) (IngestReport, error) {
	rep := IngestReport{RunID: uuid.NewString(), StartedAt: s.now()}
	l := log.With().Str("run_id", rep.RunID).Logger()

	ok, err := s.lock.Acquire(ctx, s.lockTTL)
	if err != nil {
		return rep, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return rep, domain.ErrRunInProgress
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			l.Warn().Err(err).Msg("release run lock")
		}
	}()

	targets, err := s.targets(ctx, listing)
	if err != nil {
		return rep, err
	}
	rep.Targets = len(targets)
	l.Info().Int("targets", len(targets)).Str("listing", listing).Msg("ingestion started")

	var fresh []domain.Review
	batch := s.fetcher.RunBatch(ctx, targets, func(done, total int, t domain.Target, r fetch.Result) {
		fresh = append(fresh, s.build(t, r.Blocks)...)
		l.Debug().Int("done", done).Int("total", total).Str("listing", t.ListingName).
			Str("platform", string(t.Platform)).Int("blocks", len(r.Blocks)).Msg("target fetched")
	})
	rep.Succeeded, rep.Failed, rep.Failures = batch.Succeeded, batch.Failed, batch.Failures

	if len(fresh) > 0 {
		var added []domain.Review
		err = s.store.Mutate(ctx, func(all []domain.Review) ([]domain.Review, error) {
			n := len(all)
			merged, _, skipped := merge(all, fresh)
			added = merged[n:]
			rep.Added, rep.Skipped = len(added), skipped
			observability.OpenCrises.Set(float64(countCrises(merged)))
			return merged, nil
		})
		if err != nil {
			return rep, fmt.Errorf("persist reviews: %w", err)
		}
		for _, r := range added {
			observability.ReviewsIngested.WithLabelValues(string(r.Platform)).Inc()
		}
		invalidateViews(ctx, s.cache)
	}

	rep.Duration = s.now().Sub(rep.StartedAt).Round(time.Millisecond).String()
	l.Info().
		Int("succeeded", rep.Succeeded).Int("failed", rep.Failed).
		Int("added", rep.Added).Int("skipped", rep.Skipped).
		Str("duration", rep.Duration).
		Msg("ingestion finished")
	return rep, nil
}

func (s *IngestionService) targets(ctx context.Context, listing string) ([]domain.Target, error) {
	accs, err := s.roster.Accommodations(ctx)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	listing = strings.TrimSpace(listing)
	var out []domain.Target
	found := false
	for _, a := range accs {
		if listing != "" && !strings.EqualFold(a.Name, listing) {
			continue
		}
		found = true
		out = append(out, a.Targets()...)
	}
	if listing != "" && !found {
		return nil, fmt.Errorf("accommodation %q: %w", listing, domain.ErrNotFound)
	}
	return out, nil
}

// build turns raw blocks of one target into new reviews.
func (s *IngestionService) build(t domain.Target, blocks []string) []domain.Review {
	out := make([]domain.Review, 0, len(blocks))
	for _, raw := range blocks {
		res := s.norm.Normalize(raw, t.Platform)
		if res.Text == "" {
			continue
		}
		date := s.now()
		if res.Date != nil {
			date = *res.Date
		}
		r := domain.Review{
			Date:        date,
			Platform:    t.Platform,
			ListingName: t.ListingName,
			Text:        res.Text,
			URL:         t.URL,
			Rating:      res.Rating,
			Category:    s.cls.DetectCategory(res.Text),
			IsNew:       true,
			IsCrisis:    s.cls.IsCrisis(res.Text),
		}
		r.Hash = identity.ComputeHash(r)
		out = append(out, r)
	}
	return out
}

// merge appends fresh reviews that are not already stored, by hash or by
// content. Existing rows are never modified.
func merge(existing, fresh []domain.Review) (out []domain.Review, added, skipped int) {
	out = existing
	seen := indexHashes(existing)
	for _, r := range fresh {
		if _, dup := seen[r.Hash]; dup || containsContent(out, r) {
			skipped++
			continue
		}
		seen[r.Hash] = struct{}{}
		out = append(out, r)
		added++
	}
	return out, added, skipped
}

func containsContent(rs []domain.Review, r domain.Review) bool {
	for _, e := range rs {
		if identity.SameContent(e, r) {
			return true
		}
	}
	return false
}
