package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/classify"
	"review_monitor/internal/domain"
	"review_monitor/internal/reply"
)

type ListFilter struct {
	Window   domain.Window
	Platform domain.Platform
	Listing  string
}

type CleanerStat struct {
	Name       string  `json:"name"`
	Assigned   int     `json:"assigned"`
	Complaints int     `json:"complaints"`
	Percentage float64 `json:"percentage"`
}

type QueryService struct {
	store       ReviewStore
	cls         *classify.Classifier
	synth       *reply.Synthesizer
	roster      domain.RosterRepository
	resolutions domain.ResolutionLog
	cache       domain.Cache
	cacheTTL    time.Duration
	now         func() time.Time
}

func NewQueryService(st ReviewStore, c *classify.Classifier, synth *reply.Synthesizer, roster domain.RosterRepository,
	resolutions domain.ResolutionLog, cache domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{
		store: st, cls: c, synth: synth, roster: roster,
		resolutions: resolutions, cache: cache, cacheTTL: ttl, now: time.Now,
	}
}

// WithClock replaces time.Now.
func (s *QueryService) WithClock(now func() time.Time) *QueryService {
	s.now = now
	return s
}

func (s *QueryService) window(ctx context.Context, w domain.Window) ([]domain.Review, error) {
	all, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return domain.FilterByWindow(all, w, s.now()), nil
}

// List returns the reviews matching f, newest first.
func (s *QueryService) List(ctx context.Context, f ListFilter) ([]domain.Review, error) {
	rs, err := s.window(ctx, f.Window)
	if err != nil {
		return nil, err
	}
	out := rs[:0]
	for _, r := range rs {
		if f.Platform != "" && r.Platform != f.Platform {
			continue
		}
		if f.Listing != "" && !strings.EqualFold(r.ListingName, f.Listing) {
			continue
		}
		out = append(out, r)
	}
	return newestFirst(out), nil
}

// Inbox is the unread reviews of the window, newest first.
func (s *QueryService) Inbox(ctx context.Context, w domain.Window) ([]domain.Review, error) {
	rs, err := s.window(ctx, w)
	if err != nil {
		return nil, err
	}
	out := rs[:0]
	for _, r := range rs {
		if r.IsNew {
			out = append(out, r)
		}
	}
	return newestFirst(out), nil
}

// Crises lists every open crisis regardless of date.
func (s *QueryService) Crises(ctx context.Context) ([]domain.Review, error) {
	all, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	var out []domain.Review
	for _, r := range all {
		if r.IsCrisis {
			out = append(out, r)
		}
	}
	observability.OpenCrises.Set(float64(len(out)))
	return newestFirst(out), nil
}

// Negatives returns at most limit negative reviews of the window, newest
// first. limit <= 0 means no limit.
func (s *QueryService) Negatives(ctx context.Context, w domain.Window, limit int) ([]domain.Review, error) {
	rs, err := s.window(ctx, w)
	if err != nil {
		return nil, err
	}
	out := rs[:0]
	for _, r := range rs {
		if isNegative(r) {
			out = append(out, r)
		}
	}
	out = newestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *QueryService) Sentiment(ctx context.Context, w domain.Window) (classify.Summary, error) {
	key := sentimentKey(w)
	var sum classify.Summary
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &sum); ok {
			return sum, nil
		}
	}
	rs, err := s.window(ctx, w)
	if err != nil {
		return classify.Summary{}, err
	}
	texts := make([]string, len(rs))
	for i, r := range rs {
		texts[i] = r.Text
	}
	sum = s.cls.Summarize(s.cls.AnalyzeSentiments(texts), len(rs))
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, sum, int(s.cacheTTL.Seconds()))
	}
	return sum, nil
}

// CleanerStats counts, per roster cleaner, the reviews assigned to them and
// how many of those fall in the cleaning category.
func (s *QueryService) CleanerStats(ctx context.Context, w domain.Window) ([]CleanerStat, error) {
	key := cleanersKey(w)
	var out []CleanerStat
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}
	names, err := s.roster.Cleaners(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := s.window(ctx, w)
	if err != nil {
		return nil, err
	}
	cleaning := s.cls.CleaningCategory()
	out = make([]CleanerStat, 0, len(names))
	for _, name := range names {
		st := CleanerStat{Name: name}
		for _, r := range rs {
			if r.Cleaner == nil || *r.Cleaner != name {
				continue
			}
			st.Assigned++
			if cleaning != "" && r.Category == cleaning {
				st.Complaints++
			}
		}
		if st.Assigned > 0 {
			st.Percentage = float64(st.Complaints) / float64(st.Assigned) * 100
		}
		out = append(out, st)
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// Reply drafts an answer to the stored review with hash.
func (s *QueryService) Reply(ctx context.Context, hash, guest string) (string, error) {
	all, err := s.store.Load(ctx)
	if err != nil {
		return "", err
	}
	for _, r := range all {
		if r.Hash == hash {
			return s.synth.Generate(r.Text, r.Platform, guest), nil
		}
	}
	return "", fmt.Errorf("review %s: %w", hash, domain.ErrNotFound)
}

// Compose drafts an answer to arbitrary text.
func (s *QueryService) Compose(text string, p domain.Platform, guest string) string {
	return s.synth.Generate(text, p, guest)
}

// Resolutions returns the latest crisis resolutions, newest first. Without a
// resolution log the list is empty.
func (s *QueryService) Resolutions(ctx context.Context, limit int) ([]domain.ResolutionEvent, error) {
	if s.resolutions == nil {
		return []domain.ResolutionEvent{}, nil
	}
	out, err := s.resolutions.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.ResolutionEvent{}
	}
	return out, nil
}
