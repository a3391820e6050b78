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
)

// CommandService applies single-field edits. Each one reloads the full
// table before writing, never a filtered view.
type CommandService struct {
	store       ReviewStore
	cls         *classify.Classifier
	roster      domain.RosterRepository
	resolutions domain.ResolutionLog
	cache       domain.Cache
	now         func() time.Time
}

// NewCommandService builds the service; resolutions and cache may be nil.
func NewCommandService(st ReviewStore, c *classify.Classifier, roster domain.RosterRepository,
	resolutions domain.ResolutionLog, cache domain.Cache) *CommandService {
	return &CommandService{store: st, cls: c, roster: roster, resolutions: resolutions, cache: cache, now: time.Now}
}

// WithClock replaces time.Now.
func (s *CommandService) WithClock(now func() time.Time) *CommandService {
	s.now = now
	return s
}

func (s *CommandService) MarkRead(ctx context.Context, hash string) error {
	return s.store.Update(ctx, hash, func(r *domain.Review) error {
		r.IsNew = false
		return nil
	})
}

// MarkAllRead clears the unread flag of every review inside the window and
// returns how many changed.
func (s *CommandService) MarkAllRead(ctx context.Context, w domain.Window) (int, error) {
	n := 0
	cut := w.Cutoff(s.now())
	err := s.store.Mutate(ctx, func(all []domain.Review) ([]domain.Review, error) {
		for i := range all {
			if all[i].IsNew && (cut.IsZero() || !all[i].Date.Before(cut)) {
				all[i].IsNew = false
				n++
			}
		}
		return all, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *CommandService) SetCategory(ctx context.Context, hash, category string) error {
	category = strings.TrimSpace(category)
	if !s.cls.IsValidCategory(category) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidCategory, category)
	}
	err := s.store.Update(ctx, hash, func(r *domain.Review) error {
		r.Category = category
		return nil
	})
	if err != nil {
		return err
	}
	invalidateViews(ctx, s.cache)
	return nil
}

// AssignCleaner sets the cleaner of a review; an empty name unassigns.
func (s *CommandService) AssignCleaner(ctx context.Context, hash, name string) error {
	name = strings.TrimSpace(name)
	if name != "" {
		names, err := s.roster.Cleaners(ctx)
		if err != nil {
			return err
		}
		if !containsFold(names, name) {
			return fmt.Errorf("%w: %q", domain.ErrUnknownCleaner, name)
		}
	}
	err := s.store.Update(ctx, hash, func(r *domain.Review) error {
		if name == "" {
			r.Cleaner = nil
		} else {
			r.Cleaner = &name
		}
		return nil
	})
	if err != nil {
		return err
	}
	invalidateViews(ctx, s.cache)
	return nil
}

// ResolveCrisis clears the crisis flag and records who did it. Resolving a
// review that is not in crisis is a no-op that records nothing.
func (s *CommandService) ResolveCrisis(ctx context.Context, hash, by, note string) (*domain.ResolutionEvent, error) {
	var ev *domain.ResolutionEvent
	open := 0
	err := s.store.Mutate(ctx, func(all []domain.Review) ([]domain.Review, error) {
		idx := -1
		for i := range all {
			if all[i].Hash == hash {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("review %s: %w", hash, domain.ErrNotFound)
		}
		if all[idx].IsCrisis {
			all[idx].IsCrisis = false
			ev = &domain.ResolutionEvent{
				ID:         uuid.NewString(),
				Hash:       hash,
				Listing:    all[idx].ListingName,
				ResolvedBy: strings.TrimSpace(by),
				Note:       strings.TrimSpace(note),
				At:         s.now().UTC(),
			}
		}
		open = countCrises(all)
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	observability.OpenCrises.Set(float64(open))
	if ev == nil {
		return nil, nil
	}

	log.Info().
		Str("event_id", ev.ID).Str("hash", ev.Hash).Str("listing", ev.Listing).
		Str("resolved_by", ev.ResolvedBy).Str("note", ev.Note).
		Msg("crisis resolved")
	if s.resolutions != nil {
		if err := s.resolutions.Append(ctx, *ev); err != nil {
			log.Error().Err(err).Str("event_id", ev.ID).Msg("append resolution event")
		}
	}
	return ev, nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
