package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"review_monitor/internal/domain"
)

type RosterService struct {
	repo  domain.RosterRepository
	cache domain.Cache
}

func NewRosterService(r domain.RosterRepository, cache domain.Cache) *RosterService {
	return &RosterService{repo: r, cache: cache}
}

func (s *RosterService) Accommodations(ctx context.Context) ([]domain.Accommodation, error) {
	list, err := s.repo.Accommodations(ctx)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Accommodation{}
	}
	return list, nil
}

// AddAccommodation inserts a, replacing an entry with the same name.
func (s *RosterService) AddAccommodation(ctx context.Context, a domain.Accommodation) error {
	a = trimAccommodation(a)
	if a.Name == "" {
		return fmt.Errorf("%w: accommodation name is required", domain.ErrInvalidInput)
	}
	list, err := s.repo.Accommodations(ctx)
	if err != nil {
		return err
	}
	return s.repo.SaveAccommodations(ctx, upsertAccommodation(list, a))
}

func (s *RosterService) RemoveAccommodation(ctx context.Context, name string) error {
	list, err := s.repo.Accommodations(ctx)
	if err != nil {
		return err
	}
	out := list[:0]
	found := false
	for _, a := range list {
		if strings.EqualFold(a.Name, strings.TrimSpace(name)) {
			found = true
			continue
		}
		out = append(out, a)
	}
	if !found {
		return fmt.Errorf("accommodation %q: %w", name, domain.ErrNotFound)
	}
	return s.repo.SaveAccommodations(ctx, out)
}

var urlRe = regexp.MustCompile(`https?://[^\s]+`)

// ParseImport reads one accommodation per line in free format: the URLs are
// sniffed out and whatever text remains is the name. Lines without a name
// are skipped.
func ParseImport(text string) []domain.Accommodation {
	var out []domain.Accommodation
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		urls := urlRe.FindAllString(line, -1)
		name := line
		var a domain.Accommodation
		for _, u := range urls {
			name = strings.Replace(name, u, "", 1)
			low := strings.ToLower(u)
			switch {
			case strings.Contains(low, "airbnb"):
				a.AirbnbURL = u
			case strings.Contains(low, "booking"):
				a.BookingURL = u
			}
		}
		a.Name = strings.Trim(name, " \t\r,;|-")
		if a.Name != "" {
			out = append(out, a)
		}
	}
	return out
}

// Import adds every accommodation of a bulk paste and returns how many lines
// were imported.
func (s *RosterService) Import(ctx context.Context, text string) (int, error) {
	parsed := ParseImport(text)
	if len(parsed) == 0 {
		return 0, nil
	}
	list, err := s.repo.Accommodations(ctx)
	if err != nil {
		return 0, err
	}
	for _, a := range parsed {
		list = upsertAccommodation(list, a)
	}
	if err := s.repo.SaveAccommodations(ctx, list); err != nil {
		return 0, err
	}
	return len(parsed), nil
}

func (s *RosterService) Cleaners(ctx context.Context) ([]string, error) {
	names, err := s.repo.Cleaners(ctx)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// AddCleaner is idempotent.
func (s *RosterService) AddCleaner(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: cleaner name is required", domain.ErrInvalidInput)
	}
	names, err := s.repo.Cleaners(ctx)
	if err != nil {
		return err
	}
	if containsFold(names, name) {
		return nil
	}
	if err := s.repo.SaveCleaners(ctx, append(names, name)); err != nil {
		return err
	}
	invalidateViews(ctx, s.cache)
	return nil
}

// RemoveCleaner drops name from the roster. Reviews keep pointing at it and
// simply show up as unassigned in cleaner stats.
func (s *RosterService) RemoveCleaner(ctx context.Context, name string) error {
	names, err := s.repo.Cleaners(ctx)
	if err != nil {
		return err
	}
	out := names[:0]
	found := false
	for _, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			found = true
			continue
		}
		out = append(out, n)
	}
	if !found {
		return fmt.Errorf("cleaner %q: %w", name, domain.ErrNotFound)
	}
	if err := s.repo.SaveCleaners(ctx, out); err != nil {
		return err
	}
	invalidateViews(ctx, s.cache)
	return nil
}

func trimAccommodation(a domain.Accommodation) domain.Accommodation {
	a.Name = strings.TrimSpace(a.Name)
	a.AirbnbURL = strings.TrimSpace(a.AirbnbURL)
	a.BookingURL = strings.TrimSpace(a.BookingURL)
	return a
}

func upsertAccommodation(list []domain.Accommodation, a domain.Accommodation) []domain.Accommodation {
	for i := range list {
		if strings.EqualFold(list[i].Name, a.Name) {
			list[i] = a
			return list
		}
	}
	return append(list, a)
}
