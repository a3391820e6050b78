// Package roster keeps the accommodation list and the cleaning team in two
// small JSON files next to the local reviews mirror.
package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"review_monitor/internal/domain"
)

type Store struct {
	accommodationsPath string
	cleanersPath       string
	mu                 sync.Mutex
}

func New(accommodationsPath, cleanersPath string) *Store {
	return &Store{accommodationsPath: accommodationsPath, cleanersPath: cleanersPath}
}

func (s *Store) Accommodations(ctx context.Context) ([]domain.Accommodation, error) {
	var out []domain.Accommodation
	if err := s.load(s.accommodationsPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveAccommodations(ctx context.Context, list []domain.Accommodation) error {
	if list == nil {
		list = []domain.Accommodation{}
	}
	return s.save(s.accommodationsPath, list)
}

func (s *Store) Cleaners(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.load(s.cleanersPath, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SaveCleaners(ctx context.Context, names []string) error {
	if names == nil {
		names = []string{}
	}
	return s.save(s.cleanersPath, names)
}

// load leaves dst untouched when the file is missing or empty.
func (s *Store) load(path string, dst any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(b) == 0) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrLocalIO, path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrLocalIO, path, err)
	}
	return nil
}

func (s *Store) save(path string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: mkdir: %v", domain.ErrLocalIO, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %v", domain.ErrLocalIO, tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("%w: rename: %v", domain.ErrLocalIO, err)
	}
	return nil
}
