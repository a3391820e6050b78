// Package csvfile is the local mirror of the Reviews table: one UTF-8 CSV
// file with a BOM so spreadsheet tools open it with the right encoding.
package csvfile

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"review_monitor/internal/domain"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

type Store struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Store { return &Store{path: path} }

func (s *Store) Path() string { return s.path }

// Read returns an empty table when the file does not exist yet.
func (s *Store) Read(ctx context.Context) (domain.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return domain.Table{}, nil
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: open %s: %v", domain.ErrLocalIO, s.path, err)
	}
	defer f.Close()

	// skip BOM if present
	br := bufio.NewReader(f)
	if first3, _ := br.Peek(3); len(first3) == 3 && first3[0] == bom[0] && first3[1] == bom[1] && first3[2] == bom[2] {
		_, _ = br.Discard(3)
	}
	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return domain.Table{}, nil
	}
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: read header: %v", domain.ErrLocalIO, err)
	}
	t := domain.Table{Header: header}
	for {
		if err := ctx.Err(); err != nil {
			return domain.Table{}, err
		}
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("%w: read row: %v", domain.ErrLocalIO, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// Write replaces the file atomically via a temp file in the same directory.
func (s *Store) Write(ctx context.Context, t domain.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", domain.ErrLocalIO, dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".reviews-*.csv")
	if err != nil {
		return fmt.Errorf("%w: create temp: %v", domain.ErrLocalIO, err)
	}
	defer os.Remove(tmp.Name())

	if err := writeTable(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", domain.ErrLocalIO, tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync: %v", domain.ErrLocalIO, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", domain.ErrLocalIO, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: rename: %v", domain.ErrLocalIO, err)
	}
	return nil
}

func writeTable(w io.Writer, t domain.Table) error {
	if _, err := w.Write(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}
