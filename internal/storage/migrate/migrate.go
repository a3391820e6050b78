// Package migrate applies the .sql files of one backend directory in name
// order, one statement at a time.
package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"review_monitor/migrations"
)

// Execer runs a single statement.
type Execer func(ctx context.Context, stmt string) error

// Source returns MIGRATIONS_DIR when set, else the embedded files.
func Source() fs.FS {
	if dir := os.Getenv("MIGRATIONS_DIR"); dir != "" {
		return os.DirFS(dir)
	}
	return migrations.FS
}

// Apply runs every file under dir and returns the number of statements.
// Statements must be idempotent (CREATE ... IF NOT EXISTS).
func Apply(ctx context.Context, fsys fs.FS, dir string, exec Execer) (int, error) {
	files, err := fs.Glob(fsys, path.Join(dir, "*.sql"))
	if err != nil {
		return 0, fmt.Errorf("list migrations: %w", err)
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("no .sql files in %s", dir)
	}
	sort.Strings(files)

	n := 0
	for _, f := range files {
		raw, err := fs.ReadFile(fsys, f)
		if err != nil {
			return n, fmt.Errorf("read %s: %w", f, err)
		}
		for _, stmt := range Statements(string(raw)) {
			if err := exec(ctx, stmt); err != nil {
				return n, fmt.Errorf("exec %s: %w", f, err)
			}
			n++
		}
		log.Debug().Str("file", f).Msg("migration applied")
	}
	return n, nil
}

// Statements splits a script on semicolons, dropping blanks and
// comment-only chunks.
func Statements(script string) []string {
	var out []string
	for _, chunk := range strings.Split(script, ";") {
		if isBlank(chunk) {
			continue
		}
		out = append(out, strings.TrimSpace(chunk))
	}
	return out
}

func isBlank(chunk string) bool {
	for _, line := range strings.Split(chunk, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
