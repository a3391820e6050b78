package roster_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_monitor/internal/domain"
	"review_monitor/internal/storage/roster"
)

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := roster.New(filepath.Join(dir, "alojamientos.json"), filepath.Join(dir, "cleaners.json"))
	ctx := context.Background()

	acc, err := s.Accommodations(ctx)
	require.NoError(t, err)
	assert.Empty(t, acc)

	want := []domain.Accommodation{{Name: "Loft", AirbnbURL: "https://airbnb.es/rooms/1"}}
	require.NoError(t, s.SaveAccommodations(ctx, want))
	got, err := s.Accommodations(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, s.SaveCleaners(ctx, []string{"Marta", "Lucía"}))
	names, err := s.Cleaners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Marta", "Lucía"}, names)
}

func TestStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cleaners.json")
	require.NoError(t, os.WriteFile(p, []byte("{nope"), 0o644))
	s := roster.New(filepath.Join(dir, "a.json"), p)
	_, err := s.Cleaners(context.Background())
	require.ErrorIs(t, err, domain.ErrLocalIO)
}
