package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_monitor/internal/domain"
)

func TestParseWindow(t *testing.T) {
	for in, want := range map[string]domain.Window{
		"":        domain.WindowAll,
		"all":     domain.WindowAll,
		"week":    domain.WindowWeek,
		"month":   domain.WindowMonth,
		"quarter": domain.WindowQuarter,
		"year":    domain.WindowYear,
	} {
		got, err := domain.ParseWindow(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := domain.ParseWindow("fortnight")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestWindowCutoff(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		w    domain.Window
		want time.Time
	}{
		{domain.WindowAll, time.Time{}},
		{domain.WindowWeek, time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)},
		{domain.WindowMonth, time.Date(2024, 5, 16, 12, 0, 0, 0, time.UTC)},
		{domain.WindowQuarter, time.Date(2024, 3, 17, 12, 0, 0, 0, time.UTC)},
		{domain.WindowYear, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.w.Cutoff(now), string(tt.w))
	}
}

func TestFilterByWindow_KeepsBoundaryAndLeavesInputAlone(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	in := []domain.Review{
		{Hash: "edge", Date: now.AddDate(0, 0, -7)},
		{Hash: "old", Date: now.AddDate(0, 0, -8)},
		{Hash: "new", Date: now.Add(-time.Hour)},
	}

	got := domain.FilterByWindow(in, domain.WindowWeek, now)
	require.Len(t, got, 2)
	assert.Equal(t, "edge", got[0].Hash)
	assert.Equal(t, "new", got[1].Hash)
	assert.Len(t, in, 3)

	assert.Len(t, domain.FilterByWindow(in, domain.WindowAll, now), 3)
}

func TestParsePlatform(t *testing.T) {
	p, ok := domain.ParsePlatform(" Booking.com ")
	assert.True(t, ok)
	assert.Equal(t, domain.Booking, p)

	p, ok = domain.ParsePlatform("AIRBNB")
	assert.True(t, ok)
	assert.Equal(t, domain.Airbnb, p)

	_, ok = domain.ParsePlatform("vrbo")
	assert.False(t, ok)
}

func TestAccommodationTargets_AirbnbFirstSkipsBlank(t *testing.T) {
	a := domain.Accommodation{Name: "Casa", AirbnbURL: " ", BookingURL: "https://booking.example/casa"}
	got := a.Targets()
	require.Len(t, got, 1)
	assert.Equal(t, domain.Booking, got[0].Platform)

	a.AirbnbURL = "https://airbnb.example/casa"
	got = a.Targets()
	require.Len(t, got, 2)
	assert.Equal(t, domain.Airbnb, got[0].Platform)
	assert.Equal(t, "Casa", got[1].ListingName)
}
