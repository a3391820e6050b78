package app

import (
	"context"
	"fmt"
	"sort"

	"review_monitor/internal/adapters/observability"
	"review_monitor/internal/domain"
)

/********** cache keys **********/

var cachedWindows = []domain.Window{
	domain.WindowAll, domain.WindowWeek, domain.WindowMonth, domain.WindowQuarter, domain.WindowYear,
}

func sentimentKey(w domain.Window) string { return fmt.Sprintf("insights:sentiment:%s", w) }
func cleanersKey(w domain.Window) string  { return fmt.Sprintf("insights:cleaners:%s", w) }

// invalidateViews drops every cached insight; any table write can change them.
func invalidateViews(ctx context.Context, c domain.Cache) {
	if c == nil {
		return
	}
	for _, w := range cachedWindows {
		_ = c.Del(ctx, sentimentKey(w))
		_ = c.Del(ctx, cleanersKey(w))
	}
	observability.ObserveCache("insights", "del")
}

/********** view helpers **********/

// newestFirst sorts a copy by date, most recent first; undated rows go last.
func newestFirst(in []domain.Review) []domain.Review {
	out := make([]domain.Review, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func countCrises(rs []domain.Review) int {
	n := 0
	for _, r := range rs {
		if r.IsCrisis {
			n++
		}
	}
	return n
}

func indexHashes(rs []domain.Review) map[string]struct{} {
	m := make(map[string]struct{}, len(rs))
	for _, r := range rs {
		if r.Hash != "" {
			m[r.Hash] = struct{}{}
		}
	}
	return m
}

// Negative thresholds on the normalized 0-5 scale. Booking's 7.5/10 is 3.75.
const (
	bookingNegativeBelow = 3.75
	airbnbNegativeAtMost = 3.0
)

// isNegative flags a review by its rating when known, else by its category.
func isNegative(r domain.Review) bool {
	if r.Rating != nil {
		switch r.Platform {
		case domain.Booking:
			return *r.Rating < bookingNegativeBelow
		case domain.Airbnb:
			return *r.Rating <= airbnbNegativeAtMost
		}
	}
	return r.Category != "" && r.Category != domain.CategoryGeneral && r.Category != domain.CategoryOther
}
