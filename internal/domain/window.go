package domain

import (
	"fmt"
	"time"
)

// Window selects a date range for views. Views never get persisted.
type Window string

const (
	WindowAll     Window = "all"
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowQuarter Window = "quarter"
	WindowYear    Window = "year"
)

func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case "":
		return WindowAll, nil
	case WindowAll, WindowWeek, WindowMonth, WindowQuarter, WindowYear:
		return w, nil
	}
	return "", fmt.Errorf("%w: unknown window %q", ErrInvalidInput, s)
}

// Cutoff returns the earliest included instant; zero for WindowAll.
func (w Window) Cutoff(now time.Time) time.Time {
	switch w {
	case WindowWeek:
		return now.AddDate(0, 0, -7)
	case WindowMonth:
		return now.AddDate(0, 0, -30)
	case WindowQuarter:
		return now.AddDate(0, 0, -90)
	case WindowYear:
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())
	}
	return time.Time{}
}

// FilterByWindow returns a new slice; the input is never modified.
func FilterByWindow(in []Review, w Window, now time.Time) []Review {
	cut := w.Cutoff(now)
	out := make([]Review, 0, len(in))
	for _, r := range in {
		if cut.IsZero() || !r.Date.Before(cut) {
			out = append(out, r)
		}
	}
	return out
}
