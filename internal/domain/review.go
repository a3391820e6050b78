package domain

import (
	"strings"
	"time"
)

type Platform string

const (
	Airbnb  Platform = "Airbnb"
	Booking Platform = "Booking"
)

// ParsePlatform accepts any casing; ok is false for unknown platforms.
func ParsePlatform(s string) (Platform, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "airbnb":
		return Airbnb, true
	case "booking", "booking.com":
		return Booking, true
	}
	return "", false
}

const (
	CategoryGeneral = "General"
	CategoryOther   = "Otros"
)

// Review is one guest review row of the Reviews table.
// Rating is on a 0-5 scale once normalized; nil means unknown.
type Review struct {
	Date        time.Time `json:"date"`
	Platform    Platform  `json:"platform"`
	ListingName string    `json:"listing"`
	Text        string    `json:"text"`
	URL         string    `json:"url"`
	Hash        string    `json:"hash"`
	Rating      *float64  `json:"rating,omitempty"`
	Category    string    `json:"category"`
	Cleaner     *string   `json:"cleaner,omitempty"`
	IsNew       bool      `json:"is_new"`
	IsCrisis    bool      `json:"is_crisis"`
}

// Accommodation is one entry of the listing roster.
type Accommodation struct {
	Name       string `json:"name" yaml:"name"`
	AirbnbURL  string `json:"airbnb" yaml:"airbnb"`
	BookingURL string `json:"booking" yaml:"booking"`
}

// Target is a single listing page to fetch.
type Target struct {
	ListingName string
	Platform    Platform
	URL         string
}

// Targets yields the Airbnb page first, then Booking, skipping empty URLs.
func (a Accommodation) Targets() []Target {
	var out []Target
	if u := strings.TrimSpace(a.AirbnbURL); u != "" {
		out = append(out, Target{ListingName: a.Name, Platform: Airbnb, URL: u})
	}
	if u := strings.TrimSpace(a.BookingURL); u != "" {
		out = append(out, Target{ListingName: a.Name, Platform: Booking, URL: u})
	}
	return out
}

// ResolutionEvent records who closed a crisis flag and when.
type ResolutionEvent struct {
	ID         string    `json:"id"`
	Hash       string    `json:"hash"`
	Listing    string    `json:"listing"`
	ResolvedBy string    `json:"resolved_by"`
	Note       string    `json:"note,omitempty"`
	At         time.Time `json:"at"`
}
