package fetch

import (
	"regexp"
	"time"

	"review_monitor/internal/domain"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"

// RevealButton finds the "show all reviews" control by its label when no
// dedicated selector matches.
type RevealButton struct {
	Selector   string
	Label      *regexp.Regexp
	MaxLen     int
	NeedsDigit bool
}

// RatingSource reads the overall listing rating. With FullMatch the first
// element whose whole text matches Pattern wins; otherwise the first element
// is used and Pattern extracts the number from it.
type RatingSource struct {
	Selector  string
	Pattern   *regexp.Regexp
	FullMatch bool
	Limit     int
}

// Profile is everything platform specific about scraping a listing page.
type Profile struct {
	Platform        domain.Platform
	Settle          time.Duration
	RevealSettle    time.Duration
	RevealSelectors []string
	RevealButton    *RevealButton
	ReviewSelectors []string
	// ScoreSelector is looked up inside each review card and prefixed to
	// the block as "⭐ N | ".
	ScoreSelector string
	// SplitLines drops card lines of two characters or fewer.
	SplitLines    bool
	MinLength     int
	Dedup         bool
	MaxBlocks     int
	RatingSources []RatingSource
	// RatingDivisor brings the listing rating to a 0-5 scale.
	RatingDivisor float64
}

var decimal = regexp.MustCompile(`(\d+[,.]\d+)`)

// DefaultProfiles returns the built-in Airbnb and Booking profiles.
func DefaultProfiles() map[domain.Platform]Profile {
	return map[domain.Platform]Profile{
		domain.Airbnb: {
			Platform:        domain.Airbnb,
			Settle:          4 * time.Second,
			RevealSettle:    3 * time.Second,
			RevealSelectors: []string{`[data-testid="pdp-show-all-reviews-button"]`},
			RevealButton: &RevealButton{
				Selector:   "button",
				Label:      regexp.MustCompile(`(?i)evaluaci|review|opinio`),
				MaxLen:     50,
				NeedsDigit: true,
			},
			ReviewSelectors: []string{`[data-review-id]`, `span[class*="ll4r2nl"]`, `div.r1are2x1`},
			MinLength:       31,
			Dedup:           true,
			MaxBlocks:       50,
			RatingSources: []RatingSource{
				{Selector: `div[data-testid="pdp-reviews-highlight-banner-host-rating"] > div > span > span`, Pattern: decimal},
				{Selector: "span", Pattern: regexp.MustCompile(`^\d+,\d{2}$`), FullMatch: true, Limit: 300},
			},
			RatingDivisor: 1,
		},
		domain.Booking: {
			Platform:        domain.Booking,
			Settle:          4 * time.Second,
			RevealSettle:    3 * time.Second,
			RevealSelectors: []string{`[data-testid="read-all-actionable"]`},
			RevealButton: &RevealButton{
				Selector: "button",
				Label:    regexp.MustCompile(`(?i)Leer todos|See all`),
			},
			ReviewSelectors: []string{`[data-testid="review-card"]`, `li.review_item`},
			ScoreSelector:   `[data-testid="review-score"]`,
			SplitLines:      true,
			MinLength:       11,
			MaxBlocks:       50,
			RatingSources: []RatingSource{
				{Selector: `div[data-testid="review-score-component"]`, Pattern: decimal},
				{Selector: `div[data-testid="header-review-score"]`, Pattern: decimal},
			},
			RatingDivisor: 2,
		},
	}
}
