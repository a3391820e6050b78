// Package extract pulls rating and review date out of raw review text and
// strips platform boilerplate. Every field is optional: a miss yields nil,
// never an error.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"review_monitor/internal/domain"
)

// Result is what Normalize could recover from one raw block.
type Result struct {
	Rating *float64
	Date   *time.Time
	Text   string
	// Misses lists the strategies tried without a match, in order.
	Misses []string
}

type Normalizer struct {
	now func() time.Time
}

type Option func(*Normalizer)

// WithClock anchors relative dates ("hace 3 días") to a custom clock.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) { n.now = now }
}

func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *Normalizer) Normalize(raw string, p domain.Platform) Result {
	var res Result
	var miss []string

	res.Rating, miss = ExtractRating(raw, p)
	res.Misses = append(res.Misses, miss...)

	res.Date, miss = ExtractDate(raw, n.now())
	res.Misses = append(res.Misses, miss...)

	res.Text = Clean(raw)
	return res
}

/********** rating **********/

type ratingRule struct {
	name    string
	re      *regexp.Regexp
	divisor float64
}

const num = `(\d+(?:[.,]\d+)?)`

var ratingRules = map[domain.Platform][]ratingRule{
	domain.Airbnb: {
		{"airbnb-valoracion", regexp.MustCompile(`(?i)valoraci.n:\s*` + num + `\s*estrellas?`), 1},
		{"airbnb-rating-en", regexp.MustCompile(`(?i)rating:\s*` + num + `\s*stars?`), 1},
		{"airbnb-stars", regexp.MustCompile(`(?i)` + num + `\s*(?:estrellas?|stars?)\b`), 1},
	},
	domain.Booking: {
		{"booking-puntuacion", regexp.MustCompile(`(?i)puntuaci.n:?\s*` + num), 2},
		{"booking-star-prefix", regexp.MustCompile(`⭐\s*` + num), 2},
		{"booking-scored", regexp.MustCompile(`(?i)scored\s+` + num), 2},
	},
}

// ExtractRating returns a 0-5 rating or nil. Booking scores (out of 10)
// are halved.
func ExtractRating(text string, p domain.Platform) (*float64, []string) {
	var misses []string
	for _, r := range ratingRules[p] {
		m := r.re.FindStringSubmatch(text)
		if m == nil {
			misses = append(misses, r.name)
			continue
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			misses = append(misses, r.name)
			continue
		}
		v := f / r.divisor
		if v < 0 || v > 5 {
			misses = append(misses, r.name+":out-of-range")
			continue
		}
		return &v, misses
	}
	if len(ratingRules[p]) == 0 {
		misses = append(misses, "rating:unknown-platform")
	}
	return nil, misses
}

/********** cleaning **********/

var boilerplate = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Lleva\s+\d+\s+.*?\s+en\s+Airbnb`),
	regexp.MustCompile(`(?i)\d+\s+(?:years?|months?)\s+on\s+Airbnb`),
	regexp.MustCompile(`(?i)Traducido del \p{L}+`),
	regexp.MustCompile(`(?i)Translated from \p{L}+`),
	regexp.MustCompile(`(?i)Mostrar el original`),
	regexp.MustCompile(`(?i)Show original`),
	regexp.MustCompile(`(?i)Valoraci.n:\s*\d+(?:[.,]\d+)?\s*estrellas?`),
	regexp.MustCompile(`(?i)Rating:\s*\d+(?:[.,]\d+)?\s*stars?`),
	regexp.MustCompile(`(?i)Puntuaci.n:?\s*\d+(?:[.,]\d+)?`),
	regexp.MustCompile(`(?i)Comentado el:.*`),
	regexp.MustCompile(`⭐\s*\d+(?:[.,]\d+)?\s*\|?`),
}

var (
	blankLines = regexp.MustCompile(`\n\s*\n+`)
	edgeTrim   = " ,.-·|\n\t\r"
)

// Clean removes platform boilerplate for display and classification.
func Clean(raw string) string {
	s := raw
	for _, re := range boilerplate {
		s = re.ReplaceAllString(s, "")
	}
	s = blankLines.ReplaceAllString(s, "\n")
	return strings.Trim(s, edgeTrim)
}
