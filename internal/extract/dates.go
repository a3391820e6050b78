package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"enero": 1, "febrero": 2, "marzo": 3, "abril": 4, "mayo": 5, "junio": 6,
	"julio": 7, "agosto": 8, "septiembre": 9, "setiembre": 9, "octubre": 10,
	"noviembre": 11, "diciembre": 12,
	"january": 1, "february": 2, "march": 3, "april": 4, "may": 5, "june": 6,
	"july": 7, "august": 8, "september": 9, "october": 10, "november": 11,
	"december": 12,
}

func monthOf(s string) (time.Month, bool) {
	m, ok := months[strings.ToLower(s)]
	return m, ok
}

// quantity reads "3", "un", "una", "a", "an" or "one".
func quantity(s string) (int, bool) {
	switch strings.ToLower(s) {
	case "un", "una", "uno", "a", "an", "one":
		return 1, true
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

type dateRule struct {
	name  string
	re    *regexp.Regexp
	parse func(m []string, now time.Time) (time.Time, bool)
}

func relative(days int) func(m []string, now time.Time) (time.Time, bool) {
	return func(m []string, now time.Time) (time.Time, bool) {
		n, ok := quantity(m[1])
		if !ok {
			return time.Time{}, false
		}
		return now.AddDate(0, 0, -n*days), true
	}
}

// calendar builds a date and rejects values time.Date would normalize,
// such as 31 de febrero.
func calendar(y, mo, d int, loc *time.Location) (time.Time, bool) {
	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

// dayMonthYear reads groups (day, month-name, year). Unknown month names
// fall back to January only when lenient is set.
func dayMonthYear(lenient bool) func(m []string, now time.Time) (time.Time, bool) {
	return func(m []string, now time.Time) (time.Time, bool) {
		d, _ := strconv.Atoi(m[1])
		y, _ := strconv.Atoi(m[3])
		mo, ok := monthOf(m[2])
		if !ok {
			if !lenient {
				return time.Time{}, false
			}
			mo = time.January
		}
		return calendar(y, int(mo), d, now.Location())
	}
}

func monthDayYear(m []string, now time.Time) (time.Time, bool) {
	mo, ok := monthOf(m[1])
	if !ok {
		return time.Time{}, false
	}
	d, _ := strconv.Atoi(m[2])
	y, _ := strconv.Atoi(m[3])
	return calendar(y, int(mo), d, now.Location())
}

// monthYear handles "marzo de 2024". A leading day means a full date the
// earlier rules already rejected, so it is not retried here.
func monthYear(m []string, now time.Time) (time.Time, bool) {
	if m[1] != "" {
		return time.Time{}, false
	}
	mo, ok := monthOf(m[2])
	if !ok {
		return time.Time{}, false
	}
	y, _ := strconv.Atoi(m[3])
	return calendar(y, int(mo), 1, now.Location())
}

const qty = `(\d+|una?|uno|an?|one)`

// Ordered: the first matching rule wins.
var dateRules = []dateRule{
	{"relative-days", regexp.MustCompile(`(?i)hace\s+` + qty + `\s*d[ií]as?`), relative(1)},
	{"relative-weeks", regexp.MustCompile(`(?i)hace\s+` + qty + `\s*semanas?`), relative(7)},
	{"relative-months", regexp.MustCompile(`(?i)hace\s+` + qty + `\s*mes(?:es)?`), relative(30)},
	{"relative-days-en", regexp.MustCompile(`(?i)\b` + qty + `\s+days?\s+ago`), relative(1)},
	{"relative-weeks-en", regexp.MustCompile(`(?i)\b` + qty + `\s+weeks?\s+ago`), relative(7)},
	{"relative-months-en", regexp.MustCompile(`(?i)\b` + qty + `\s+months?\s+ago`), relative(30)},
	{"long-es", regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+(\p{L}+)\s+de\s+(\d{4})`), dayMonthYear(true)},
	{"loose", regexp.MustCompile(`(\d{1,2})\s+(\p{L}+)\s+(\d{4})`), dayMonthYear(false)},
	{"month-day-year-en", regexp.MustCompile(`(\p{L}+)\s+(\d{1,2}),?\s+(\d{4})`), monthDayYear},
	{"month-year", regexp.MustCompile(`(?i)(?:(\d{1,2})\s+de\s+)?(\p{L}+)\s+(?:de\s+)?(\d{4})`), monthYear},
}

// ExtractDate returns the first date any rule recovers, or nil.
func ExtractDate(text string, now time.Time) (*time.Time, []string) {
	var misses []string
	for _, r := range dateRules {
		found := false
		for _, m := range r.re.FindAllStringSubmatch(text, -1) {
			if t, ok := r.parse(m, now); ok {
				return &t, misses
			}
			found = true
		}
		if found {
			misses = append(misses, r.name+":invalid")
		} else {
			misses = append(misses, r.name)
		}
	}
	return nil, misses
}
