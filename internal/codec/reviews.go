// Package codec converts between domain reviews and the tabular shape the
// store backends exchange. Decoding tolerates missing, renamed and extra
// columns; the Reviews sheet is edited by hand often enough for that to matter.
package codec

import (
	"strconv"
	"strings"
	"time"

	"review_monitor/internal/domain"
)

// DateLayout is the storage format of the Date column.
const DateLayout = "2006-01-02 15:04:05"

/********** alias registry (single source of truth) **********/

var columnAliases = map[string][]string{
	domain.ColDate:     {"Date", "Fecha", "date"},
	domain.ColPlatform: {"Platform", "Plataforma", "Source"},
	domain.ColName:     {"Name", "Listing", "Alojamiento", "ListingName"},
	domain.ColText:     {"Text", "Review", "Comentario", "Body"},
	domain.ColURL:      {"Url", "URL", "Link"},
	domain.ColHash:     {"Hash", "ID", "Id"},
	domain.ColCategory: {"Category", "Categoria", "Categoría"},
	domain.ColCleaner:  {"Cleaner", "Limpiadora", "Limpieza asignada"},
	domain.ColRating:   {"Rating", "Score", "Puntuacion", "Puntuación"},
	domain.ColNew:      {"New", "Nuevo", "Unread"},
	domain.ColCrisis:   {"Crisis", "Crisis?"},
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

/********** tiny helpers **********/

// headerIndex maps canonical column -> position, first alias wins.
func headerIndex(header []string) map[string]int {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, seen := pos[key]; !seen {
			pos[key] = i
		}
	}
	idx := make(map[string]int, len(columnAliases))
	for col, aliases := range columnAliases {
		for _, a := range aliases {
			if i, ok := pos[strings.ToLower(a)]; ok {
				idx[col] = i
				break
			}
		}
	}
	return idx
}

func cell(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ParseDate tries every known layout; ok is false when none matches.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if t, err := time.ParseInLocation(l, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseFloatFlexible accepts "4.5", "4,5" and surrounding spaces.
func ParseFloatFlexible(s string) *float64 {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "si", "sí", "verdadero", "x":
		return true
	}
	return false
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

/********** reviews mapper **********/

// DecodeReviews maps table rows to reviews. A missing Date stays zero so the
// repair pass can tell it apart from a real one.
func DecodeReviews(t domain.Table) []domain.Review {
	if len(t.Header) == 0 {
		return nil
	}
	idx := headerIndex(t.Header)
	out := make([]domain.Review, 0, len(t.Rows))
	for _, row := range t.Rows {
		if blankRow(row) {
			continue
		}
		var rv domain.Review
		if d, ok := ParseDate(cell(row, idx, domain.ColDate)); ok {
			rv.Date = d
		}
		if p, ok := domain.ParsePlatform(cell(row, idx, domain.ColPlatform)); ok {
			rv.Platform = p
		} else {
			rv.Platform = domain.Platform(cell(row, idx, domain.ColPlatform))
		}
		rv.ListingName = cell(row, idx, domain.ColName)
		rv.Text = cell(row, idx, domain.ColText)
		rv.URL = cell(row, idx, domain.ColURL)
		rv.Hash = cell(row, idx, domain.ColHash)
		rv.Category = cell(row, idx, domain.ColCategory)
		if rv.Category == "" {
			rv.Category = domain.CategoryGeneral
		}
		rv.Cleaner = ptrStr(cell(row, idx, domain.ColCleaner))
		rv.Rating = ParseFloatFlexible(cell(row, idx, domain.ColRating))
		rv.IsNew = parseBool(cell(row, idx, domain.ColNew))
		rv.IsCrisis = parseBool(cell(row, idx, domain.ColCrisis))
		out = append(out, rv)
	}
	return out
}

// EncodeReviews writes the canonical column set in canonical order.
func EncodeReviews(rs []domain.Review) domain.Table {
	t := domain.Table{Header: append([]string(nil), domain.Columns...)}
	t.Rows = make([][]string, 0, len(rs))
	for _, r := range rs {
		date := ""
		if !r.Date.IsZero() {
			date = r.Date.Format(DateLayout)
		}
		rating := ""
		if r.Rating != nil {
			rating = strconv.FormatFloat(*r.Rating, 'f', -1, 64)
		}
		cleaner := ""
		if r.Cleaner != nil {
			cleaner = *r.Cleaner
		}
		t.Rows = append(t.Rows, []string{
			date,
			string(r.Platform),
			r.ListingName,
			r.Text,
			r.URL,
			r.Hash,
			r.Category,
			cleaner,
			rating,
			formatBool(r.IsNew),
			formatBool(r.IsCrisis),
		})
	}
	return t
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
