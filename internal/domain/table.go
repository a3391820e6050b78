package domain

// Table is the header + rows shape exchanged with every store backend.
type Table struct {
	Header []string
	Rows   [][]string
}

func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Column names of the Reviews table, in write order.
const (
	ColDate     = "Date"
	ColPlatform = "Platform"
	ColName     = "Name"
	ColText     = "Text"
	ColURL      = "Url"
	ColHash     = "Hash"
	ColCategory = "Category"
	ColCleaner  = "Cleaner"
	ColRating   = "Rating"
	ColNew      = "New"
	ColCrisis   = "Crisis"
)

var Columns = []string{
	ColDate, ColPlatform, ColName, ColText, ColURL, ColHash,
	ColCategory, ColCleaner, ColRating, ColNew, ColCrisis,
}

// ReviewsSheet is the worksheet name used by the cloud backends.
const ReviewsSheet = "Reviews"
