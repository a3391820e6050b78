package extract

import (
	"review_monitor/internal/domain"
	"review_monitor/internal/identity"
)

// RepairReport counts what a repair pass changed.
type RepairReport struct {
	Rows               int `json:"rows"`
	RatingsRescaled    int `json:"ratings_rescaled"`
	RatingsDropped     int `json:"ratings_dropped"`
	RatingsExtracted   int `json:"ratings_extracted"`
	DatesExtracted     int `json:"dates_extracted"`
	DatesUnresolved    int `json:"dates_unresolved"`
	HashesAssigned     int `json:"hashes_assigned"`
	CategoriesReplaced int `json:"categories_replaced"`
}

func (r RepairReport) Changed() bool {
	return r.RatingsRescaled+r.RatingsDropped+r.RatingsExtracted+r.DatesExtracted+
		r.HashesAssigned+r.CategoriesReplaced > 0
}

// Repair fixes malformed stored rows. It never overwrites a value that is
// already valid, so running it twice changes nothing the second time.
// validCategory may be nil to skip category checks.
func (n *Normalizer) Repair(in []domain.Review, validCategory func(string) bool) ([]domain.Review, RepairReport) {
	rep := RepairReport{Rows: len(in)}
	now := n.now()
	out := make([]domain.Review, len(in))
	copy(out, in)

	for i := range out {
		r := &out[i]

		if r.Rating != nil {
			v := *r.Rating
			rescaled := false
			if v > 10 {
				v /= 100
				rescaled = true
			}
			if r.Platform == domain.Booking && v > 5 && v <= 10 {
				v /= 2
				rescaled = true
			}
			switch {
			case v < 0 || v > 5:
				r.Rating = nil
				rep.RatingsDropped++
			case rescaled:
				r.Rating = &v
				rep.RatingsRescaled++
			}
		}
		if r.Rating == nil {
			if v, _ := ExtractRating(r.Text, r.Platform); v != nil {
				r.Rating = v
				rep.RatingsExtracted++
			}
		}

		if r.Date.IsZero() {
			if d, _ := ExtractDate(r.Text, now); d != nil {
				r.Date = *d
				rep.DatesExtracted++
			} else {
				rep.DatesUnresolved++
			}
		}

		switch {
		case r.Category == "":
			r.Category = domain.CategoryGeneral
			rep.CategoriesReplaced++
		case validCategory != nil && !validCategory(r.Category):
			r.Category = domain.CategoryOther
			rep.CategoriesReplaced++
		}
	}

	rep.HashesAssigned = identity.Assign(out)
	return out, rep
}
