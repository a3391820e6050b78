package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review_monitor/internal/domain"
)

func validCat(c string) bool {
	switch c {
	case "Limpieza", domain.CategoryGeneral, domain.CategoryOther:
		return true
	}
	return false
}

func TestRepair_FixesRatingsDatesHashes(t *testing.T) {
	in := []domain.Review{
		{Platform: domain.Airbnb, Text: "x", Rating: ptr(456.0), Date: fixedNow, Category: "Limpieza"},
		{Platform: domain.Booking, Text: "y", Rating: ptr(8.0), Date: fixedNow},
		{Platform: domain.Airbnb, Text: "Valoración: 4 estrellas. Hace 3 días", Rating: ptr(9.0)},
		{Platform: domain.Airbnb, Text: "sin datos", Category: "Inventada", Hash: "keep-this-hash"},
	}
	out, rep := newTestNormalizer().Repair(in, validCat)
	require.Len(t, out, 4)

	assert.InDelta(t, 4.56, *out[0].Rating, 1e-9)
	assert.InDelta(t, 4.0, *out[1].Rating, 1e-9)
	require.NotNil(t, out[2].Rating)
	assert.InDelta(t, 4.0, *out[2].Rating, 1e-9, "out-of-range Airbnb rating re-extracted from text")
	assert.True(t, out[2].Date.Equal(fixedNow.AddDate(0, 0, -3)))
	assert.True(t, out[3].Date.IsZero())
	assert.Equal(t, domain.CategoryOther, out[3].Category)
	assert.Equal(t, domain.CategoryGeneral, out[1].Category)
	assert.Equal(t, "keep-this-hash", out[3].Hash)
	for _, r := range out {
		assert.NotEmpty(t, r.Hash)
	}

	assert.Equal(t, 2, rep.RatingsRescaled)
	assert.Equal(t, 1, rep.RatingsDropped)
	assert.Equal(t, 1, rep.RatingsExtracted)
	assert.Equal(t, 1, rep.DatesExtracted)
	assert.Equal(t, 1, rep.DatesUnresolved)
	assert.Equal(t, 3, rep.HashesAssigned)

	// input untouched
	assert.InDelta(t, 456.0, *in[0].Rating, 1e-9)
}

func TestRepair_Idempotent(t *testing.T) {
	in := []domain.Review{
		{Platform: domain.Booking, Text: "Puntuación: 7,0", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Platform: domain.Airbnb, Text: "Hace 2 semanas", Rating: ptr(1200.0)},
	}
	n := newTestNormalizer()
	once, _ := n.Repair(in, validCat)
	twice, rep := n.Repair(once, validCat)
	assert.Equal(t, once, twice)
	assert.False(t, rep.Changed())
}

func TestRepair_RatingAboveTenDividesThenRescalesOrDrops(t *testing.T) {
	in := []domain.Review{
		{Platform: domain.Airbnb, Text: "sin puntuación", Rating: ptr(1100.0), Date: fixedNow},
		{Platform: domain.Booking, Text: "sin puntuación", Rating: ptr(850.0), Date: fixedNow},
	}
	out, rep := newTestNormalizer().Repair(in, validCat)

	assert.Nil(t, out[0].Rating, "11 is not a valid Airbnb star rating")
	require.NotNil(t, out[1].Rating)
	assert.InDelta(t, 4.25, *out[1].Rating, 1e-9)
	assert.Equal(t, 1, rep.RatingsDropped)
	assert.Equal(t, 1, rep.RatingsRescaled)
}
