package app_test

import (
	"context"
	"errors"
	"testing"

	"review_monitor/internal/app"
	"review_monitor/internal/domain"
)

func TestParseImport(t *testing.T) {
	in := `Loft Centro https://www.airbnb.es/rooms/1 https://www.booking.com/hotel/es/loft.html

Ático Playa - https://www.booking.com/hotel/es/atico.html
https://www.airbnb.es/rooms/9
Casa Rural`

	got := app.ParseImport(in)
	if len(got) != 3 {
		t.Fatalf("want 3 accommodations, got %+v", got)
	}
	if got[0].Name != "Loft Centro" || got[0].AirbnbURL != "https://www.airbnb.es/rooms/1" ||
		got[0].BookingURL != "https://www.booking.com/hotel/es/loft.html" {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Name != "Ático Playa" || got[1].AirbnbURL != "" || got[1].BookingURL == "" {
		t.Fatalf("second = %+v", got[1])
	}
	if got[2].Name != "Casa Rural" || got[2].AirbnbURL != "" || got[2].BookingURL != "" {
		t.Fatalf("third = %+v", got[2])
	}
}

func TestRoster_ImportUpsertsByName(t *testing.T) {
	repo := &fakeRoster{accs: []domain.Accommodation{{Name: "Loft Centro"}}}
	svc := app.NewRosterService(repo, nil)

	n, err := svc.Import(context.Background(), "loft centro https://www.airbnb.es/rooms/1\nNuevo https://www.booking.com/x")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 || len(repo.accs) != 2 || repo.accs[0].AirbnbURL == "" {
		t.Fatalf("n=%d accs=%+v", n, repo.accs)
	}
}

func TestRoster_Accommodations(t *testing.T) {
	repo := &fakeRoster{}
	svc := app.NewRosterService(repo, nil)
	ctx := context.Background()

	if err := svc.AddAccommodation(ctx, domain.Accommodation{Name: "  "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
	if err := svc.AddAccommodation(ctx, domain.Accommodation{Name: "Loft", AirbnbURL: " https://a "}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if repo.accs[0].AirbnbURL != "https://a" {
		t.Fatalf("urls must be trimmed: %+v", repo.accs[0])
	}
	if err := svc.RemoveAccommodation(ctx, "loft"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.RemoveAccommodation(ctx, "loft"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	list, _ := svc.Accommodations(ctx)
	if list == nil || len(list) != 0 {
		t.Fatalf("list = %#v", list)
	}
}

func TestRoster_CleanersHaveNoDuplicates(t *testing.T) {
	repo := &fakeRoster{}
	cache := &fakeCache{}
	svc := app.NewRosterService(repo, cache)
	ctx := context.Background()

	for _, n := range []string{"Lucía", "lucía ", "Marta"} {
		if err := svc.AddCleaner(ctx, n); err != nil {
			t.Fatalf("add %q: %v", n, err)
		}
	}
	if len(repo.cleaners) != 2 {
		t.Fatalf("cleaners = %v", repo.cleaners)
	}
	if err := svc.RemoveCleaner(ctx, "Marta"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(repo.cleaners) != 1 || cache.dels == 0 {
		t.Fatalf("cleaners = %v dels=%d", repo.cleaners, cache.dels)
	}
}
