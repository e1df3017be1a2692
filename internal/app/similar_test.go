package app_test

import (
	"context"
	"testing"
	"time"

	"safestay/internal/app"
	"safestay/internal/domain"
)

func seedScored(repo *fakeRepo, id string, lat, lon float64, score int, price float64, ptype string) {
	repo.accommodations[id] = domain.Accommodation{
		ID:            id,
		CityID:        1,
		Source:        "airbnb",
		ExternalID:    "ext-" + id,
		Name:          ptr("Stay " + id),
		PropertyType:  ptr(ptype),
		PricePerNight: ptr(price),
		Lat:           ptr(lat),
		Lon:           ptr(lon),
		OverallScore:  ptr(score),
	}
}

func TestSimilarStays_FiltersAndSorts(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{}
	svc := app.NewReportService(repo, cache, nil, 10*time.Minute)

	seedScored(repo, "subject", 34.05, -118.25, 60, 100, "entire_place")
	// safer, in band, close: kept
	seedScored(repo, "best", 34.051, -118.251, 85, 110, "entire_place")
	seedScored(repo, "good", 34.052, -118.252, 75, 95, "entire_place")
	// equal score: dropped (must be strictly safer)
	seedScored(repo, "equal", 34.053, -118.253, 60, 100, "entire_place")
	// safer but out of price band: dropped
	seedScored(repo, "pricey", 34.054, -118.254, 90, 200, "entire_place")
	// safer but different property type: dropped
	seedScored(repo, "hotel", 34.055, -118.255, 90, 100, "hotel_room")
	// safer but too far (well outside 3km): dropped by the bounds query
	seedScored(repo, "faraway", 34.2, -118.25, 95, 100, "entire_place")
	// no score yet: dropped
	repo.accommodations["unscored"] = domain.Accommodation{
		ID: "unscored", CityID: 1, Source: "airbnb", ExternalID: "u",
		Lat: ptr(34.056), Lon: ptr(-118.256), PricePerNight: ptr(100.0),
	}

	got, err := svc.SimilarStays(context.Background(), "subject", 10)
	if err != nil {
		t.Fatalf("SimilarStays: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 alternatives, got %d: %+v", len(got), got)
	}
	if got[0].Accommodation.ID != "best" || got[1].Accommodation.ID != "good" {
		t.Fatalf("expected score-descending order, got %s then %s",
			got[0].Accommodation.ID, got[1].Accommodation.ID)
	}
	if got[0].RiskLevel != domain.RiskVeryLow {
		t.Fatalf("85 overall should read Very Low, got %s", got[0].RiskLevel)
	}
}

func TestSimilarStays_LimitAndCache(t *testing.T) {
	repo := newFakeRepo()
	cache := &fakeCache{}
	svc := app.NewReportService(repo, cache, nil, 10*time.Minute)

	seedScored(repo, "subject", 34.05, -118.25, 50, 100, "entire_place")
	seedScored(repo, "alt1", 34.051, -118.251, 80, 100, "entire_place")
	seedScored(repo, "alt2", 34.052, -118.252, 70, 100, "entire_place")
	seedScored(repo, "alt3", 34.053, -118.253, 60, 100, "entire_place")

	got, err := svc.SimilarStays(context.Background(), "subject", 2)
	if err != nil {
		t.Fatalf("SimilarStays: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected limit applied, got %d", len(got))
	}

	// Second call comes from cache: remove candidates, expect same result.
	delete(repo.accommodations, "alt1")
	got2, err := svc.SimilarStays(context.Background(), "subject", 2)
	if err != nil {
		t.Fatalf("SimilarStays cached: %v", err)
	}
	if len(got2) != 2 || got2[0].Accommodation.ID != got[0].Accommodation.ID {
		t.Fatalf("expected cached alternatives, got %+v", got2)
	}

	// Any other limit slices the same cached list.
	got3, err := svc.SimilarStays(context.Background(), "subject", 1)
	if err != nil {
		t.Fatalf("SimilarStays limit 1: %v", err)
	}
	if len(got3) != 1 || got3[0].Accommodation.ID != got[0].Accommodation.ID {
		t.Fatalf("expected sliced cached list, got %+v", got3)
	}
}

func TestSimilarStays_ScoreRefreshInvalidatesCache(t *testing.T) {
	repo := newFakeRepo()
	repo.cities[1] = laCity()
	cache := &fakeCache{}
	svc := app.NewReportService(repo, cache, nil, 10*time.Minute)

	seedScored(repo, "subject", 34.05, -118.25, 40, 100, "entire_place")
	seedScored(repo, "alt", 34.051, -118.251, 90, 100, "entire_place")

	got, err := svc.SimilarStays(context.Background(), "subject", 10)
	if err != nil {
		t.Fatalf("SimilarStays: %v", err)
	}
	if len(got) != 1 || got[0].OverallScore != 90 {
		t.Fatalf("expected the safer alternative, got %+v", got)
	}

	// A metrics run recomputes scores (here: no current metrics, so they
	// clear) and must flush the ranked list along with the reports.
	p := app.NewMetricsPipeline(&fakeCrimes{}, repo, cache, "lapd", true)
	if err := p.RefreshAccommodationScores(context.Background(), 1); err != nil {
		t.Fatalf("RefreshAccommodationScores: %v", err)
	}

	got2, err := svc.SimilarStays(context.Background(), "subject", 10)
	if err != nil {
		t.Fatalf("SimilarStays after refresh: %v", err)
	}
	if len(got2) != 0 {
		t.Fatalf("stale cached alternatives served after score refresh: %+v", got2)
	}
}

func TestSimilarStays_UnknownPriceIsKept(t *testing.T) {
	repo := newFakeRepo()
	svc := app.NewReportService(repo, &fakeCache{}, nil, time.Minute)

	seedScored(repo, "subject", 34.05, -118.25, 50, 100, "entire_place")
	repo.accommodations["noprice"] = domain.Accommodation{
		ID: "noprice", CityID: 1, Source: "airbnb", ExternalID: "np",
		PropertyType: ptr("entire_place"),
		Lat:          ptr(34.051), Lon: ptr(-118.251), OverallScore: ptr(70),
	}

	got, err := svc.SimilarStays(context.Background(), "subject", 10)
	if err != nil {
		t.Fatalf("SimilarStays: %v", err)
	}
	if len(got) != 1 || got[0].Accommodation.ID != "noprice" {
		t.Fatalf("expected unknown-price candidate kept, got %+v", got)
	}
}
