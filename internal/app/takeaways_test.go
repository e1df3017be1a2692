package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"safestay/internal/app"
	"safestay/internal/domain"
)

func seedOpinion(repo *fakeRepo, id string, lat, lon float64, relevant bool) {
	repo.opinions[id] = domain.CommunityOpinion{
		ID:             id,
		Source:         "reddit",
		ExternalID:     "ext-" + id,
		CityID:         1,
		Body:           ptr("Neighborhood feels fine at night."),
		Lat:            ptr(lat),
		Lon:            ptr(lon),
		SafetyRelevant: ptr(relevant),
	}
}

func TestTakeaways_GeneratesAndStores(t *testing.T) {
	repo := newFakeRepo()
	analyst := &fakeAnalyst{draft: domain.TakeawayDraft{
		Positive: []string{"Locals walk home late without issues"},
		Negative: []string{"Watch for car break-ins"},
	}}
	seedAccommodation(repo, "a1", 34.05, -118.25)
	seedOpinion(repo, "op-1", 34.051, -118.251, true)
	seedOpinion(repo, "op-2", 34.052, -118.252, true)
	// irrelevant and out-of-area opinions must not count
	seedOpinion(repo, "op-3", 34.053, -118.253, false)
	seedOpinion(repo, "op-4", 35.5, -118.25, true)

	svc := app.NewTakeawayService(repo, analyst, 24*time.Hour)
	got, err := svc.Takeaways(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Takeaways: %v", err)
	}
	if got.OpinionCount != 2 {
		t.Fatalf("expected 2 opinions considered, got %d", got.OpinionCount)
	}
	if len(got.Positive) != 1 || len(got.Negative) != 1 {
		t.Fatalf("unexpected summary: %+v", got)
	}
	if _, err := repo.GetTakeaways(context.Background(), "a1"); err != nil {
		t.Fatalf("expected stored takeaways: %v", err)
	}

	// Second call is served from storage without another LLM call.
	if _, err := svc.Takeaways(context.Background(), "a1"); err != nil {
		t.Fatalf("second Takeaways: %v", err)
	}
	if analyst.calls != 1 {
		t.Fatalf("expected 1 summarize call, got %d", analyst.calls)
	}
}

func TestTakeaways_ExpiredRegenerates(t *testing.T) {
	repo := newFakeRepo()
	analyst := &fakeAnalyst{draft: domain.TakeawayDraft{Positive: []string{"fresh"}}}
	seedAccommodation(repo, "a1", 34.05, -118.25)
	seedOpinion(repo, "op-1", 34.051, -118.251, true)

	past := time.Now().UTC().Add(-48 * time.Hour)
	repo.takeaways["a1"] = domain.Takeaways{
		AccommodationID: "a1",
		Positive:        []string{"stale"},
		CreatedAt:       past,
		ExpiresAt:       past.Add(24 * time.Hour),
	}

	svc := app.NewTakeawayService(repo, analyst, 24*time.Hour)
	got, err := svc.Takeaways(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Takeaways: %v", err)
	}
	if len(got.Positive) != 1 || got.Positive[0] != "fresh" {
		t.Fatalf("expected regenerated summary, got %+v", got)
	}
}

func TestTakeaways_SummarizerFailureServesStale(t *testing.T) {
	repo := newFakeRepo()
	analyst := &fakeAnalyst{err: errors.New("llm down")}
	seedAccommodation(repo, "a1", 34.05, -118.25)
	seedOpinion(repo, "op-1", 34.051, -118.251, true)

	past := time.Now().UTC().Add(-48 * time.Hour)
	repo.takeaways["a1"] = domain.Takeaways{
		AccommodationID: "a1",
		Positive:        []string{"stale but useful"},
		CreatedAt:       past,
		ExpiresAt:       past.Add(24 * time.Hour),
	}

	svc := app.NewTakeawayService(repo, analyst, 24*time.Hour)
	got, err := svc.Takeaways(context.Background(), "a1")
	if err != nil {
		t.Fatalf("expected stale summary, got error: %v", err)
	}
	if len(got.Positive) != 1 || got.Positive[0] != "stale but useful" {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestTakeaways_NoOpinionsShortExpiry(t *testing.T) {
	repo := newFakeRepo()
	analyst := &fakeAnalyst{}
	seedAccommodation(repo, "a1", 34.05, -118.25)

	svc := app.NewTakeawayService(repo, analyst, 24*time.Hour)
	got, err := svc.Takeaways(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Takeaways: %v", err)
	}
	if got.OpinionCount != 0 || len(got.Positive) != 0 {
		t.Fatalf("expected empty summary, got %+v", got)
	}
	if analyst.calls != 0 {
		t.Fatal("no opinions must not reach the LLM")
	}
	// empty result is cached for a fraction of the TTL
	if until := time.Until(got.ExpiresAt); until > 7*time.Hour {
		t.Fatalf("expected short expiry, got %v", until)
	}
}

func TestTakeaways_NoCoordinates(t *testing.T) {
	repo := newFakeRepo()
	repo.accommodations["a1"] = domain.Accommodation{ID: "a1", CityID: 1, Source: "airbnb", ExternalID: "x"}

	svc := app.NewTakeawayService(repo, &fakeAnalyst{}, time.Hour)
	_, err := svc.Takeaways(context.Background(), "a1")
	if !errors.Is(err, domain.ErrNoLocation) {
		t.Fatalf("expected ErrNoLocation, got %v", err)
	}
}
