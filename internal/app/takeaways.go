package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"safestay/internal/domain"
	"safestay/internal/geo"
)

const (
	// opinionSearchKm bounds the opinions considered "near" a listing.
	opinionSearchKm = 5.0

	// maxOpinionsPerSummary caps the prompt size for one summarization call.
	maxOpinionsPerSummary = 40
)

type TakeawayService struct {
	repo    domain.Repository
	analyst domain.OpinionAnalyst
	ttl     time.Duration
}

func NewTakeawayService(r domain.Repository, a domain.OpinionAnalyst, ttl time.Duration) *TakeawayService {
	return &TakeawayService{repo: r, analyst: a, ttl: ttl}
}

// Takeaways returns the stored summary for an accommodation, regenerating it
// from nearby safety-relevant opinions when missing or expired. A listing
// with no nearby opinions yields an empty, short-lived summary so repeated
// misses don't hammer the LLM.
func (s *TakeawayService) Takeaways(ctx context.Context, accommodationID string) (domain.TakeawaysView, error) {
	now := time.Now().UTC()

	stored, err := s.repo.GetTakeaways(ctx, accommodationID)
	switch {
	case err == nil && !stored.Expired(now):
		return takeawaysView(stored), nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return domain.TakeawaysView{}, err
	}

	a, err := s.repo.GetAccommodation(ctx, accommodationID)
	if err != nil {
		return domain.TakeawaysView{}, err
	}
	if a.Lat == nil || a.Lon == nil {
		return domain.TakeawaysView{}, domain.ErrNoLocation
	}
	loc := domain.Coords{Lat: *a.Lat, Lon: *a.Lon}

	ops, err := s.repo.ListRelevantOpinionsInBounds(ctx, geo.BoundingBox(loc, opinionSearchKm), maxOpinionsPerSummary)
	if err != nil {
		return domain.TakeawaysView{}, err
	}

	t := domain.Takeaways{
		AccommodationID: accommodationID,
		OpinionCount:    len(ops),
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.ttl),
	}
	if len(ops) == 0 {
		// Nothing to summarize; cache the empty result for a fraction of
		// the normal TTL so fresh opinions surface sooner.
		t.ExpiresAt = now.Add(s.ttl / 4)
	} else {
		draft, err := s.analyst.SummarizeTakeaways(ctx, ops)
		if err != nil {
			// Serve a stale summary over an error when we have one.
			if stored.AccommodationID != "" {
				log.Warn().Err(err).Str("accommodation", accommodationID).
					Msg("takeaway regeneration failed, serving stale summary")
				return takeawaysView(stored), nil
			}
			return domain.TakeawaysView{}, err
		}
		t.Positive = draft.Positive
		t.Negative = draft.Negative
	}

	if err := s.repo.UpsertTakeaways(ctx, t); err != nil {
		log.Warn().Err(err).Str("accommodation", accommodationID).Msg("takeaway upsert failed")
	}
	return takeawaysView(t), nil
}

func takeawaysView(t domain.Takeaways) domain.TakeawaysView {
	return domain.TakeawaysView{
		AccommodationID: t.AccommodationID,
		Positive:        t.Positive,
		Negative:        t.Negative,
		OpinionCount:    t.OpinionCount,
		GeneratedAt:     t.CreatedAt,
		ExpiresAt:       t.ExpiresAt,
	}
}
