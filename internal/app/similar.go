package app

import (
	"context"
	"fmt"
	"sort"

	"safestay/internal/domain"
	"safestay/internal/geo"
)

const (
	// similarSearchKm bounds the search for alternative stays.
	similarSearchKm = 3.0

	// priceBandFraction keeps alternatives within ±30% of the subject's
	// nightly price when the price is known.
	priceBandFraction = 0.30

	defaultSimilarLimit = 10
	maxSimilarLimit     = 50
)

// SimilarStays returns accommodations near the subject that are strictly
// safer (higher overall score), within the price band, sorted by score
// descending with distance as the tiebreak. The full ranked list is cached
// once per accommodation; the limit only slices the cached result, so every
// limit shares one cache entry and one invalidation.
func (s *ReportService) SimilarStays(ctx context.Context, id string, limit int) ([]domain.SimilarStay, error) {
	if limit <= 0 {
		limit = defaultSimilarLimit
	}
	if limit > maxSimilarLimit {
		limit = maxSimilarLimit
	}

	key := similarCacheKey(id)
	var cached []domain.SimilarStay
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	subject, err := s.repo.GetAccommodation(ctx, id)
	if err != nil {
		return nil, err
	}
	if subject.Lat == nil || subject.Lon == nil {
		return nil, domain.ErrNoLocation
	}
	loc := domain.Coords{Lat: *subject.Lat, Lon: *subject.Lon}

	candidates, err := s.repo.ListAccommodationsInBounds(ctx, subject.CityID, geo.BoundingBox(loc, similarSearchKm))
	if err != nil {
		return nil, err
	}

	subjectScore := 0
	if subject.OverallScore != nil {
		subjectScore = *subject.OverallScore
	}

	out := make([]domain.SimilarStay, 0, maxSimilarLimit)
	for _, c := range candidates {
		if c.ID == subject.ID || c.Lat == nil || c.Lon == nil || c.OverallScore == nil {
			continue
		}
		// Strictly safer only.
		if *c.OverallScore <= subjectScore {
			continue
		}
		if !withinPriceBand(subject.PricePerNight, c.PricePerNight) {
			continue
		}
		if !sameKindOfPlace(subject.PropertyType, c.PropertyType) {
			continue
		}
		d := geo.HaversineKm(loc.Lat, loc.Lon, *c.Lat, *c.Lon)
		if d > similarSearchKm {
			continue
		}
		out = append(out, domain.SimilarStay{
			Accommodation: accommodationView(c),
			OverallScore:  *c.OverallScore,
			RiskLevel:     domain.RiskLevelFor(float64(*c.OverallScore) / 10),
			DistanceKm:    d,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].OverallScore != out[j].OverallScore {
			return out[i].OverallScore > out[j].OverallScore
		}
		return out[i].DistanceKm < out[j].DistanceKm
	})
	if len(out) > maxSimilarLimit {
		out = out[:maxSimilarLimit]
	}

	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// withinPriceBand accepts a candidate when either price is unknown, or when
// the candidate's nightly price sits inside the subject's band.
func withinPriceBand(subject, candidate *float64) bool {
	if subject == nil || candidate == nil || *subject <= 0 {
		return true
	}
	lo := *subject * (1 - priceBandFraction)
	hi := *subject * (1 + priceBandFraction)
	return *candidate >= lo && *candidate <= hi
}

// sameKindOfPlace filters by property type only when both sides declare one.
func sameKindOfPlace(subject, candidate *string) bool {
	if subject == nil || candidate == nil {
		return true
	}
	return *subject == *candidate
}

func similarCacheKey(id string) string { return fmt.Sprintf("similar:%s", id) }
