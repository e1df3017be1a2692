package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"safestay/internal/domain"
	"safestay/internal/geo"
)

const (
	// metricExpiry is how long computed metrics stay servable before a
	// re-ingestion must replace them.
	metricExpiry = 90 * 24 * time.Hour

	scoreUpdateBatchSize = 500
)

// MetricsPipeline turns a city's raw crime feed into per-cell safety
// metrics and refreshes every accommodation's overall score afterwards.
type MetricsPipeline struct {
	crimes  domain.CrimeSource
	repo    domain.Repository
	cache   domain.Cache
	dataset string // code-set key, e.g. "lapd"

	// trustHours is false for feeds whose timestamps are too coarse to
	// support hour filtering (arrest feeds that only carry a date).
	trustHours bool

	cellKm float64
}

func NewMetricsPipeline(crimes domain.CrimeSource, repo domain.Repository, cache domain.Cache, dataset string, trustHours bool) *MetricsPipeline {
	return &MetricsPipeline{
		crimes:     crimes,
		repo:       repo,
		cache:      cache,
		dataset:    dataset,
		trustHours: trustHours,
		cellKm:     geo.DefaultCellKm,
	}
}

// Run executes the full pipeline for one city: fetch, bucket, score,
// replace, refresh. Returns the number of in-bounds incidents processed.
func (p *MetricsPipeline) Run(ctx context.Context, cityID int64, daysBack, maxRecords int) (int, error) {
	city, err := p.repo.GetCity(ctx, cityID)
	if err != nil {
		return 0, fmt.Errorf("load city %d: %w", cityID, err)
	}

	since := time.Now().UTC().AddDate(0, 0, -daysBack)
	incidents, err := p.crimes.FetchIncidents(ctx, since, maxRecords)
	if err != nil {
		return 0, fmt.Errorf("fetch incidents for %s: %w", city.Name, err)
	}
	log.Info().Str("city", city.Name).Int("incidents", len(incidents)).Msg("crime fetch complete")

	kept := incidents[:0]
	for _, in := range incidents {
		if city.Bounds.Contains(in.Lat, in.Lon) {
			kept = append(kept, in)
		}
	}
	if dropped := len(incidents) - len(kept); dropped > 0 {
		log.Info().Int("dropped", dropped).Msg("incidents outside city bounds discarded")
	}

	metrics := p.computeMetrics(cityID, kept)
	log.Info().Str("city", city.Name).Int("metrics", len(metrics)).Msg("metric computation complete")

	if err := p.repo.ReplaceCityMetrics(ctx, cityID, metrics); err != nil {
		return 0, fmt.Errorf("replace metrics for %s: %w", city.Name, err)
	}

	return len(kept), p.RefreshAccommodationScores(ctx, cityID)
}

type cellAgg struct {
	cell  geo.Cell
	count int
	// running sums for the mean incident location inside the cell
	sumLat, sumLon float64
}

// computeMetrics buckets incidents per grid cell for each metric type and
// scores every cell that saw at least one relevant incident.
func (p *MetricsPipeline) computeMetrics(cityID int64, incidents []domain.CrimeIncident) []domain.SafetyMetric {
	now := time.Now().UTC()
	expires := now.Add(metricExpiry)
	total := len(incidents)

	var out []domain.SafetyMetric
	for _, t := range domain.MetricTypes() {
		codes := CodesFor(p.dataset, t)
		if len(codes) == 0 {
			log.Warn().Str("dataset", p.dataset).Str("metric", string(t)).Msg("no code mapping, metric skipped")
			continue
		}
		codeSet := make(map[string]struct{}, len(codes))
		for _, c := range codes {
			codeSet[c] = struct{}{}
		}
		hourOK := metricHourFilters[t]

		cells := make(map[string]*cellAgg)
		for _, in := range incidents {
			if _, ok := codeSet[in.Code]; !ok {
				continue
			}
			if hourOK != nil && p.trustHours && !hourOK(in.Hour()) {
				continue
			}
			cell := geo.CellForPoint(in.Lat, in.Lon, p.cellKm)
			agg, ok := cells[cell.Key()]
			if !ok {
				agg = &cellAgg{cell: cell}
				cells[cell.Key()] = agg
			}
			agg.count++
			agg.sumLat += in.Lat
			agg.sumLon += in.Lon
		}

		for key, agg := range cells {
			neighborTotal := 0
			for _, nk := range geo.NeighborKeys(agg.cell) {
				if n, ok := cells[nk]; ok {
					neighborTotal += n.count
				}
			}
			weighted := WeightedIncidents(agg.count, neighborTotal)
			score := SafetyScore(weighted)

			per1000 := 0.0
			if total > 0 {
				per1000 = float64(agg.count) / float64(total) * 1000
			}

			out = append(out, domain.SafetyMetric{
				ID:                metricID(cityID, key, t),
				CityID:            cityID,
				CellKey:           key,
				Lat:               agg.sumLat / float64(agg.count),
				Lon:               agg.sumLon / float64(agg.count),
				Type:              t,
				Score:             score,
				Question:          MetricQuestion(t),
				Description:       DescribeRisk(t, score),
				DirectIncidents:   agg.count,
				WeightedIncidents: weighted,
				IncidentsPer1000:  per1000,
				Confidence:        Confidence(agg.count),
				CreatedAt:         now,
				ExpiresAt:         expires,
			})
		}
	}
	return out
}

// metricID derives a stable UUIDv5 so re-ingestion keeps row identity.
func metricID(cityID int64, cellKey string, t domain.MetricType) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(fmt.Sprintf("%d:%s:%s", cityID, cellKey, t))).String()
}

// RefreshAccommodationScores recomputes every listing's overall score from
// the nearest current metric of each type, then drops stale report caches.
func (p *MetricsPipeline) RefreshAccommodationScores(ctx context.Context, cityID int64) error {
	city, err := p.repo.GetCity(ctx, cityID)
	if err != nil {
		return err
	}
	now := time.Now().UTC()

	metrics, err := p.repo.ListMetricsInBounds(ctx, city.Bounds, now)
	if err != nil {
		return err
	}
	accs, err := p.repo.ListCityAccommodations(ctx, cityID)
	if err != nil {
		return err
	}

	updates := make([]domain.AccommodationScoreUpdate, 0, len(accs))
	for _, a := range accs {
		u := domain.AccommodationScoreUpdate{ID: a.ID, UpdatedAt: now}
		if a.Lat != nil && a.Lon != nil {
			loc := domain.Coords{Lat: *a.Lat, Lon: *a.Lon}
			nearest := nearestMetricPerType(loc, metrics, maxMetricLinkKm)

			scores := make([]float64, 0, len(nearest))
			for _, nm := range nearest {
				scores = append(scores, nm.metric.Score)
			}
			if overall, ok := OverallScore(scores); ok {
				found := len(nearest)
				u.OverallScore = &overall
				u.MetricTypesFound = &found
			}
			cellKey := geo.CellForPoint(loc.Lat, loc.Lon, p.cellKm).Key()
			u.CellKey = &cellKey
		}
		updates = append(updates, u)
	}

	for i := 0; i < len(updates); i += scoreUpdateBatchSize {
		end := i + scoreUpdateBatchSize
		if end > len(updates) {
			end = len(updates)
		}
		if err := p.repo.UpdateAccommodationScores(ctx, updates[i:end]); err != nil {
			return fmt.Errorf("update accommodation scores: %w", err)
		}
	}

	// Cached reports and ranked alternatives both embed scores that just
	// changed; drop them so the strictly-safer ordering is never stale.
	if p.cache != nil {
		for _, a := range accs {
			_ = p.cache.Del(ctx, reportCacheKey(a.ID))
			_ = p.cache.Del(ctx, similarCacheKey(a.ID))
		}
	}
	log.Info().Str("city", city.Name).Int("accommodations", len(updates)).Msg("overall scores refreshed")
	return nil
}
