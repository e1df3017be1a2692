package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"safestay/internal/domain"
	"safestay/internal/geo"
)

const (
	// maxMetricLinkKm is the farthest a metric may sit from a listing and
	// still contribute to its report.
	maxMetricLinkKm = 4.0

	poiRadiusM = 800
)

type ReportService struct {
	repo     domain.Repository
	cache    domain.Cache
	poi      domain.POISource
	cacheTTL time.Duration
}

func NewReportService(r domain.Repository, c domain.Cache, poi domain.POISource, ttl time.Duration) *ReportService {
	return &ReportService{repo: r, cache: c, poi: poi, cacheTTL: ttl}
}

// GetReportByURL resolves a listing URL to a stored accommodation and builds
// its safety report.
func (s *ReportService) GetReportByURL(ctx context.Context, rawURL string) (domain.SafetyReport, error) {
	ref, err := ParseListingURL(rawURL)
	if err != nil {
		return domain.SafetyReport{}, err
	}
	a, err := s.repo.GetAccommodationByListing(ctx, ref)
	if err != nil {
		return domain.SafetyReport{}, err
	}
	return s.GetReport(ctx, a.ID)
}

// GetReport assembles the safety report for one accommodation: the nearest
// non-expired metric of each type within the link radius, the overall score,
// and a points-of-interest summary.
func (s *ReportService) GetReport(ctx context.Context, id string) (domain.SafetyReport, error) {
	key := reportCacheKey(id)
	var cached domain.SafetyReport
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	a, err := s.repo.GetAccommodation(ctx, id)
	if err != nil {
		return domain.SafetyReport{}, err
	}
	if a.Lat == nil || a.Lon == nil {
		return domain.SafetyReport{}, domain.ErrNoLocation
	}
	loc := domain.Coords{Lat: *a.Lat, Lon: *a.Lon}

	now := time.Now().UTC()
	metrics, err := s.repo.ListMetricsInBounds(ctx, geo.BoundingBox(loc, maxMetricLinkKm), now)
	if err != nil {
		return domain.SafetyReport{}, err
	}

	nearest := nearestMetricPerType(loc, metrics, maxMetricLinkKm)

	views := make([]domain.MetricView, 0, len(nearest))
	scores := make([]float64, 0, len(nearest))
	for _, t := range domain.MetricTypes() {
		nm, ok := nearest[t]
		if !ok {
			continue
		}
		views = append(views, domain.MetricView{
			Type:        t,
			Score:       nm.metric.Score,
			RiskLevel:   domain.RiskLevelFor(nm.metric.Score),
			Question:    nm.metric.Question,
			Description: nm.metric.Description,
			DistanceKm:  nm.distanceKm,
			Confidence:  nm.metric.Confidence,
		})
		scores = append(scores, nm.metric.Score)
	}

	report := domain.SafetyReport{
		Accommodation: accommodationView(a),
		Metrics:       views,
		GeneratedAt:   now,
	}
	if overall, ok := OverallScore(scores); ok {
		level := domain.RiskLevelFor(float64(overall) / 10)
		report.OverallScore = &overall
		report.RiskLevel = &level
	}

	// POI counts are decoration; a failed lookup drops the block rather
	// than the report.
	if s.poi != nil {
		if counts, err := s.poi.CountNearby(ctx, loc, poiRadiusM); err != nil {
			log.Warn().Err(err).Str("accommodation", id).Msg("poi lookup failed")
		} else {
			sum := summarizePOI(counts)
			report.POI = &sum
		}
	}

	_ = s.cache.Set(ctx, key, report, int(s.cacheTTL.Seconds()))
	return report, nil
}

type nearestMetric struct {
	metric     domain.SafetyMetric
	distanceKm float64
}

// nearestMetricPerType keeps, for each metric type, the closest metric to
// loc within maxKm.
func nearestMetricPerType(loc domain.Coords, metrics []domain.SafetyMetric, maxKm float64) map[domain.MetricType]nearestMetric {
	out := make(map[domain.MetricType]nearestMetric, len(domain.MetricTypes()))
	for _, m := range metrics {
		d := geo.HaversineKm(loc.Lat, loc.Lon, m.Lat, m.Lon)
		if d > maxKm {
			continue
		}
		if cur, ok := out[m.Type]; !ok || d < cur.distanceKm {
			out[m.Type] = nearestMetric{metric: m, distanceKm: d}
		}
	}
	return out
}

// summarizePOI buckets raw counts into risk levels. More police presence and
// street lighting lower risk; dense nightlife raises it.
func summarizePOI(c domain.POICounts) domain.POISummary {
	return domain.POISummary{
		Police:       domain.POIView{Count: c.Police, Risk: bucketScarcity(c.Police, 1, 3)},
		StreetLights: domain.POIView{Count: c.StreetLights, Risk: bucketScarcity(c.StreetLights, 10, 40)},
		Nightlife:    domain.POIView{Count: c.Nightlife, Risk: bucketDensity(c.Nightlife, 5, 15)},
	}
}

// bucketScarcity: fewer features means more risk.
func bucketScarcity(n, low, high int) domain.RiskLevel {
	switch {
	case n >= high:
		return domain.RiskVeryLow
	case n >= low:
		return domain.RiskLow
	case n > 0:
		return domain.RiskModerate
	default:
		return domain.RiskHigh
	}
}

// bucketDensity: more features means more risk.
func bucketDensity(n, low, high int) domain.RiskLevel {
	switch {
	case n >= high:
		return domain.RiskHigh
	case n >= low:
		return domain.RiskModerate
	case n > 0:
		return domain.RiskLow
	default:
		return domain.RiskVeryLow
	}
}

func accommodationView(a domain.Accommodation) domain.AccommodationView {
	v := domain.AccommodationView{
		ID:            a.ID,
		Source:        a.Source,
		ExternalID:    a.ExternalID,
		Name:          a.Name,
		URL:           a.URL,
		PropertyType:  a.PropertyType,
		PricePerNight: a.PricePerNight,
		Currency:      a.Currency,
		Rating:        a.Rating,
		OverallScore:  a.OverallScore,
	}
	if a.Lat != nil && a.Lon != nil {
		v.Coords = &domain.Coords{Lat: *a.Lat, Lon: *a.Lon}
	}
	if a.OverallScore != nil {
		level := domain.RiskLevelFor(float64(*a.OverallScore) / 10)
		v.RiskLevel = &level
	}
	return v
}

func reportCacheKey(id string) string { return fmt.Sprintf("report:%s", id) }
