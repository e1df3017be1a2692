package domain

import (
	"context"
	"time"
)

type Repository interface {
	// Accommodation paths
	GetAccommodation(ctx context.Context, id string) (Accommodation, error)
	GetAccommodationByListing(ctx context.Context, ref ListingRef) (Accommodation, error)
	UpsertAccommodation(ctx context.Context, a Accommodation) error
	ListAccommodationsInBounds(ctx context.Context, cityID int64, b Bounds) ([]Accommodation, error)
	ListCityAccommodations(ctx context.Context, cityID int64) ([]Accommodation, error)
	UpdateAccommodationScores(ctx context.Context, updates []AccommodationScoreUpdate) error

	// Safety metric paths
	ListMetricsInBounds(ctx context.Context, b Bounds, notAfter time.Time) ([]SafetyMetric, error)
	ReplaceCityMetrics(ctx context.Context, cityID int64, ms []SafetyMetric) error

	// City paths
	GetCity(ctx context.Context, id int64) (City, error)

	// Opinion paths
	UpsertOpinions(ctx context.Context, ops []CommunityOpinion) error
	ListRelevantOpinionsInBounds(ctx context.Context, b Bounds, limit int) ([]CommunityOpinion, error)
	ListUnclassifiedOpinions(ctx context.Context, limit int) ([]CommunityOpinion, error)
	SetOpinionRelevance(ctx context.Context, id string, relevant bool) error

	// Takeaway paths
	GetTakeaways(ctx context.Context, accommodationID string) (Takeaways, error)
	UpsertTakeaways(ctx context.Context, t Takeaways) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// CrimeSource fetches cleaned incident records from a city's open-data feed.
type CrimeSource interface {
	FetchIncidents(ctx context.Context, since time.Time, max int) ([]CrimeIncident, error)
}

// POISource counts safety-relevant points of interest around a location.
type POISource interface {
	CountNearby(ctx context.Context, c Coords, radiusM int) (POICounts, error)
}

type POICounts struct {
	Police       int
	StreetLights int
	Nightlife    int
}

// Geocoder resolves place names to coordinates and back.
type Geocoder interface {
	// Forward geocodes a place name, biased toward the given proximity.
	// ok is false when the geocoder has no confident match.
	Forward(ctx context.Context, place string, proximity Coords) (c Coords, ok bool, err error)
	// ReverseContext returns the containing place names (neighbourhood,
	// city, region, country) for a coordinate.
	ReverseContext(ctx context.Context, c Coords) ([]string, error)
}

// OpinionSource fetches scraped social-media posts from an external dataset.
type OpinionSource interface {
	FetchPosts(ctx context.Context, datasetID string, limit int) ([]RawPost, error)
}

type RawPost struct {
	ID        string
	Title     string
	Body      string
	Author    string
	Permalink string
	CreatedAt *time.Time
	RawJSON   []byte
}

// OpinionAnalyst is the hosted-LLM port for relevance classification and
// takeaway summarization.
type OpinionAnalyst interface {
	// ClassifySafetyRelevance returns, keyed by opinion ID, whether each
	// post discusses neighbourhood safety.
	ClassifySafetyRelevance(ctx context.Context, ops []CommunityOpinion) (map[string]bool, error)
	SummarizeTakeaways(ctx context.Context, ops []CommunityOpinion) (TakeawayDraft, error)
}

// Read models

type AccommodationView struct {
	ID            string     `json:"id"`
	Source        string     `json:"source"`
	ExternalID    string     `json:"external_id"`
	Name          *string    `json:"name,omitempty"`
	URL           *string    `json:"url,omitempty"`
	PropertyType  *string    `json:"property_type,omitempty"`
	PricePerNight *float64   `json:"price_per_night,omitempty"`
	Currency      *string    `json:"currency,omitempty"`
	Coords        *Coords    `json:"coords,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	OverallScore  *int       `json:"overall_score,omitempty"`
	RiskLevel     *RiskLevel `json:"risk_level,omitempty"`
}

type MetricView struct {
	Type        MetricType `json:"type"`
	Score       float64    `json:"score"`
	RiskLevel   RiskLevel  `json:"risk_level"`
	Question    string     `json:"question"`
	Description string     `json:"description"`
	DistanceKm  float64    `json:"distance_km"`
	Confidence  float64    `json:"confidence"`
}

type POISummary struct {
	Police       POIView `json:"police"`
	StreetLights POIView `json:"street_lights"`
	Nightlife    POIView `json:"nightlife"`
}

type POIView struct {
	Count int       `json:"count"`
	Risk  RiskLevel `json:"risk"`
}

type SafetyReport struct {
	Accommodation AccommodationView `json:"accommodation"`
	OverallScore  *int              `json:"overall_score,omitempty"`
	RiskLevel     *RiskLevel        `json:"risk_level,omitempty"`
	Metrics       []MetricView      `json:"metrics"`
	POI           *POISummary       `json:"poi,omitempty"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type SimilarStay struct {
	Accommodation AccommodationView `json:"accommodation"`
	OverallScore  int               `json:"overall_score"`
	RiskLevel     RiskLevel         `json:"risk_level"`
	DistanceKm    float64           `json:"distance_km"`
}

type TakeawaysView struct {
	AccommodationID string    `json:"accommodation_id"`
	Positive        []string  `json:"positive"`
	Negative        []string  `json:"negative"`
	OpinionCount    int       `json:"opinion_count"`
	GeneratedAt     time.Time `json:"generated_at"`
	ExpiresAt       time.Time `json:"expires_at"`
}
