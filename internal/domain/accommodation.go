package domain

import "time"

type Accommodation struct {
	ID            string // stable UUID
	CityID        int64
	Source        string // airbnb|booking|vrbo
	ExternalID    string // listing id on the source platform
	URL           *string
	Name          *string
	PropertyType  *string // entire_place|private_room|shared_room|hotel_room
	PricePerNight *float64
	Currency      *string
	Lat, Lon      *float64
	Rating        *float64
	ImageURL      *string

	// Refreshed by the metrics pipeline after each run.
	OverallScore     *int // 0-100
	MetricTypesFound *int
	CellKey          *string

	RawJSON []byte // full scraped payload
}

type City struct {
	ID      int64
	Name    string
	Country string
	Bounds  Bounds
}

// Bounds is a lat/lon bounding box (south-west and north-east corners).
type Bounds struct {
	SWLat, SWLon float64
	NELat, NELon float64
}

func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.SWLat && lat <= b.NELat && lon >= b.SWLon && lon <= b.NELon
}

type Coords struct{ Lat, Lon float64 }

// ListingRef identifies a listing on an external platform.
type ListingRef struct {
	Source     string
	ExternalID string
}

// AccommodationScoreUpdate carries a recomputed overall score for one listing.
type AccommodationScoreUpdate struct {
	ID               string
	OverallScore     *int
	MetricTypesFound *int
	CellKey          *string
	UpdatedAt        time.Time
}
