package domain

import "time"

type MetricType string

const (
	MetricNight    MetricType = "night"
	MetricDaytime  MetricType = "daytime"
	MetricVehicle  MetricType = "vehicle"
	MetricTransit  MetricType = "transit"
	MetricWomen    MetricType = "women"
	MetricProperty MetricType = "property"
)

// MetricTypes lists every type in stable order. A full report carries one
// entry per type; the overall score averages whatever subset was found.
func MetricTypes() []MetricType {
	return []MetricType{
		MetricNight, MetricDaytime, MetricVehicle,
		MetricTransit, MetricWomen, MetricProperty,
	}
}

// SafetyMetric is one computed score (0-10, higher is safer) for a metric
// type at a grid-cell location. Rows expire and are replaced wholesale per
// city by the crime ingestion pipeline.
type SafetyMetric struct {
	ID                string // stable UUIDv5 of (city, cell, type)
	CityID            int64
	CellKey           string
	Lat, Lon          float64
	Type              MetricType
	Score             float64 // 0-10
	Question          string
	Description       string
	DirectIncidents   int
	WeightedIncidents float64
	IncidentsPer1000  float64
	Confidence        float64 // 0-1
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

func (m SafetyMetric) Expired(now time.Time) bool { return !now.Before(m.ExpiresAt) }

type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "Very Low"
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "Very High"
)

// RiskLevelFor buckets a 0-10 safety score into a risk level.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= 8:
		return RiskVeryLow
	case score >= 6:
		return RiskLow
	case score >= 4:
		return RiskModerate
	case score >= 2:
		return RiskHigh
	default:
		return RiskVeryHigh
	}
}

// CrimeIncident is one cleaned record from a city's open-data feed.
type CrimeIncident struct {
	Code       string
	Lat, Lon   float64
	OccurredAt time.Time
}

func (c CrimeIncident) Hour() int { return c.OccurredAt.UTC().Hour() }
