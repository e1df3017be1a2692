package app

import (
	"fmt"
	"math"

	"safestay/internal/domain"
)

const (
	// neighborIncidentWeight discounts incidents from surrounding cells
	// before they contribute to a cell's score.
	neighborIncidentWeight = 0.25

	// scoreDecayK controls how fast the 0-10 score falls as weighted
	// incidents grow: score = 10 * exp(-k * weighted).
	scoreDecayK = 0.005

	confidenceMinIncidents = 5
	confidenceMaxIncidents = 50
)

// WeightedIncidents combines a cell's own incidents with a fraction of the
// incidents in its neighboring cells.
func WeightedIncidents(direct int, neighborTotal int) float64 {
	return float64(direct) + neighborIncidentWeight*float64(neighborTotal)
}

// SafetyScore maps weighted incidents onto a 0-10 scale via exponential
// decay; zero incidents score a 10.
func SafetyScore(weighted float64) float64 {
	if weighted < 0 {
		weighted = 0
	}
	return 10.0 * math.Exp(-scoreDecayK*weighted)
}

// Confidence ramps from 0.5 to 1.0 as a cell's incident count moves between
// the min and max thresholds. Sparse cells keep a base confidence of 0.5.
func Confidence(incidents int) float64 {
	switch {
	case incidents < confidenceMinIncidents:
		return 0.5
	case incidents > confidenceMaxIncidents:
		return 1.0
	default:
		return 0.5 + 0.5*float64(incidents-confidenceMinIncidents)/
			float64(confidenceMaxIncidents-confidenceMinIncidents)
	}
}

// OverallScore averages the per-type 0-10 scores and scales to 0-100.
// Returns false when no scores are available.
func OverallScore(scores []float64) (int, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	var sum float64
	for _, s := range scores {
		sum = sum + s
	}
	avg := sum / float64(len(scores))
	n := int(math.Round(avg * 10))
	if n < 0 {
		n = 0
	}
	if n > 100 {
		n = 100
	}
	return n, true
}

// metricQuestions phrase each metric as the question a traveler would ask.
var metricQuestions = map[domain.MetricType]string{
	domain.MetricNight:    "Can I go outside after dark?",
	domain.MetricDaytime:  "Is it safe to walk around during the day?",
	domain.MetricVehicle:  "Can I park here safely?",
	domain.MetricTransit:  "Is it safe to use public transport?",
	domain.MetricWomen:    "Would I be harassed here?",
	domain.MetricProperty: "Are my belongings safe inside?",
}

func MetricQuestion(t domain.MetricType) string {
	if q, ok := metricQuestions[t]; ok {
		return q
	}
	return fmt.Sprintf("How safe is this area regarding %s?", t)
}

// riskDescriptions hold the traveler-facing copy per metric and level.
var riskDescriptions = map[domain.MetricType]map[domain.RiskLevel]string{
	domain.MetricNight: {
		domain.RiskVeryLow:  "This area is very safe for walking at night, with minimal risk.",
		domain.RiskLow:      "The area is generally safe at night, though occasional incidents have been reported.",
		domain.RiskModerate: "Exercise caution after dark. Stick to well-lit areas and avoid walking alone.",
		domain.RiskHigh:     "Be cautious at night; it is safer to use taxis or ride-shares than to walk alone.",
		domain.RiskVeryHigh: "High nighttime incident rates have been reported nearby. Avoid walking alone after dark.",
	},
	domain.MetricDaytime: {
		domain.RiskVeryLow:  "This area is very safe during the day.",
		domain.RiskLow:      "Daytime incidents are uncommon; standard precautions are enough.",
		domain.RiskModerate: "Be mindful of your surroundings during the day, especially in busy areas.",
		domain.RiskHigh:     "Stay alert during daylight hours; incidents are reported regularly in this area.",
		domain.RiskVeryHigh: "Daytime safety requires extra caution here; incidents occur relatively frequently.",
	},
	domain.MetricVehicle: {
		domain.RiskVeryLow:  "Vehicle break-ins and theft are rare in this area.",
		domain.RiskLow:      "Car-related crime is infrequent, but lock doors and keep valuables out of sight.",
		domain.RiskModerate: "Some risk of vehicle break-ins exists; prefer well-lit parking.",
		domain.RiskHigh:     "There is a notable risk of car theft or break-ins; secure parking is recommended.",
		domain.RiskVeryHigh: "High rates of vehicle crime have been reported nearby; use monitored parking only.",
	},
	domain.MetricTransit: {
		domain.RiskVeryLow:  "Public transport near this location is very safe, both day and night.",
		domain.RiskLow:      "Using public transport here is generally safe, with only occasional incidents.",
		domain.RiskModerate: "Stay aware when using public transport, especially during off-peak hours.",
		domain.RiskHigh:     "Use caution on public transport in this area and remain alert to risks.",
		domain.RiskVeryHigh: "Notable safety concerns on public transport near this area, especially at night.",
	},
	domain.MetricWomen: {
		domain.RiskVeryLow:  "This area is very safe and comfortable for solo women travelers.",
		domain.RiskLow:      "Generally safe for solo women; staying aware of your surroundings is usually enough.",
		domain.RiskModerate: "Solo women should take extra caution, especially after dark.",
		domain.RiskHigh:     "Women traveling alone should take extra precautions, particularly at night.",
		domain.RiskVeryHigh: "Significant safety concerns reported for solo women here; avoid traveling alone at night.",
	},
	domain.MetricProperty: {
		domain.RiskVeryLow:  "Property crime such as theft and burglary is very rare in this area.",
		domain.RiskLow:      "Property crime is infrequent; locking doors is generally effective.",
		domain.RiskModerate: "Some risk of property crime exists; lock doors and windows.",
		domain.RiskHigh:     "Property crime is a concern here; consider additional security measures.",
		domain.RiskVeryHigh: "High rates of property crime reported; stay vigilant and secure your belongings.",
	},
}

// DescribeRisk renders traveler-facing copy for a metric at a given score.
func DescribeRisk(t domain.MetricType, score float64) string {
	level := domain.RiskLevelFor(score)
	if byLevel, ok := riskDescriptions[t]; ok {
		if d, ok := byLevel[level]; ok {
			return d
		}
	}
	return fmt.Sprintf("%s risk regarding %s.", level, t)
}
