package app

import "safestay/internal/domain"

// metricCodeSets maps each safety metric to the incident codes that feed it.
// Code sets are keyed by the upstream dataset so new cities slot in without
// touching the pipeline. The LAPD set follows the published crime-code
// catalogue; the NYPD set uses law-category (ky_cd) codes.
var metricCodeSets = map[string]map[domain.MetricType][]string{
	"lapd": {
		domain.MetricNight: {
			"110", "113", "121", "122", "815", "820", "821", "210", "220",
			"230", "231", "235", "236", "250", "251", "624", "761", "762",
			"763", "860", "930",
		},
		domain.MetricDaytime: {
			"210", "220", "230", "231", "624", "625", "860", "930", "946",
		},
		domain.MetricVehicle: {
			"330", "331", "410", "420", "421", "510", "520", "433", "647",
		},
		domain.MetricTransit: {
			"210", "220", "230", "231", "350", "351", "352", "450", "451",
			"452", "624", "761", "762", "763", "930", "946", "860",
		},
		domain.MetricWomen: {
			"121", "122", "815", "820", "821", "236", "626", "624", "763",
			"860", "922", "930",
		},
		domain.MetricProperty: {
			"310", "320", "341", "343", "345", "350", "351", "352", "440",
			"441", "442", "443", "444", "445", "470", "471", "472", "473",
			"474", "475", "480", "485", "487", "740", "745",
		},
	},
	"nypd": {
		domain.MetricNight:    {"105", "106", "104", "116"},
		domain.MetricDaytime:  {"105", "106", "344", "341"},
		domain.MetricVehicle:  {"440", "441", "443"},
		domain.MetricTransit:  {"105", "106", "344"},
		domain.MetricWomen:    {"104", "116", "233"},
		domain.MetricProperty: {"107", "109", "110", "118", "341", "344"},
	},
}

// metricHourFilters restrict a metric to incidents in specific hours.
// Only the night metric is time-bound; datasets with unreliable timestamps
// skip hour filtering at the pipeline level.
var metricHourFilters = map[domain.MetricType]func(hour int) bool{
	domain.MetricNight:   func(h int) bool { return h >= 18 || h < 6 },
	domain.MetricDaytime: func(h int) bool { return h >= 6 && h < 18 },
}

// CodesFor returns the incident codes feeding a metric for a dataset,
// or nil when the dataset has no mapping for it.
func CodesFor(dataset string, t domain.MetricType) []string {
	byType, ok := metricCodeSets[dataset]
	if !ok {
		return nil
	}
	return byType[t]
}
