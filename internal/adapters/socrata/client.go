// Package socrata fetches incident records from Socrata open-data portals
// (the LAPD and NYPD crime feeds).
package socrata

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"safestay/internal/adapters/httpc"
	"safestay/internal/domain"
)

const pageSize = 1000

// Fields names the dataset columns we read. Socrata schemas differ per
// publisher, so each city feed gets its own mapping.
type Fields struct {
	Date string // floating timestamp column
	Time string // optional HHMM column (LAPD splits date and time)
	Code string // crime classification column
	Lat  string
	Lon  string
}

// LAPDFields matches data.lacity.org crime data (dataset 2nrs-mtv8).
func LAPDFields() Fields {
	return Fields{Date: "date_occ", Time: "time_occ", Code: "crm_cd", Lat: "lat", Lon: "lon"}
}

// NYPDFields matches data.cityofnewyork.us complaint data (dataset 5uac-w243).
func NYPDFields() Fields {
	return Fields{Date: "cmplnt_fr_dt", Time: "", Code: "ky_cd", Lat: "latitude", Lon: "longitude"}
}

type Client struct {
	base    string // e.g. https://data.lacity.org
	dataset string // Socrata dataset id, e.g. 2nrs-mtv8
	fields  Fields
	h       *httpc.Client
}

func New(base, dataset, appToken string, fields Fields, rps int) *Client {
	var headers map[string]string
	if appToken != "" {
		headers = map[string]string{"X-App-Token": appToken}
	}
	return &Client{
		base:    strings.TrimRight(base, "/"),
		dataset: dataset,
		fields:  fields,
		h:       httpc.New("socrata", rps, 30*time.Second, headers),
	}
}

// FetchIncidents pages through the dataset newest-first from since onward.
// Rows with missing or zeroed coordinates are dropped.
func (c *Client) FetchIncidents(ctx context.Context, since time.Time, max int) ([]domain.CrimeIncident, error) {
	if max <= 0 {
		max = 50000
	}
	where := fmt.Sprintf("%s >= '%s' AND %s != 0 AND %s != 0",
		c.fields.Date, since.UTC().Format("2006-01-02T15:04:05"), c.fields.Lat, c.fields.Lon)

	var out []domain.CrimeIncident
	for offset := 0; offset < max; offset += pageSize {
		limit := pageSize
		if rem := max - offset; rem < limit {
			limit = rem
		}

		q := url.Values{}
		q.Set("$where", where)
		q.Set("$order", c.fields.Date+" DESC")
		q.Set("$limit", strconv.Itoa(limit))
		q.Set("$offset", strconv.Itoa(offset))
		u := fmt.Sprintf("%s/resource/%s.json?%s", c.base, c.dataset, q.Encode())

		var rows []map[string]any
		if err := c.h.GetJSON(ctx, u, &rows); err != nil {
			return nil, fmt.Errorf("socrata page offset=%d: %w", offset, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			in, ok := c.parseRow(row)
			if !ok {
				continue
			}
			out = append(out, in)
		}
		if len(rows) < limit {
			break
		}
	}
	log.Debug().Str("dataset", c.dataset).Int("incidents", len(out)).Msg("socrata fetch done")
	return out, nil
}

func (c *Client) parseRow(row map[string]any) (domain.CrimeIncident, bool) {
	lat, okLat := numField(row, c.fields.Lat)
	lon, okLon := numField(row, c.fields.Lon)
	if !okLat || !okLon || (lat == 0 && lon == 0) {
		return domain.CrimeIncident{}, false
	}
	code, ok := strField(row, c.fields.Code)
	if !ok {
		return domain.CrimeIncident{}, false
	}
	dateStr, ok := strField(row, c.fields.Date)
	if !ok {
		return domain.CrimeIncident{}, false
	}
	occurred, err := time.Parse("2006-01-02T15:04:05.000", dateStr)
	if err != nil {
		if occurred, err = time.Parse("2006-01-02T15:04:05", dateStr); err != nil {
			return domain.CrimeIncident{}, false
		}
	}

	// LAPD publishes time-of-day separately as HHMM; fold it into the date.
	if c.fields.Time != "" {
		if hhmm, ok := strField(row, c.fields.Time); ok {
			occurred = withClockTime(occurred, hhmm)
		}
	}

	return domain.CrimeIncident{
		Code:       code,
		Lat:        lat,
		Lon:        lon,
		OccurredAt: occurred,
	}, true
}

// withClockTime overlays an HHMM string onto t's date. The feed uses "2400"
// for end-of-day, which is clamped to 23:59.
func withClockTime(t time.Time, hhmm string) time.Time {
	hhmm = strings.TrimSpace(hhmm)
	for len(hhmm) < 4 {
		hhmm = "0" + hhmm
	}
	if hhmm == "2400" {
		hhmm = "2359"
	}
	h, err1 := strconv.Atoi(hhmm[:2])
	m, err2 := strconv.Atoi(hhmm[2:4])
	if err1 != nil || err2 != nil || h > 23 || m > 59 {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), h, m, 0, 0, t.Location())
}

// Socrata returns most values as strings, location columns occasionally as
// numbers. Accept both.
func numField(row map[string]any, key string) (float64, bool) {
	switch v := row[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func strField(row map[string]any, key string) (string, bool) {
	switch v := row[key].(type) {
	case string:
		return v, v != ""
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	default:
		return "", false
	}
}
