package socrata_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"safestay/internal/adapters/socrata"
)

func TestFetchIncidents_PagesAndParses(t *testing.T) {
	// A full first page (1000 rows) forces the client to request a second.
	page1 := []map[string]any{
		{"date_occ": "2026-05-01T00:00:00.000", "time_occ": "2130", "crm_cd": "624", "lat": "34.05", "lon": "-118.25"},
		{"date_occ": "2026-05-01T00:00:00.000", "time_occ": "2400", "crm_cd": "330", "lat": "34.06", "lon": "-118.26"},
		// zero coords must be dropped
		{"date_occ": "2026-05-01T00:00:00.000", "time_occ": "0900", "crm_cd": "624", "lat": "0", "lon": "0"},
	}
	for i := len(page1); i < 1000; i++ {
		page1 = append(page1, map[string]any{
			"date_occ": "2026-04-30T00:00:00.000",
			"time_occ": "1200",
			"crm_cd":   "624",
			"lat":      fmt.Sprintf("34.%03d", i),
			"lon":      "-118.30",
		})
	}
	page2 := []map[string]any{
		{"date_occ": "2026-04-29T00:00:00.000", "time_occ": "0015", "crm_cd": "210", "lat": 34.07, "lon": -118.27},
	}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Path; got != "/resource/2nrs-mtv8.json" {
			t.Errorf("unexpected path %s", got)
		}
		if r.URL.Query().Get("$where") == "" {
			t.Error("expected $where clause")
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("$offset"))
		switch offset {
		case 0:
			_ = json.NewEncoder(w).Encode(page1)
		default:
			_ = json.NewEncoder(w).Encode(page2)
		}
	}))
	defer ts.Close()

	cl := socrata.New(ts.URL, "2nrs-mtv8", "", socrata.LAPDFields(), 100)
	since := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	got, err := cl.FetchIncidents(context.Background(), since, 1500)
	if err != nil {
		t.Fatalf("FetchIncidents: %v", err)
	}
	// 1000 page-1 rows minus the zero-coord one, plus one page-2 row
	if len(got) != 1000 {
		t.Fatalf("expected 1000 incidents, got %d", len(got))
	}
	if got[0].Hour() != 21 {
		t.Fatalf("expected HHMM folded into hour 21, got %d", got[0].Hour())
	}
	// '2400' clamps to 23:59 instead of failing the row
	if got[1].Hour() != 23 {
		t.Fatalf("expected 2400 clamp to hour 23, got %d", got[1].Hour())
	}
	if last := got[len(got)-1]; last.Code != "210" {
		t.Fatalf("expected second page row last, got %+v", last)
	}
}

func TestFetchIncidents_NYPDFieldMapping(t *testing.T) {
	rows := []map[string]any{
		{"cmplnt_fr_dt": "2026-05-02T00:00:00.000", "ky_cd": "105", "latitude": "40.71", "longitude": "-74.00"},
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(rows)
	}))
	defer ts.Close()

	cl := socrata.New(ts.URL, "5uac-w243", "token", socrata.NYPDFields(), 100)
	got, err := cl.FetchIncidents(context.Background(), time.Now().AddDate(0, -1, 0), 100)
	if err != nil {
		t.Fatalf("FetchIncidents: %v", err)
	}
	if len(got) != 1 || got[0].Code != "105" || got[0].Lat != 40.71 {
		t.Fatalf("unexpected incidents: %+v", got)
	}
}
