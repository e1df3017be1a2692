// Package geocode resolves place names to coordinates and back through the
// Mapbox geocoding API.
package geocode

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"safestay/internal/adapters/httpc"
	"safestay/internal/domain"
)

const DefaultURL = "https://api.mapbox.com"

// minRelevance rejects fuzzy forward matches; Mapbox scores 0..1.
const minRelevance = 0.6

type Client struct {
	base  string
	token string
	h     *httpc.Client
}

func New(base, token string, rps int) *Client {
	if base == "" {
		base = DefaultURL
	}
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		h:     httpc.New("mapbox", rps, 15*time.Second, nil),
	}
}

type geocodeResponse struct {
	Features []struct {
		Text      string    `json:"text"`
		Relevance float64   `json:"relevance"`
		Center    []float64 `json:"center"` // [lon, lat]
		Context   []struct {
			Text string `json:"text"`
		} `json:"context"`
	} `json:"features"`
}

// Forward geocodes a place name, biased toward proximity. Returns ok=false
// when nothing relevant matches.
func (c *Client) Forward(ctx context.Context, place string, proximity domain.Coords) (domain.Coords, bool, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("proximity", fmt.Sprintf("%f,%f", proximity.Lon, proximity.Lat))
	q.Set("limit", "1")
	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		c.base, url.PathEscape(place), q.Encode())

	var resp geocodeResponse
	if err := c.h.GetJSON(ctx, u, &resp); err != nil {
		return domain.Coords{}, false, fmt.Errorf("forward geocode %q: %w", place, err)
	}
	if len(resp.Features) == 0 {
		return domain.Coords{}, false, nil
	}
	f := resp.Features[0]
	if f.Relevance < minRelevance || len(f.Center) != 2 {
		return domain.Coords{}, false, nil
	}
	return domain.Coords{Lat: f.Center[1], Lon: f.Center[0]}, true, nil
}

// ReverseContext returns the place-name hierarchy for a point: the feature
// itself plus its containing neighbourhood, city, and region names.
func (c *Client) ReverseContext(ctx context.Context, at domain.Coords) ([]string, error) {
	q := url.Values{}
	q.Set("access_token", c.token)
	q.Set("limit", "1")
	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%f,%f.json?%s",
		c.base, at.Lon, at.Lat, q.Encode())

	var resp geocodeResponse
	if err := c.h.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}

	var names []string
	for _, f := range resp.Features {
		if f.Text != "" {
			names = append(names, f.Text)
		}
		for _, cx := range f.Context {
			if cx.Text != "" {
				names = append(names, cx.Text)
			}
		}
	}
	return names, nil
}
