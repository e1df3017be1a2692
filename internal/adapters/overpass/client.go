// Package overpass counts safety-relevant map features near a point using
// the OpenStreetMap Overpass API.
package overpass

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"safestay/internal/adapters/httpc"
	"safestay/internal/domain"
)

const DefaultURL = "https://overpass-api.de/api/interpreter"

type Client struct {
	endpoint string
	h        *httpc.Client
}

func New(endpoint string, rps int) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{
		endpoint: endpoint,
		// Overpass is a shared public instance; stay polite.
		h: httpc.New("overpass", rps, 60*time.Second, nil),
	}
}

type overpassResponse struct {
	Elements []struct {
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// CountNearby queries police stations, street lamps, and nightlife venues
// within radiusM of c in a single Overpass round trip.
func (o *Client) CountNearby(ctx context.Context, c domain.Coords, radiusM int) (domain.POICounts, error) {
	query := fmt.Sprintf(`[out:json][timeout:25];
(
  node["amenity"="police"](around:%d,%f,%f);
  node["highway"="street_lamp"](around:%d,%f,%f);
  node["amenity"~"^(bar|pub|nightclub)$"](around:%d,%f,%f);
);
out tags;`,
		radiusM, c.Lat, c.Lon,
		radiusM, c.Lat, c.Lon,
		radiusM, c.Lat, c.Lon)

	var resp overpassResponse
	form := url.Values{"data": {query}}
	if err := o.h.PostFormJSON(ctx, o.endpoint, form, &resp); err != nil {
		return domain.POICounts{}, fmt.Errorf("overpass query: %w", err)
	}

	var counts domain.POICounts
	for _, el := range resp.Elements {
		switch {
		case el.Tags["amenity"] == "police":
			counts.Police++
		case el.Tags["highway"] == "street_lamp":
			counts.StreetLights++
		case isNightlife(el.Tags["amenity"]):
			counts.Nightlife++
		}
	}
	return counts, nil
}

func isNightlife(amenity string) bool {
	switch amenity {
	case "bar", "pub", "nightclub":
		return true
	}
	return false
}
