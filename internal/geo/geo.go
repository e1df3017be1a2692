// Package geo holds the distance and grid math shared by the report
// aggregator and the crime ingestion pipeline.
package geo

import (
	"fmt"
	"math"

	"safestay/internal/domain"
)

const (
	earthRadiusKm = 6371.0
	kmPerDegLat   = 111.32

	// DefaultCellKm is the grid cell edge used when bucketing incidents.
	DefaultCellKm = 0.5
)

// HaversineKm returns the great-circle distance between two points in km.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rLat1 := lat1 * math.Pi / 180
	rLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Asin(math.Sqrt(a))
}

// BoundingBox returns a box extending radiusKm from the center in every
// direction. Longitude degrees shrink with latitude.
func BoundingBox(c domain.Coords, radiusKm float64) domain.Bounds {
	dLat := radiusKm / kmPerDegLat
	dLon := radiusKm / (kmPerDegLat * math.Abs(math.Cos(c.Lat*math.Pi/180)))
	return domain.Bounds{
		SWLat: c.Lat - dLat,
		SWLon: c.Lon - dLon,
		NELat: c.Lat + dLat,
		NELon: c.Lon + dLon,
	}
}

// Cell is a grid cell anchored at its south-west corner.
type Cell struct {
	Lat, Lon float64
	Row, Col int
}

// Key is the cell's stable identity, also used as the DB cell_key column.
func (c Cell) Key() string { return fmt.Sprintf("%d:%d", c.Row, c.Col) }

// CellForPoint snaps a coordinate to its containing grid cell.
func CellForPoint(lat, lon, cellKm float64) Cell {
	dLat := cellKm / kmPerDegLat
	dLon := cellKm / (kmPerDegLat * math.Abs(math.Cos(lat*math.Pi/180)))

	row := int(math.Floor(lat / dLat))
	col := int(math.Floor(lon / dLon))
	return Cell{
		Lat: float64(row) * dLat,
		Lon: float64(col) * dLon,
		Row: row,
		Col: col,
	}
}

// NeighborKeys returns the keys of the eight cells surrounding c.
func NeighborKeys(c Cell) []string {
	keys := make([]string, 0, 8)
	for dr := -1; dr <= 1; dr++ {
		for dc := -1; dc <= 1; dc++ {
			if dr == 0 && dc == 0 {
				continue
			}
			keys = append(keys, fmt.Sprintf("%d:%d", c.Row+dr, c.Col+dc))
		}
	}
	return keys
}
