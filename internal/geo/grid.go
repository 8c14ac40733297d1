// Package geo provides the spatial grid index and distance helpers used to
// bound nearby-event lookups.
//
// The lat/lng plane is partitioned into fixed-size cells of 0.05 degrees,
// roughly 5.5 km north-south. A coordinate maps deterministically to one
// cell id, and a radius query expands to the ring of cells that could
// intersect the query circle. The returned cell set is a superset of the
// cells truly intersecting the circle; callers must apply an exact distance
// filter afterwards.
package geo

import (
	"fmt"
	"math"
)

const (
	// CellSizeDeg is the grid cell edge length in degrees.
	CellSizeDeg = 0.05

	// kmPerDegLat is the north-south extent of one degree of latitude.
	kmPerDegLat = 111.32

	// cellSizeKmLat is the north-south extent of one cell.
	cellSizeKmLat = CellSizeDeg * kmPerDegLat

	// minLngCellKm bounds the east-west cell extent used for ring counts so
	// queries near the poles stay finite.
	minLngCellKm = 0.5

	// maxRings caps ring expansion for oversized radii.
	maxRings = 40
)

// CellID returns the grid cell identifier containing the given coordinate.
func CellID(lat, lng float64) string {
	return fmt.Sprintf("%d_%d", cellIndex(lat), cellIndex(lng))
}

func cellIndex(deg float64) int {
	return int(math.Floor(deg / CellSizeDeg))
}

// CoveringCells returns every grid cell that could intersect a circle of
// radiusKm around the center. The set always contains the center cell.
// False positives are acceptable; false negatives are not, since the
// downstream haversine filter only ever removes candidates.
func CoveringCells(lat, lng, radiusKm float64) []string {
	if radiusKm < 0 {
		radiusKm = 0
	}

	latRings := rings(radiusKm, cellSizeKmLat)

	// Longitude cells shrink with latitude, so east-west ring count uses the
	// cell width at this latitude rather than the equatorial width.
	lngCellKm := cellSizeKmLat * math.Abs(math.Cos(lat*math.Pi/180))
	if lngCellKm < minLngCellKm {
		lngCellKm = minLngCellKm
	}
	lngRings := rings(radiusKm, lngCellKm)

	baseLat := cellIndex(lat)
	baseLng := cellIndex(lng)

	cells := make([]string, 0, (2*latRings+1)*(2*lngRings+1))
	for i := -latRings; i <= latRings; i++ {
		for j := -lngRings; j <= lngRings; j++ {
			cells = append(cells, fmt.Sprintf("%d_%d", baseLat+i, baseLng+j))
		}
	}
	return cells
}

func rings(radiusKm, cellKm float64) int {
	r := int(math.Ceil(radiusKm / cellKm))
	if r > maxRings {
		r = maxRings
	}
	return r
}

// earthRadiusKm is the mean Earth radius.
const earthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between two coordinates using
// the haversine formula.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
