// Package polyline implements Google's encoded polyline algorithm at the
// standard 5-decimal precision, plus length and resampling helpers for
// working with incident shapes.
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import "math"

const (
	precision         = 1e5
	earthRadiusMeters = 6371000
)

// Coordinate is a geographic point.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Decode converts an encoded polyline into coordinates. Returns nil for
// an empty string.
func Decode(encoded string) []Coordinate {
	if encoded == "" {
		return nil
	}

	var coords []Coordinate
	var lat, lon, index int

	for index < len(encoded) {
		latDelta, next := decodeValue(encoded, index)
		index = next
		lat += latDelta

		lonDelta, next := decodeValue(encoded, index)
		index = next
		lon += lonDelta

		coords = append(coords, Coordinate{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}

	return coords
}

// Encode converts coordinates into an encoded polyline. Returns "" for
// an empty slice.
func Encode(coords []Coordinate) string {
	if len(coords) == 0 {
		return ""
	}

	encoded := make([]byte, 0, len(coords)*4)
	var prevLat, prevLon int

	for _, coord := range coords {
		lat := int(math.Round(coord.Lat * precision))
		lon := int(math.Round(coord.Lon * precision))

		encoded = encodeValue(encoded, lat-prevLat)
		encoded = encodeValue(encoded, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(encoded)
}

// decodeValue reads one zigzag-encoded delta starting at index and
// returns it with the index of the next value.
func decodeValue(encoded string, index int) (int, int) {
	var shift, result int

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}

// Length returns the total polyline length in meters.
func Length(coords []Coordinate) float64 {
	var total float64
	for i := 1; i < len(coords); i++ {
		total += haversineDistance(coords[i-1], coords[i])
	}
	return total
}

// Sample returns points spaced approximately intervalMeters apart along
// the polyline. The first and last points are always kept; intervening
// original points are replaced by interpolated ones. A non-positive
// interval returns the input unchanged.
func Sample(coords []Coordinate, intervalMeters float64) []Coordinate {
	if len(coords) == 0 {
		return nil
	}
	if intervalMeters <= 0 {
		return coords
	}

	sampled := []Coordinate{coords[0]}
	accumulated := 0.0

	for i := 1; i < len(coords); i++ {
		segment := haversineDistance(coords[i-1], coords[i])

		for accumulated+segment >= intervalMeters {
			remaining := intervalMeters - accumulated
			fraction := remaining / segment

			sampled = append(sampled, Coordinate{
				Lat: coords[i-1].Lat + fraction*(coords[i].Lat-coords[i-1].Lat),
				Lon: coords[i-1].Lon + fraction*(coords[i].Lon-coords[i-1].Lon),
			})

			segment -= remaining
			accumulated = 0
		}

		accumulated += segment
	}

	last := coords[len(coords)-1]
	if sampled[len(sampled)-1] != last {
		sampled = append(sampled, last)
	}

	return sampled
}

func haversineDistance(a, b Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinDLat := math.Sin(dLat / 2)
	sinDLon := math.Sin(dLon / 2)

	h := sinDLat*sinDLat + math.Cos(lat1)*math.Cos(lat2)*sinDLon*sinDLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}
