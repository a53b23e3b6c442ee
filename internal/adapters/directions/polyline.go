package directions

import (
	"fmt"
	"math"
	"strings"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// Precision6 is the polyline precision requested from both providers.
const Precision6 = 6

// DecodePolyline decodes an encoded polyline of the given precision
// (5 for the Google default, 6 for OSRM/Mapbox polyline6).
func DecodePolyline(s string, precision int) ([]domain.Coordinate, error) {
	factor := math.Pow10(precision)
	var (
		coords   []domain.Coordinate
		lat, lon int64
		i        int
	)
	for i < len(s) {
		dLat, next, err := decodeValue(s, i)
		if err != nil {
			return nil, err
		}
		dLon, next, err := decodeValue(s, next)
		if err != nil {
			return nil, err
		}
		i = next
		lat += dLat
		lon += dLon
		coords = append(coords, domain.Coordinate{
			Lat: float64(lat) / factor,
			Lon: float64(lon) / factor,
		})
	}
	return coords, nil
}

func decodeValue(s string, i int) (int64, int, error) {
	var result int64
	var shift uint
	for {
		if i >= len(s) {
			return 0, i, fmt.Errorf("polyline truncated at byte %d", i)
		}
		b := int64(s[i]) - 63
		i++
		if b < 0 || b > 0x3f {
			return 0, i, fmt.Errorf("polyline has invalid byte %q at %d", s[i-1], i-1)
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 == 1 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}

// EncodePolyline is the inverse of DecodePolyline.
func EncodePolyline(coords []domain.Coordinate, precision int) string {
	factor := math.Pow10(precision)
	var sb strings.Builder
	var prevLat, prevLon int64
	for _, c := range coords {
		lat := int64(math.Round(c.Lat * factor))
		lon := int64(math.Round(c.Lon * factor))
		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

func encodeValue(sb *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		sb.WriteByte(byte((0x20 | (u & 0x1f)) + 63))
		u >>= 5
	}
	sb.WriteByte(byte(u + 63))
}
