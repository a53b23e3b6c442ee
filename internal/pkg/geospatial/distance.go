package geospatial

import "github.com/samirrijal/circlerun/internal/core/domain"

// TotalDistanceMiles sums the segment distances of coords. It returns 0 for
// fewer than two points.
func TotalDistanceMiles(coords []domain.Coordinate) float64 {
	if len(coords) < 2 {
		return 0
	}
	var meters float64
	for i := 0; i < len(coords)-1; i++ {
		meters += DistanceMeters(coords[i], coords[i+1])
	}
	return meters / domain.MetersPerMile
}

// SegmentMiles returns the length of each consecutive segment in miles.
func SegmentMiles(coords []domain.Coordinate) []float64 {
	if len(coords) < 2 {
		return nil
	}
	out := make([]float64, len(coords)-1)
	for i := range out {
		out[i] = DistanceMeters(coords[i], coords[i+1]) / domain.MetersPerMile
	}
	return out
}
