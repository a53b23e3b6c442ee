package loop

import (
	"fmt"
	"math"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/pkg/geospatial"
)

const (
	// MinRingPoints is the smallest vertex count BuildRing accepts.
	MinRingPoints = 3
	// DefaultMaxInitialScale caps the first ring radius, in miles.
	DefaultMaxInitialScale = 2.0
	// DefaultAccuracyMeters is the snapping hint attached to each waypoint.
	DefaultAccuracyMeters = 5.0
)

// InitialScale returns the first ring radius in miles for targetMiles.
// Routed paths run longer than the ideal circle, so the circle radius
// sqrt(target/2π) is stretched by (1 + target/5) and capped at maxMiles.
// A non-positive maxMiles disables the cap.
func InitialScale(targetMiles, maxMiles float64) float64 {
	scale := math.Sqrt(targetMiles/(2*math.Pi)) * (1 + targetMiles/5)
	if maxMiles > 0 && scale > maxMiles {
		return maxMiles
	}
	return scale
}

// BuildRing places n waypoints on a circle of radiusMiles around center and
// anchors both ends on center: [start, ring 0..n-1, return].
func BuildRing(center domain.Coordinate, radiusMiles float64, n int) ([]domain.Waypoint, error) {
	if n < MinRingPoints {
		return nil, fmt.Errorf("%w: ring needs at least %d points, got %d", domain.ErrInvalidRequest, MinRingPoints, n)
	}
	if !(radiusMiles > 0) || math.IsInf(radiusMiles, 1) {
		return nil, fmt.Errorf("%w: ring radius must be positive, got %v", domain.ErrInvalidRequest, radiusMiles)
	}

	radius := radiusMiles * domain.MetersPerMile
	wps := make([]domain.Waypoint, 0, n+2)
	wps = append(wps, domain.Waypoint{
		Location:       center,
		Role:           domain.RoleStart,
		Index:          -1,
		Name:           "Start",
		AccuracyMeters: DefaultAccuracyMeters,
	})
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		wps = append(wps, domain.Waypoint{
			Location:       geospatial.Offset(center, radius*math.Cos(angle), radius*math.Sin(angle)),
			Role:           domain.RoleRing,
			Index:          i,
			Name:           fmt.Sprintf("Point %d", i),
			AccuracyMeters: DefaultAccuracyMeters,
		})
	}
	wps = append(wps, domain.Waypoint{
		Location:       center,
		Role:           domain.RoleReturn,
		Index:          -1,
		Name:           "Start",
		AccuracyMeters: DefaultAccuracyMeters,
	})
	return wps, nil
}

// RingPerimeterMiles is the straight-line perimeter through the ring
// vertices only, ignoring the start and return anchors.
func RingPerimeterMiles(wps []domain.Waypoint) float64 {
	ring := make([]domain.Coordinate, 0, len(wps)+1)
	for _, wp := range wps {
		if wp.Role == domain.RoleRing {
			ring = append(ring, wp.Location)
		}
	}
	if len(ring) < 2 {
		return 0
	}
	ring = append(ring, ring[0])
	return geospatial.TotalDistanceMiles(ring)
}
