package loop

import "github.com/samirrijal/circlerun/internal/core/domain"

// DefaultSmoothingFactor is the neighbour weight used by Smooth.
const DefaultSmoothingFactor = 0.3

// Smooth returns a copy of coords where each interior point is pulled toward
// its neighbours: p' = (1-f)p + f/2(prev+next). Endpoints are kept so the
// loop stays anchored on the start. It is a display post-process and must not
// be applied before validation.
func Smooth(coords []domain.Coordinate, factor float64) []domain.Coordinate {
	out := make([]domain.Coordinate, len(coords))
	copy(out, coords)
	if len(coords) < 3 || factor <= 0 {
		return out
	}
	if factor > 1 {
		factor = 1
	}
	for i := 1; i < len(coords)-1; i++ {
		prev, cur, next := coords[i-1], coords[i], coords[i+1]
		out[i] = domain.Coordinate{
			Lat: (1-factor)*cur.Lat + factor/2*(prev.Lat+next.Lat),
			Lon: (1-factor)*cur.Lon + factor/2*(prev.Lon+next.Lon),
		}
	}
	return out
}
