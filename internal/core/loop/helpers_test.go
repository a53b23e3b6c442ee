package loop_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/loop"
)

// --- Mock DirectionsProvider ---

type mockProvider struct {
	mu       sync.Mutex
	calls    []domain.DirectionsRequest
	routesFn func(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error)
}

func (m *mockProvider) Directions(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.routesFn(ctx, req)
}

func (m *mockProvider) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

var sanFrancisco = domain.Coordinate{Lat: 37.7749, Lon: -122.4194}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGenerator(p *mockProvider, opts loop.Options) (*loop.Generator, *[]time.Duration) {
	g := loop.NewGenerator(p, opts, quietLogger())
	var slept []time.Duration
	g.Sleep = func(d time.Duration) { slept = append(slept, d) }
	return g, &slept
}

// stretchedRing returns a route through every waypoint, each pushed away from
// the start by stretch, with every leg split into steps sub-segments.
func stretchedRing(stretch float64, steps int) func(context.Context, domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
	return func(_ context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
		start := req.Waypoints[0].Location
		pts := make([]domain.Coordinate, len(req.Waypoints))
		for i, wp := range req.Waypoints {
			pts[i] = domain.Coordinate{
				Lat: start.Lat + stretch*(wp.Location.Lat-start.Lat),
				Lon: start.Lon + stretch*(wp.Location.Lon-start.Lon),
			}
		}
		coords := densify(pts, steps)
		return []domain.DirectionsRoute{{Coordinates: coords, DistanceMeters: 0}}, nil
	}
}

func densify(pts []domain.Coordinate, steps int) []domain.Coordinate {
	out := []domain.Coordinate{pts[0]}
	for i := 0; i < len(pts)-1; i++ {
		a, b := pts[i], pts[i+1]
		for s := 1; s <= steps; s++ {
			f := float64(s) / float64(steps)
			out = append(out, domain.Coordinate{
				Lat: a.Lat + f*(b.Lat-a.Lat),
				Lon: a.Lon + f*(b.Lon-a.Lon),
			})
		}
	}
	return out
}
