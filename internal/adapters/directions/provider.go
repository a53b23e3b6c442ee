package directions

import (
	"fmt"
	"strings"

	"github.com/samirrijal/circlerun/internal/core/ports"
)

// Provider names accepted by New.
const (
	ProviderOSRM   = "osrm"
	ProviderMapbox = "mapbox"
)

// MaxWaypoints is the most waypoints the named provider accepts in one
// request, or 0 when it sets no limit.
func MaxWaypoints(name string) int {
	if strings.ToLower(name) == ProviderMapbox {
		return mapboxMaxWaypoints
	}
	return 0
}

// New builds the named provider behind a shared rate limiter.
func New(name string, cfg Config, rps float64, burst int) (ports.DirectionsProvider, error) {
	var p ports.DirectionsProvider
	switch strings.ToLower(name) {
	case ProviderOSRM, "":
		p = NewOSRM(cfg)
	case ProviderMapbox:
		m, err := NewMapbox(cfg)
		if err != nil {
			return nil, err
		}
		p = m
	default:
		return nil, fmt.Errorf("unknown directions provider %q", name)
	}
	return NewRateLimited(p, rps, burst), nil
}
