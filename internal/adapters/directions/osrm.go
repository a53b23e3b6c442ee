package directions

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// DefaultOSRMURL is the public OSRM demo server.
const DefaultOSRMURL = "https://router.project-osrm.org"

// OSRM talks to an OSRM routing server.
type OSRM struct {
	baseURL string
	hc      *http.Client
}

// NewOSRM creates an OSRM client.
func NewOSRM(cfg Config) *OSRM {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOSRMURL
	}
	return &OSRM{baseURL: strings.TrimRight(base, "/"), hc: cfg.httpClient()}
}

// Directions implements ports.DirectionsProvider. OSRM has no per-request
// exclusions for the foot profile, so req.Exclude is ignored.
func (o *OSRM) Directions(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
	if err := checkWaypoints("osrm", req, 0); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("geometries", "polyline6")
	q.Set("steps", "false")
	if req.FullShape {
		q.Set("overview", "full")
	} else {
		q.Set("overview", "simplified")
	}
	if r := radiuses(req.Waypoints); r != "" {
		q.Set("radiuses", r)
	}

	u := fmt.Sprintf("%s/route/v1/%s/%s?%s", o.baseURL, osrmProfile(req.Profile), coordinatePath(req.Waypoints), q.Encode())
	return fetchRoutes(ctx, o.hc, "osrm", u)
}

func osrmProfile(p domain.TravelProfile) string {
	switch p {
	case domain.ProfileWalking, "":
		return "foot"
	default:
		return string(p)
	}
}
