package directions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

const (
	// DefaultMapboxURL is the Mapbox API host.
	DefaultMapboxURL = "https://api.mapbox.com"
	// mapboxMaxWaypoints is the Directions API coordinate limit.
	mapboxMaxWaypoints = 25
)

// Mapbox talks to the Mapbox Directions API.
type Mapbox struct {
	baseURL string
	token   string
	hc      *http.Client
}

// NewMapbox creates a Mapbox client. An access token is required.
func NewMapbox(cfg Config) (*Mapbox, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("mapbox: access token is required")
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultMapboxURL
	}
	return &Mapbox{baseURL: strings.TrimRight(base, "/"), token: cfg.AccessToken, hc: cfg.httpClient()}, nil
}

// Directions implements ports.DirectionsProvider.
func (m *Mapbox) Directions(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
	if err := checkWaypoints("mapbox", req, mapboxMaxWaypoints); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("access_token", m.token)
	q.Set("geometries", "polyline6")
	q.Set("steps", "false")
	q.Set("alternatives", "false")
	if req.FullShape {
		q.Set("overview", "full")
	} else {
		q.Set("overview", "simplified")
	}
	if len(req.Exclude) > 0 {
		q.Set("exclude", strings.Join(req.Exclude, ","))
	}
	if r := radiuses(req.Waypoints); r != "" {
		q.Set("radiuses", r)
	}

	profile := req.Profile
	if profile == "" {
		profile = domain.ProfileWalking
	}
	u := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s?%s", m.baseURL, profile, coordinatePath(req.Waypoints), q.Encode())
	return fetchRoutes(ctx, m.hc, "mapbox", u)
}
