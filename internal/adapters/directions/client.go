// Package directions implements ports.DirectionsProvider over the OSRM and
// Mapbox Directions HTTP APIs.
package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/pkg/metrics"
)

// Config configures an HTTP directions client.
type Config struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// routeResponse is the subset shared by OSRM and Mapbox route responses.
type routeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry string  `json:"geometry"`
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// Codes both APIs use when no route connects the waypoints.
var noRouteCodes = map[string]bool{
	"NoRoute":   true,
	"NoSegment": true,
	"NoMatch":   true,
}

func fetchRoutes(ctx context.Context, hc *http.Client, provider, u string) ([]domain.DirectionsRoute, error) {
	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: build request: %v", domain.ErrProvider, provider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		metrics.ProviderErrors.WithLabelValues(provider, "transport").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Join(domain.ErrProvider, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s request: %v", domain.ErrProvider, provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		metrics.ProviderErrors.WithLabelValues(provider, "transport").Inc()
		return nil, fmt.Errorf("%w: %s read body: %v", domain.ErrProvider, provider, err)
	}

	var rr routeResponse
	decodeErr := json.Unmarshal(body, &rr)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && noRouteCodes[rr.Code] {
			metrics.ProviderErrors.WithLabelValues(provider, "no_route").Inc()
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrNoRoutes, provider, rr.Code)
		}
		kind := "status"
		if resp.StatusCode == http.StatusTooManyRequests {
			kind = "rate_limited"
		}
		metrics.ProviderErrors.WithLabelValues(provider, kind).Inc()
		return nil, fmt.Errorf("%w: %s returned HTTP %d %s", domain.ErrProvider, provider, resp.StatusCode, strings.TrimSpace(rr.Message))
	}
	if decodeErr != nil {
		metrics.ProviderErrors.WithLabelValues(provider, "decode").Inc()
		return nil, fmt.Errorf("%w: %s decode: %v", domain.ErrProvider, provider, decodeErr)
	}
	if rr.Code != "" && rr.Code != "Ok" {
		if noRouteCodes[rr.Code] {
			return nil, fmt.Errorf("%w: %s: %s", domain.ErrNoRoutes, provider, rr.Code)
		}
		metrics.ProviderErrors.WithLabelValues(provider, "code").Inc()
		return nil, fmt.Errorf("%w: %s code %s: %s", domain.ErrProvider, provider, rr.Code, rr.Message)
	}

	routes := make([]domain.DirectionsRoute, 0, len(rr.Routes))
	for i, r := range rr.Routes {
		coords, err := DecodePolyline(r.Geometry, Precision6)
		if err != nil {
			metrics.ProviderErrors.WithLabelValues(provider, "decode").Inc()
			return nil, fmt.Errorf("%w: %s route %d geometry: %v", domain.ErrProvider, provider, i, err)
		}
		routes = append(routes, domain.DirectionsRoute{
			Coordinates:    coords,
			DistanceMeters: r.Distance,
		})
	}
	return routes, nil
}

// coordinatePath renders waypoints as "lon,lat;lon,lat", the order both APIs expect.
func coordinatePath(wps []domain.Waypoint) string {
	parts := make([]string, len(wps))
	for i, wp := range wps {
		parts[i] = strconv.FormatFloat(wp.Location.Lon, 'f', 6, 64) + "," +
			strconv.FormatFloat(wp.Location.Lat, 'f', 6, 64)
	}
	return strings.Join(parts, ";")
}

// radiuses renders the per-waypoint snapping hints. It returns "" when no
// waypoint carries one.
func radiuses(wps []domain.Waypoint) string {
	parts := make([]string, len(wps))
	set := false
	for i, wp := range wps {
		if wp.AccuracyMeters > 0 {
			parts[i] = strconv.FormatFloat(wp.AccuracyMeters, 'f', -1, 64)
			set = true
		} else {
			parts[i] = "unlimited"
		}
	}
	if !set {
		return ""
	}
	return strings.Join(parts, ";")
}

func checkWaypoints(provider string, req domain.DirectionsRequest, max int) error {
	if len(req.Waypoints) < 2 {
		return fmt.Errorf("%w: %s needs at least 2 waypoints, got %d", domain.ErrProvider, provider, len(req.Waypoints))
	}
	if max > 0 && len(req.Waypoints) > max {
		return fmt.Errorf("%w: %s accepts at most %d waypoints, got %d", domain.ErrProvider, provider, max, len(req.Waypoints))
	}
	return nil
}
