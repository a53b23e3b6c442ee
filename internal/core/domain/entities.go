package domain

import (
	"time"
)

// MetersPerMile converts between the provider's metres and the app's miles.
const MetersPerMile = 1609.34

// WaypointRole tags a waypoint's position in the loop.
type WaypointRole string

const (
	RoleStart  WaypointRole = "start"
	RoleRing   WaypointRole = "ring"
	RoleReturn WaypointRole = "return"
)

// Waypoint is a coordinate submitted to the directions provider.
type Waypoint struct {
	Location Coordinate   `json:"location"`
	Role     WaypointRole `json:"role"`
	Index    int          `json:"index"` // ring vertex index, -1 for start/return
	Name     string       `json:"name"`
	// AccuracyMeters is passed to providers that accept a snapping radius.
	AccuracyMeters float64 `json:"accuracy_meters,omitempty"`
}

// TravelProfile selects the provider's routing profile.
type TravelProfile string

const (
	ProfileWalking TravelProfile = "walking"
)

// DirectionsRequest is what the search loop hands to a directions provider.
type DirectionsRequest struct {
	Waypoints []Waypoint
	Profile   TravelProfile
	// FullShape asks for the full-resolution polyline rather than an overview.
	FullShape bool
	// Exclude lists road classes to avoid, e.g. "ferry".
	Exclude []string
}

// DirectionsRoute is one route returned by a provider.
type DirectionsRoute struct {
	Coordinates    []Coordinate
	DistanceMeters float64
}

// RouteCandidate is a provider route measured by the distance calculator.
type RouteCandidate struct {
	Coordinates            []Coordinate `json:"coordinates"`
	ReportedDistanceMeters float64      `json:"reported_distance_meters"`
	ComputedDistanceMiles  float64      `json:"computed_distance_miles"`
}

// AttemptStatus is the verdict of one evaluating pass of the search loop.
type AttemptStatus string

const (
	AttemptProviderError AttemptStatus = "provider_error"
	AttemptNoRoutes      AttemptStatus = "no_routes"
	AttemptRejected      AttemptStatus = "rejected"
	AttemptRetry         AttemptStatus = "retry"
	AttemptConverged     AttemptStatus = "converged"
	AttemptStagnated     AttemptStatus = "stagnated"
)

// AttemptRecord summarises one attempt for logs and the caller.
type AttemptRecord struct {
	Attempt       int           `json:"attempt"`
	Scale         float64       `json:"scale_miles"`
	NumPoints     int           `json:"num_points"`
	Status        AttemptStatus `json:"status"`
	DistanceMiles float64       `json:"distance_miles,omitempty"`
	Reason        string        `json:"reason,omitempty"`
}

// Outcome is the terminal state of a generation.
type Outcome string

const (
	// OutcomeConverged means the target check or the stagnation check succeeded.
	OutcomeConverged Outcome = "converged"
	// OutcomeExhausted means attempts ran out; Route holds the best candidate.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeFailed means no candidate was ever produced.
	OutcomeFailed Outcome = "failed"
	// OutcomeCanceled means the caller's context ended the search.
	OutcomeCanceled Outcome = "canceled"
)

// GenerationResult is the only value that leaves the search loop.
type GenerationResult struct {
	ID          string          `json:"id"`
	Outcome     Outcome         `json:"outcome"`
	Start       Coordinate      `json:"start"`
	TargetMiles float64         `json:"target_miles"`
	Route       *RouteCandidate `json:"route,omitempty"`
	// Validated is true only when Route passed every quality check,
	// including the distance tolerance.
	Validated bool    `json:"validated"`
	GapMiles  float64 `json:"gap_miles"`
	// SmoothedPath is an optional display copy of Route and is never validated.
	SmoothedPath []Coordinate   `json:"smoothed_path,omitempty"`
	Bounds       *Bounds         `json:"bounds,omitempty"`
	Attempts     []AttemptRecord `json:"attempts"`
	Duration     time.Duration   `json:"duration"`
	Cached       bool            `json:"cached,omitempty"`
}

// Err reports ErrNoCandidate when the result carries no route.
func (r *GenerationResult) Err() error {
	if r == nil || r.Route == nil {
		return ErrNoCandidate
	}
	return nil
}

// ActualMiles returns the measured distance of the route, or 0 without one.
func (r *GenerationResult) ActualMiles() float64 {
	if r == nil || r.Route == nil {
		return 0
	}
	return r.Route.ComputedDistanceMiles
}

// FavoriteRoute is a saved loop.
type FavoriteRoute struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Path          []Coordinate  `json:"path"`
	RunCount      int           `json:"run_count"`
	BestTime      time.Duration `json:"best_time"`
	DistanceMiles float64       `json:"distance_miles"`
	CreatedAt     time.Time     `json:"created_at"`
}

// GenerationEvent is published when a generation reaches a terminal state.
type GenerationEvent struct {
	ID            string     `json:"id"`
	Outcome       Outcome    `json:"outcome"`
	Start         Coordinate `json:"start"`
	TargetMiles   float64    `json:"target_miles"`
	ActualMiles   float64    `json:"actual_miles"`
	GapMiles      float64    `json:"gap_miles"`
	Validated     bool       `json:"validated"`
	Attempts      int        `json:"attempts"`
	PointCount    int        `json:"point_count"`
	CompletedAt   time.Time  `json:"completed_at"`
	DurationMilli int64      `json:"duration_ms"`
}

// FavoritesEvent is published whenever the favourites list changes.
type FavoritesEvent struct {
	Action string    `json:"action"` // saved | removed | run_recorded
	Name   string    `json:"name"`
	Time   time.Time `json:"time"`
}
