// Package loop builds closed walking loops of a requested length by
// repeatedly asking a directions provider for a route through a ring of
// waypoints and correcting the ring radius until the routed distance lands on
// target.
package loop

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/ports"
)

const (
	DefaultNumPoints        = 12
	DefaultMinPoints        = 4
	DefaultMaxAttempts      = 5
	DefaultErrorMarginMiles = 0.01
	DefaultRetryDelay       = 2 * time.Second

	// stagnationFactor scales the error margin into the "barely moved" band.
	stagnationFactor = 0.01
)

var tracer = otel.Tracer("github.com/samirrijal/circlerun/internal/core/loop")

// Options tunes a Generator. Zero fields take the package defaults.
type Options struct {
	NumPoints        int
	MinPoints        int
	MaxAttempts      int
	ErrorMarginMiles float64
	MaxInitialScale  float64
	RetryDelay       time.Duration
	// SecantRefinement replaces the sqrt correction with a secant step once
	// two sound samples at different scales exist.
	SecantRefinement bool
	Profile          domain.TravelProfile
	Exclude          []string
	Validator        Validator
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		NumPoints:        DefaultNumPoints,
		MinPoints:        DefaultMinPoints,
		MaxAttempts:      DefaultMaxAttempts,
		ErrorMarginMiles: DefaultErrorMarginMiles,
		MaxInitialScale:  DefaultMaxInitialScale,
		RetryDelay:       DefaultRetryDelay,
		SecantRefinement: true,
		Profile:          domain.ProfileWalking,
		Exclude:          []string{"ferry"},
		Validator:        DefaultValidator(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.NumPoints <= 0 {
		o.NumPoints = d.NumPoints
	}
	if o.MinPoints <= 0 {
		o.MinPoints = d.MinPoints
	}
	if o.MinPoints < MinRingPoints {
		o.MinPoints = MinRingPoints
	}
	if o.NumPoints < o.MinPoints {
		o.NumPoints = o.MinPoints
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.ErrorMarginMiles <= 0 {
		o.ErrorMarginMiles = d.ErrorMarginMiles
	}
	if o.MaxInitialScale <= 0 {
		o.MaxInitialScale = d.MaxInitialScale
	}
	if o.RetryDelay < 0 {
		o.RetryDelay = 0
	}
	if o.Profile == "" {
		o.Profile = d.Profile
	}
	if o.Validator == (Validator{}) {
		o.Validator = d.Validator
	}
	return o
}

// Generator runs one search at a time. Create one per owner; the zero value is
// not usable.
type Generator struct {
	provider ports.DirectionsProvider
	opts     Options
	logger   *slog.Logger
	running  atomic.Bool

	// Sleep waits between attempts. The wait is not cut short by
	// cancellation.
	Sleep func(time.Duration)
	// OnAttempt observes every evaluated attempt.
	OnAttempt func(domain.AttemptRecord)

	now   func() time.Time
	newID func() string
}

// NewGenerator creates a Generator backed by provider.
func NewGenerator(provider ports.DirectionsProvider, opts Options, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		provider: provider,
		opts:     opts.withDefaults(),
		logger:   logger.With("component", "loop"),
		Sleep:    time.Sleep,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Options returns the effective options.
func (g *Generator) Options() Options { return g.opts }

// Busy reports whether a search is in flight.
func (g *Generator) Busy() bool { return g.running.Load() }

// Generate runs a search and blocks until it terminates. It fails fast with
// ErrSearchInProgress when another search holds the generator, and with
// ErrInvalidRequest on bad input. Every other failure is reported through the
// result's Outcome.
func (g *Generator) Generate(ctx context.Context, start domain.Coordinate, targetMiles float64) (*domain.GenerationResult, error) {
	if err := checkRequest(start, targetMiles); err != nil {
		return nil, err
	}
	if !g.running.CompareAndSwap(false, true) {
		return nil, domain.ErrSearchInProgress
	}
	defer g.running.Store(false)

	return g.search(ctx, start, targetMiles), nil
}

// Start runs a search in the background and hands the result to deliver.
// The result is dropped when ctx is already done at delivery time.
func (g *Generator) Start(ctx context.Context, start domain.Coordinate, targetMiles float64, deliver func(*domain.GenerationResult)) error {
	if err := checkRequest(start, targetMiles); err != nil {
		return err
	}
	if !g.running.CompareAndSwap(false, true) {
		return domain.ErrSearchInProgress
	}

	go func() {
		res := g.search(ctx, start, targetMiles)
		g.running.Store(false)

		if ctx.Err() != nil {
			g.logger.Info("generation result dropped, caller gone",
				"id", res.ID, "outcome", res.Outcome)
			return
		}
		if deliver != nil {
			deliver(res)
		}
	}()
	return nil
}

func checkRequest(start domain.Coordinate, targetMiles float64) error {
	if !start.Valid() {
		return fmt.Errorf("%w: start %s out of range", domain.ErrInvalidRequest, start)
	}
	if !(targetMiles > 0) || math.IsInf(targetMiles, 1) {
		return fmt.Errorf("%w: target distance must be positive, got %v", domain.ErrInvalidRequest, targetMiles)
	}
	return nil
}

type sample struct {
	scale, miles float64
}

// searchState is owned by a single search call.
type searchState struct {
	start       domain.Coordinate
	target      float64
	scale       float64
	numPoints   int
	previous    float64
	hasPrevious bool
	samples     []sample
	best        *domain.RouteCandidate
	bestVerdict Verdict
}

type step int

const (
	stepRetry step = iota
	stepConverged
	stepGiveUp
	stepCanceled
)

func (g *Generator) search(ctx context.Context, start domain.Coordinate, target float64) *domain.GenerationResult {
	began := g.now()
	res := &domain.GenerationResult{
		ID:          g.newID(),
		Start:       start,
		TargetMiles: target,
	}

	ctx, span := tracer.Start(ctx, "loop.search", trace.WithAttributes(
		attribute.String("loop.id", res.ID),
		attribute.Float64("loop.target_miles", target),
	))
	defer span.End()

	st := &searchState{
		start:     start,
		target:    target,
		scale:     InitialScale(target, g.opts.MaxInitialScale),
		numPoints: g.opts.NumPoints,
	}
	log := g.logger.With("id", res.ID, "target_miles", target)
	log.Debug("search started", "initial_scale", st.scale, "num_points", st.numPoints)

	outcome := domain.OutcomeExhausted
	for attempt := 1; attempt <= g.opts.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			outcome = domain.OutcomeCanceled
			break
		}

		rec, next := g.attempt(ctx, st, attempt)
		res.Attempts = append(res.Attempts, rec)
		if g.OnAttempt != nil {
			g.OnAttempt(rec)
		}
		log.Debug("attempt evaluated",
			"attempt", rec.Attempt,
			"scale", rec.Scale,
			"num_points", rec.NumPoints,
			"distance_miles", rec.DistanceMiles,
			"status", rec.Status,
			"reason", rec.Reason,
		)

		if next == stepConverged {
			outcome = domain.OutcomeConverged
			break
		}
		if next == stepCanceled {
			outcome = domain.OutcomeCanceled
			break
		}
		if next == stepGiveUp {
			break
		}
		if attempt < g.opts.MaxAttempts {
			g.Sleep(g.opts.RetryDelay)
		}
	}

	if st.best == nil && outcome != domain.OutcomeCanceled {
		outcome = domain.OutcomeFailed
	}
	res.Outcome = outcome
	if st.best != nil {
		res.Route = st.best
		res.Validated = st.bestVerdict.Accepted()
		res.GapMiles = math.Abs(st.best.ComputedDistanceMiles - target)
		b := domain.BoundsOf(st.best.Coordinates)
		res.Bounds = &b
	}
	res.Duration = g.now().Sub(began)

	span.SetAttributes(
		attribute.String("loop.outcome", string(res.Outcome)),
		attribute.Int("loop.attempts", len(res.Attempts)),
		attribute.Float64("loop.gap_miles", res.GapMiles),
	)
	if res.Outcome == domain.OutcomeFailed {
		span.SetStatus(codes.Error, domain.ErrNoCandidate.Error())
	}

	log.Info("search finished",
		"outcome", res.Outcome,
		"attempts", len(res.Attempts),
		"actual_miles", res.ActualMiles(),
		"gap_miles", res.GapMiles,
		"validated", res.Validated,
		"duration", res.Duration,
	)
	return res
}

// attempt performs one Requesting/Evaluating pass and updates st.
func (g *Generator) attempt(ctx context.Context, st *searchState, n int) (domain.AttemptRecord, step) {
	rec := domain.AttemptRecord{Attempt: n, Scale: st.scale, NumPoints: st.numPoints}

	ctx, span := tracer.Start(ctx, "loop.attempt", trace.WithAttributes(
		attribute.Int("loop.attempt", n),
		attribute.Float64("loop.scale_miles", st.scale),
		attribute.Int("loop.num_points", st.numPoints),
	))
	defer func() {
		span.SetAttributes(attribute.String("loop.status", string(rec.Status)))
		span.End()
	}()

	wps, err := BuildRing(st.start, st.scale, st.numPoints)
	if err != nil {
		rec.Status = domain.AttemptRejected
		rec.Reason = err.Error()
		return rec, stepGiveUp
	}

	routes, err := g.provider.Directions(ctx, domain.DirectionsRequest{
		Waypoints: wps,
		Profile:   g.opts.Profile,
		FullShape: true,
		Exclude:   g.opts.Exclude,
	})
	switch {
	case err != nil:
		if ctx.Err() != nil {
			rec.Status = domain.AttemptProviderError
			rec.Reason = ctx.Err().Error()
			return rec, stepCanceled
		}
		span.RecordError(err)
		rec.Status = domain.AttemptProviderError
		rec.Reason = err.Error()
		return rec, g.degrade(st)
	case len(routes) == 0:
		rec.Status = domain.AttemptNoRoutes
		rec.Reason = domain.ErrNoRoutes.Error()
		return rec, g.degrade(st)
	}

	route := routes[0]
	verdict := g.opts.Validator.Validate(route.Coordinates, st.target)
	rec.DistanceMiles = verdict.ComputedMiles
	if !verdict.Sound() {
		rec.Status = domain.AttemptRejected
		rec.Reason = verdict.Structural.Error()
		return rec, g.degrade(st)
	}

	d := verdict.ComputedMiles
	candidate := &domain.RouteCandidate{
		Coordinates:            route.Coordinates,
		ReportedDistanceMeters: route.DistanceMeters,
		ComputedDistanceMiles:  d,
	}
	if st.best == nil || math.Abs(d-st.target) < math.Abs(st.best.ComputedDistanceMiles-st.target) {
		st.best = candidate
		st.bestVerdict = verdict
	}

	stalled := st.hasPrevious && math.Abs(d-st.previous) < g.opts.ErrorMarginMiles*stagnationFactor
	st.previous, st.hasPrevious = d, true
	st.samples = append(st.samples, sample{scale: st.scale, miles: d})

	switch {
	case math.Abs(d-st.target) <= g.opts.ErrorMarginMiles:
		rec.Status = domain.AttemptConverged
		return rec, stepConverged
	case stalled && verdict.Distance == nil:
		rec.Status = domain.AttemptStagnated
		return rec, stepConverged
	}

	rec.Status = domain.AttemptRetry
	if verdict.Distance != nil {
		rec.Reason = verdict.Distance.Error()
	}
	st.scale = g.nextScale(st, d)
	return rec, stepRetry
}

// degrade drops one ring vertex after a failed attempt. At the floor the
// search gives up.
func (g *Generator) degrade(st *searchState) step {
	if st.numPoints <= g.opts.MinPoints {
		return stepGiveUp
	}
	st.numPoints--
	// Samples taken with a different vertex count lie on a different curve.
	st.samples = st.samples[:0]
	return stepRetry
}

// nextScale corrects the ring radius after measuring d miles at st.scale.
func (g *Generator) nextScale(st *searchState, d float64) float64 {
	if d <= 0 {
		return st.scale
	}
	sqrtStep := st.scale * math.Sqrt(st.target/d)
	if !g.opts.SecantRefinement || len(st.samples) < 2 {
		return sqrtStep
	}

	s0 := st.samples[len(st.samples)-2]
	s1 := st.samples[len(st.samples)-1]
	if s1.scale == s0.scale {
		return sqrtStep
	}
	slope := (s1.miles - s0.miles) / (s1.scale - s0.scale)
	if !(slope > 0) {
		return sqrtStep
	}
	next := s1.scale + (st.target-s1.miles)/slope
	if !(next > 0) || math.IsInf(next, 0) {
		return sqrtStep
	}
	return next
}
