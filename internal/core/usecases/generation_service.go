package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/loop"
	"github.com/samirrijal/circlerun/internal/core/ports"
	"github.com/samirrijal/circlerun/internal/pkg/metrics"
)

// GenerateRequest is one loop request from a client.
type GenerateRequest struct {
	Start       domain.Coordinate
	TargetMiles float64
	// Smooth adds a smoothed display copy of the route.
	Smooth bool
	// Fresh skips the result cache.
	Fresh bool
}

// GenerationService runs loop searches for API clients. Each request gets its
// own generator, so requests never share search state.
type GenerationService struct {
	provider  ports.DirectionsProvider
	opts      loop.Options
	cache     ports.CacheService
	publisher ports.EventPublisher
	cacheTTL  time.Duration
	logger    *slog.Logger

	// sleep overrides the generator's retry delay in tests.
	sleep func(time.Duration)
}

// NewGenerationService creates a GenerationService. cache and publisher may be nil.
func NewGenerationService(provider ports.DirectionsProvider, opts loop.Options, cache ports.CacheService, publisher ports.EventPublisher, cacheTTL time.Duration, logger *slog.Logger) *GenerationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{
		provider:  provider,
		opts:      opts,
		cache:     cache,
		publisher: publisher,
		cacheTTL:  cacheTTL,
		logger:    logger,
	}
}

// SetSleep replaces the delay between attempts.
func (s *GenerationService) SetSleep(fn func(time.Duration)) { s.sleep = fn }

// ResultCacheKey identifies a cached result by start (4 dp, about 11 m)
// and target (2 dp).
func ResultCacheKey(start domain.Coordinate, targetMiles float64) string {
	return fmt.Sprintf("loops:result:%.4f:%.4f:%.2f", start.Lat, start.Lon, targetMiles)
}

func (s *GenerationService) newGenerator() *loop.Generator {
	g := loop.NewGenerator(s.provider, s.opts, s.logger)
	g.OnAttempt = func(rec domain.AttemptRecord) {
		metrics.ObserveAttempt(string(rec.Status))
	}
	if s.sleep != nil {
		g.Sleep = s.sleep
	}
	return g
}

// Generate runs one search to completion. Terminal search states, failure
// included, come back as a result; only bad input returns an error.
func (s *GenerationService) Generate(ctx context.Context, req GenerateRequest) (*domain.GenerationResult, error) {
	key := ResultCacheKey(req.Start, req.TargetMiles)
	if !req.Fresh && s.cache != nil && s.cacheTTL > 0 {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var res domain.GenerationResult
			if err := json.Unmarshal(data, &res); err == nil {
				metrics.CacheHits.WithLabelValues("loop_result").Inc()
				res.Cached = true
				s.retarget(&res, req)
				s.decorate(&res, req)
				return &res, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("loop_result").Inc()
	}

	metrics.SearchesInFlight.Inc()
	res, err := s.newGenerator().Generate(ctx, req.Start, req.TargetMiles)
	metrics.SearchesInFlight.Dec()
	if err != nil {
		return nil, err
	}
	metrics.ObserveGeneration(string(res.Outcome), res.GapMiles, res.Route != nil, res.Duration)

	if s.cache != nil && s.cacheTTL > 0 && res.Route != nil &&
		(res.Outcome == domain.OutcomeConverged || res.Outcome == domain.OutcomeExhausted) {
		if data, err := json.Marshal(res); err == nil {
			if err := s.cache.Set(ctx, key, data, int(s.cacheTTL.Seconds())); err != nil {
				s.logger.Warn("cache loop result", "key", key, "error", err)
			}
		}
	}

	s.publish(ctx, res)
	s.decorate(res, req)
	return res, nil
}

// retarget rewrites a cached result in terms of req. The cache key rounds
// start and target, so the stored values may belong to a neighbouring request.
func (s *GenerationService) retarget(res *domain.GenerationResult, req GenerateRequest) {
	res.Start = req.Start
	res.TargetMiles = req.TargetMiles
	if res.Route == nil {
		return
	}
	v := s.opts.Validator
	if v == (loop.Validator{}) {
		v = loop.DefaultValidator()
	}
	verdict := v.Validate(res.Route.Coordinates, req.TargetMiles)
	res.Validated = verdict.Accepted()
	res.GapMiles = math.Abs(res.Route.ComputedDistanceMiles - req.TargetMiles)
}

func (s *GenerationService) decorate(res *domain.GenerationResult, req GenerateRequest) {
	if req.Smooth && res.Route != nil {
		res.SmoothedPath = loop.Smooth(res.Route.Coordinates, loop.DefaultSmoothingFactor)
	}
}

func (s *GenerationService) publish(ctx context.Context, res *domain.GenerationResult) {
	if s.publisher == nil || res.Outcome == domain.OutcomeCanceled {
		return
	}
	event := GenerationEventFrom(res, time.Now().UTC())
	// The caller may already be gone; the event still goes out.
	if err := s.publisher.PublishGeneration(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("publish generation event", "id", res.ID, "error", err)
	}
}

// GenerationEventFrom summarises res for the event stream.
func GenerationEventFrom(res *domain.GenerationResult, at time.Time) *domain.GenerationEvent {
	e := &domain.GenerationEvent{
		ID:            res.ID,
		Outcome:       res.Outcome,
		Start:         res.Start,
		TargetMiles:   res.TargetMiles,
		ActualMiles:   res.ActualMiles(),
		GapMiles:      res.GapMiles,
		Validated:     res.Validated,
		Attempts:      len(res.Attempts),
		CompletedAt:   at,
		DurationMilli: res.Duration.Milliseconds(),
	}
	if res.Route != nil {
		e.PointCount = len(res.Route.Coordinates)
	}
	return e
}
