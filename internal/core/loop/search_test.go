package loop_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/loop"
	"github.com/samirrijal/circlerun/internal/pkg/geospatial"
)

func TestGenerate_StreetsFivePercentLonger(t *testing.T) {
	p := &mockProvider{routesFn: stretchedRing(1.05, 10)}
	g, slept := newTestGenerator(p, loop.DefaultOptions())

	res, err := g.Generate(context.Background(), sanFrancisco, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.OutcomeConverged {
		t.Fatalf("expected converged, got %s after %+v", res.Outcome, res.Attempts)
	}
	if len(res.Attempts) > loop.DefaultMaxAttempts {
		t.Errorf("expected at most %d attempts, got %d", loop.DefaultMaxAttempts, len(res.Attempts))
	}
	if gap := math.Abs(res.ActualMiles() - 3.0); gap > 0.03 {
		t.Errorf("expected |actual-3.0| <= 0.03, got %f", gap)
	}
	if !res.Validated {
		t.Error("expected converged route to be validated")
	}
	if len(*slept) != len(res.Attempts)-1 {
		t.Errorf("expected %d delays, got %d", len(res.Attempts)-1, len(*slept))
	}
	for _, d := range *slept {
		if d != loop.DefaultRetryDelay {
			t.Errorf("expected delay %v, got %v", loop.DefaultRetryDelay, d)
		}
	}

	req := p.calls[0]
	if req.Profile != domain.ProfileWalking || !req.FullShape {
		t.Errorf("expected walking profile with full shape, got %+v", req)
	}
	if len(req.Waypoints) != loop.DefaultNumPoints+2 {
		t.Errorf("expected %d waypoints, got %d", loop.DefaultNumPoints+2, len(req.Waypoints))
	}
	if len(req.Exclude) != 1 || req.Exclude[0] != "ferry" {
		t.Errorf("expected ferry exclusion, got %v", req.Exclude)
	}
}

func TestGenerate_LinearProviderConvergesPredictably(t *testing.T) {
	for _, stretch := range []float64{0.8, 1.0, 1.3} {
		p := &mockProvider{routesFn: stretchedRing(stretch, 10)}
		g, _ := newTestGenerator(p, loop.DefaultOptions())

		res, err := g.Generate(context.Background(), sanFrancisco, 3.0)
		if err != nil {
			t.Fatalf("stretch %v: %v", stretch, err)
		}
		if res.Outcome != domain.OutcomeConverged {
			t.Fatalf("stretch %v: expected converged, got %s", stretch, res.Outcome)
		}
		// sqrt step, then one secant step lands on the line.
		if len(res.Attempts) != 3 {
			t.Errorf("stretch %v: expected 3 attempts, got %d", stretch, len(res.Attempts))
		}
		if gap := math.Abs(res.ActualMiles() - 3.0); gap > loop.DefaultErrorMarginMiles {
			t.Errorf("stretch %v: expected gap within margin, got %f", stretch, gap)
		}
	}
}

func TestGenerate_FirstCorrectionIsSqrtStep(t *testing.T) {
	p := &mockProvider{routesFn: stretchedRing(1.05, 10)}
	g, _ := newTestGenerator(p, loop.DefaultOptions())

	res, err := g.Generate(context.Background(), sanFrancisco, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Attempts) < 2 {
		t.Fatalf("expected at least 2 attempts, got %d", len(res.Attempts))
	}
	first, second := res.Attempts[0], res.Attempts[1]
	want := first.Scale * math.Sqrt(3.0/first.DistanceMiles)
	if math.Abs(second.Scale-want) > 1e-9 {
		t.Errorf("expected second scale %f, got %f", want, second.Scale)
	}
}

func TestGenerate_SqrtOnlyShrinksGap(t *testing.T) {
	opts := loop.DefaultOptions()
	opts.SecantRefinement = false
	p := &mockProvider{routesFn: stretchedRing(1.05, 10)}
	g, _ := newTestGenerator(p, opts)

	res, err := g.Generate(context.Background(), sanFrancisco, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	prev := math.Inf(1)
	for _, a := range res.Attempts {
		gap := math.Abs(a.DistanceMiles - 3.0)
		if gap >= prev {
			t.Errorf("attempt %d: expected gap to shrink, got %f after %f", a.Attempt, gap, prev)
		}
		prev = gap
	}
}

func TestGenerate_ExhaustedReturnsBestCandidate(t *testing.T) {
	fixed := squareLoop(800, 8) // ~2 mi, far from a 6 mi target
	p := &mockProvider{routesFn: func(context.Context, domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
		return []domain.DirectionsRoute{{Coordinates: fixed, DistanceMeters: 3200}}, nil
	}}
	g, slept := newTestGenerator(p, loop.DefaultOptions())

	res, err := g.Generate(context.Background(), sanFrancisco, 6.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.OutcomeExhausted {
		t.Fatalf("expected exhausted, got %s", res.Outcome)
	}
	if res.Route == nil {
		t.Fatal("expected best candidate, got nil")
	}
	if res.Validated {
		t.Error("expected off-target route not to be marked validated")
	}
	if len(res.Attempts) != loop.DefaultMaxAttempts {
		t.Errorf("expected %d attempts, got %d", loop.DefaultMaxAttempts, len(res.Attempts))
	}
	if len(*slept) != loop.DefaultMaxAttempts-1 {
		t.Errorf("expected %d delays, got %d", loop.DefaultMaxAttempts-1, len(*slept))
	}
	want := geospatial.TotalDistanceMiles(fixed)
	if res.ActualMiles() != want {
		t.Errorf("expected computed distance %f, got %f", want, res.ActualMiles())
	}
	if math.Abs(res.GapMiles-(6.0-want)) > 1e-9 {
		t.Errorf("expected gap %f, got %f", 6.0-want, res.GapMiles)
	}
	if res.Route.ReportedDistanceMeters != 3200 {
		t.Errorf("expected reported distance kept, got %f", res.Route.ReportedDistanceMeters)
	}
	if res.Err() != nil {
		t.Errorf("expected no error with a candidate, got %v", res.Err())
	}
}

func TestGenerate_StagnationWithinToleranceConverges(t *testing.T) {
	fixed := squareLoop(800, 8)
	d := geospatial.TotalDistanceMiles(fixed)
	p := &mockProvider{routesFn: func(context.Context, domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
		return []domain.DirectionsRoute{{Coordinates: fixed}}, nil
	}}
	g, _ := newTestGenerator(p, loop.DefaultOptions())

	// Outside the 0.01 mi margin but inside the 1% tolerance.
	target := d + 0.015
	res, err := g.Generate(context.Background(), sanFrancisco, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.OutcomeConverged {
		t.Fatalf("expected converged, got %s", res.Outcome)
	}
	if len(res.Attempts) != 2 || res.Attempts[1].Status != domain.AttemptStagnated {
		t.Errorf("expected stagnation on attempt 2, got %+v", res.Attempts)
	}
	if !res.Validated {
		t.Error("expected route within tolerance to be validated")
	}
}

func TestGenerate_ProviderErrorsDegradeGeometry(t *testing.T) {
	call := 0
	good := stretchedRing(1.0, 10)
	p := &mockProvider{routesFn: func(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
		call++
		switch call {
		case 1:
			return nil, errors.New("503 service unavailable")
		case 2:
			return nil, nil
		}
		return good(ctx, req)
	}}
	g, _ := newTestGenerator(p, loop.DefaultOptions())

	res, err := g.Generate(context.Background(), sanFrancisco, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Attempts[0].Status != domain.AttemptProviderError || res.Attempts[1].Status != domain.AttemptNoRoutes {
		t.Fatalf("unexpected statuses: %+v", res.Attempts)
	}
	for i, want := range []int{12, 11, 10} {
		if res.Attempts[i].NumPoints != want {
			t.Errorf("attempt %d: expected %d points, got %d", i+1, want, res.Attempts[i].NumPoints)
		}
	}
	if res.Attempts[1].Scale != res.Attempts[0].Scale {
		t.Error("expected scale unchanged after a failure")
	}
	if res.Route == nil {
		t.Error("expected a route after recovery")
	}
}

func TestGenerate_NoCandidateEver(t *testing.T) {
	opts := loop.DefaultOptions()
	opts.NumPoints = 5
	p := &mockProvider{routesFn: func(context.Context, domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
		return nil, domain.ErrProvider
	}}
	g, _ := newTestGenerator(p, opts)

	res, err := g.Generate(context.Background(), sanFrancisco, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	// 5 points, then 4, then the floor ends the search.
	if len(res.Attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", len(res.Attempts))
	}
	if !errors.Is(res.Err(), domain.ErrNoCandidate) {
		t.Errorf("expected ErrNoCandidate, got %v", res.Err())
	}
	if res.Route != nil || res.Validated {
		t.Error("expected no route and not validated")
	}
}

func TestGenerate_RejectsBadRequests(t *testing.T) {
	g, _ := newTestGenerator(&mockProvider{}, loop.DefaultOptions())
	if _, err := g.Generate(context.Background(), domain.Coordinate{Lat: 91}, 3); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for bad start, got %v", err)
	}
	if _, err := g.Generate(context.Background(), sanFrancisco, 0); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("expected ErrInvalidRequest for zero target, got %v", err)
	}
}

func TestGenerate_SecondCallRejectedWhileInFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	good := stretchedRing(1.05, 10)
	p := &mockProvider{routesFn: func(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
		once.Do(func() {
			close(entered)
			<-release
		})
		return good(ctx, req)
	}}
	g, _ := newTestGenerator(p, loop.DefaultOptions())

	type outcome struct {
		res *domain.GenerationResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := g.Generate(context.Background(), sanFrancisco, 3.0)
		done <- outcome{res, err}
	}()

	<-entered
	if !g.Busy() {
		t.Error("expected generator busy")
	}
	if _, err := g.Generate(context.Background(), sanFrancisco, 5.0); !errors.Is(err, domain.ErrSearchInProgress) {
		t.Errorf("expected ErrSearchInProgress, got %v", err)
	}
	if err := g.Start(context.Background(), sanFrancisco, 5.0, nil); !errors.Is(err, domain.ErrSearchInProgress) {
		t.Errorf("expected Start to be rejected too, got %v", err)
	}
	close(release)

	first := <-done
	if first.err != nil {
		t.Fatalf("unexpected error: %v", first.err)
	}
	if first.res.TargetMiles != 3.0 || first.res.Outcome != domain.OutcomeConverged {
		t.Errorf("expected first search untouched, got target %v outcome %s", first.res.TargetMiles, first.res.Outcome)
	}
	for _, req := range p.calls {
		if len(req.Waypoints) != loop.DefaultNumPoints+2 {
			t.Errorf("expected only first search's requests, got %d waypoints", len(req.Waypoints))
		}
	}
	if g.Busy() {
		t.Error("expected guard cleared after completion")
	}
}

func TestStart_DeliversResult(t *testing.T) {
	p := &mockProvider{routesFn: stretchedRing(1.05, 10)}
	g, _ := newTestGenerator(p, loop.DefaultOptions())

	got := make(chan *domain.GenerationResult, 1)
	if err := g.Start(context.Background(), sanFrancisco, 3.0, func(r *domain.GenerationResult) { got <- r }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case res := <-got:
		if res.Outcome != domain.OutcomeConverged {
			t.Errorf("expected converged, got %s", res.Outcome)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestStart_DropsResultForCanceledCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &mockProvider{routesFn: func(context.Context, domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
		cancel()
		return nil, context.Canceled
	}}
	g, _ := newTestGenerator(p, loop.DefaultOptions())

	delivered := make(chan struct{}, 1)
	if err := g.Start(ctx, sanFrancisco, 3.0, func(*domain.GenerationResult) { delivered <- struct{}{} }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for g.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	select {
	case <-delivered:
		t.Error("expected result dropped for canceled caller")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGenerate_CanceledKeepsBestSoFar(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	good := stretchedRing(1.05, 10)
	p := &mockProvider{routesFn: good}
	g, _ := newTestGenerator(p, loop.DefaultOptions())
	g.Sleep = func(time.Duration) { cancel() }

	res, err := g.Generate(ctx, sanFrancisco, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != domain.OutcomeCanceled {
		t.Fatalf("expected canceled, got %s", res.Outcome)
	}
	if len(res.Attempts) != 1 || res.Route == nil {
		t.Errorf("expected one attempt and its candidate, got %d attempts route=%v", len(res.Attempts), res.Route != nil)
	}
	if p.callCount() != 1 {
		t.Errorf("expected no provider calls after cancel, got %d", p.callCount())
	}
}

func TestGenerate_OnAttemptObservesEveryAttempt(t *testing.T) {
	p := &mockProvider{routesFn: stretchedRing(1.05, 10)}
	g, _ := newTestGenerator(p, loop.DefaultOptions())
	var seen []domain.AttemptRecord
	g.OnAttempt = func(r domain.AttemptRecord) { seen = append(seen, r) }

	res, err := g.Generate(context.Background(), sanFrancisco, 3.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != len(res.Attempts) {
		t.Errorf("expected %d observed attempts, got %d", len(res.Attempts), len(seen))
	}
}
