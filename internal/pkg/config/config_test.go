package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/circlerun/internal/core/loop"
	"github.com/samirrijal/circlerun/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("circlerun-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Directions.Provider != "osrm" {
		t.Errorf("expected osrm provider, got %q", cfg.Directions.Provider)
	}
	if cfg.Generation.RetryDelay != 2*time.Second {
		t.Errorf("expected 2s retry delay, got %v", cfg.Generation.RetryDelay)
	}
	if cfg.Generation.NumPoints != loop.DefaultNumPoints || cfg.Generation.MaxAttempts != loop.DefaultMaxAttempts {
		t.Errorf("unexpected generation defaults: %+v", cfg.Generation)
	}
	if cfg.Telemetry.ServiceName != "circlerun-test" {
		t.Errorf("expected service name default, got %q", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CIRCLERUN_GENERATION_MAX_ATTEMPTS", "10")
	t.Setenv("CIRCLERUN_GENERATION_RETRY_DELAY", "1500ms")

	cfg, err := config.Load("circlerun-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Generation.MaxAttempts != 10 {
		t.Errorf("expected 10 attempts from env, got %d", cfg.Generation.MaxAttempts)
	}
	if cfg.Generation.RetryDelay != 1500*time.Millisecond {
		t.Errorf("expected 1.5s delay from env, got %v", cfg.Generation.RetryDelay)
	}
}

func TestLoad_MapboxNeedsToken(t *testing.T) {
	t.Setenv("CIRCLERUN_DIRECTIONS_PROVIDER", "mapbox")
	if _, err := config.Load("circlerun-test"); err == nil || !strings.Contains(err.Error(), "access_token") {
		t.Errorf("expected access token error, got %v", err)
	}
}

func TestLoad_MapboxWaypointLimit(t *testing.T) {
	t.Setenv("CIRCLERUN_DIRECTIONS_PROVIDER", "mapbox")
	t.Setenv("CIRCLERUN_DIRECTIONS_ACCESS_TOKEN", "pk.test")

	t.Setenv("CIRCLERUN_GENERATION_NUM_POINTS", "24")
	if _, err := config.Load("circlerun-test"); err == nil || !strings.Contains(err.Error(), "generation.num_points (24) exceeds the mapbox limit of 23") {
		t.Errorf("expected waypoint limit error, got %v", err)
	}

	t.Setenv("CIRCLERUN_GENERATION_NUM_POINTS", "23")
	if _, err := config.Load("circlerun-test"); err != nil {
		t.Errorf("23 ring points fit mapbox, got %v", err)
	}

	t.Setenv("CIRCLERUN_DIRECTIONS_PROVIDER", "osrm")
	t.Setenv("CIRCLERUN_GENERATION_NUM_POINTS", "40")
	if _, err := config.Load("circlerun-test"); err != nil {
		t.Errorf("osrm has no waypoint limit, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &config.Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, want := range []string{"server.port", "database.host", "directions.provider", "generation.max_attempts"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got:\n%v", want, err)
		}
	}
}

func TestLoopOptions(t *testing.T) {
	g := config.GenerationConfig{
		NumPoints:         8,
		MinPoints:         4,
		MaxAttempts:       7,
		ErrorMarginMiles:  0.02,
		ToleranceFraction: 0.02,
		RetryDelay:        time.Second,
		MaxSegmentMiles:   1,
		MinSegmentMeters:  10,
		ExcludeFerries:    true,
	}
	opts := g.LoopOptions()
	if opts.NumPoints != 8 || opts.MaxAttempts != 7 || opts.Validator.ToleranceFraction != 0.02 {
		t.Errorf("unexpected options: %+v", opts)
	}
	if len(opts.Exclude) != 1 || opts.Exclude[0] != "ferry" {
		t.Errorf("expected ferry exclusion, got %v", opts.Exclude)
	}
}
