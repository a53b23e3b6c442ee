package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/samirrijal/circlerun/internal/adapters/directions"
	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/loop"
	"github.com/samirrijal/circlerun/internal/gpx"
	"github.com/samirrijal/circlerun/internal/pkg/metrics"
)

var (
	generateFlags loopFlags
	outDir        string
	timeout       time.Duration
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Search for a loop locally and write it as GPX",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()
		return generate(ctx, generateFlags)
	},
}

func init() {
	generateFlags.register(generateCmd)
	generateCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the GPX file")
	generateCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long")
	rootCmd.AddCommand(generateCmd)
}

func generate(ctx context.Context, f loopFlags) error {
	provider, err := directions.New(cfg.Directions.Provider, directions.Config{
		BaseURL:     cfg.Directions.BaseURL,
		AccessToken: cfg.Directions.AccessToken,
		Timeout:     cfg.Directions.Timeout,
	}, cfg.Directions.RPS, cfg.Directions.Burst)
	if err != nil {
		return err
	}

	g := loop.NewGenerator(provider, cfg.Generation.LoopOptions(), slog.Default())
	g.OnAttempt = func(rec domain.AttemptRecord) {
		metrics.ObserveAttempt(string(rec.Status))
		slog.Info("attempt", "n", rec.Attempt, "scale_miles", rec.Scale, "points", rec.NumPoints,
			"status", rec.Status, "distance_miles", rec.DistanceMiles)
	}

	results := make(chan *domain.GenerationResult, 1)
	if err := g.Start(ctx, f.start(), f.miles, func(res *domain.GenerationResult) { results <- res }); err != nil {
		return err
	}

	var res *domain.GenerationResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return fmt.Errorf("generation: %w", ctx.Err())
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("generation %s: %w", res.Outcome, err)
	}

	path := res.Route.Coordinates
	if f.smooth {
		path = loop.Smooth(path, loop.DefaultSmoothingFactor)
	}
	name := f.name
	if name == "" {
		name = gpx.TrackName(res.ActualMiles())
	}
	now := time.Now().UTC()
	data, err := gpx.Export(name, path, res.ActualMiles(), now)
	if err != nil {
		return err
	}
	file := filepath.Join(outDir, gpx.FileName(name, now))
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return fmt.Errorf("write gpx: %w", err)
	}

	slog.Info("loop written", "file", file, "outcome", res.Outcome, "validated", res.Validated,
		"target_miles", f.miles, "actual_miles", res.ActualMiles(), "attempts", len(res.Attempts))
	return nil
}
