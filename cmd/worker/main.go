package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/circlerun/internal/adapters/directions"
	natsadapter "github.com/samirrijal/circlerun/internal/adapters/nats"
	"github.com/samirrijal/circlerun/internal/adapters/postgres"
	"github.com/samirrijal/circlerun/internal/core/ports"
	"github.com/samirrijal/circlerun/internal/core/usecases"
	"github.com/samirrijal/circlerun/internal/pkg/config"
	"github.com/samirrijal/circlerun/internal/pkg/logging"
	"github.com/samirrijal/circlerun/internal/pkg/telemetry"
	"github.com/samirrijal/circlerun/internal/workflows"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load("circlerun-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, events will be skipped", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	provider, err := directions.New(cfg.Directions.Provider, directions.Config{
		BaseURL:     cfg.Directions.BaseURL,
		AccessToken: cfg.Directions.AccessToken,
		Timeout:     cfg.Directions.Timeout,
	}, cfg.Directions.RPS, cfg.Directions.Burst)
	if err != nil {
		log.Fatalf("directions: %v", err)
	}

	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    temporallog.NewStructuredLogger(slog.Default()),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// The activities publish once the favourite is stored, so the services
	// themselves run without a publisher.
	w.RegisterWorkflow(workflows.SavedLoopWorkflow)
	w.RegisterActivity(&workflows.LoopActivities{
		Generation: usecases.NewGenerationService(provider, cfg.Generation.LoopOptions(), nil, nil, 0, slog.Default()),
		Favorites:  usecases.NewFavoriteService(postgres.NewFavoriteRepo(db), nil, slog.Default()),
		Publisher:  publisher,
		Logger:     slog.Default(),
	})

	slog.Info("loop worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
