package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/samirrijal/circlerun/internal/adapters/directions"
	"github.com/samirrijal/circlerun/internal/adapters/http"
	natsadapter "github.com/samirrijal/circlerun/internal/adapters/nats"
	"github.com/samirrijal/circlerun/internal/adapters/postgres"
	"github.com/samirrijal/circlerun/internal/adapters/valkey"
	"github.com/samirrijal/circlerun/internal/core/ports"
	"github.com/samirrijal/circlerun/internal/core/usecases"
	"github.com/samirrijal/circlerun/internal/pkg/config"
	"github.com/samirrijal/circlerun/internal/pkg/logging"
	"github.com/samirrijal/circlerun/internal/pkg/telemetry"
)

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load("circlerun-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	// Cache and events are optional; the interfaces stay nil without them.
	var cache ports.CacheService
	cacheConn, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cacheConn.Close()
		cache = cacheConn
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
	}

	provider, err := directions.New(cfg.Directions.Provider, directions.Config{
		BaseURL:     cfg.Directions.BaseURL,
		AccessToken: cfg.Directions.AccessToken,
		Timeout:     cfg.Directions.Timeout,
	}, cfg.Directions.RPS, cfg.Directions.Burst)
	if err != nil {
		log.Fatalf("directions: %v", err)
	}

	deps := &http.Dependencies{
		Generation:      usecases.NewGenerationService(provider, cfg.Generation.LoopOptions(), cache, publisher, cfg.Generation.CacheTTL, slog.Default()),
		Favorites:       usecases.NewFavoriteService(postgres.NewFavoriteRepo(db), publisher, slog.Default()),
		GenerateTimeout: time.Duration(cfg.Server.GenerateTimeout) * time.Second,
		DocsPath:        http.DefaultDocsPath,
		AllowOrigins:    cfg.Server.AllowOrigins,
		NATS:            natsConn,
		DB:              db,
		Cache:           cacheConn,
	}

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    4 * 1024 * 1024, // GPX uploads
		AppName:      "CircleRun API",
	})
	app.Use(recover.New())

	http.SetupRoutes(app, deps)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "provider", cfg.Directions.Provider)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// In-flight searches get the full generate timeout to finish.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), deps.GenerateTimeout+5*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
