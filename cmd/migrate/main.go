package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/samirrijal/circlerun/internal/pkg/config"
	"github.com/samirrijal/circlerun/internal/pkg/logging"
)

// Applied in order on up, in reverse on down.
var migrations = []struct{ up, down string }{
	{"migrations/001_favorites.sql", "migrations/001_favorites.down.sql"},
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}
	_ = godotenv.Load(".env.local")

	cfg, err := config.Load("circlerun-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, "text")

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	var files []string
	switch os.Args[1] {
	case "up":
		for _, m := range migrations {
			files = append(files, m.up)
		}
	case "down":
		for i := len(migrations) - 1; i >= 0; i-- {
			files = append(files, migrations[i].down)
		}
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	if err := apply(ctx, pool, files); err != nil {
		log.Fatal(err)
	}
	slog.Info("migrations applied", "direction", os.Args[1], "count", len(files))
}

func apply(ctx context.Context, pool *pgxpool.Pool, files []string) error {
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("exec %s: %w", f, err)
		}
		slog.Info("applied", "file", f)
	}
	return nil
}
