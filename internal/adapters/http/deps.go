package http

import (
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/circlerun/internal/adapters/postgres"
	"github.com/samirrijal/circlerun/internal/adapters/valkey"
	"github.com/samirrijal/circlerun/internal/core/usecases"
)

// DefaultGenerateTimeout bounds a blocking loop generation when the
// configuration leaves it unset.
const DefaultGenerateTimeout = 60 * time.Second

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Generation *usecases.GenerationService
	Favorites  *usecases.FavoriteService
	// GenerateTimeout bounds POST /v1/loops and GET /v1/loops/gpx.
	GenerateTimeout time.Duration
	// DocsPath is the OpenAPI document served at /docs/openapi.yaml.
	DocsPath string
	// AllowOrigins is the CORS origin list; empty disables CORS.
	AllowOrigins string

	NATS  *nats.Conn
	DB    *postgres.DB
	Cache *valkey.Cache
}

func (d *Dependencies) generateTimeout() time.Duration {
	if d.GenerateTimeout <= 0 {
		return DefaultGenerateTimeout
	}
	return d.GenerateTimeout
}
