package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/circlerun/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	if deps.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{AllowOrigins: deps.AllowOrigins}))
	}

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware(nil))
	app.Use(AccessLogMiddleware())

	// 120 requests per minute per IP; a loop search costs up to five
	// provider calls, so generation has its own tighter bucket below.
	app.Use(limiter.New(limiter.Config{
		Max:          120,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")

	loops := v1.Group("/loops", limiter.New(limiter.Config{
		Max:          20,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return "loops:" + c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many loop generations, please slow down")
		},
	}))
	loops.Post("", GenerateLoopHandler(deps))
	loops.Get("/gpx", LoopGPXHandler(deps))

	v1.Get("/favorites", timeout.NewWithContext(ListFavoritesHandler(deps), requestTimeout))
	v1.Post("/favorites", timeout.NewWithContext(SaveFavoriteHandler(deps), requestTimeout))
	v1.Post("/favorites/import", timeout.NewWithContext(ImportFavoriteHandler(deps), requestTimeout))
	v1.Get("/favorites/:name", timeout.NewWithContext(GetFavoriteHandler(deps), requestTimeout))
	v1.Delete("/favorites/:name", timeout.NewWithContext(DeleteFavoriteHandler(deps), requestTimeout))
	v1.Post("/favorites/:name/runs", timeout.NewWithContext(RecordRunHandler(deps), requestTimeout))
	v1.Get("/favorites/:name/gpx", timeout.NewWithContext(FavoriteGPXHandler(deps), requestTimeout))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, deps.DocsPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
}
