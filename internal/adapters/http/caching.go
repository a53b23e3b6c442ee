package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets a default Cache-Control on GET responses that did
// not set one themselves.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if c.Method() != fiber.MethodGet || c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return err
		}

		path := c.Path()
		var policy string
		switch {
		case path == "/v1/health" || path == "/v1/ready" || path == "/metrics":
			policy = "no-cache"
		case strings.HasPrefix(path, "/v1/loops"):
			// Every generation is a new search.
			policy = "no-store"
		case strings.HasSuffix(path, "/gpx"):
			policy = "private, max-age=60"
		case strings.HasPrefix(path, "/v1/favorites"):
			// Favourites change on save and run; revalidate through the ETag.
			policy = "private, no-cache"
		case path == "/docs" || strings.HasPrefix(path, "/docs/"):
			policy = "public, max-age=3600"
		case strings.HasPrefix(path, "/v1/"):
			policy = "private, max-age=30"
		}

		if policy != "" {
			c.Set(fiber.HeaderCacheControl, policy)
		}
		return err
	}
}
