package ports

import (
	"context"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// DirectionsProvider computes walking routes through ordered waypoints.
// Implementations return domain.ErrProvider for transport or service failures
// and domain.ErrNoRoutes when the service answered without a route.
type DirectionsProvider interface {
	Directions(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishGeneration(ctx context.Context, event *domain.GenerationEvent) error
	PublishFavorites(ctx context.Context, event *domain.FavoritesEvent) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeGenerations(ctx context.Context, handler func(ctx context.Context, event *domain.GenerationEvent) error) error
	SubscribeFavorites(ctx context.Context, handler func(ctx context.Context, event *domain.FavoritesEvent) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
