package ports

import (
	"context"
	"time"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// FavoriteRepository persists saved loops.
type FavoriteRepository interface {
	// Create stores a new favourite. It returns domain.ErrFavoriteExists when
	// the name is taken.
	Create(ctx context.Context, fav *domain.FavoriteRoute) error
	GetByName(ctx context.Context, name string) (*domain.FavoriteRoute, error)
	// List returns favourites oldest first.
	List(ctx context.Context, limit, offset int) ([]domain.FavoriteRoute, error)
	// DeleteByName returns domain.ErrFavoriteNotFound when nothing matched.
	DeleteByName(ctx context.Context, name string) error
	// RecordRun increments the run count and keeps the shorter of the stored
	// best time and runTime.
	RecordRun(ctx context.Context, name string, runTime time.Duration) (*domain.FavoriteRoute, error)
}
