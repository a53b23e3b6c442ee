package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/ports"
	"github.com/samirrijal/circlerun/internal/core/usecases"
)

// LoopActivities holds the activity implementations for SavedLoopWorkflow.
// The services should be built without a publisher; PublishSaved announces.
type LoopActivities struct {
	Generation *usecases.GenerationService
	Favorites  *usecases.FavoriteService
	Publisher  ports.EventPublisher
	Logger     *slog.Logger
}

func (a *LoopActivities) logger() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}

// GenerateLoop runs one search. A search without a route fails without retry.
func (a *LoopActivities) GenerateLoop(ctx context.Context, input SavedLoopInput) (*domain.GenerationResult, error) {
	res, err := a.Generation.Generate(ctx, usecases.GenerateRequest{
		Start:       input.Start,
		TargetMiles: input.TargetMiles,
		Smooth:      input.Smooth,
		Fresh:       true,
	})
	if err != nil {
		return nil, classify(err)
	}
	if res.Route == nil {
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("no route after %d attempts", len(res.Attempts)), ErrTypeNoCandidate, domain.ErrNoCandidate)
	}
	return res, nil
}

// SaveFavorite stores the route of res under name and returns the favourite ID.
func (a *LoopActivities) SaveFavorite(ctx context.Context, name string, res *domain.GenerationResult) (string, error) {
	if res == nil || res.Route == nil {
		return "", temporal.NewNonRetryableApplicationError("nothing to save", ErrTypeNoCandidate, domain.ErrNoCandidate)
	}
	path := res.Route.Coordinates
	if res.SmoothedPath != nil {
		path = res.SmoothedPath
	}
	fav, err := a.Favorites.Save(ctx, name, path, res.ActualMiles())
	if err != nil {
		return "", classify(err)
	}
	return fav.ID, nil
}

// PublishSaved announces the generation and the new favourite.
func (a *LoopActivities) PublishSaved(ctx context.Context, name string, res *domain.GenerationResult) error {
	if a.Publisher == nil {
		a.logger().Info("publish skipped, no publisher", "name", name)
		return nil
	}
	now := time.Now().UTC()
	if err := a.Publisher.PublishGeneration(ctx, usecases.GenerationEventFrom(res, now)); err != nil {
		return fmt.Errorf("publish generation %s: %w", res.ID, err)
	}
	event := &domain.FavoritesEvent{Action: usecases.FavoriteActionSaved, Name: name, Time: now}
	if err := a.Publisher.PublishFavorites(ctx, event); err != nil {
		return fmt.Errorf("publish favorite %s: %w", name, err)
	}
	return nil
}

// DeleteFavorite removes a favourite (saga compensation). A favourite that is
// already gone counts as removed.
func (a *LoopActivities) DeleteFavorite(ctx context.Context, name string) error {
	err := a.Favorites.Remove(ctx, name)
	if err != nil && !errors.Is(err, domain.ErrFavoriteNotFound) {
		return fmt.Errorf("delete favorite %s: %w", name, err)
	}
	a.logger().Info("favorite deleted (saga compensation)", "name", name)
	return nil
}

// classify marks caller errors as non-retryable.
func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRequest, err)
	case errors.Is(err, domain.ErrFavoriteExists):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeFavoriteExists, err)
	}
	return err
}
