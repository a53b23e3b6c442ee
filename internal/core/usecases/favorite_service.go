package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/ports"
	"github.com/samirrijal/circlerun/internal/pkg/geospatial"
)

const (
	FavoriteActionSaved       = "saved"
	FavoriteActionRemoved     = "removed"
	FavoriteActionRunRecorded = "run_recorded"

	maxFavoriteName = 120
)

// FavoriteService manages saved loops.
type FavoriteService struct {
	repo      ports.FavoriteRepository
	publisher ports.EventPublisher
	logger    *slog.Logger
}

// NewFavoriteService creates a new FavoriteService. publisher may be nil.
func NewFavoriteService(repo ports.FavoriteRepository, publisher ports.EventPublisher, logger *slog.Logger) *FavoriteService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FavoriteService{repo: repo, publisher: publisher, logger: logger}
}

// Save stores a new favourite. A zero distance is measured from the path.
func (s *FavoriteService) Save(ctx context.Context, name string, path []domain.Coordinate, distanceMiles float64) (*domain.FavoriteRoute, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: favorite name must not be empty", domain.ErrInvalidRequest)
	}
	if len(name) > maxFavoriteName {
		return nil, fmt.Errorf("%w: favorite name longer than %d characters", domain.ErrInvalidRequest, maxFavoriteName)
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("%w: favorite path needs at least 2 points, got %d", domain.ErrInvalidRequest, len(path))
	}
	for i, c := range path {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: path point %d (%s) out of range", domain.ErrInvalidRequest, i, c)
		}
	}
	if distanceMiles < 0 {
		return nil, fmt.Errorf("%w: distance must not be negative", domain.ErrInvalidRequest)
	}
	if distanceMiles == 0 {
		distanceMiles = geospatial.TotalDistanceMiles(path)
	}

	fav := &domain.FavoriteRoute{
		ID:            uuid.NewString(),
		Name:          name,
		Path:          path,
		DistanceMiles: distanceMiles,
	}
	if err := s.repo.Create(ctx, fav); err != nil {
		return nil, err
	}
	s.notify(ctx, FavoriteActionSaved, name)
	return fav, nil
}

// Remove deletes a favourite by name.
func (s *FavoriteService) Remove(ctx context.Context, name string) error {
	if err := s.repo.DeleteByName(ctx, name); err != nil {
		return err
	}
	s.notify(ctx, FavoriteActionRemoved, name)
	return nil
}

// Get returns one favourite by name.
func (s *FavoriteService) Get(ctx context.Context, name string) (*domain.FavoriteRoute, error) {
	return s.repo.GetByName(ctx, name)
}

// LoadAll lists favourites, oldest first.
func (s *FavoriteService) LoadAll(ctx context.Context, limit, offset int) ([]domain.FavoriteRoute, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	favs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	if favs == nil {
		favs = []domain.FavoriteRoute{}
	}
	return favs, nil
}

// RecordRun counts a completed run of name and keeps the best time.
func (s *FavoriteService) RecordRun(ctx context.Context, name string, runTime time.Duration) (*domain.FavoriteRoute, error) {
	if runTime <= 0 {
		return nil, fmt.Errorf("%w: run time must be positive", domain.ErrInvalidRequest)
	}
	fav, err := s.repo.RecordRun(ctx, name, runTime)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, FavoriteActionRunRecorded, name)
	return fav, nil
}

func (s *FavoriteService) notify(ctx context.Context, action, name string) {
	if s.publisher == nil {
		return
	}
	event := &domain.FavoritesEvent{Action: action, Name: name, Time: time.Now().UTC()}
	if err := s.publisher.PublishFavorites(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("publish favorites event", "action", action, "name", name, "error", err)
	}
}
