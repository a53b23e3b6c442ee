package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// --- Mock DirectionsProvider ---

type mockProvider struct {
	directionsFn func(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error)
	calls        int
}

func (m *mockProvider) Directions(ctx context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
	m.calls++
	if m.directionsFn != nil {
		return m.directionsFn(ctx, req)
	}
	return nil, nil
}

// ringRoute follows the requested waypoints, splitting every leg in ten.
func ringRoute(_ context.Context, req domain.DirectionsRequest) ([]domain.DirectionsRoute, error) {
	var coords []domain.Coordinate
	for i, wp := range req.Waypoints {
		if i == 0 {
			coords = append(coords, wp.Location)
			continue
		}
		prev := req.Waypoints[i-1].Location
		for s := 1; s <= 10; s++ {
			f := float64(s) / 10
			coords = append(coords, domain.Coordinate{
				Lat: prev.Lat + f*(wp.Location.Lat-prev.Lat),
				Lon: prev.Lon + f*(wp.Location.Lon-prev.Lon),
			})
		}
	}
	return []domain.DirectionsRoute{{Coordinates: coords}}, nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttl  map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{data: map[string][]byte{}, ttl: map[string]int{}}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttl[key] = ttlSeconds
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu          sync.Mutex
	generations []*domain.GenerationEvent
	favorites   []*domain.FavoritesEvent
	err         error
}

func (m *mockPublisher) PublishGeneration(ctx context.Context, e *domain.GenerationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generations = append(m.generations, e)
	return m.err
}

func (m *mockPublisher) PublishFavorites(ctx context.Context, e *domain.FavoritesEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.favorites = append(m.favorites, e)
	return m.err
}

// --- Mock FavoriteRepository ---

type mockFavoriteRepo struct {
	createFn    func(ctx context.Context, f *domain.FavoriteRoute) error
	getByNameFn func(ctx context.Context, name string) (*domain.FavoriteRoute, error)
	listFn      func(ctx context.Context, limit, offset int) ([]domain.FavoriteRoute, error)
	deleteFn    func(ctx context.Context, name string) error
	recordRunFn func(ctx context.Context, name string, runTime time.Duration) (*domain.FavoriteRoute, error)
}

func (m *mockFavoriteRepo) Create(ctx context.Context, f *domain.FavoriteRoute) error {
	if m.createFn != nil {
		return m.createFn(ctx, f)
	}
	return nil
}

func (m *mockFavoriteRepo) GetByName(ctx context.Context, name string) (*domain.FavoriteRoute, error) {
	if m.getByNameFn != nil {
		return m.getByNameFn(ctx, name)
	}
	return nil, domain.ErrFavoriteNotFound
}

func (m *mockFavoriteRepo) List(ctx context.Context, limit, offset int) ([]domain.FavoriteRoute, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockFavoriteRepo) DeleteByName(ctx context.Context, name string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, name)
	}
	return nil
}

func (m *mockFavoriteRepo) RecordRun(ctx context.Context, name string, runTime time.Duration) (*domain.FavoriteRoute, error) {
	if m.recordRunFn != nil {
		return m.recordRunFn(ctx, name, runTime)
	}
	return nil, nil
}
