package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/circlerun/internal/core/domain"
)

// FavoriteRepo implements ports.FavoriteRepository.
type FavoriteRepo struct {
	db *DB
}

func NewFavoriteRepo(db *DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

const favoriteColumns = `id::text, name, path, run_count, best_time_ms, distance_miles, created_at`

func scanFavorite(row pgx.Row) (*domain.FavoriteRoute, error) {
	var (
		f      domain.FavoriteRoute
		path   []byte
		bestMs int64
	)
	if err := row.Scan(&f.ID, &f.Name, &path, &f.RunCount, &bestMs, &f.DistanceMiles, &f.CreatedAt); err != nil {
		return nil, err
	}
	coords, err := decodePath(path)
	if err != nil {
		return nil, err
	}
	f.Path = coords
	f.BestTime = time.Duration(bestMs) * time.Millisecond
	return &f, nil
}

func (r *FavoriteRepo) Create(ctx context.Context, f *domain.FavoriteRoute) error {
	path, err := encodePath(f.Path)
	if err != nil {
		return err
	}
	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO favorites (id, name, path, run_count, best_time_ms, distance_miles)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO NOTHING
		RETURNING created_at
	`, f.ID, f.Name, path, f.RunCount, f.BestTime.Milliseconds(), f.DistanceMiles).Scan(&f.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrFavoriteExists, f.Name)
	}
	return err
}

func (r *FavoriteRepo) GetByName(ctx context.Context, name string) (*domain.FavoriteRoute, error) {
	f, err := scanFavorite(r.db.Pool.QueryRow(ctx, `
		SELECT `+favoriteColumns+` FROM favorites WHERE name = $1
	`, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFavoriteNotFound, name)
	}
	return f, err
}

func (r *FavoriteRepo) List(ctx context.Context, limit, offset int) ([]domain.FavoriteRoute, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT `+favoriteColumns+` FROM favorites
		ORDER BY created_at, name
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FavoriteRoute
	for rows.Next() {
		f, err := scanFavorite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *FavoriteRepo) DeleteByName(ctx context.Context, name string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM favorites WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrFavoriteNotFound, name)
	}
	return nil
}

// RecordRun bumps the run count and keeps the fastest time.
func (r *FavoriteRepo) RecordRun(ctx context.Context, name string, runTime time.Duration) (*domain.FavoriteRoute, error) {
	f, err := scanFavorite(r.db.Pool.QueryRow(ctx, `
		UPDATE favorites
		SET run_count = run_count + 1,
		    best_time_ms = CASE
		        WHEN best_time_ms = 0 OR $2 < best_time_ms THEN $2
		        ELSE best_time_ms
		    END
		WHERE name = $1
		RETURNING `+favoriteColumns+`
	`, name, runTime.Milliseconds()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrFavoriteNotFound, name)
	}
	return f, err
}
