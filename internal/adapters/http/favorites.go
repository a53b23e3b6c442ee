package http

import (
	"bytes"
	"io"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/gpx"
	"github.com/samirrijal/circlerun/internal/pkg/geospatial"
)

// FavoriteView is the wire form of a saved loop.
type FavoriteView struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Path            []domain.Coordinate `json:"path"`
	RunCount        int                 `json:"run_count"`
	BestTimeSeconds float64             `json:"best_time_seconds"`
	DistanceMiles   float64             `json:"distance_miles"`
	CreatedAt       time.Time           `json:"created_at"`
}

func toFavoriteView(f *domain.FavoriteRoute) FavoriteView {
	return FavoriteView{
		ID:              f.ID,
		Name:            f.Name,
		Path:            f.Path,
		RunCount:        f.RunCount,
		BestTimeSeconds: f.BestTime.Seconds(),
		DistanceMiles:   f.DistanceMiles,
		CreatedAt:       f.CreatedAt,
	}
}

type saveFavoriteRequest struct {
	Name          string              `json:"name"`
	Path          []domain.Coordinate `json:"path"`
	DistanceMiles float64             `json:"distance_miles"`
}

type recordRunRequest struct {
	DurationSeconds float64 `json:"duration_seconds"`
}

// nameParam returns the unescaped :name path parameter.
func nameParam(c *fiber.Ctx) (string, error) {
	return url.PathUnescape(c.Params("name"))
}

// ListFavoritesHandler returns saved loops, oldest first.
func ListFavoritesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		favs, err := deps.Favorites.LoadAll(c.UserContext(), limit, offset)
		if err != nil {
			return errServiceFailure(c, err)
		}
		views := make([]FavoriteView, len(favs))
		for i := range favs {
			views[i] = toFavoriteView(&favs[i])
		}

		pg := Pagination{Offset: offset, Limit: limit, Count: len(views)}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: views, Pagination: pg})
	}
}

// SaveFavoriteHandler stores a loop under a unique name.
func SaveFavoriteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body saveFavoriteRequest
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		fav, err := deps.Favorites.Save(c.UserContext(), body.Name, body.Path, body.DistanceMiles)
		if err != nil {
			return errServiceFailure(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(toFavoriteView(fav))
	}
}

// GetFavoriteHandler returns one saved loop.
func GetFavoriteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := nameParam(c)
		if err != nil || name == "" {
			return errBadRequest(c, "favorite name is required")
		}
		fav, err := deps.Favorites.Get(c.UserContext(), name)
		if err != nil {
			return errServiceFailure(c, err)
		}
		return c.JSON(toFavoriteView(fav))
	}
}

// DeleteFavoriteHandler removes a saved loop.
func DeleteFavoriteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := nameParam(c)
		if err != nil || name == "" {
			return errBadRequest(c, "favorite name is required")
		}
		if err := deps.Favorites.Remove(c.UserContext(), name); err != nil {
			return errServiceFailure(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RecordRunHandler counts a completed run and keeps the best time.
// POST /v1/favorites/:name/runs {"duration_seconds":1520}
func RecordRunHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := nameParam(c)
		if err != nil || name == "" {
			return errBadRequest(c, "favorite name is required")
		}
		var body recordRunRequest
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		runTime := time.Duration(body.DurationSeconds * float64(time.Second))
		fav, err := deps.Favorites.RecordRun(c.UserContext(), name, runTime)
		if err != nil {
			return errServiceFailure(c, err)
		}
		return c.JSON(toFavoriteView(fav))
	}
}

// FavoriteGPXHandler downloads a saved loop as GPX.
func FavoriteGPXHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name, err := nameParam(c)
		if err != nil || name == "" {
			return errBadRequest(c, "favorite name is required")
		}
		fav, err := deps.Favorites.Get(c.UserContext(), name)
		if err != nil {
			return errServiceFailure(c, err)
		}
		return sendGPX(c, fav.Name, fav.Path, fav.DistanceMiles)
	}
}

// ImportFavoriteHandler saves the first track of an uploaded GPX file.
// The file is taken from the multipart field "file" or, failing that, the raw
// body. ?name= overrides the track name.
func ImportFavoriteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var r io.Reader = bytes.NewReader(c.Body())
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return errBadRequest(c, "cannot read uploaded file")
			}
			defer f.Close()
			r = f
		}

		imp, err := gpx.Import(r)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		name := c.Query("name", imp.Name)
		if name == "" {
			name = gpx.TrackName(geospatial.TotalDistanceMiles(imp.Coordinates))
		}
		fav, err := deps.Favorites.Save(c.UserContext(), name, imp.Coordinates, 0)
		if err != nil {
			return errServiceFailure(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(toFavoriteView(fav))
	}
}
