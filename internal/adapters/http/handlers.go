package http

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/usecases"
	"github.com/samirrijal/circlerun/internal/gpx"
)

// generateLoopRequest is the body of POST /v1/loops.
type generateLoopRequest struct {
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	TargetMiles float64  `json:"target_miles"`
	Smooth      bool     `json:"smooth"`
	Fresh       bool     `json:"fresh"`
}

func (r generateLoopRequest) toRequest() (usecases.GenerateRequest, error) {
	if r.Lat == nil || r.Lon == nil {
		return usecases.GenerateRequest{}, errors.New("lat and lon are required")
	}
	if r.TargetMiles <= 0 {
		return usecases.GenerateRequest{}, errors.New("target_miles must be positive")
	}
	return usecases.GenerateRequest{
		Start:       domain.Coordinate{Lat: *r.Lat, Lon: *r.Lon},
		TargetMiles: r.TargetMiles,
		Smooth:      r.Smooth,
		Fresh:       r.Fresh,
	}, nil
}

// GenerateLoopHandler runs a loop search and returns the result.
// POST /v1/loops {"lat":43.263,"lon":-2.935,"target_miles":3,"smooth":true}
func GenerateLoopHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body generateLoopRequest
		if err := c.BodyParser(&body); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		req, err := body.toRequest()
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		res, err := generate(c, deps, req)
		if err != nil {
			return errServiceFailure(c, err)
		}
		return c.JSON(res)
	}
}

// LoopGPXHandler generates a loop and returns it as a GPX download.
// GET /v1/loops/gpx?lat=43.263&lon=-2.935&miles=3&name=morning
func LoopGPXHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Query("lat") == "" || c.Query("lon") == "" {
			return errBadRequest(c, "lat and lon are required")
		}
		lat, err := queryFloat(c, "lat")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		lon, err := queryFloat(c, "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		miles, err := queryFloat(c, "miles")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if miles <= 0 {
			return errBadRequest(c, "miles must be positive")
		}
		req := usecases.GenerateRequest{
			Start:       domain.Coordinate{Lat: lat, Lon: lon},
			TargetMiles: miles,
			Smooth:      c.QueryBool("smooth", false),
		}

		res, err := generate(c, deps, req)
		if err != nil {
			return errServiceFailure(c, err)
		}

		path := res.Route.Coordinates
		if res.SmoothedPath != nil {
			path = res.SmoothedPath
		}
		return sendGPX(c, c.Query("name"), path, res.ActualMiles())
	}
}

// queryFloat parses a required float query parameter.
func queryFloat(c *fiber.Ctx, key string) (float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}

// generate runs one bounded search. A result without a route is an error;
// a canceled search that already holds a candidate is returned as is.
func generate(c *fiber.Ctx, deps *Dependencies, req usecases.GenerateRequest) (*domain.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(c.UserContext(), deps.generateTimeout())
	defer cancel()

	res, err := deps.Generation.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.Route == nil {
		if res.Outcome == domain.OutcomeCanceled {
			return nil, errors.Join(ctx.Err(), domain.ErrNoCandidate)
		}
		return nil, fmt.Errorf("%w after %d attempts", domain.ErrNoCandidate, len(res.Attempts))
	}
	return res, nil
}

func sendGPX(c *fiber.Ctx, name string, path []domain.Coordinate, miles float64) error {
	if name == "" {
		name = gpx.TrackName(miles)
	}
	now := time.Now().UTC()
	data, err := gpx.Export(name, path, miles, now)
	if err != nil {
		return errServiceFailure(c, err)
	}
	c.Attachment(gpx.FileName(name, now))
	c.Set(fiber.HeaderContentType, "application/gpx+xml")
	return c.Send(data)
}
