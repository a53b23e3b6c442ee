package loop_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/core/loop"
	"github.com/samirrijal/circlerun/internal/pkg/geospatial"
)

// squareLoop returns a closed square with sides of side metres, densified.
func squareLoop(side float64, steps int) []domain.Coordinate {
	o := sanFrancisco
	corners := []domain.Coordinate{
		o,
		geospatial.Offset(o, side, 0),
		geospatial.Offset(o, side, side),
		geospatial.Offset(o, 0, side),
		o,
	}
	return densify(corners, steps)
}

func TestValidator_AcceptsCleanLoop(t *testing.T) {
	coords := squareLoop(400, 8)
	target := geospatial.TotalDistanceMiles(coords)

	v := loop.DefaultValidator()
	verdict := v.Validate(coords, target)
	if !verdict.Accepted() {
		t.Fatalf("expected clean loop accepted, got %v", verdict.Err())
	}
	if !v.Accept(coords, target) {
		t.Error("expected Accept to agree with Validate")
	}
}

func TestValidator_Rejections(t *testing.T) {
	v := loop.DefaultValidator()
	clean := squareLoop(400, 8)
	target := geospatial.TotalDistanceMiles(clean)

	duplicate := append([]domain.Coordinate{}, clean[:5]...)
	duplicate = append(duplicate, clean[4])
	duplicate = append(duplicate, clean[5:]...)

	spur := append([]domain.Coordinate{}, clean[:5]...)
	spur = append(spur, geospatial.Offset(clean[4], 0, -100), clean[4])
	spur = append(spur, clean[5:]...)

	teleport := squareLoop(2000, 1) // 2 km sides, one segment each

	cases := []struct {
		name       string
		coords     []domain.Coordinate
		target     float64
		structural bool
	}{
		{"too few coordinates", clean[:2], target, true},
		{"collapsed duplicate point", duplicate, geospatial.TotalDistanceMiles(duplicate), true},
		{"out-and-back spur", spur, geospatial.TotalDistanceMiles(spur), true},
		{"segment longer than a mile", teleport, geospatial.TotalDistanceMiles(teleport), true},
		{"distance off target", clean, target * 1.5, false},
	}

	for _, tc := range cases {
		verdict := v.Validate(tc.coords, tc.target)
		if verdict.Accepted() {
			t.Errorf("%s: expected rejection", tc.name)
			continue
		}
		if verdict.Sound() == tc.structural {
			t.Errorf("%s: expected structural=%v, got verdict %+v", tc.name, tc.structural, verdict)
		}
		if !errors.Is(verdict.Err(), domain.ErrValidation) {
			t.Errorf("%s: expected ErrValidation, got %v", tc.name, verdict.Err())
		}
	}
}

// Street geometry from a provider is often sampled every 10 m or so. Points
// closer than the minimum edge length fail the two-edge rule even when the
// loop has the right length.
func TestValidator_DenseShapeFailsTwoEdgeRule(t *testing.T) {
	v := loop.DefaultValidator()
	o := sanFrancisco
	a := geospatial.Offset(o, 400, 0)
	b := geospatial.Offset(o, 400, 400)
	c := geospatial.Offset(o, 0, 400)

	// 50 m spacing except along a to b, which is sampled every 10 m.
	mixed := densify([]domain.Coordinate{o, a}, 8)
	mixed = append(mixed, densify([]domain.Coordinate{a, b}, 40)[1:]...)
	mixed = append(mixed, densify([]domain.Coordinate{b, c, o}, 8)[1:]...)

	cases := []struct {
		name   string
		coords []domain.Coordinate
		reason string
	}{
		{"uniform 10 m spacing", squareLoop(400, 40), "first segment collapses"},
		{"one dense leg", mixed, "point 8 lacks two edges"},
	}
	for _, tc := range cases {
		verdict := v.Validate(tc.coords, geospatial.TotalDistanceMiles(tc.coords))
		if verdict.Sound() {
			t.Errorf("%s: expected structural rejection", tc.name)
			continue
		}
		if verdict.Distance != nil {
			t.Errorf("%s: distance should match, got %v", tc.name, verdict.Distance)
		}
		if !errors.Is(verdict.Structural, domain.ErrValidation) || !strings.Contains(verdict.Structural.Error(), tc.reason) {
			t.Errorf("%s: expected %q, got %v", tc.name, tc.reason, verdict.Structural)
		}
	}

	// The same square sampled every 20 m clears the 16 m minimum.
	if coarse := squareLoop(400, 20); !v.Accept(coarse, geospatial.TotalDistanceMiles(coarse)) {
		t.Errorf("20 m spacing should pass: %v", v.Validate(coarse, geospatial.TotalDistanceMiles(coarse)).Err())
	}
}

func TestValidator_ToleranceBoundary(t *testing.T) {
	coords := squareLoop(400, 8)
	d := geospatial.TotalDistanceMiles(coords)
	v := loop.DefaultValidator()

	if !v.Accept(coords, d*1.009) {
		t.Error("expected 0.9% gap accepted")
	}
	if v.Accept(coords, d*1.02) {
		t.Error("expected 2% gap rejected")
	}
}

func TestValidator_Idempotent(t *testing.T) {
	v := loop.DefaultValidator()
	inputs := [][]domain.Coordinate{squareLoop(400, 8), squareLoop(2000, 1), squareLoop(400, 8)[:2]}
	for i, coords := range inputs {
		before := append([]domain.Coordinate{}, coords...)
		target := geospatial.TotalDistanceMiles(coords)

		first := v.Validate(coords, target)
		second := v.Validate(coords, target)
		if first.Accepted() != second.Accepted() || first.Sound() != second.Sound() || first.ComputedMiles != second.ComputedMiles {
			t.Errorf("input %d: verdicts differ: %+v vs %+v", i, first, second)
		}
		for j := range before {
			if before[j] != coords[j] {
				t.Fatalf("input %d: validator modified coordinate %d", i, j)
			}
		}
	}
}

func TestSmooth(t *testing.T) {
	coords := []domain.Coordinate{{Lat: 0, Lon: 0}, {Lat: 1, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 0, Lon: 0}}
	out := loop.Smooth(coords, loop.DefaultSmoothingFactor)

	if out[0] != coords[0] || out[3] != coords[3] {
		t.Errorf("expected endpoints preserved, got %v", out)
	}
	// (1-0.3)*1 + 0.15*(0+0)
	if got := out[1].Lat; got < 0.6999 || got > 0.7001 {
		t.Errorf("expected smoothed lat 0.7, got %f", got)
	}
	if coords[1].Lat != 1 {
		t.Error("expected input untouched")
	}
	if short := loop.Smooth(coords[:2], 0.3); len(short) != 2 || short[1] != coords[1] {
		t.Errorf("expected short input copied unchanged, got %v", short)
	}
}
