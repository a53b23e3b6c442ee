package loop

import (
	"fmt"
	"math"

	"github.com/samirrijal/circlerun/internal/core/domain"
	"github.com/samirrijal/circlerun/internal/pkg/geospatial"
)

const (
	DefaultMaxSegmentMiles   = 1.0
	DefaultMinSegmentMeters  = 0.01 * domain.MetersPerMile
	DefaultToleranceFraction = 0.01
)

// Validator decides whether a provider route is usable. The zero value is not
// useful; start from DefaultValidator.
type Validator struct {
	// MaxSegmentMiles rejects any single segment longer than this.
	MaxSegmentMiles float64
	// MinSegmentMeters is the shortest segment that counts as an edge.
	MinSegmentMeters float64
	// ToleranceFraction bounds |actual-target| as a fraction of target.
	ToleranceFraction float64
}

func DefaultValidator() Validator {
	return Validator{
		MaxSegmentMiles:   DefaultMaxSegmentMiles,
		MinSegmentMeters:  DefaultMinSegmentMeters,
		ToleranceFraction: DefaultToleranceFraction,
	}
}

// Verdict keeps the structural and distance checks apart. A nil error means
// the check passed.
type Verdict struct {
	Structural    error
	Distance      error
	ComputedMiles float64
}

// Sound reports whether the route passed the structural checks.
func (v Verdict) Sound() bool { return v.Structural == nil }

// Accepted reports whether the route passed every check.
func (v Verdict) Accepted() bool { return v.Structural == nil && v.Distance == nil }

// Err returns the first failed check, or nil.
func (v Verdict) Err() error {
	if v.Structural != nil {
		return v.Structural
	}
	return v.Distance
}

// Accept is the boolean form of Validate.
func (v Validator) Accept(coords []domain.Coordinate, targetMiles float64) bool {
	return v.Validate(coords, targetMiles).Accepted()
}

// Validate checks coords against targetMiles. It never modifies coords.
func (v Validator) Validate(coords []domain.Coordinate, targetMiles float64) Verdict {
	verdict := Verdict{ComputedMiles: geospatial.TotalDistanceMiles(coords)}
	verdict.Structural = v.checkStructure(coords)

	gap := math.Abs(verdict.ComputedMiles - targetMiles)
	if limit := targetMiles * v.ToleranceFraction; gap > limit {
		verdict.Distance = fmt.Errorf("%w: distance %.3f mi is %.3f mi off target %.3f mi (limit %.3f)",
			domain.ErrValidation, verdict.ComputedMiles, gap, targetMiles, limit)
	}
	return verdict
}

func (v Validator) checkStructure(coords []domain.Coordinate) error {
	if len(coords) < 3 {
		return fmt.Errorf("%w: route has %d coordinates, need at least 3", domain.ErrValidation, len(coords))
	}

	maxMeters := v.MaxSegmentMiles * domain.MetersPerMile
	segs := make([]float64, len(coords)-1)
	for i := range segs {
		segs[i] = geospatial.DistanceMeters(coords[i], coords[i+1])
		if segs[i] > maxMeters {
			return fmt.Errorf("%w: segment %d is %.2f mi, limit %.2f mi",
				domain.ErrValidation, i, segs[i]/domain.MetersPerMile, v.MaxSegmentMiles)
		}
	}

	// Endpoints close the loop and own a single edge each.
	if segs[0] <= v.MinSegmentMeters {
		return fmt.Errorf("%w: first segment collapses (%.1f m)", domain.ErrValidation, segs[0])
	}
	if last := segs[len(segs)-1]; last <= v.MinSegmentMeters {
		return fmt.Errorf("%w: last segment collapses (%.1f m)", domain.ErrValidation, last)
	}

	for i := 1; i < len(coords)-1; i++ {
		if segs[i-1] <= v.MinSegmentMeters || segs[i] <= v.MinSegmentMeters {
			return fmt.Errorf("%w: point %d lacks two edges", domain.ErrValidation, i)
		}
		// An out-and-back spur returns to the previous point.
		if geospatial.DistanceMeters(coords[i-1], coords[i+1]) <= v.MinSegmentMeters {
			return fmt.Errorf("%w: point %d is a spur", domain.ErrValidation, i)
		}
	}
	return nil
}
