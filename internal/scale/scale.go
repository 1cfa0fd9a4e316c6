// Package scale resolves a requested uniform scale factor against the
// printer's build envelope. It is purely dimensional: volume never enters
// the computation.
package scale

import (
	"fmt"
	"math"

	"backend/internal/geometry"
)

// Min is the smallest accepted linear scale factor (1%). Anything below
// is invalid input, not something to clamp.
const Min = 0.01

// InvalidScaleError reports a requested scale outside the accepted range.
type InvalidScaleError struct {
	Requested float64
}

func (e InvalidScaleError) Error() string {
	return fmt.Sprintf("scale %v is below the minimum of %v", e.Requested, Min)
}

// Max returns the largest uniform scale that keeps size inside envelope on
// every axis. A zero extent on an axis leaves that axis unconstrained; an
// empty bounding box therefore yields +Inf.
func Max(size, envelope geometry.Size) float64 {
	limit := math.Inf(1)
	for _, axis := range [3][2]float64{
		{size.X, envelope.X},
		{size.Y, envelope.Y},
		{size.Z, envelope.Z},
	} {
		if axis[0] > 0 {
			limit = math.Min(limit, axis[1]/axis[0])
		}
	}
	return limit
}

// Clamp caps the requested scale at max.
func Clamp(requested, max float64) float64 {
	return math.Min(requested, max)
}

// Resolve validates the requested scale and clamps it to what the envelope
// allows for the given bounding size.
func Resolve(requested float64, size, envelope geometry.Size) (float64, error) {
	if requested < Min {
		return 0, InvalidScaleError{Requested: requested}
	}
	return Clamp(requested, Max(size, envelope)), nil
}
