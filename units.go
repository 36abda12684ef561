package hiwonder

import "math"

// Angular spans used to map device units onto radians.
//
// Two spans are in circulation for the LX servo family: the legacy direct
// and board-adapter code paths map the 0-1000 unit range onto a full turn,
// while the joint-space interface uses the 240° mechanical travel printed in
// the LX-16A datasheet. The two disagree by a factor of 1.5, so a span
// chosen for the encode path must also be used on the decode path. Verify
// the mechanical travel of your servos before relying on absolute angles.
const (
	SpanFullTurn = 2 * math.Pi
	Span240Deg   = 4.18879 // 240° in radians
)

// Device unit range. 500 is the mechanical center (0 rad).
const (
	UnitsMin    = 0
	UnitsCenter = 500
	UnitsMax    = 1000
)

// Converter maps between radians and device units with a fixed affine map:
//
//	units = 500 + rad * 1000/span
//
// The zero value uses SpanFullTurn.
type Converter struct {
	// Span is the angular range in radians covered by the full 0-1000 unit
	// range. Zero means SpanFullTurn.
	Span float64
}

func (c Converter) span() float64 {
	if c.Span == 0 {
		return SpanFullTurn
	}
	return c.Span
}

// ToUnits converts radians to device units, clamped to [0, 1000].
// Out-of-range inputs are not an error; they saturate at the boundary.
func (c Converter) ToUnits(rad float64) int {
	units := int(math.Round(float64(UnitsCenter) + rad*float64(UnitsMax-UnitsMin)/c.span()))
	if units < UnitsMin {
		return UnitsMin
	}
	if units > UnitsMax {
		return UnitsMax
	}
	return units
}

// ToRadians converts device units to radians.
func (c Converter) ToRadians(units int) float64 {
	return float64(units-UnitsCenter) * c.span() / float64(UnitsMax-UnitsMin)
}
