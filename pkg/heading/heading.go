package heading

import (
	"math"

	"github.com/quartercastle/vector"
	"golang.org/x/exp/constraints"
)

const (
	// DefaultDeadzone is the stick displacement below which the stick counts as centred.
	DefaultDeadzone = 0.1

	// ForwardAdjust rotates joystick coordinates so that pushing the stick up (away from the
	// operator) gives heading 0, which is the toy's "forward".
	ForwardAdjust = -90.0
)

// Wrap360 converts an angle of any magnitude to the range [0, 360).
func Wrap360[T constraints.Float](d T) T {
	w := T(math.Mod(float64(d), 360))
	if w < 0 {
		w += 360
	}
	// -tiny + 360 rounds to 360 in floating point.
	if w >= 360 {
		w = 0
	}
	return w
}

// Strength returns the magnitude of the stick displacement, or 0 if it falls inside the deadzone.
func Strength(x, y, deadzone float64) float64 {
	s := vector.Vector{x, y}.Magnitude()
	if s < deadzone {
		return 0
	}
	return s
}

// FromStick converts a stick position (screen coordinates, y down) into a compass heading in
// degrees, range [0, 360), with the calibration offset applied.
func FromStick(x, y, offset float64) float64 {
	deg := math.Atan2(-y, x) * 180 / math.Pi
	return Wrap360(deg + ForwardAdjust + offset)
}

// Command holds the outcome of mapping one stick sample.
type Command struct {
	// Moving is false when the stick is in the deadzone; Heading is then meaningless.
	Moving  bool
	Heading float64
}

// Map applies the deadzone and, if the stick is displaced, computes the heading.
func Map(x, y, offset, deadzone float64) Command {
	if Strength(x, y, deadzone) == 0 {
		return Command{}
	}
	return Command{Moving: true, Heading: FromStick(x, y, offset)}
}
