// Package speedtier holds the four preset drive speeds and the colour and glyph that the toy
// shows while each one is selected.
package speedtier

import (
	"fmt"
	"image/color"
)

type Tier struct {
	// Speed in raw toy units (0-255).
	Speed  int
	Colour color.RGBA
	Glyph  rune
}

func (t Tier) String() string {
	return fmt.Sprintf("tier %c (speed %d)", t.Glyph, t.Speed)
}

// Idle is the speed sent whenever the toy should not be moving.
const Idle = 0

var All = [4]Tier{
	{Speed: 50, Colour: color.RGBA{R: 255, G: 200, B: 0, A: 255}, Glyph: '1'},
	{Speed: 70, Colour: color.RGBA{R: 255, G: 100, B: 0, A: 255}, Glyph: '2'},
	{Speed: 100, Colour: color.RGBA{R: 255, G: 50, B: 0, A: 255}, Glyph: '3'},
	{Speed: 200, Colour: color.RGBA{R: 255, G: 0, B: 0, A: 255}, Glyph: '4'},
}

// Default is the tier selected at start up.
var Default = All[0]

// ForSpeed looks up the tier with the given speed.
func ForSpeed(speed int) (Tier, bool) {
	for _, t := range All {
		if t.Speed == speed {
			return t, true
		}
	}
	return Tier{}, false
}

// Valid reports whether speed may be sent to the toy.
func Valid(speed int) bool {
	if speed == Idle {
		return true
	}
	_, ok := ForSpeed(speed)
	return ok
}
