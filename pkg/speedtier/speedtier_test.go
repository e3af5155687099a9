package speedtier

import (
	"image/color"
	"testing"
)

func TestTable(t *testing.T) {
	expectTier(t, 0, 50, color.RGBA{255, 200, 0, 255}, '1')
	expectTier(t, 1, 70, color.RGBA{255, 100, 0, 255}, '2')
	expectTier(t, 2, 100, color.RGBA{255, 50, 0, 255}, '3')
	expectTier(t, 3, 200, color.RGBA{255, 0, 0, 255}, '4')

	if Default.Speed != 50 {
		t.Fatalf("Default tier should be 50, got %v", Default.Speed)
	}
}

func expectTier(t *testing.T, i, speed int, c color.RGBA, glyph rune) {
	t.Helper()
	tier := All[i]
	if tier.Speed != speed || tier.Colour != c || tier.Glyph != glyph {
		t.Errorf("Tier %d = %+v, expected speed %d colour %v glyph %c", i, tier, speed, c, glyph)
	}
	found, ok := ForSpeed(speed)
	if !ok || found != tier {
		t.Errorf("ForSpeed(%d) = %+v, %v", speed, found, ok)
	}
}

func TestValid(t *testing.T) {
	for _, s := range []int{0, 50, 70, 100, 200} {
		if !Valid(s) {
			t.Errorf("%d should be valid", s)
		}
	}
	for _, s := range []int{-1, 1, 49, 60, 150, 255} {
		if Valid(s) {
			t.Errorf("%d should not be valid", s)
		}
	}
}
