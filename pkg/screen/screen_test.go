package screen

import (
	"image"
	"image/color"
	"io"
	"testing"

	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/spherodrive/pkg/config"
	"github.com/tigerbot-team/spherodrive/pkg/heading"
	"github.com/tigerbot-team/spherodrive/pkg/speedtier"
)

func testRenderer(t *testing.T) *Renderer {
	cfg := config.Default().Display
	cfg.Width, cfg.Height = 400, 300
	r, err := NewRenderer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func isBackground(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	br, bg, bb, _ := background.RGBA()
	return r == br && g == bg && b == bb
}

func TestDrawSize(t *testing.T) {
	r := testRenderer(t)
	img := r.Draw(Status{Tier: speedtier.Default})
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("Frame is %v", b)
	}
}

func TestArrowFollowsHeading(t *testing.T) {
	r := testRenderer(t)
	cx, cy := r.arrowCentre()
	reach := r.arrowSize/2 - 20

	up := image.Pt(int(cx), int(cy-reach))
	left := image.Pt(int(cx-reach), int(cy))
	right := image.Pt(int(cx+reach), int(cy))

	img := r.Draw(Status{Heading: 0, Moving: true, Tier: speedtier.All[3]})
	if rr, _, _, _ := img.At(up.X, up.Y).RGBA(); rr>>8 < 200 {
		t.Errorf("Expected the tier colour above the centre at heading 0, got %v", img.At(up.X, up.Y))
	}
	if !isBackground(img.At(right.X, right.Y)) {
		t.Errorf("Expected background right of the centre at heading 0, got %v", img.At(right.X, right.Y))
	}

	// Heading 90 is the stick pushed left.
	img = r.Draw(Status{Heading: 90, Moving: true, Tier: speedtier.All[3]})
	if rr, _, _, _ := img.At(left.X, left.Y).RGBA(); rr>>8 < 200 {
		t.Errorf("Expected the tier colour left of the centre at heading 90, got %v", img.At(left.X, left.Y))
	}
	if !isBackground(img.At(up.X, up.Y)) {
		t.Errorf("Expected background above the centre at heading 90, got %v", img.At(up.X, up.Y))
	}
	if !isBackground(img.At(right.X, right.Y)) {
		t.Errorf("Expected background right of the centre at heading 90, got %v", img.At(right.X, right.Y))
	}
}

func TestArrowPointsWhereStickIsPushed(t *testing.T) {
	r := testRenderer(t)
	cx, cy := r.arrowCentre()
	reach := r.arrowSize/2 - 20
	left := image.Pt(int(cx-reach), int(cy))
	right := image.Pt(int(cx+reach), int(cy))

	img := r.Draw(Status{Heading: heading.FromStick(1, 0, 0), Moving: true, Tier: speedtier.All[3]})
	if isBackground(img.At(right.X, right.Y)) {
		t.Error("Stick pushed right should draw the arrow right of the centre")
	}
	if !isBackground(img.At(left.X, left.Y)) {
		t.Errorf("Stick pushed right drew at the left of the centre: %v", img.At(left.X, left.Y))
	}

	img = r.Draw(Status{Heading: heading.FromStick(-1, 0, 0), Moving: true, Tier: speedtier.All[3]})
	if isBackground(img.At(left.X, left.Y)) {
		t.Error("Stick pushed left should draw the arrow left of the centre")
	}
	if !isBackground(img.At(right.X, right.Y)) {
		t.Errorf("Stick pushed left drew at the right of the centre: %v", img.At(right.X, right.Y))
	}
}

func TestStatusLines(t *testing.T) {
	lines := statusLines(Status{X: 0.5, Y: -0.25, Heading: 270, Offset: 12.5, Speed: 160, Tier: speedtier.Default})
	expected := []string{
		"Joystick: (0.50, -0.25)",
		"Angle: 270.00",
		"Angle Offset: 12.50",
		"Speed: 160",
	}
	for i, e := range expected {
		if lines[i] != e {
			t.Errorf("Line %d is %q, expected %q", i, lines[i], e)
		}
	}
	if last := lines[len(lines)-1]; last != "No joystick connected" {
		t.Errorf("Expected the missing joystick warning last, got %q", last)
	}

	lines = statusLines(Status{JoystickConnected: true, ToyName: "SB-1234", Tier: speedtier.Default})
	if last := lines[len(lines)-1]; last != "Toy: SB-1234" {
		t.Errorf("Expected the toy name last, got %q", last)
	}
}

func TestChargeFraction(t *testing.T) {
	for _, c := range []struct {
		v        physic.ElectricPotential
		expected float64
	}{
		{2 * physic.Volt, 0},
		{3 * physic.Volt, 0},
		{3600 * physic.MilliVolt, 0.5},
		{4200 * physic.MilliVolt, 1},
		{5 * physic.Volt, 1},
	} {
		if got := chargeFraction(c.v); got < c.expected-1e-9 || got > c.expected+1e-9 {
			t.Errorf("chargeFraction(%v) = %v, expected %v", c.v, got, c.expected)
		}
	}
}

func TestEncodeRGB565(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{G: 255, B: 255, A: 255})
	buf := make([]byte, 4)
	encodeRGB565(img, buf)
	// Red is 0xf800, cyan is 0x07ff, both little-endian.
	expected := []byte{0x00, 0xf8, 0xff, 0x07}
	if string(buf) != string(expected) {
		t.Fatalf("Got % x, expected % x", buf, expected)
	}
}

// memFile is an in-memory framebuffer device.
type memFile struct {
	data   []byte
	pos    int64
	writes int
}

func (m *memFile) Write(p []byte) (int, error) {
	m.writes++
	end := int(m.pos) + len(p)
	if end > len(m.data) {
		m.data = append(m.data, make([]byte, end-len(m.data))...)
	}
	copy(m.data[m.pos:], p)
	m.pos = int64(end)
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart {
		m.pos = offset
	}
	return m.pos, nil
}

func TestFramebuffer(t *testing.T) {
	r := testRenderer(t)
	mem := &memFile{}
	fb := newFramebuffer(mem, r)
	if err := fb.Show(Status{Tier: speedtier.Default, HaveBattery: true, Battery: 3950 * physic.MilliVolt}); err != nil {
		t.Fatal(err)
	}
	if err := fb.Show(Status{Tier: speedtier.Default}); err != nil {
		t.Fatal(err)
	}
	if len(mem.data) != 400*300*2 {
		t.Fatalf("Frames should overwrite each other, device holds %d bytes", len(mem.data))
	}
	if fb.QuitRequested() {
		t.Fatal("Framebuffer never requests quit")
	}
	if err := fb.Close(); err != nil {
		t.Fatal(err)
	}
	for i, b := range mem.data {
		if b != 0 {
			t.Fatalf("Byte %d not blanked on close", i)
		}
	}
}

func TestOpenNone(t *testing.T) {
	cfg := config.Default().Display
	cfg.Driver = "none"
	d, err := Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Show(Status{}); err != nil || d.QuitRequested() {
		t.Fatal("No display should accept frames silently")
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}
}
