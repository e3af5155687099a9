package screen

import (
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/spherodrive/pkg/config"
	"github.com/tigerbot-team/spherodrive/pkg/speedtier"
)

// Status is one frame's worth of drive state.
type Status struct {
	X, Y    float64
	Heading float64
	Moving  bool
	Offset  float64
	Speed   int
	Tier    speedtier.Tier

	// Battery is only meaningful once HaveBattery is set.
	Battery     physic.ElectricPotential
	HaveBattery bool

	JoystickConnected bool
	ToyName           string
}

var (
	background = color.RGBA{R: 20, G: 20, B: 25, A: 255}
	textColour = color.RGBA{R: 255, G: 230, B: 0, A: 255}
	idleArrow  = color.RGBA{R: 110, G: 110, B: 110, A: 255}
)

// Renderer draws Status frames at a fixed size.
type Renderer struct {
	width, height int
	arrowSize     float64
	arrow         image.Image
	face          font.Face
}

func NewRenderer(cfg config.DisplayConfig) (*Renderer, error) {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse font")
	}
	fontSize := float64(cfg.Height) / 30
	if fontSize < 8 {
		fontSize = 8
	}
	r := &Renderer{
		width:     cfg.Width,
		height:    cfg.Height,
		arrowSize: float64(cfg.ArrowSize),
		face:      truetype.NewFace(f, &truetype.Options{Size: fontSize}),
	}
	if cfg.ArrowImage != "" {
		r.arrow, err = gg.LoadPNG(cfg.ArrowImage)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load arrow image %s", cfg.ArrowImage)
		}
	}
	return r, nil
}

// arrowCentre is where the direction arrow pivots.
func (r *Renderer) arrowCentre() (float64, float64) {
	return float64(r.width) * 3 / 4, float64(r.height) / 2
}

func (r *Renderer) Draw(s Status) image.Image {
	dc := gg.NewContext(r.width, r.height)
	dc.SetColor(background)
	dc.Clear()

	dc.SetFontFace(r.face)
	dc.SetColor(textColour)
	lineHeight := dc.FontHeight() * 1.5
	y := lineHeight
	for _, l := range statusLines(s) {
		dc.DrawString(l, 10, y)
		y += lineHeight
	}

	dc.Push()
	dc.Translate(10, y)
	dc.SetColor(textColour)
	drawPowerBar(dc, s.Battery, s.HaveBattery, lineHeight)
	dc.Pop()

	r.drawArrow(dc, s)
	return dc.Image()
}

// statusLines is the text column, top to bottom.
func statusLines(s Status) []string {
	lines := []string{
		fmt.Sprintf("Joystick: (%.2f, %.2f)", s.X, s.Y),
		fmt.Sprintf("Angle: %.2f", s.Heading),
		fmt.Sprintf("Angle Offset: %.2f", s.Offset),
		fmt.Sprintf("Speed: %d", s.Speed),
		fmt.Sprintf("Tier: %s", s.Tier),
	}
	if s.ToyName != "" {
		lines = append(lines, "Toy: "+s.ToyName)
	}
	if !s.JoystickConnected {
		lines = append(lines, "No joystick connected")
	}
	return lines
}

// drawArrow draws the direction arrow pointing up for heading 0, turned anticlockwise so that it
// points the way the stick is pushed.
func (r *Renderer) drawArrow(dc *gg.Context, s Status) {
	cx, cy := r.arrowCentre()
	size := r.arrowSize
	dc.Push()
	defer dc.Pop()
	// gg turns clockwise for positive angles since y points down.
	dc.RotateAbout(-gg.Radians(s.Heading), cx, cy)
	if r.arrow != nil {
		dc.DrawImageAnchored(r.arrow, int(cx), int(cy), 0.5, 0.5)
		return
	}
	if s.Moving {
		dc.SetColor(s.Tier.Colour)
	} else {
		dc.SetColor(idleArrow)
	}
	dc.MoveTo(cx, cy-size/2)
	dc.LineTo(cx+size/3, cy+size/2)
	dc.LineTo(cx, cy+size/4)
	dc.LineTo(cx-size/3, cy+size/2)
	dc.ClosePath()
	dc.Fill()
}

// Single-cell LiPo.
const (
	minCellVoltage = 3
	maxCellVoltage = 4.2
)

func chargeFraction(v physic.ElectricPotential) float64 {
	charge := (float64(v)/float64(physic.Volt) - minCellVoltage) / (maxCellVoltage - minCellVoltage)
	if charge < 0 {
		return 0
	}
	if charge > 1 {
		return 1
	}
	return charge
}

func drawPowerBar(dc *gg.Context, voltage physic.ElectricPotential, known bool, height float64) {
	if !known {
		dc.DrawString("Battery: --", 0, height)
		return
	}
	charge := chargeFraction(voltage)

	// Colour depends on charge level.
	if charge < 0.1 {
		dc.SetRGBA(1, 0.2, 0, 1)
	}
	dc.DrawString(fmt.Sprintf("Battery: %.2fV", float64(voltage)/float64(physic.Volt)), 0, height)
	const segments = 13
	dc.DrawRectangle(0, height*1.5, 4, height)
	for n := 0; n < segments; n++ {
		if charge >= float64(n+1)/segments {
			dc.DrawRectangle(6+float64(n)*10, height*1.5, 8, height)
		}
	}
	dc.Fill()
}
