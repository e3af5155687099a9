package sphero

import (
	"encoding/binary"
	"image/color"
	"math"
	"strings"

	"periph.io/x/periph/conn/physic"
)

// Device ids and command ids used by the drive controller.
const (
	DIDPower   = 0x13
	DIDDriving = 0x16
	DIDIO      = 0x1A

	CIDSleep          = 0x01
	CIDBatteryVoltage = 0x03
	CIDWake           = 0x0D

	CIDDriveWithHeading = 0x07

	CIDSetAllLEDs16BitMask = 0x0E
	CIDSetAllLEDs32BitMask = 0x1A
	CIDSetMatrixCharacter  = 0x42
)

const (
	// Processors on two-chip toys.
	TargetNordic = 0x11
	TargetST     = 0x12

	sourceID = 0x01

	noTarget = 0
)

// Model describes the parts of a toy's command set that differ between toys.
type Model struct {
	Name string
	// NamePrefix is how the toy advertises itself, e.g. "SB-1234" for a BOLT.
	NamePrefix string

	PowerTarget byte
	DriveTarget byte
	IOTarget    byte

	HasMatrix bool

	// frontLED builds the IO command that sets the front light.
	frontLED func(c color.RGBA) (cid byte, data []byte)
}

var (
	BOLT = Model{
		Name:        "BOLT",
		NamePrefix:  "SB-",
		PowerTarget: TargetNordic,
		DriveTarget: TargetST,
		IOTarget:    TargetST,
		HasMatrix:   true,
		frontLED: func(c color.RGBA) (byte, []byte) {
			// LEDs 0-2 are the front red, green and blue channels.
			data := make([]byte, 4, 7)
			binary.BigEndian.PutUint32(data, 0x07)
			return CIDSetAllLEDs32BitMask, append(data, c.R, c.G, c.B)
		},
	}
	Mini = Model{
		Name:       "Mini",
		NamePrefix: "SM-",
		frontLED: func(c color.RGBA) (byte, []byte) {
			data := make([]byte, 2, 5)
			binary.BigEndian.PutUint16(data, 0x0E)
			return CIDSetAllLEDs16BitMask, append(data, c.R, c.G, c.B)
		},
	}

	KnownModels = []Model{BOLT, Mini}
)

// ModelForName picks the model from the advertised name, defaulting to BOLT.
func ModelForName(name string) Model {
	for _, m := range KnownModels {
		if strings.HasPrefix(strings.ToUpper(name), m.NamePrefix) {
			return m
		}
	}
	return BOLT
}

// MatchToyName reports whether an advertised name is the toy the operator asked for.  An empty
// request matches any known model.
func MatchToyName(want, advertised string) bool {
	if advertised == "" {
		return false
	}
	if want != "" {
		return strings.EqualFold(strings.TrimSpace(want), advertised)
	}
	for _, m := range KnownModels {
		if strings.HasPrefix(strings.ToUpper(advertised), m.NamePrefix) {
			return true
		}
	}
	return false
}

func (m Model) command(target, did, cid byte, data []byte) *Packet {
	p := &Packet{
		Flags: FlagIsActivity,
		DID:   did,
		CID:   cid,
		Data:  data,
	}
	if target != noTarget {
		p.Flags |= FlagHasTargetID | FlagHasSourceID
		p.TargetID = target
		p.SourceID = sourceID
	}
	return p
}

func (m Model) Wake() *Packet {
	return m.command(m.PowerTarget, DIDPower, CIDWake, nil)
}

func (m Model) Sleep() *Packet {
	return m.command(m.PowerTarget, DIDPower, CIDSleep, nil)
}

func (m Model) BatteryVoltage() *Packet {
	return m.command(m.PowerTarget, DIDPower, CIDBatteryVoltage, nil)
}

// DriveWithHeading rolls at speed (0-255) towards heading (degrees, wrapped to 0-359).
func (m Model) DriveWithHeading(speed int, heading float64) *Packet {
	h := int(math.Round(heading)) % 360
	if h < 0 {
		h += 360
	}
	if speed < 0 {
		speed = 0
	} else if speed > 255 {
		speed = 255
	}
	data := []byte{byte(speed), byte(h >> 8), byte(h), 0}
	return m.command(m.DriveTarget, DIDDriving, CIDDriveWithHeading, data)
}

func (m Model) FrontLED(c color.RGBA) *Packet {
	cid, data := m.frontLED(c)
	return m.command(m.IOTarget, DIDIO, cid, data)
}

// MatrixCharacter shows a single character on the LED matrix.  Nil for models without one.
func (m Model) MatrixCharacter(ch rune, c color.RGBA) *Packet {
	if !m.HasMatrix {
		return nil
	}
	return m.command(m.IOTarget, DIDIO, CIDSetMatrixCharacter, []byte{c.R, c.G, c.B, byte(ch)})
}

// ParseBatteryVoltage decodes a battery voltage response.  The toy reports hundredths of a volt.
func ParseBatteryVoltage(p *Packet) (physic.ElectricPotential, bool) {
	if len(p.Data) < 2 {
		return 0, false
	}
	return physic.ElectricPotential(binary.BigEndian.Uint16(p.Data)) * 10 * physic.MilliVolt, true
}
