package joystick

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Button and pad mappings (DS4 on the Linux joystick driver):
//
// Buttons
//
//    Cross     = 0
//    Circle    = 1
//    Triangle  = 2
//    Square    = 3
//    L1        = 4
//    R1        = 5
//    L2        = 6 (also an axis)
//    R2        = 7 (also an axis)
//    Share     = 8
//    Options   = 9
//    PS        = 10
//    L stick   = 11
//    R stick   = 12
//
// Axes
//
//    D-pad   u/d = 7 (up = -32767; down = +32767)
//            l/r = 6 (left = -32767; right = +32767)
//    L stick u/d = 1 (up = -32767; down = +32767)
//            l/r = 0 (left = -32767; right = +32767)
//    R stick u/d = 4 (up = -32767; down = +32767)
//            l/r = 3 (left = -32767; right = +32767)
//    L2          = 2 (unpressed = -32767; fully-pressed = 32767)
//    R2          = 5 (unpressed = -32767; fully-pressed = 32767)

type EventType uint8

const (
	EventTypeButton = 1
	EventTypeAxis   = 2
	eventTypeInit   = 0x80
)

const (
	ButtonCross    = 0
	ButtonCircle   = 1
	ButtonTriangle = 2
	ButtonSquare   = 3
	ButtonL1       = 4
	ButtonR1       = 5
	ButtonL2       = 6
	ButtonR2       = 7
	ButtonShare    = 8
	ButtonOptions  = 9
	ButtonPS       = 10
	ButtonLStick   = 11
	ButtonRStick   = 12

	AxisLStickX = 0
	AxisLStickY = 1
	AxisRStickX = 3
	AxisRStickY = 4
	AxisDPadX   = 6
	AxisDPadY   = 7

	// The driver reports 255 axes / buttons at most.
	maxControls = 256
	axisMax     = 32767
)

func (e EventType) String() string {
	switch e {
	case EventTypeAxis:
		return "axis"
	case EventTypeButton:
		return "button"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(e))
	}
}

// Joystick is one open /dev/input/js* device.  The file is opened non-blocking so that Drain
// can pull every queued event without waiting for the next one.
type Joystick struct {
	Path string

	fd      int
	readBuf [8 * 64]byte

	deviceEpoch    uint32
	wallclockEpoch time.Time

	axes    [maxControls]int16
	buttons [maxControls]bool
}

type rawEvent struct {
	Time   uint32
	Value  int16
	Type   uint8
	Number uint8
}

type Event struct {
	Time   time.Time
	Value  int16
	Type   EventType
	Number uint8
	// Init is set for the synthetic events the driver sends on open to report initial state.
	Init bool
}

func (e *Event) String() string {
	return fmt.Sprintf("%v(%v)=%v", e.Type, e.Number, e.Value)
}

func NewJoystick(device string) (*Joystick, error) {
	fd, err := unix.Open(device, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", device)
	}
	return &Joystick{
		Path: device,
		fd:   fd,
	}, nil
}

// Drain reads every event that is currently queued, updates the tracked state and returns the
// events.  It never blocks.  An error means the device has gone away or is unusable.
func (j *Joystick) Drain() ([]*Event, error) {
	var events []*Event
	for {
		n, err := unix.Read(j.fd, j.readBuf[:])
		if err == unix.EAGAIN || err == unix.EINTR {
			return events, nil
		}
		if err != nil {
			return events, errors.Wrapf(err, "failed to read %s", j.Path)
		}
		if n == 0 {
			return events, errors.Errorf("%s: end of file", j.Path)
		}
		r := bytes.NewReader(j.readBuf[:n-n%8])
		for r.Len() > 0 {
			var raw rawEvent
			if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
				return events, errors.Wrap(err, "bad joystick event")
			}
			event := j.decode(raw)
			j.apply(event)
			events = append(events, event)
		}
	}
}

func (j *Joystick) decode(raw rawEvent) *Event {
	if j.deviceEpoch == 0 {
		j.deviceEpoch = raw.Time
		j.wallclockEpoch = time.Now()
	}

	return &Event{
		Time:   j.wallclockEpoch.Add(time.Duration(raw.Time-j.deviceEpoch) * time.Millisecond),
		Value:  raw.Value,
		Type:   EventType(raw.Type &^ eventTypeInit),
		Number: raw.Number,
		Init:   raw.Type&eventTypeInit != 0,
	}
}

func (j *Joystick) apply(e *Event) {
	switch e.Type {
	case EventTypeAxis:
		j.axes[e.Number] = e.Value
	case EventTypeButton:
		j.buttons[e.Number] = e.Value != 0
	}
}

// Axis returns the current position of an axis scaled to [-1, 1].
func (j *Joystick) Axis(n int) float64 {
	if n < 0 || n >= maxControls {
		return 0
	}
	return NormaliseAxis(int(j.axes[n]), axisMax)
}

func (j *Joystick) Button(n int) bool {
	if n < 0 || n >= maxControls {
		return false
	}
	return j.buttons[n]
}

func (j *Joystick) Close() error {
	return unix.Close(j.fd)
}

// NormaliseAxis scales a raw axis reading to [-1, 1].  -32768 and friends are clamped.
func NormaliseAxis(raw, max int) float64 {
	v := float64(raw) / float64(max)
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
