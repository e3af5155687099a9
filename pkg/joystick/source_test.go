package joystick

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	portable "github.com/0xcafed00d/joystick"
	"golang.org/x/sys/unix"
)

func TestNormaliseAxis(t *testing.T) {
	for _, c := range []struct {
		raw      int
		expected float64
	}{
		{0, 0},
		{32767, 1},
		{-32767, -1},
		{-32768, -1},
		{16384, 16384.0 / 32767.0},
	} {
		if v := NormaliseAxis(c.raw, 32767); math.Abs(v-c.expected) > 1e-12 {
			t.Errorf("NormaliseAxis(%d) = %v, expected %v", c.raw, v, c.expected)
		}
	}
}

// fakeDevice is a FIFO standing in for /dev/input/jsN.  It is opened read-write so that the
// joystick end never sees EOF until the test closes it.
type fakeDevice struct {
	path string
	f    *os.File
}

func newFakeDevice(t *testing.T, dir, name string) *fakeDevice {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := unix.Mkfifo(path, 0600); err != nil {
		t.Fatalf("mkfifo: %v", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("open fifo: %v", err)
	}
	return &fakeDevice{path: path, f: f}
}

func (d *fakeDevice) send(t *testing.T, typ EventType, number uint8, value int16) {
	t.Helper()
	err := binary.Write(d.f, binary.LittleEndian, rawEvent{
		Time:   uint32(time.Now().UnixNano() / 1e6),
		Value:  value,
		Type:   uint8(typ),
		Number: number,
	})
	if err != nil {
		t.Fatalf("write event: %v", err)
	}
}

func (d *fakeDevice) unplug(t *testing.T) {
	t.Helper()
	_ = d.f.Close()
	_ = os.Remove(d.path)
}

func TestDevInputHotPlugAndState(t *testing.T) {
	dir := t.TempDir()
	src := NewDevInput(filepath.Join(dir, "js*"), ButtonPS)
	defer src.Close()

	changes := pollOK(t, src)
	if len(changes) != 0 || len(src.Devices()) != 0 {
		t.Fatalf("Expected nothing before a device exists, got %v", changes)
	}

	dev := newFakeDevice(t, dir, "js0")
	changes = pollOK(t, src)
	if len(changes) != 1 || changes[0].Kind != DeviceAdded || changes[0].Device != 1 {
		t.Fatalf("Expected device 1 added, got %v", changes)
	}
	if id, ok := Primary(src); !ok || id != 1 {
		t.Fatalf("Expected primary device 1, got %v %v", id, ok)
	}

	dev.send(t, EventTypeAxis|eventTypeInit, AxisLStickX, 0)
	dev.send(t, EventTypeAxis, AxisLStickX, 32767)
	dev.send(t, EventTypeAxis, AxisLStickY, -32767)
	dev.send(t, EventTypeButton, ButtonL1, 1)
	changes = pollOK(t, src)
	if len(changes) != 0 {
		t.Fatalf("Unexpected changes %v", changes)
	}
	if src.Axis(1, AxisLStickX) != 1 || src.Axis(1, AxisLStickY) != -1 {
		t.Fatalf("Axes not tracked: %v %v", src.Axis(1, AxisLStickX), src.Axis(1, AxisLStickY))
	}
	if !src.Button(1, ButtonL1) || src.Button(1, ButtonR1) {
		t.Fatal("Buttons not tracked")
	}
	if src.Axis(2, AxisLStickX) != 0 || src.Button(2, ButtonL1) {
		t.Fatal("Unknown device should read as neutral")
	}

	dev.send(t, EventTypeButton, ButtonPS, 1)
	changes = pollOK(t, src)
	if len(changes) != 1 || changes[0].Kind != QuitRequested {
		t.Fatalf("Expected quit, got %v", changes)
	}
	// Holding the button does not repeat the request.
	if changes = pollOK(t, src); len(changes) != 0 {
		t.Fatalf("Expected no repeat, got %v", changes)
	}

	dev.unplug(t)
	changes = pollOK(t, src)
	if len(changes) != 1 || changes[0].Kind != DeviceRemoved || changes[0].Device != 1 {
		t.Fatalf("Expected device 1 removed, got %v", changes)
	}
	if _, ok := Primary(src); ok {
		t.Fatal("Expected no primary device after unplug")
	}

	// Replugging gets a fresh id.
	newFakeDevice(t, dir, "js0")
	changes = pollOK(t, src)
	if len(changes) != 1 || changes[0].Kind != DeviceAdded || changes[0].Device != 2 {
		t.Fatalf("Expected device 2 added, got %v", changes)
	}
}

func TestPrimaryIsEarliestConnected(t *testing.T) {
	dir := t.TempDir()
	src := NewDevInput(filepath.Join(dir, "js*"), -1)
	defer src.Close()

	first := newFakeDevice(t, dir, "js1")
	pollOK(t, src)
	newFakeDevice(t, dir, "js0")
	pollOK(t, src)

	if id, _ := Primary(src); id != 1 {
		t.Fatalf("Expected the first device to stay primary, got %d", id)
	}
	first.unplug(t)
	pollOK(t, src)
	if id, _ := Primary(src); id != 2 {
		t.Fatalf("Expected device 2 to take over, got %d", id)
	}
}

func pollOK(t *testing.T, s Source) []Change {
	t.Helper()
	changes, err := s.PollEvents()
	if err != nil {
		t.Fatalf("PollEvents: %v", err)
	}
	return changes
}

type fakePortable struct {
	name   string
	state  portable.State
	err    error
	closed bool
}

func (f *fakePortable) AxisCount() int   { return len(f.state.AxisData) }
func (f *fakePortable) ButtonCount() int { return 32 }
func (f *fakePortable) Name() string     { return f.name }
func (f *fakePortable) Close()           { f.closed = true }
func (f *fakePortable) Read() (portable.State, error) {
	return f.state, f.err
}

func TestPortable(t *testing.T) {
	now := time.Unix(1000, 0)
	pad := &fakePortable{name: "pad"}
	slots := map[int]portable.Joystick{}
	src := NewPortable(ButtonPS)
	src.now = func() time.Time { return now }
	src.open = func(i int) (portable.Joystick, error) {
		if js, ok := slots[i]; ok {
			delete(slots, i)
			return js, nil
		}
		return nil, errors.New("no such joystick")
	}

	if changes := pollOK(t, src); len(changes) != 0 {
		t.Fatalf("Expected nothing, got %v", changes)
	}

	// Plugged in, but the rescan is rate limited.
	slots[2] = pad
	now = now.Add(500 * time.Millisecond)
	if changes := pollOK(t, src); len(changes) != 0 {
		t.Fatalf("Expected no rescan yet, got %v", changes)
	}
	now = now.Add(500 * time.Millisecond)
	changes := pollOK(t, src)
	if len(changes) != 1 || changes[0].Kind != DeviceAdded || changes[0].Name != "pad" {
		t.Fatalf("Expected pad added, got %v", changes)
	}

	pad.state = portable.State{AxisData: []int{-32767, 16000}, Buttons: 1<<ButtonCircle | 1<<ButtonR1}
	pollOK(t, src)
	if src.Axis(1, 0) != -1 || math.Abs(src.Axis(1, 1)-16000.0/32767.0) > 1e-12 || src.Axis(1, 7) != 0 {
		t.Fatalf("Unexpected axes %v %v", src.Axis(1, 0), src.Axis(1, 1))
	}
	if !src.Button(1, ButtonCircle) || !src.Button(1, ButtonR1) || src.Button(1, ButtonCross) {
		t.Fatal("Unexpected buttons")
	}

	pad.err = errors.New("unplugged")
	changes = pollOK(t, src)
	if len(changes) != 1 || changes[0].Kind != DeviceRemoved || !pad.closed {
		t.Fatalf("Expected pad removed, got %v", changes)
	}
}
