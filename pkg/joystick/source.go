package joystick

import (
	"fmt"
	"path/filepath"
	"sort"

	"golang.org/x/exp/maps"
)

const DefaultDeviceGlob = "/dev/input/js*"

type ChangeKind int

const (
	DeviceAdded ChangeKind = iota
	DeviceRemoved
	QuitRequested
)

func (k ChangeKind) String() string {
	switch k {
	case DeviceAdded:
		return "added"
	case DeviceRemoved:
		return "removed"
	case QuitRequested:
		return "quit"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Change is a notification from PollEvents.  Device is 0 for QuitRequested.
type Change struct {
	Kind   ChangeKind
	Device int
	Name   string
}

func (c Change) String() string {
	return fmt.Sprintf("%v(%d %s)", c.Kind, c.Device, c.Name)
}

// Source is a polled set of controllers.  Device ids are never reused, so a lower id always
// means an earlier connection.
type Source interface {
	// PollEvents drains pending input, rescans for hot-plugged devices and returns what changed.
	PollEvents() ([]Change, error)
	Devices() []int
	Axis(device, axis int) float64
	Button(device, button int) bool
	Close() error
}

// Primary returns the earliest-connected device that is still present.
func Primary(s Source) (int, bool) {
	ids := s.Devices()
	if len(ids) == 0 {
		return 0, false
	}
	return ids[0], true
}

// quitWatcher turns a button's press edge into a QuitRequested change.
type quitWatcher struct {
	button int
	down   map[int]bool
}

func newQuitWatcher(button int) *quitWatcher {
	return &quitWatcher{button: button, down: map[int]bool{}}
}

func (q *quitWatcher) check(s Source, changes []Change) []Change {
	if q.button < 0 {
		return changes
	}
	for _, id := range s.Devices() {
		pressed := s.Button(id, q.button)
		if pressed && !q.down[id] {
			changes = append(changes, Change{Kind: QuitRequested})
		}
		q.down[id] = pressed
	}
	return changes
}

// DevInput polls the Linux joystick devices matching a glob.
type DevInput struct {
	Glob string

	nextID  int
	byID    map[int]*Joystick
	idsByFn map[string]int
	quit    *quitWatcher
}

// NewDevInput creates the source; quitButton -1 disables the quit button.
func NewDevInput(glob string, quitButton int) *DevInput {
	if glob == "" {
		glob = DefaultDeviceGlob
	}
	return &DevInput{
		Glob:    glob,
		nextID:  1,
		byID:    map[int]*Joystick{},
		idsByFn: map[string]int{},
		quit:    newQuitWatcher(quitButton),
	}
}

var _ Source = (*DevInput)(nil)

func (d *DevInput) PollEvents() ([]Change, error) {
	var changes []Change

	paths, err := filepath.Glob(d.Glob)
	if err != nil {
		return nil, err
	}
	for _, path := range paths {
		if _, ok := d.idsByFn[path]; ok {
			continue
		}
		j, err := NewJoystick(path)
		if err != nil {
			// Usually permissions or a device still being set up by udev; try again next poll.
			continue
		}
		id := d.nextID
		d.nextID++
		d.byID[id] = j
		d.idsByFn[path] = id
		fmt.Println("Joy: opened", path, "as device", id)
		changes = append(changes, Change{Kind: DeviceAdded, Device: id, Name: path})
	}

	for _, id := range d.Devices() {
		j := d.byID[id]
		if _, err := j.Drain(); err != nil {
			fmt.Println("Joy: device", id, "lost:", err)
			_ = j.Close()
			delete(d.byID, id)
			delete(d.idsByFn, j.Path)
			changes = append(changes, Change{Kind: DeviceRemoved, Device: id, Name: j.Path})
		}
	}

	return d.quit.check(d, changes), nil
}

func (d *DevInput) Devices() []int {
	ids := maps.Keys(d.byID)
	sort.Ints(ids)
	return ids
}

func (d *DevInput) Axis(device, axis int) float64 {
	j, ok := d.byID[device]
	if !ok {
		return 0
	}
	return j.Axis(axis)
}

func (d *DevInput) Button(device, button int) bool {
	j, ok := d.byID[device]
	if !ok {
		return false
	}
	return j.Button(button)
}

func (d *DevInput) Close() error {
	var firstErr error
	for id, j := range d.byID {
		if err := j.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.byID, id)
	}
	d.idsByFn = map[string]int{}
	return firstErr
}
