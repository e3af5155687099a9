package joystick

import (
	"fmt"
	"sort"
	"time"

	portable "github.com/0xcafed00d/joystick"
	"golang.org/x/exp/maps"
)

const (
	maxPortableDevices    = 4
	portableRescanPeriod  = time.Second
	portableAxisFullScale = 32767
)

type portableDevice struct {
	index int
	js    portable.Joystick
	state portable.State
}

// Portable polls controllers through github.com/0xcafed00d/joystick, which also works where
// /dev/input/js* does not exist.  Opening a device is comparatively slow so missing slots are
// only retried once a second.
type Portable struct {
	nextID   int
	byID     map[int]*portableDevice
	lastScan time.Time
	quit     *quitWatcher

	open func(index int) (portable.Joystick, error)
	now  func() time.Time
}

func NewPortable(quitButton int) *Portable {
	return &Portable{
		nextID: 1,
		byID:   map[int]*portableDevice{},
		quit:   newQuitWatcher(quitButton),
		open:   portable.Open,
		now:    time.Now,
	}
}

var _ Source = (*Portable)(nil)

func (p *Portable) PollEvents() ([]Change, error) {
	var changes []Change

	if now := p.now(); p.lastScan.IsZero() || now.Sub(p.lastScan) >= portableRescanPeriod {
		p.lastScan = now
		changes = append(changes, p.rescan()...)
	}

	for _, id := range p.Devices() {
		d := p.byID[id]
		state, err := d.js.Read()
		if err != nil {
			fmt.Println("Joy: device", id, "lost:", err)
			d.js.Close()
			delete(p.byID, id)
			changes = append(changes, Change{Kind: DeviceRemoved, Device: id, Name: d.js.Name()})
			continue
		}
		d.state = state
	}

	return p.quit.check(p, changes), nil
}

func (p *Portable) rescan() []Change {
	var changes []Change
	inUse := map[int]bool{}
	for _, d := range p.byID {
		inUse[d.index] = true
	}
	for i := 0; i < maxPortableDevices; i++ {
		if inUse[i] {
			continue
		}
		js, err := p.open(i)
		if err != nil {
			continue
		}
		id := p.nextID
		p.nextID++
		p.byID[id] = &portableDevice{index: i, js: js}
		fmt.Printf("Joy: opened %q (slot %d) as device %d\n", js.Name(), i, id)
		changes = append(changes, Change{Kind: DeviceAdded, Device: id, Name: js.Name()})
	}
	return changes
}

func (p *Portable) Devices() []int {
	ids := maps.Keys(p.byID)
	sort.Ints(ids)
	return ids
}

func (p *Portable) Axis(device, axis int) float64 {
	d, ok := p.byID[device]
	if !ok || axis < 0 || axis >= len(d.state.AxisData) {
		return 0
	}
	return NormaliseAxis(d.state.AxisData[axis], portableAxisFullScale)
}

func (p *Portable) Button(device, button int) bool {
	d, ok := p.byID[device]
	if !ok || button < 0 || button >= 32 {
		return false
	}
	return d.state.Buttons&(1<<uint(button)) != 0
}

func (p *Portable) Close() error {
	for id, d := range p.byID {
		d.js.Close()
		delete(p.byID, id)
	}
	return nil
}
