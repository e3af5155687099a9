package hardware

import (
	"fmt"
	"sync"

	"github.com/tigerbot-team/spherodrive/pkg/sphero"
)

// Dummy stands in for real hardware; the toy prints its commands.
type Dummy struct {
	toy sphero.Interface

	shutdownOnce sync.Once
	shutdownErr  error
}

func NewDummy(name string) *Dummy {
	return newDummy(sphero.Dummy(name))
}

func newDummy(toy sphero.Interface) *Dummy {
	return &Dummy{toy: toy}
}

func (d *Dummy) Toy() sphero.Interface {
	return d.toy
}

func (d *Dummy) PlaySound(cue string) {
	fmt.Printf("DHW: PlaySound cue=%v\n", cue)
}

func (d *Dummy) Shutdown() error {
	d.shutdownOnce.Do(func() {
		fmt.Println("DHW: Shutdown")
		d.shutdownErr = d.toy.Stop()
		if err := d.toy.Close(); err != nil && d.shutdownErr == nil {
			d.shutdownErr = err
		}
	})
	return d.shutdownErr
}

var _ Interface = (*Dummy)(nil)
