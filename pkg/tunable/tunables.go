package tunable

import (
	"fmt"

	"github.com/tigerbot-team/spherodrive/pkg/heading"
)

// Angle is an operator-adjustable angle, nudged up or down from the pad and always kept in
// [0, 360).  It is only touched from the control loop so it needs no locking.
type Angle struct {
	Name  string
	Step  float64
	value float64
}

func NewAngle(name string, step float64) *Angle {
	return &Angle{
		Name: name,
		Step: step,
	}
}

func (a *Angle) Add(delta float64) {
	a.value = heading.Wrap360(a.value + delta)
}

// Nudge applies one step in each direction that is currently held.  Both held cancel out.
func (a *Angle) Nudge(up, down bool) bool {
	if up == down {
		return false
	}
	if up {
		a.Add(a.Step)
	} else {
		a.Add(-a.Step)
	}
	return true
}

func (a *Angle) Get() float64 {
	return a.value
}

func (a *Angle) String() string {
	return fmt.Sprintf("%s=%.2f", a.Name, a.value)
}
