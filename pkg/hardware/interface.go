package hardware

import "github.com/tigerbot-team/spherodrive/pkg/sphero"

// Interface is everything the drive loop owns for the lifetime of a session.
type Interface interface {
	Toy() sphero.Interface

	PlaySound(cue string)

	// Shutdown stops the toy and releases it.  Calling it again does nothing.
	Shutdown() error
}
