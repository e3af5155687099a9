package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/tigerbot-team/spherodrive/pkg/sphero"
)

type Hardware struct {
	toy sphero.Interface

	// nil when sound is disabled.
	soundsToPlay chan string

	shutdownOnce sync.Once
	shutdownErr  error
}

// New takes ownership of a connected toy and the sound channel from sound.InitSound.
func New(toy sphero.Interface, soundsToPlay chan string) *Hardware {
	return &Hardware{
		toy:          toy,
		soundsToPlay: soundsToPlay,
	}
}

var _ Interface = (*Hardware)(nil)

func (h *Hardware) Toy() sphero.Interface {
	return h.toy
}

func (h *Hardware) PlaySound(cue string) {
	if h.soundsToPlay == nil {
		return
	}
	defer func() {
		recover() // Don't die if the channel is already closed.
	}()
	select {
	case h.soundsToPlay <- cue:
		return
	case <-time.After(10 * time.Millisecond):
		fmt.Println("Timed out trying to play sound: ", cue)
	}
}

// Shutdown commands speed 0 and only then disconnects, so the toy is never left rolling.
func (h *Hardware) Shutdown() error {
	h.shutdownOnce.Do(func() {
		fmt.Println("HW: Stopping toy")
		if err := h.toy.Stop(); err != nil {
			fmt.Println("HW: Failed to stop toy:", err)
			h.shutdownErr = err
		}
		if err := h.toy.Close(); err != nil {
			fmt.Println("HW: Failed to disconnect toy:", err)
			if h.shutdownErr == nil {
				h.shutdownErr = err
			}
		}
		if h.soundsToPlay != nil {
			close(h.soundsToPlay)
		}
		fmt.Println("HW: Shut down")
	})
	return h.shutdownErr
}
