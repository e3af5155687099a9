package sound

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Cues, relative to the sounds directory.
const Connected = "connected.wav"

// TierCue is played when the operator picks speed tier n (0-based).
func TierCue(n int) string {
	return fmt.Sprintf("tier%d.wav", n+1)
}

// InitSound starts the player goroutine.  Cues sent on the returned channel are played from
// dir, cutting off whatever was playing before.  Closing the channel stops the player.  If dir
// is empty sound is disabled and nil is returned.
func InitSound(dir string) chan string {
	if dir == "" {
		return nil
	}
	soundsToPlay := make(chan string)
	go func() {
		defer func() {
			recover()
			for s := range soundsToPlay {
				fmt.Println("Unable to play", s)
			}
		}()
		sampleRate := beep.SampleRate(44100)
		err := speaker.Init(sampleRate, sampleRate.N(time.Second/5))
		if err != nil {
			fmt.Println("Failed to open speaker", err)
			return
		}
		var ctrl *beep.Ctrl
		var s beep.StreamSeekCloser
		defer func() {
			if s != nil {
				s.Close()
			}
		}()
		for cue := range soundsToPlay {
			if ctrl != nil {
				speaker.Lock()
				ctrl.Paused = true
				ctrl.Streamer = nil
				speaker.Unlock()
				ctrl = nil
			}
			if s != nil {
				s.Close()
				s = nil
			}

			f, err := os.Open(filepath.Join(dir, cue))
			if err != nil {
				fmt.Println("Failed to open sound", err)
				continue
			}
			s, _, err = wav.Decode(f)
			if err != nil {
				fmt.Println("Failed to decode sound", err)
				f.Close()
				s = nil
				continue
			}
			ctrl = &beep.Ctrl{Streamer: s}
			speaker.Play(ctrl)
		}
	}()
	return soundsToPlay
}
