package screen

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/tigerbot-team/spherodrive/pkg/config"
)

// Display shows status frames.  It never affects driving, except that the operator may close it
// to ask for shut down.
type Display interface {
	Show(s Status) error
	// QuitRequested reports whether the operator has closed the display.
	QuitRequested() bool
	Close() error
}

func Open(cfg config.DisplayConfig) (Display, error) {
	if cfg.Driver == "none" {
		return noDisplay{}, nil
	}
	r, err := NewRenderer(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case "window":
		return NewWindow("Sphero Drive", r), nil
	case "framebuffer":
		return OpenFramebuffer(cfg.Framebuffer, r)
	default:
		return nil, errors.Errorf("unknown display driver %q", cfg.Driver)
	}
}

type noDisplay struct{}

func (noDisplay) Show(s Status) error {
	return nil
}

func (noDisplay) QuitRequested() bool {
	return false
}

func (noDisplay) Close() error {
	fmt.Println("Screen: no display to close")
	return nil
}
