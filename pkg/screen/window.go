package screen

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

const (
	keyEsc = 27
	keyQ   = 'q'
)

// Window shows frames in a desktop window.  Pressing ESC or q, or closing the window, requests
// shut down.
type Window struct {
	r      *Renderer
	window *gocv.Window
	quit   bool
}

func NewWindow(title string, r *Renderer) *Window {
	return &Window{
		r:      r,
		window: gocv.NewWindow(title),
	}
}

func (w *Window) Show(s Status) error {
	if w.quit {
		return nil
	}
	mat, err := gocv.ImageToMatRGB(w.r.Draw(s))
	if err != nil {
		return errors.Wrap(err, "failed to convert frame")
	}
	defer mat.Close()
	w.window.IMShow(mat)
	switch w.window.WaitKey(1) {
	case keyEsc, keyQ:
		w.quit = true
	}
	if !w.window.IsOpen() {
		w.quit = true
	}
	return nil
}

func (w *Window) QuitRequested() bool {
	return w.quit
}

func (w *Window) Close() error {
	return w.window.Close()
}
