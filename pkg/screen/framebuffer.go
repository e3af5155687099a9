package screen

import (
	"fmt"
	"image"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Framebuffer writes frames to a 16-bit RGB565 framebuffer device such as a small SPI panel.
type Framebuffer struct {
	r   *Renderer
	f   io.WriteSeeker
	buf []byte
}

func OpenFramebuffer(path string, r *Renderer) (*Framebuffer, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open framebuffer %s", path)
	}
	return newFramebuffer(f, r), nil
}

func newFramebuffer(f io.WriteSeeker, r *Renderer) *Framebuffer {
	return &Framebuffer{
		r:   r,
		f:   f,
		buf: make([]byte, r.width*r.height*2),
	}
}

// encodeRGB565 packs img into buf, little-endian, row by row.
func encodeRGB565(img image.Image, buf []byte) {
	b := img.Bounds()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA() // 16-bit pre-multiplied

			rb := byte(r >> (16 - 5))
			gb := byte(g >> (16 - 6)) // Green has 6 bits
			bb := byte(bl >> (16 - 5))

			i := (y*w + x) * 2
			buf[i+1] = (rb << 3) | (gb >> 3)
			buf[i] = bb | (gb << 5)
		}
	}
}

func (fb *Framebuffer) Show(s Status) error {
	encodeRGB565(fb.r.Draw(s), fb.buf)
	if _, err := fb.f.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "screen failure")
	}
	if _, err := fb.f.Write(fb.buf); err != nil {
		return errors.Wrap(err, "screen failure")
	}
	return nil
}

func (fb *Framebuffer) QuitRequested() bool {
	return false
}

// Close blanks the panel before closing it.
func (fb *Framebuffer) Close() error {
	fmt.Println("Screen: blanking framebuffer")
	for i := range fb.buf {
		fb.buf[i] = 0
	}
	if _, err := fb.f.Seek(0, io.SeekStart); err == nil {
		_, _ = fb.f.Write(fb.buf)
	}
	if c, ok := fb.f.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
