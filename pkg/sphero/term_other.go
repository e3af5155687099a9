//go:build !linux

package sphero

import (
	"os"

	"github.com/pkg/errors"
)

func makeRaw(f *os.File) error {
	return errors.New("raw pty mode is only implemented on linux")
}
