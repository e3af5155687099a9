package sphero

import (
	"os"

	"golang.org/x/sys/unix"
)

// pollable swaps f for a non-blocking duplicate so that read deadlines work.  The pty package
// hands back files that were switched to blocking mode when it looked up their descriptors.
func pollable(f *os.File) (*os.File, error) {
	fd, err := unix.Dup(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}
	nf := os.NewFile(uintptr(fd), f.Name())
	_ = f.Close()
	return nf, nil
}
