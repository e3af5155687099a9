package sphero

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/kr/pty"
	"github.com/pkg/errors"
)

// bridgeTransport runs an external helper (for example a vendor BLE bridge) that speaks API v2
// frames on its terminal.  Some helpers refuse to run without a TTY, so it gets a pty, which is
// switched to raw mode so that the binary frames pass through untouched.
type bridgeTransport struct {
	*fileTransport
	cmd *exec.Cmd
}

func StartBridge(command []string) (Transport, error) {
	if len(command) == 0 {
		return nil, errors.New("no bridge command configured")
	}
	fmt.Println("Toy: starting bridge", command)
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stderr = os.Stderr
	f, err := pty.Start(cmd)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start bridge")
	}
	if f, err = pollable(f); err != nil {
		_ = cmd.Process.Kill()
		return nil, errors.Wrap(err, "failed to set up bridge pty")
	}
	if err := makeRaw(f); err != nil {
		_ = cmd.Process.Kill()
		_ = f.Close()
		return nil, errors.Wrap(err, "failed to put bridge pty in raw mode")
	}
	return &bridgeTransport{
		fileTransport: newFileTransport(f),
		cmd:           cmd,
	}, nil
}

func (b *bridgeTransport) Close() error {
	_ = b.cmd.Process.Signal(syscall.SIGTERM)
	done := make(chan error, 1)
	go func() { done <- b.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		fmt.Println("Toy: bridge did not exit, killing it")
		_ = b.cmd.Process.Kill()
		<-done
	}
	return b.fileTransport.Close()
}
