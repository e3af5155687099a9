package sphero

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"go.bug.st/serial"
)

// Transport moves raw API v2 bytes to and from a toy.
type Transport interface {
	Write(frame []byte) error
	// ReadChunk returns whatever bytes arrive next, waiting at most timeout.
	ReadChunk(timeout time.Duration) ([]byte, error)
	Close() error
}

var ErrReadTimeout = errors.New("timed out waiting for the toy")

// fileTransport runs over anything with read deadlines, e.g. a pty master.
type fileTransport struct {
	f   *os.File
	buf [256]byte
}

func newFileTransport(f *os.File) *fileTransport {
	return &fileTransport{f: f}
}

func (t *fileTransport) Write(frame []byte) error {
	_, err := t.f.Write(frame)
	return err
}

func (t *fileTransport) ReadChunk(timeout time.Duration) ([]byte, error) {
	if err := t.f.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	n, err := t.f.Read(t.buf[:])
	if os.IsTimeout(err) {
		return nil, ErrReadTimeout
	}
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), t.buf[:n]...), nil
}

func (t *fileTransport) Close() error {
	return t.f.Close()
}

// serialTransport is a wired UART link to the toy.
type serialTransport struct {
	port serial.Port
	buf  [256]byte
}

func OpenSerial(device string, baud int) (Transport, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open serial port %s", device)
	}
	return &serialTransport{port: port}, nil
}

func (t *serialTransport) Write(frame []byte) error {
	_, err := t.port.Write(frame)
	return err
}

func (t *serialTransport) ReadChunk(timeout time.Duration) ([]byte, error) {
	if err := t.port.SetReadTimeout(timeout); err != nil {
		return nil, err
	}
	n, err := t.port.Read(t.buf[:])
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrReadTimeout
	}
	return append([]byte(nil), t.buf[:n]...), nil
}

func (t *serialTransport) Close() error {
	return t.port.Close()
}
