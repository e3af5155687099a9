package sphero

import (
	"fmt"
	"image/color"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"
)

// Interface is the command set the drive loop needs from a toy.  Commands are fire and forget;
// only BatteryVoltage waits for an answer.
type Interface interface {
	SetFrontColour(c color.RGBA) error
	SetHeading(degrees float64) error
	SetSpeed(speed int) error
	SetMatrixCharacter(ch rune, c color.RGBA) error
	BatteryVoltage() (physic.ElectricPotential, error)
	// Stop sets the speed to 0, keeping the heading.
	Stop() error
	// Close disconnects from the toy.
	Close() error
}

var ErrToyNotFound = errors.New("no matching toy found")

// TelemetryError is returned when a battery reading could not be taken.  It is never fatal.
type TelemetryError struct {
	Err error
}

func (e *TelemetryError) Error() string {
	return "battery voltage read failed: " + e.Err.Error()
}

func (e *TelemetryError) Unwrap() error {
	return e.Err
}

const (
	DefaultResponseTimeout = time.Second
	// DefaultDriveRefresh is how often an unchanged drive command is re-sent anyway.
	DefaultDriveRefresh = 250 * time.Millisecond
)

// Toy speaks API v2 to a connected toy over any Transport.
type Toy struct {
	Name  string
	Model Model

	ResponseTimeout time.Duration
	DriveRefresh    time.Duration

	transport Transport
	decoder   Decoder
	seq       byte

	heading float64
	speed   int

	lastDrive   []byte
	lastDriveAt time.Time

	now func() time.Time
}

func NewToy(name string, transport Transport) *Toy {
	return &Toy{
		Name:            name,
		Model:           ModelForName(name),
		ResponseTimeout: DefaultResponseTimeout,
		DriveRefresh:    DefaultDriveRefresh,
		transport:       transport,
		now:             time.Now,
	}
}

var _ Interface = (*Toy)(nil)

func (t *Toy) send(p *Packet) error {
	p.Seq = t.seq
	t.seq++
	if err := t.transport.Write(p.Encode()); err != nil {
		return errors.Wrapf(err, "failed to send %s", p)
	}
	return nil
}

// request sends p and waits for the matching response.  Unrelated packets from the toy (async
// notifications, late responses) are skipped.
func (t *Toy) request(p *Packet) (*Packet, error) {
	p.Flags |= FlagRequestsResponse
	if err := t.send(p); err != nil {
		return nil, err
	}
	deadline := t.now().Add(t.ResponseTimeout)
	for {
		remaining := deadline.Sub(t.now())
		if remaining <= 0 {
			return nil, ErrReadTimeout
		}
		chunk, err := t.transport.ReadChunk(remaining)
		if err != nil {
			return nil, err
		}
		for _, r := range t.decoder.Feed(chunk) {
			if !r.IsResponse() || r.Seq != p.Seq || r.DID != p.DID || r.CID != p.CID {
				continue
			}
			if r.ErrCode != 0 {
				return nil, errors.Errorf("toy rejected command %#02x/%#02x with error %d", p.DID, p.CID, r.ErrCode)
			}
			return r, nil
		}
	}
}

func (t *Toy) Wake() error {
	return t.send(t.Model.Wake())
}

func (t *Toy) Sleep() error {
	return t.send(t.Model.Sleep())
}

func (t *Toy) SetFrontColour(c color.RGBA) error {
	return t.send(t.Model.FrontLED(c))
}

func (t *Toy) SetMatrixCharacter(ch rune, c color.RGBA) error {
	p := t.Model.MatrixCharacter(ch, c)
	if p == nil {
		return nil
	}
	return t.send(p)
}

// The toy takes heading and speed in one command, so each setter re-sends both.
func (t *Toy) SetHeading(degrees float64) error {
	t.heading = degrees
	return t.drive(false)
}

func (t *Toy) SetSpeed(speed int) error {
	t.speed = speed
	return t.drive(false)
}

func (t *Toy) Stop() error {
	t.speed = 0
	return t.drive(true)
}

func (t *Toy) drive(force bool) error {
	p := t.Model.DriveWithHeading(t.speed, t.heading)
	now := t.now()
	if !force && string(p.Data) == string(t.lastDrive) && now.Sub(t.lastDriveAt) < t.DriveRefresh {
		return nil
	}
	if err := t.send(p); err != nil {
		return err
	}
	t.lastDrive = p.Data
	t.lastDriveAt = now
	return nil
}

func (t *Toy) BatteryVoltage() (physic.ElectricPotential, error) {
	r, err := t.request(t.Model.BatteryVoltage())
	if err != nil {
		return 0, &TelemetryError{Err: err}
	}
	v, ok := ParseBatteryVoltage(r)
	if !ok {
		return 0, &TelemetryError{Err: errors.Errorf("short battery response %s", r)}
	}
	return v, nil
}

func (t *Toy) Close() error {
	fmt.Println("Toy: disconnecting from", t.Name)
	return t.transport.Close()
}
