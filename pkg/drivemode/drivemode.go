package drivemode

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/spherodrive/pkg/config"
	"github.com/tigerbot-team/spherodrive/pkg/hardware"
	"github.com/tigerbot-team/spherodrive/pkg/heading"
	"github.com/tigerbot-team/spherodrive/pkg/joystick"
	"github.com/tigerbot-team/spherodrive/pkg/screen"
	"github.com/tigerbot-team/spherodrive/pkg/sound"
	"github.com/tigerbot-team/spherodrive/pkg/speedtier"
	"github.com/tigerbot-team/spherodrive/pkg/sphero"
	"github.com/tigerbot-team/spherodrive/pkg/tunable"
)

// State is everything the loop carries from one tick to the next.
type State struct {
	Offset *tunable.Angle

	// Heading is the last heading sent to the toy.  It only moves when the stick does.
	Heading float64
	Moving  bool

	Tier  speedtier.Tier
	Speed int

	X, Y float64

	Primary     int
	HavePrimary bool

	tierButtonsDown []bool

	Battery     physic.ElectricPotential
	HaveBattery bool
}

// BatteryPoll decides when the next voltage reading is due.
type BatteryPoll struct {
	Interval time.Duration
	last     time.Time
}

func (b *BatteryPoll) Reset(now time.Time) {
	b.last = now
}

// Due reports whether a reading should be taken now.  The timer restarts whether or not the
// reading then succeeds.
func (b *BatteryPoll) Due(now time.Time) bool {
	if now.Sub(b.last) < b.Interval {
		return false
	}
	b.last = now
	return true
}

type DriveMode struct {
	cfg     config.Config
	input   joystick.Source
	hw      hardware.Interface
	toy     sphero.Interface
	display screen.Display
	toyName string

	state   State
	battery BatteryPoll

	now func() time.Time
}

func New(cfg config.Config, input joystick.Source, hw hardware.Interface, display screen.Display, toyName string) *DriveMode {
	return &DriveMode{
		cfg:     cfg,
		input:   input,
		hw:      hw,
		toy:     hw.Toy(),
		display: display,
		toyName: toyName,
		state: State{
			Offset:          tunable.NewAngle("angle offset", cfg.CalibrationStep),
			Tier:            speedtier.Default,
			tierButtonsDown: make([]bool, len(cfg.Buttons.Tiers)),
		},
		battery: BatteryPoll{Interval: cfg.BatteryCheckInterval},
		now:     time.Now,
	}
}

func (m *DriveMode) Name() string {
	return "Drive mode"
}

// State returns a copy of the loop state, for display and tests.
func (m *DriveMode) State() State {
	return m.state
}

// Start shows the initial tier on the toy and starts the battery timer.
func (m *DriveMode) Start(now time.Time) error {
	m.battery.Reset(now)
	fmt.Println("Drive: starting with", m.state.Tier)
	return m.showTier()
}

func (m *DriveMode) showTier() error {
	t := m.state.Tier
	return m.toy.SetMatrixCharacter(t.Glyph, t.Colour)
}

// Run ticks at the configured rate until the operator quits or ctx is cancelled.  Either way the
// toy has been told to stop when it returns.  Releasing the toy is up to the caller.
func (m *DriveMode) Run(ctx context.Context) error {
	if err := m.Start(m.now()); err != nil {
		return err
	}
	ticker := time.NewTicker(m.cfg.TickRate().Period())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println("Drive: interrupted")
			return m.stop()
		case <-ticker.C:
			done, err := m.Tick(m.now())
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}

func (m *DriveMode) stop() error {
	m.state.Speed = speedtier.Idle
	m.state.Moving = false
	return m.toy.SetSpeed(speedtier.Idle)
}

// Tick runs one iteration of the control loop.  done is set once the operator has asked to quit;
// the toy has then already been told to stop.
func (m *DriveMode) Tick(now time.Time) (done bool, err error) {
	changes, err := m.input.PollEvents()
	if err != nil {
		return false, errors.Wrap(err, "failed to poll joystick")
	}
	quit := m.display.QuitRequested()
	for _, c := range changes {
		switch c.Kind {
		case joystick.QuitRequested:
			fmt.Println("Drive: quit button pressed")
			quit = true
		default:
			fmt.Println("Joy:", c)
		}
	}
	if quit {
		return true, m.stop()
	}

	m.state.Primary, m.state.HavePrimary = joystick.Primary(m.input)
	if !m.state.HavePrimary {
		m.state.X, m.state.Y = 0, 0
		if err := m.stop(); err != nil {
			return false, err
		}
		m.show()
		return false, nil
	}

	if err := m.drive(); err != nil {
		return false, err
	}

	if m.battery.Due(now) {
		if err := m.checkBattery(); err != nil {
			return false, err
		}
	}

	m.show()
	return false, nil
}

func (m *DriveMode) drive() error {
	id := m.state.Primary
	m.state.X = m.input.Axis(id, m.cfg.Axes.X)
	m.state.Y = m.input.Axis(id, m.cfg.Axes.Y)

	m.state.Offset.Nudge(
		m.input.Button(id, m.cfg.Buttons.CalibrateUp),
		m.input.Button(id, m.cfg.Buttons.CalibrateDown),
	)

	// Later buttons win if several are held.
	for i, button := range m.cfg.Buttons.Tiers {
		pressed := m.input.Button(id, button)
		wasDown := m.state.tierButtonsDown[i]
		m.state.tierButtonsDown[i] = pressed
		if !pressed {
			continue
		}
		m.state.Tier = speedtier.All[i]
		if !wasDown {
			fmt.Println("Drive: selected", m.state.Tier)
			m.hw.PlaySound(sound.TierCue(i))
			if err := m.showTier(); err != nil {
				return err
			}
		}
	}

	cmd := heading.Map(m.state.X, m.state.Y, m.state.Offset.Get(), m.cfg.Deadzone)
	m.state.Moving = cmd.Moving
	if !cmd.Moving {
		m.state.Speed = speedtier.Idle
		return m.toy.SetSpeed(speedtier.Idle)
	}
	m.state.Heading = cmd.Heading
	if err := m.toy.SetHeading(cmd.Heading); err != nil {
		return err
	}
	m.state.Speed = m.state.Tier.Speed
	return m.toy.SetSpeed(m.state.Speed)
}

func (m *DriveMode) checkBattery() error {
	v, err := m.toy.BatteryVoltage()
	var te *sphero.TelemetryError
	if errors.As(err, &te) {
		fmt.Println("Battery check failed:", te)
		return nil
	} else if err != nil {
		return err
	}
	m.state.Battery, m.state.HaveBattery = v, true
	fmt.Printf("Battery voltage: %.2fV\n", float64(v)/float64(physic.Volt))
	return nil
}

func (m *DriveMode) show() {
	err := m.display.Show(screen.Status{
		X:                 m.state.X,
		Y:                 m.state.Y,
		Heading:           m.state.Heading,
		Moving:            m.state.Moving,
		Offset:            m.state.Offset.Get(),
		Speed:             m.state.Tier.Speed,
		Tier:              m.state.Tier,
		Battery:           m.state.Battery,
		HaveBattery:       m.state.HaveBattery,
		JoystickConnected: m.state.HavePrimary,
		ToyName:           m.toyName,
	})
	if err != nil {
		fmt.Println("Screen failure: ", err)
	}
}
