// Package config loads the drive settings from a yaml file over compiled-in defaults.
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v2"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/spherodrive/pkg/heading"
	"github.com/tigerbot-team/spherodrive/pkg/joystick"
)

const DefaultPath = "/etc/spherodrive.yaml"

type Config struct {
	Deadzone             float64       `yaml:"deadzone"`
	TickRateHz           float64       `yaml:"tickRate"`
	BatteryCheckInterval time.Duration `yaml:"batteryCheckInterval"`
	CalibrationStep      float64       `yaml:"calibrationStep"`

	Axes    AxisConfig    `yaml:"axes"`
	Buttons ButtonConfig  `yaml:"buttons"`
	Input   InputConfig   `yaml:"input"`
	Toy     ToyConfig     `yaml:"toy"`
	Display DisplayConfig `yaml:"display"`
	Sounds  SoundConfig   `yaml:"sounds"`
}

type AxisConfig struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

type ButtonConfig struct {
	// CalibrateUp adds CalibrationStep to the angle offset every tick it is held,
	// CalibrateDown subtracts it.
	CalibrateUp   int `yaml:"calibrateUp"`
	CalibrateDown int `yaml:"calibrateDown"`

	// Tiers selects speed tiers 1-4, in order.
	Tiers []int `yaml:"tiers"`

	// Quit requests shut down; -1 disables it.
	Quit int `yaml:"quit"`
}

type InputConfig struct {
	// Driver is "devinput" (Linux joystick API) or "portable".
	Driver string `yaml:"driver"`
	// Device is a glob for the devinput driver.
	Device string `yaml:"device"`
}

type ToyConfig struct {
	// Transport is one of "ble", "serial", "bridge" or "dummy".
	Transport     string        `yaml:"transport"`
	Name          string        `yaml:"name"`
	ScanTimeout   time.Duration `yaml:"scanTimeout"`
	SerialPort    string        `yaml:"serialPort"`
	Baud          int           `yaml:"baud"`
	BridgeCommand []string      `yaml:"bridgeCommand"`
}

type DisplayConfig struct {
	// Driver is one of "window", "framebuffer" or "none".
	Driver      string `yaml:"driver"`
	Framebuffer string `yaml:"framebuffer"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	ArrowSize   int    `yaml:"arrowSize"`
	ArrowImage  string `yaml:"arrowImage"`
}

type SoundConfig struct {
	// Dir holds connected.wav and tier1.wav..tier4.wav.  Empty disables sound.
	Dir string `yaml:"dir"`
}

func Default() Config {
	return Config{
		Deadzone:             heading.DefaultDeadzone,
		TickRateHz:           60,
		BatteryCheckInterval: 30 * time.Second,
		CalibrationStep:      2,
		Axes: AxisConfig{
			X: joystick.AxisLStickX,
			Y: joystick.AxisLStickY,
		},
		Buttons: ButtonConfig{
			CalibrateUp:   joystick.ButtonL1,
			CalibrateDown: joystick.ButtonR1,
			Tiers: []int{
				joystick.ButtonCross,
				joystick.ButtonCircle,
				joystick.ButtonTriangle,
				joystick.ButtonSquare,
			},
			Quit: joystick.ButtonPS,
		},
		Input: InputConfig{
			Driver: "devinput",
			Device: joystick.DefaultDeviceGlob,
		},
		Toy: ToyConfig{
			Transport:   "ble",
			ScanTimeout: 10 * time.Second,
			SerialPort:  "/dev/ttyS0",
			Baud:        115200,
		},
		Display: DisplayConfig{
			Driver:      "window",
			Framebuffer: "/dev/fb1",
			Width:       800,
			Height:      600,
			ArrowSize:   100,
		},
	}
}

// Load reads the file at path over the defaults.  A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		fmt.Println("No config file at", path, "using defaults")
		return cfg, nil
	} else if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse %s", path)
	}
	return cfg, nil
}

func (c *Config) TickRate() physic.Frequency {
	return physic.Frequency(c.TickRateHz * float64(physic.Hertz))
}

func (c *Config) Validate() error {
	if c.Deadzone < 0 || c.Deadzone >= 1 {
		return errors.Errorf("deadzone must be in [0, 1), not %v", c.Deadzone)
	}
	if c.TickRateHz <= 0 {
		return errors.Errorf("tick rate must be positive, not %v", c.TickRateHz)
	}
	if c.BatteryCheckInterval <= 0 {
		return errors.Errorf("battery check interval must be positive, not %v", c.BatteryCheckInterval)
	}
	if len(c.Buttons.Tiers) != 4 {
		return errors.Errorf("exactly 4 tier buttons are needed, got %v", c.Buttons.Tiers)
	}
	seen := map[int]bool{}
	for _, b := range c.Buttons.Tiers {
		if seen[b] {
			return errors.Errorf("tier button %d is used twice", b)
		}
		seen[b] = true
	}
	switch c.Input.Driver {
	case "devinput", "portable":
	default:
		return errors.Errorf("unknown input driver %q", c.Input.Driver)
	}
	switch c.Toy.Transport {
	case "ble", "serial", "dummy":
	case "bridge":
		if len(c.Toy.BridgeCommand) == 0 {
			return errors.New("bridge transport needs a bridgeCommand")
		}
	default:
		return errors.Errorf("unknown toy transport %q", c.Toy.Transport)
	}
	switch c.Display.Driver {
	case "window", "framebuffer", "none":
	default:
		return errors.Errorf("unknown display driver %q", c.Display.Driver)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return errors.Errorf("bad display size %dx%d", c.Display.Width, c.Display.Height)
	}
	return nil
}

func (c *Config) String() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("%#v", *c)
	}
	return string(out)
}
