package main

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/tigerbot-team/spherodrive/pkg/config"
	"github.com/tigerbot-team/spherodrive/pkg/drivemode"
	"github.com/tigerbot-team/spherodrive/pkg/hardware"
	"github.com/tigerbot-team/spherodrive/pkg/joystick"
	"github.com/tigerbot-team/spherodrive/pkg/screen"
	"github.com/tigerbot-team/spherodrive/pkg/sound"
	"github.com/tigerbot-team/spherodrive/pkg/sphero"
)

var ErrNoJoystick = errors.New("no joystick detected")

var (
	joystickRetryInterval = time.Second
	forcedExitTimeout     = 5 * time.Second
)

func main() {
	app := cli.NewApp()
	app.Name = "spherodrive"
	app.Usage = "drive a Sphero toy with a game controller"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config",
			Usage:  "config file",
			Value:  config.DefaultPath,
			EnvVar: "SPHERODRIVE_CONFIG",
		},
		cli.StringFlag{
			Name:  "toy",
			Usage: "toy name, e.g. SB-1234; prompts if not given",
		},
		cli.StringFlag{
			Name:  "transport",
			Usage: "ble, serial, bridge or dummy",
		},
		cli.StringFlag{
			Name:  "display",
			Usage: "window, framebuffer or none",
		},
		cli.StringFlag{
			Name:   "joystick-device",
			Usage:  "joystick device glob for the devinput driver",
			EnvVar: "JOYSTICK_DEVICE",
		},
		cli.StringFlag{
			Name:  "input",
			Usage: "devinput or portable",
		},
		cli.BoolFlag{
			Name:  "wait-for-joystick",
			Usage: "wait for a joystick instead of exiting",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("toy") {
		cfg.Toy.Name = c.String("toy")
	}
	if c.IsSet("transport") {
		cfg.Toy.Transport = c.String("transport")
	}
	if c.IsSet("display") {
		cfg.Display.Driver = c.String("display")
	}
	if c.IsSet("joystick-device") {
		cfg.Input.Device = c.String("joystick-device")
	}
	if c.IsSet("input") {
		cfg.Input.Driver = c.String("input")
	}
	return cfg, cfg.Validate()
}

func run(c *cli.Context) error {
	fmt.Println("---- Sphero Drive ----")

	cfg, err := loadConfig(c)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("Bad config: %v", err), 1)
	}
	fmt.Printf("Using config:\n%s", cfg.String())

	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Hook Ctrl-C etc.  A forced exit skips our defers so it runs the hook first.
	hook := &shutdownHook{}
	registerSignalHandlers(cancel, hook)

	input := openInput(cfg)
	defer input.Close()
	if ok, err := requireJoystick(ctx, input, c.Bool("wait-for-joystick")); !ok {
		return err
	}

	name := cfg.Toy.Name
	if name == "" && cfg.Toy.Transport == "ble" {
		name, err = promptForToyName()
		if err != nil {
			fmt.Println("No toy name entered, exiting")
			return nil
		}
	}

	hw, name, err := connect(cfg, name)
	if errors.Is(err, sphero.ErrToyNotFound) {
		return cli.NewExitError(fmt.Sprintf("Could not find Sphero with name %s: %v", name, err), 1)
	} else if err != nil {
		return cli.NewExitError(fmt.Sprintf("Failed to connect to %s: %v", name, err), 1)
	}
	shutdown := func() {
		fmt.Println("Zeroing toy for shut down")
		if err := hw.Shutdown(); err != nil {
			fmt.Println("Shut down failed:", err)
		}
	}
	hook.Set(shutdown)
	defer shutdown()
	fmt.Printf("Connected to %s\n", name)

	// Green front light means ready.
	if err := hw.Toy().SetFrontColour(color.RGBA{G: 255, A: 255}); err != nil {
		return cli.NewExitError(fmt.Sprintf("Toy failure: %v", err), 1)
	}
	hw.PlaySound(sound.Connected)

	display, err := screen.Open(cfg.Display)
	if err != nil {
		fmt.Printf("Failed to open %s display, continuing without one: %v\n", cfg.Display.Driver, err)
		cfg.Display.Driver = "none"
		display, _ = screen.Open(cfg.Display)
	}
	defer display.Close()

	mode := drivemode.New(cfg, input, hw, display, name)
	fmt.Printf("----- %s -----\n", mode.Name())
	if err := mode.Run(ctx); err != nil {
		return cli.NewExitError(fmt.Sprintf("Drive failed: %v", err), 1)
	}
	fmt.Println("Drive finished")
	return nil
}

func openInput(cfg config.Config) joystick.Source {
	if cfg.Input.Driver == "portable" {
		return joystick.NewPortable(cfg.Buttons.Quit)
	}
	return joystick.NewDevInput(cfg.Input.Device, cfg.Buttons.Quit)
}

// requireJoystick reports whether startup should carry on.  If not, err is the exit error to
// return, nil when the wait was interrupted.
func requireJoystick(ctx context.Context, input joystick.Source, wait bool) (bool, error) {
	err := waitForJoystick(ctx, input, wait)
	if err == ErrNoJoystick {
		return false, cli.NewExitError("No joystick detected.", 1)
	} else if err != nil {
		fmt.Println("Interrupted while waiting for joystick")
		return false, nil
	}
	return true, nil
}

// waitForJoystick checks that at least one controller is connected.  If wait is set it keeps
// checking until one turns up or ctx is cancelled.
func waitForJoystick(ctx context.Context, input joystick.Source, wait bool) error {
	firstLog := true
	for {
		if _, err := input.PollEvents(); err != nil {
			return err
		}
		if id, ok := joystick.Primary(input); ok {
			fmt.Println("Joystick initialized: device", id)
			return nil
		}
		if !wait {
			return ErrNoJoystick
		}
		if firstLog {
			fmt.Println("Waiting for joystick...")
			firstLog = false
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(joystickRetryInterval):
		}
	}
}

func promptForToyName() (string, error) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:          "Enter Sphero toy name (e.g. SB-XXXX): ",
		InterruptPrompt: "^C",
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to open prompt")
	}
	defer l.Close()
	line, err := l.Readline()
	if err == readline.ErrInterrupt || err == io.EOF {
		return "", err
	} else if err != nil {
		return "", errors.Wrap(err, "failed to read toy name")
	}
	return strings.TrimSpace(line), nil
}

// connect returns the hardware and the name of the toy it found.
func connect(cfg config.Config, name string) (hardware.Interface, string, error) {
	if cfg.Toy.Transport == "dummy" {
		fmt.Println("Using dummy hardware")
		return hardware.NewDummy(name), name, nil
	}
	if name == "" {
		fmt.Println("Searching for any Sphero...")
	} else {
		fmt.Printf("Searching for %s...\n", name)
	}
	toy, err := sphero.Connect(cfg.Toy, name)
	if err != nil {
		return nil, name, err
	}
	if t, ok := toy.(*sphero.Toy); ok && t.Name != "" {
		name = t.Name
	}
	return hardware.New(toy, sound.InitSound(cfg.Sounds.Dir)), name, nil
}

// shutdownHook holds the clean up a forced exit must still do.
type shutdownHook struct {
	lock sync.Mutex
	f    func()
}

func (h *shutdownHook) Set(f func()) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.f = f
}

func (h *shutdownHook) Run() {
	h.lock.Lock()
	f := h.f
	h.lock.Unlock()
	if f != nil {
		f()
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc, hook *shutdownHook) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go handleSignals(signals, cancelFunc, hook, forcedExitTimeout, os.Exit)
}

// handleSignals cancels on the first signal.  A second signal, or the timeout, forces an exit once
// the hook has stopped the toy.
func handleSignals(signals <-chan os.Signal, cancelFunc context.CancelFunc, hook *shutdownHook,
	timeout time.Duration, exit func(int)) {
	s := <-signals
	log.Println("Signal: ", s)
	cancelFunc()
	select {
	case s = <-signals:
		log.Println("Second signal, exiting now: ", s)
	case <-time.After(timeout):
		log.Println("Shut down is taking too long, exiting")
	}
	hook.Run()
	exit(0)
}
