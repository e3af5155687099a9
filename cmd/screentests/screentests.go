package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/spherodrive/pkg/config"
	"github.com/tigerbot-team/spherodrive/pkg/screen"
	"github.com/tigerbot-team/spherodrive/pkg/speedtier"
)

// Draws status frames on the configured display, driven from a prompt.
func main() {
	cfg := config.Default()
	if len(os.Args) > 1 {
		cfg.Display.Driver = os.Args[1]
	}
	display, err := screen.Open(cfg.Display)
	if err != nil {
		fmt.Println("Failed to open display", err)
		return
	}
	defer display.Close()

	status := screen.Status{
		Tier:              speedtier.Default,
		Battery:           3950 * physic.MilliVolt,
		HaveBattery:       true,
		JoystickConnected: true,
		ToyName:           "SB-TEST",
	}

	fmt.Println(
		`Commands:
    h <degrees>   # Point the arrow
    o <degrees>   # Set the displayed angle offset
    t <1-4>       # Select a speed tier
    v <volts>     # Set the battery reading
    m             # Toggle moving
    j             # Toggle joystick connected`)

	l, err := readline.New("> ")
	if err != nil {
		fmt.Println("Failed to open prompt", err)
		return
	}
	defer l.Close()
	for {
		if err := display.Show(status); err != nil {
			fmt.Println("Screen failure: ", err)
		}
		if display.QuitRequested() {
			return
		}
		line, err := l.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return
		} else if err != nil {
			fmt.Println("\nFailed to read stdin: ", err)
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		var v float64
		if len(parts) > 1 {
			v, err = strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Println("Expected float, not ", parts[1])
				continue
			}
		}
		switch parts[0] {
		case "h":
			status.Heading = v
		case "o":
			status.Offset = v
		case "t":
			n := int(v)
			if n < 1 || n > len(speedtier.All) {
				fmt.Println("Expected 1 <= t <= 4")
				continue
			}
			status.Tier = speedtier.All[n-1]
			status.Speed = status.Tier.Speed
		case "v":
			status.Battery = physic.ElectricPotential(v * float64(physic.Volt))
		case "m":
			status.Moving = !status.Moving
		case "j":
			status.JoystickConnected = !status.JoystickConnected
		default:
			fmt.Println("Unknown command", parts[0])
		}
	}
}
