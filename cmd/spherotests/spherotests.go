package main

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"periph.io/x/periph/conn/physic"

	"github.com/tigerbot-team/spherodrive/pkg/config"
	"github.com/tigerbot-team/spherodrive/pkg/sphero"
)

// Connects to a toy and sends it commands typed at a prompt.
func main() {
	cfg, err := config.Load(config.DefaultPath)
	if err != nil {
		fmt.Println("Failed to load config", err)
		return
	}
	var name string
	if len(os.Args) > 1 {
		name = os.Args[1]
	}
	if len(os.Args) > 2 {
		cfg.Toy.Transport = os.Args[2]
	}

	toy, err := sphero.Connect(cfg.Toy, name)
	if err != nil {
		fmt.Println("Failed to connect to toy", err)
		return
	}
	defer func() {
		_ = toy.Stop()
		_ = toy.Close()
	}()

	fmt.Println(
		`Commands:
    h <degrees>      # Set heading
    s <speed>        # Set speed 0-255
    c <r> <g> <b>    # Set front light colour
    g <char> <r> <g> <b>  # Show a character on the matrix
    b                # Read battery voltage
    x                # Stop
    z                # Put the toy to sleep

<r> <g> <b>      Colour components 0-255`)

	l, err := readline.New("> ")
	if err != nil {
		fmt.Println("Failed to open prompt", err)
		return
	}
	defer l.Close()
	for {
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
		switch parts[0] {
		case "h":
			if len(parts) < 2 {
				fmt.Println("Not enough parameters")
				continue
			}
			v, err := strconv.ParseFloat(parts[1], 64)
			if err != nil {
				fmt.Println("Expected float, not ", parts[1])
				continue
			}
			err = toy.SetHeading(v)
			report(err)
		case "s":
			if len(parts) < 2 {
				fmt.Println("Not enough parameters")
				continue
			}
			v, err := strconv.Atoi(parts[1])
			if err != nil || v < 0 || v > 255 {
				fmt.Println("Expected 0 <= speed <= 255, not ", parts[1])
				continue
			}
			report(toy.SetSpeed(v))
		case "c":
			c, ok := parseColour(parts[1:])
			if !ok {
				continue
			}
			report(toy.SetFrontColour(c))
		case "g":
			if len(parts) < 2 {
				fmt.Println("Not enough parameters")
				continue
			}
			c, ok := parseColour(parts[2:])
			if !ok {
				continue
			}
			report(toy.SetMatrixCharacter([]rune(parts[1])[0], c))
		case "b":
			v, err := toy.BatteryVoltage()
			if err != nil {
				fmt.Println("Battery check failed:", err)
				continue
			}
			fmt.Printf("Battery voltage: %.2fV\n", float64(v)/float64(physic.Volt))
		case "x":
			report(toy.Stop())
		case "z":
			t, ok := toy.(*sphero.Toy)
			if !ok {
				fmt.Println("Not a real toy")
				continue
			}
			report(t.Sleep())
		default:
			fmt.Println("Unknown command", parts[0])
		}
	}
}

func parseColour(parts []string) (color.RGBA, bool) {
	if len(parts) < 3 {
		fmt.Println("Not enough parameters")
		return color.RGBA{}, false
	}
	var rgb [3]uint8
	for i := range rgb {
		v, err := strconv.ParseUint(parts[i], 10, 8)
		if err != nil {
			fmt.Println("Expected 0-255, not ", parts[i])
			return color.RGBA{}, false
		}
		rgb[i] = uint8(v)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, true
}

func report(err error) {
	if err != nil {
		fmt.Println("Failed to send command: ", err)
	}
}
