package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tigerbot-team/spherodrive/pkg/joystick"
)

// Prints controller hot-plug events and, twice a second, the state of the primary controller.
func main() {
	// Our global context, we cancel it to trigger shutdown.
	ctx, cancel := context.WithCancel(context.Background())

	// Hook Ctrl-C etc.
	registerSignalHandlers(cancel)

	var input joystick.Source
	if len(os.Args) > 1 && os.Args[1] == "portable" {
		input = joystick.NewPortable(joystick.ButtonPS)
	} else {
		jDev := os.Getenv("JOYSTICK_DEVICE")
		if jDev == "" {
			jDev = joystick.DefaultDeviceGlob
		}
		input = joystick.NewDevInput(jDev, joystick.ButtonPS)
	}
	defer input.Close()

	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()
	lastPrint := time.Now()
	for ctx.Err() == nil {
		<-ticker.C
		changes, err := input.PollEvents()
		if err != nil {
			fmt.Println("Failed to poll joystick:", err)
			return
		}
		for _, c := range changes {
			fmt.Println("Change:", c)
			if c.Kind == joystick.QuitRequested {
				return
			}
		}
		if time.Since(lastPrint) < 500*time.Millisecond {
			continue
		}
		lastPrint = time.Now()
		id, ok := joystick.Primary(input)
		if !ok {
			fmt.Println("No joystick")
			continue
		}
		var pressed []int
		for b := joystick.ButtonCross; b <= joystick.ButtonRStick; b++ {
			if input.Button(id, b) {
				pressed = append(pressed, b)
			}
		}
		fmt.Printf("Device %d: L=(%.2f, %.2f) R=(%.2f, %.2f) buttons=%v\n", id,
			input.Axis(id, joystick.AxisLStickX), input.Axis(id, joystick.AxisLStickY),
			input.Axis(id, joystick.AxisRStickX), input.Axis(id, joystick.AxisRStickY),
			pressed)
	}
}

func registerSignalHandlers(cancelFunc context.CancelFunc) {
	// Hook Ctrl-C to cause shut down.
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		s := <-signals
		log.Println("Signal: ", s)
		cancelFunc()
		time.Sleep(2 * time.Second)
		os.Exit(0)
	}()
}
