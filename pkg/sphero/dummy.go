package sphero

import (
	"fmt"
	"image/color"

	"periph.io/x/periph/conn/physic"
)

// DummyVoltage is what the dummy toy reports as its battery level.
const DummyVoltage = 4 * physic.Volt

// Dummy returns a toy that just prints the commands it is given.
func Dummy(name string) Interface {
	return &dummyToy{name: name}
}

type dummyToy struct {
	name    string
	heading float64
	speed   int
}

func (d *dummyToy) SetFrontColour(c color.RGBA) error {
	fmt.Printf("Dummy toy %s front colour: r=%d g=%d b=%d\n", d.name, c.R, c.G, c.B)
	return nil
}

func (d *dummyToy) SetHeading(degrees float64) error {
	if degrees != d.heading {
		fmt.Printf("Dummy toy %s heading: %.1f\n", d.name, degrees)
	}
	d.heading = degrees
	return nil
}

func (d *dummyToy) SetSpeed(speed int) error {
	if speed != d.speed {
		fmt.Printf("Dummy toy %s speed: %d\n", d.name, speed)
	}
	d.speed = speed
	return nil
}

func (d *dummyToy) SetMatrixCharacter(ch rune, c color.RGBA) error {
	fmt.Printf("Dummy toy %s matrix: %q r=%d g=%d b=%d\n", d.name, ch, c.R, c.G, c.B)
	return nil
}

func (d *dummyToy) BatteryVoltage() (physic.ElectricPotential, error) {
	return DummyVoltage, nil
}

func (d *dummyToy) Stop() error {
	fmt.Printf("Dummy toy %s stop\n", d.name)
	d.speed = 0
	return nil
}

func (d *dummyToy) Close() error {
	fmt.Printf("Dummy toy %s disconnected\n", d.name)
	return nil
}
