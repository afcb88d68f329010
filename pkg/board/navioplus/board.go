// Package navioplus drives the Navio+: servo outputs through a PCA9685 on
// I2C and the RC receiver through PPM timed on a GPIO.
package navioplus

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/pca9685"
	"periph.io/x/host/v3"

	"github.com/robotalks/navio.go/pkg/board"
)

// OutputEnablePin is the active low output enable of the PCA9685.
const OutputEnablePin = "GPIO27"

// New opens the Navio+ board.
func New(conf *board.Config) (*board.Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph init: %w", err)
	}
	bus, err := i2creg.Open(conf.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", conf.I2CBus, err)
	}
	b := &board.Board{Name: "Navio+"}
	b.OnClose(bus.Close)

	dev, err := pca9685.NewI2C(bus, pca9685.I2CAddr)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("pca9685: %w", err)
	}
	oe := gpioreg.ByName(OutputEnablePin)
	if oe == nil {
		b.Close()
		return nil, fmt.Errorf("gpio %s not found", OutputEnablePin)
	}
	b.Output = NewOutput(dev, func() error { return oe.Out(gpio.Low) })
	b.OnClose(func() error { return oe.Out(gpio.High) })

	ppm := gpioreg.ByName(conf.PPMPin)
	if ppm == nil {
		b.Close()
		return nil, fmt.Errorf("gpio %s not found", conf.PPMPin)
	}
	if err := ppm.In(gpio.Float, gpio.RisingEdge); err != nil {
		b.Close()
		return nil, fmt.Errorf("ppm pin %s: %w", conf.PPMPin, err)
	}
	in := NewPPMInput(ppm)
	b.Input = in
	b.OnClose(in.Close)
	b.OnClose(ppm.Halt)
	return b, nil
}

func init() {
	board.Register(board.NavioPlus, New)
}
