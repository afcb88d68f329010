package navioplus

import (
	"fmt"
	"math"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/navio.go/pkg/pwm"
)

const (
	// NumPWMChannels is the number of servo rail outputs.
	NumPWMChannels = 13
	// channelOffset maps rail output 0 to the PCA9685 channel it is wired to.
	channelOffset = 3
	counts        = 4096
	// The PCA9685 on Navio+ runs from a 24.576MHz oscillator while the
	// driver computes the prescaler for the 25MHz internal one.
	oscillatorHz = 24576000
	driverOscHz  = 25000000
)

// Controller is the part of a pca9685.Dev used by Output.
type Controller interface {
	SetPwmFreq(freq physic.Frequency) error
	SetPwm(channel int, on, off gpio.Duty) error
}

// Output implements pwm.Output over the PCA9685.
// Frequency is shared by all channels of the chip.
type Output struct {
	Dev Controller
	// EnableOutputs is invoked on first Enable, driving the chip's
	// output enable line.
	EnableOutputs func() error

	hz         int
	outEnabled bool
	enabled    map[int]bool
}

// NewOutput creates an Output driving dev.
func NewOutput(dev Controller, enableOutputs func() error) *Output {
	return &Output{Dev: dev, EnableOutputs: enableOutputs, enabled: make(map[int]bool)}
}

func (o *Output) check(ch int) error {
	if ch < 0 || ch >= NumPWMChannels {
		return fmt.Errorf("%w: %d", pwm.ErrChannel, ch)
	}
	return nil
}

// Initialize implements pwm.Output.
func (o *Output) Initialize(ch int) error {
	return o.check(ch)
}

// SetFrequency implements pwm.Output.
func (o *Output) SetFrequency(ch, hz int) error {
	if err := o.check(ch); err != nil {
		return err
	}
	if hz <= 0 {
		return fmt.Errorf("invalid frequency %d", hz)
	}
	if o.hz == hz {
		return nil
	}
	freq := physic.Frequency(int64(hz)*driverOscHz/oscillatorHz) * physic.Hertz
	if err := o.Dev.SetPwmFreq(freq); err != nil {
		return err
	}
	o.hz = hz
	return nil
}

// Enable implements pwm.Output.
func (o *Output) Enable(ch int) error {
	if err := o.check(ch); err != nil {
		return err
	}
	if !o.outEnabled && o.EnableOutputs != nil {
		if err := o.EnableOutputs(); err != nil {
			return err
		}
	}
	o.outEnabled = true
	o.enabled[ch] = true
	return nil
}

// SetDutyCycle implements pwm.Output.
func (o *Output) SetDutyCycle(ch, us int) error {
	if err := o.check(ch); err != nil {
		return err
	}
	if !o.enabled[ch] || o.hz == 0 {
		return fmt.Errorf("%w: %d", pwm.ErrNotEnabled, ch)
	}
	return o.Dev.SetPwm(ch+channelOffset, 0, gpio.Duty(DutyCounts(us, o.hz)))
}

// DutyCounts converts a pulse width to PCA9685 counts at frequency hz.
func DutyCounts(us, hz int) int {
	n := int(math.Round(float64(us)*counts*float64(hz)/1e6)) - 1
	if n < 0 {
		return 0
	}
	if n >= counts {
		return counts - 1
	}
	return n
}
