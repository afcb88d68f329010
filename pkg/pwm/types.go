// Package pwm defines the actuator side: ESC outputs driven by pulse width.
package pwm

import (
	"errors"
	"fmt"
)

// DefaultFrequency is the ESC update rate in Hz.
const DefaultFrequency = 400

var (
	// ErrChannel indicates the channel is not available on the output device.
	ErrChannel = errors.New("invalid pwm channel")
	// ErrNotEnabled indicates a duty cycle is written before Enable.
	ErrNotEnabled = errors.New("pwm channel not enabled")
)

// Output is a PWM generator. Duty cycles are pulse widths in microseconds.
type Output interface {
	Initialize(channel int) error
	SetFrequency(channel int, hz int) error
	Enable(channel int) error
	SetDutyCycle(channel int, us int) error
}

// Range is the valid command range of an actuator, in microseconds.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Common output ranges.
var (
	// MixerRange limits motors while flying with the manual mixer.
	MixerRange = Range{Min: 1000, Max: 1600}
	// FullRange is the full ESC travel used for spin tests and calibration.
	FullRange = Range{Min: 1000, Max: 2000}
)

// Clamp saturates us into the range.
func (r Range) Clamp(us int) int {
	if us < r.Min {
		return r.Min
	}
	if us > r.Max {
		return r.Max
	}
	return us
}

// Contains tells if us is within the range.
func (r Range) Contains(us int) bool {
	return us >= r.Min && us <= r.Max
}

// Validate checks the range is usable.
func (r Range) Validate() error {
	if r.Min <= 0 {
		return fmt.Errorf("pwm range min %d must be positive", r.Min)
	}
	if r.Min >= r.Max {
		return fmt.Errorf("pwm range min %d must be below max %d", r.Min, r.Max)
	}
	return nil
}

// String implements fmt.Stringer.
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]us", r.Min, r.Max)
}

// Setup initializes channel, sets frequency, enables it and writes the
// initial duty cycle.
func Setup(out Output, channel, hz, initial int) error {
	if err := out.Initialize(channel); err != nil {
		return fmt.Errorf("initialize pwm channel %d: %w", channel, err)
	}
	if err := out.SetFrequency(channel, hz); err != nil {
		return fmt.Errorf("set pwm channel %d frequency: %w", channel, err)
	}
	if err := out.Enable(channel); err != nil {
		return fmt.Errorf("enable pwm channel %d: %w", channel, err)
	}
	if err := out.SetDutyCycle(channel, initial); err != nil {
		return fmt.Errorf("set pwm channel %d duty cycle: %w", channel, err)
	}
	return nil
}
