package esc

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/robotalks/navio.go/pkg/pwm"
)

// Config defines the ESC sequence to run.
type Config struct {
	Channel   int
	Frequency int
	Range     pwm.Range
	Feed      time.Duration
	Calibrate bool
}

var defaultConfig = Config{
	Frequency: pwm.DefaultFrequency,
	Range:     pwm.FullRange,
	Feed:      DefaultFeed,
}

func init() {
	if os.Getenv("NAVIO_ESC_CALIBRATE") == "1" {
		defaultConfig.Calibrate = true
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.Channel, "channel", defaultConfig.Channel, "PWM output channel of the ESC.")
	flag.IntVar(&defaultConfig.Frequency, "pwm-freq", defaultConfig.Frequency, "PWM frequency in Hz.")
	flag.IntVar(&defaultConfig.Range.Min, "servo-min", defaultConfig.Range.Min, "Lowest duty cycle in us.")
	flag.IntVar(&defaultConfig.Range.Max, "servo-max", defaultConfig.Range.Max, "Highest duty cycle in us.")
	flag.DurationVar(&defaultConfig.Feed, "feed", defaultConfig.Feed, "Duty cycle refresh interval, at most 100ms.")
	flag.BoolVar(&defaultConfig.Calibrate, "calibrate", defaultConfig.Calibrate, "Run the throttle calibration instead of the spin test.")
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// MaxFeed bounds the refresh interval ESCs tolerate without timing out.
const MaxFeed = 100 * time.Millisecond

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Feed <= 0 || c.Feed > MaxFeed {
		return fmt.Errorf("feed %v must be within (0, %v]", c.Feed, MaxFeed)
	}
	if c.Channel < 0 {
		return fmt.Errorf("invalid channel %d", c.Channel)
	}
	if c.Frequency <= 0 {
		return fmt.Errorf("invalid frequency %d", c.Frequency)
	}
	return c.Range.Validate()
}

// NewSequencer creates the Sequencer writing to out.
func (c *Config) NewSequencer(out pwm.Output) *Sequencer {
	phases := SpinTest
	if c.Calibrate {
		phases = Calibration
	}
	return &Sequencer{
		Output:    out,
		Channel:   c.Channel,
		Frequency: c.Frequency,
		Range:     c.Range,
		Feed:      c.Feed,
		Phases:    phases,
		W:         os.Stdout,
	}
}
