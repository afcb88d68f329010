package flight

import (
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/navio.go/pkg/mixer"
	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
	"github.com/robotalks/navio.go/pkg/safety"
)

// MaxInterval is the longest cycle ESCs tolerate before they consider
// the signal lost.
const MaxInterval = 100 * time.Millisecond

// DefaultAutoThreshold: a mode sample above it selects AUTO.
const DefaultAutoThreshold rc.Sample = 1750

// Config defines the flight mixer parameters.
// A profile file uses the yaml keys below.
type Config struct {
	Interval      time.Duration `yaml:"interval"`
	PWMFrequency  int           `yaml:"pwm_frequency"`
	Range         pwm.Range     `yaml:"range"`
	Gains         mixer.Gains   `yaml:"gains"`
	Safety        safety.Policy `yaml:"safety"`
	AutoThreshold rc.Sample     `yaml:"auto_threshold"`
	Channels      rc.ChannelMap `yaml:"channels"`
	// ReportEvery prints one status line every N cycles, 0 disables.
	ReportEvery int `yaml:"report_every"`

	Profile string `yaml:"-"`
}

var defaultConfig = Config{
	Interval:      50 * time.Millisecond,
	PWMFrequency:  pwm.DefaultFrequency,
	Range:         pwm.MixerRange,
	Gains:         mixer.DefaultGains,
	Safety:        safety.DefaultPolicy,
	AutoThreshold: DefaultAutoThreshold,
	Channels:      rc.DefaultChannelMap,
	ReportEvery:   1,
}

func init() {
	if val := os.Getenv("NAVIO_PROFILE"); val != "" {
		defaultConfig.Profile = val
	}
}

type sampleValue struct {
	s *rc.Sample
}

func (v sampleValue) String() string {
	if v.s == nil {
		return ""
	}
	return strconv.Itoa(int(*v.s))
}

func (v sampleValue) Set(str string) error {
	n, err := strconv.Atoi(str)
	if err != nil {
		return err
	}
	*v.s = rc.Sample(n)
	return nil
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Control cycle interval, at most 100ms.")
	flag.IntVar(&defaultConfig.PWMFrequency, "pwm-freq", defaultConfig.PWMFrequency, "ESC PWM frequency in Hz.")
	flag.IntVar(&defaultConfig.Range.Min, "servo-min", defaultConfig.Range.Min, "Motor command lower bound in us.")
	flag.IntVar(&defaultConfig.Range.Max, "servo-max", defaultConfig.Range.Max, "Motor command upper bound in us.")
	flag.Var(sampleValue{&defaultConfig.Safety.CutThreshold}, "cut-threshold", "Safety switch above this cuts motors.")
	flag.Var(sampleValue{&defaultConfig.Safety.RearmThrottle}, "rearm-throttle", "While cut, the switch is honored again below this throttle.")
	flag.BoolVar(&defaultConfig.Safety.HoldWhileThrottle, "hold-cut", defaultConfig.Safety.HoldWhileThrottle, "Keep motors cut until throttle is low.")
	flag.Var(sampleValue{&defaultConfig.AutoThreshold}, "auto-threshold", "Mode switch above this reports AUTO.")
	flag.IntVar(&defaultConfig.ReportEvery, "report-every", defaultConfig.ReportEvery, "Print a status line every N cycles, 0 to disable.")
	flag.StringVar(&defaultConfig.Profile, "profile", defaultConfig.Profile, "YAML flight profile overriding the settings above.")
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// LoadProfile reads the profile file, if any. Keys present in the file
// override current values.
func (c *Config) LoadProfile() error {
	if c.Profile == "" {
		return nil
	}
	data, err := os.ReadFile(c.Profile)
	if err != nil {
		return fmt.Errorf("read profile: %w", err)
	}
	return c.ParseProfile(data)
}

// ParseProfile applies YAML profile content.
func (c *Config) ParseProfile(data []byte) error {
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse profile %s: %w", c.Profile, err)
	}
	return nil
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Interval <= 0 || c.Interval > MaxInterval {
		return fmt.Errorf("interval %v out of (0, %v]", c.Interval, MaxInterval)
	}
	if c.PWMFrequency <= 0 {
		return fmt.Errorf("pwm frequency %d must be positive", c.PWMFrequency)
	}
	if err := c.Range.Validate(); err != nil {
		return err
	}
	for name, g := range map[string]float64{"roll": c.Gains.Roll, "pitch": c.Gains.Pitch, "yaw": c.Gains.Yaw} {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("%s gain is not finite", name)
		}
	}
	if err := c.Safety.Validate(); err != nil {
		return err
	}
	if c.AutoThreshold <= 0 {
		return fmt.Errorf("auto threshold %d must be positive", c.AutoThreshold)
	}
	if c.ReportEvery < 0 {
		return fmt.Errorf("report every %d must not be negative", c.ReportEvery)
	}
	return c.Channels.Validate()
}
