package board

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"
)

// Config defines how the board is selected and opened.
type Config struct {
	Kind         Kind
	SkipPrecheck bool

	// Navio2
	SysfsRoot string

	// Navio+
	I2CBus string
	PPMPin string

	// Link
	LinkPort string
	LinkBaud int

	// Sim: joystick index feeding RC input, -1 for static channels.
	JoystickIndex int
}

var defaultConfig = Config{
	Kind:          Auto,
	SysfsRoot:     "/sys",
	I2CBus:        "",
	PPMPin:        "GPIO4",
	LinkPort:      "/dev/ttyAMA0",
	LinkBaud:      115200,
	JoystickIndex: -1,
}

type kindValue struct {
	kind *Kind
}

func (v kindValue) String() string {
	if v.kind == nil {
		return Auto.String()
	}
	return v.kind.String()
}

func (v kindValue) Set(s string) (err error) {
	*v.kind, err = ParseKind(s)
	return
}

func init() {
	if val := os.Getenv("NAVIO_BOARD"); val != "" {
		kind, err := ParseKind(val)
		if err != nil {
			glog.Warningf("NAVIO_BOARD ignored: %v", err)
		} else {
			defaultConfig.Kind = kind
		}
	}
	if val := os.Getenv("NAVIO_LINK_PORT"); val != "" {
		defaultConfig.LinkPort = val
	}
	if val := os.Getenv("NAVIO_LINK_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.LinkBaud = baud
		}
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.Var(kindValue{&defaultConfig.Kind}, "board", "Board: auto, navio2, navio+, link or sim.")
	flag.BoolVar(&defaultConfig.SkipPrecheck, "skip-precheck", defaultConfig.SkipPrecheck, "Skip root and ArduPilot checks.")
	flag.StringVar(&defaultConfig.SysfsRoot, "sysfs", defaultConfig.SysfsRoot, "Sysfs mount point (navio2).")
	flag.StringVar(&defaultConfig.I2CBus, "i2c-bus", defaultConfig.I2CBus, "I2C bus of the PWM generator, empty for the first one (navio+).")
	flag.StringVar(&defaultConfig.PPMPin, "ppm-pin", defaultConfig.PPMPin, "GPIO receiving the PPM stream (navio+).")
	flag.StringVar(&defaultConfig.LinkPort, "link-port", defaultConfig.LinkPort, "Serial port of the IO co-processor (link).")
	flag.IntVar(&defaultConfig.LinkBaud, "link-baud", defaultConfig.LinkBaud, "Serial baud rate (link).")
	flag.IntVar(&defaultConfig.JoystickIndex, "js-device", defaultConfig.JoystickIndex, "Joystick index feeding RC input, -1 for none (sim).")
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Resolve returns the concrete board kind, detecting it when Auto.
func (c *Config) Resolve() (Kind, error) {
	if c.Kind != Auto {
		return c.Kind, nil
	}
	return Detect()
}

// Open runs the precheck, resolves the kind and opens the board.
func (c *Config) Open() (*Board, error) {
	kind, err := c.Resolve()
	if err != nil {
		return nil, err
	}
	if !c.SkipPrecheck && kind != Sim {
		if err := Precheck(); err != nil {
			return nil, err
		}
	}
	factory, err := factoryOf(kind)
	if err != nil {
		return nil, err
	}
	b, err := factory(c)
	if err != nil {
		return nil, fmt.Errorf("open board %v: %w", kind, err)
	}
	b.Kind = kind
	glog.Infof("Board %v (%s) opened", kind, b.Name)
	return b, nil
}
