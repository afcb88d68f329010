package navio2

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/navio.go/pkg/pwm"
)

// NumPWMChannels is the number of servo rail outputs.
const NumPWMChannels = 14

// ExportTimeout bounds the wait for the kernel to create an exported channel.
const ExportTimeout = time.Second

// ErrRCIONotAlive indicates the IO co-processor is not responding.
var ErrRCIONotAlive = errors.New("rcio is not alive")

// Output implements pwm.Output over the sysfs PWM class.
type Output struct {
	ChipDir  string
	AliveFn  string
	periodNs map[int]int
}

// NewOutput creates an Output under the sysfs root.
func NewOutput(sysfsRoot string) *Output {
	return &Output{
		ChipDir:  filepath.Join(sysfsRoot, "class", "pwm", "pwmchip0"),
		AliveFn:  filepath.Join(sysfsRoot, "kernel", "rcio", "status", "alive"),
		periodNs: make(map[int]int),
	}
}

func (o *Output) channelDir(ch int) string {
	return filepath.Join(o.ChipDir, fmt.Sprintf("pwm%d", ch))
}

func (o *Output) check(ch int) error {
	if ch < 0 || ch >= NumPWMChannels {
		return fmt.Errorf("%w: %d", pwm.ErrChannel, ch)
	}
	return nil
}

// Initialize implements pwm.Output. The channel is exported if needed.
func (o *Output) Initialize(ch int) error {
	if err := o.check(ch); err != nil {
		return err
	}
	if alive, err := readInt(o.AliveFn); err == nil && alive == 0 {
		return ErrRCIONotAlive
	}
	dir := o.channelDir(ch)
	if _, err := os.Stat(dir); err == nil {
		return nil
	}
	if err := writeValue(filepath.Join(o.ChipDir, "export"), ch); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	deadline := time.Now().Add(ExportTimeout)
	for {
		if _, err := os.Stat(filepath.Join(dir, "enable")); err == nil {
			glog.V(2).Infof("pwm%d exported", ch)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("pwm%d not exported after %v", ch, ExportTimeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// SetFrequency implements pwm.Output.
func (o *Output) SetFrequency(ch, hz int) error {
	if err := o.check(ch); err != nil {
		return err
	}
	if hz <= 0 {
		return fmt.Errorf("invalid frequency %d", hz)
	}
	period := int(time.Second) / hz
	if err := writeValue(filepath.Join(o.channelDir(ch), "period"), period); err != nil {
		return err
	}
	o.periodNs[ch] = period
	return nil
}

// Enable implements pwm.Output.
func (o *Output) Enable(ch int) error {
	if err := o.check(ch); err != nil {
		return err
	}
	return writeValue(filepath.Join(o.channelDir(ch), "enable"), 1)
}

// SetDutyCycle implements pwm.Output.
func (o *Output) SetDutyCycle(ch, us int) error {
	if err := o.check(ch); err != nil {
		return err
	}
	duty := us * int(time.Microsecond)
	if period, ok := o.periodNs[ch]; ok && duty > period {
		return fmt.Errorf("pwm%d duty %dus exceeds period %dns", ch, us, period)
	}
	return writeValue(filepath.Join(o.channelDir(ch), "duty_cycle"), duty)
}
