package sim

import (
	"fmt"
	"sync"

	"github.com/robotalks/navio.go/pkg/pwm"
)

// Write is a recorded duty cycle write.
type Write struct {
	Channel int
	Us      int
}

type channelState struct {
	initialized bool
	enabled     bool
	hz          int
	us          int
}

// Output is a pwm.Output recording all writes.
type Output struct {
	// Channels is the number of outputs, 0 for unlimited.
	Channels int

	lock     sync.Mutex
	channels map[int]*channelState
	writes   []Write
	failing  map[int]error
}

// NewOutput creates an Output with n channels.
func NewOutput(n int) *Output {
	return &Output{
		Channels: n,
		channels: make(map[int]*channelState),
		failing:  make(map[int]error),
	}
}

func (o *Output) channel(ch int) (*channelState, error) {
	if ch < 0 || (o.Channels > 0 && ch >= o.Channels) {
		return nil, fmt.Errorf("%w: %d", pwm.ErrChannel, ch)
	}
	if err := o.failing[ch]; err != nil {
		return nil, err
	}
	st := o.channels[ch]
	if st == nil {
		st = &channelState{}
		o.channels[ch] = st
	}
	return st, nil
}

// FailChannel makes every operation on ch return err.
func (o *Output) FailChannel(ch int, err error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.failing[ch] = err
}

// Initialize implements pwm.Output.
func (o *Output) Initialize(ch int) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	st, err := o.channel(ch)
	if err == nil {
		st.initialized = true
	}
	return err
}

// SetFrequency implements pwm.Output.
func (o *Output) SetFrequency(ch, hz int) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	st, err := o.channel(ch)
	if err == nil {
		st.hz = hz
	}
	return err
}

// Enable implements pwm.Output.
func (o *Output) Enable(ch int) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	st, err := o.channel(ch)
	if err != nil {
		return err
	}
	if !st.initialized {
		return fmt.Errorf("pwm channel %d not initialized", ch)
	}
	st.enabled = true
	return nil
}

// SetDutyCycle implements pwm.Output.
func (o *Output) SetDutyCycle(ch, us int) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	st, err := o.channel(ch)
	if err != nil {
		return err
	}
	if !st.enabled {
		return fmt.Errorf("%w: %d", pwm.ErrNotEnabled, ch)
	}
	st.us = us
	o.writes = append(o.writes, Write{Channel: ch, Us: us})
	return nil
}

// Writes returns all recorded writes.
func (o *Output) Writes() []Write {
	o.lock.Lock()
	defer o.lock.Unlock()
	return append([]Write(nil), o.writes...)
}

// Reset clears recorded writes.
func (o *Output) Reset() {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.writes = nil
}

// Duty returns the last duty cycle written to ch.
func (o *Output) Duty(ch int) int {
	o.lock.Lock()
	defer o.lock.Unlock()
	if st := o.channels[ch]; st != nil {
		return st.us
	}
	return 0
}

// Frequency returns the frequency of ch.
func (o *Output) Frequency(ch int) int {
	o.lock.Lock()
	defer o.lock.Unlock()
	if st := o.channels[ch]; st != nil {
		return st.hz
	}
	return 0
}

// Enabled tells if ch is enabled.
func (o *Output) Enabled(ch int) bool {
	o.lock.Lock()
	defer o.lock.Unlock()
	st := o.channels[ch]
	return st != nil && st.enabled
}
