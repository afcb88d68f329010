// Package esc runs fixed duty cycle sequences on a single ESC: a short
// spin test, or the throttle range calibration most ESCs support.
package esc

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/pwm"
)

// Calibration duty cycles in us.
const (
	ServoMin  = 1000
	ServoMax  = 2000
	ServoIdle = 1100
	ServoTest = 1250
)

// DefaultFeed is how often the duty cycle is re-written.
const DefaultFeed = 50 * time.Millisecond

// ErrComplete halts the loop once the sequence is done.
var ErrComplete = errors.New("sequence complete")

// Phase holds a duty cycle for a while.
type Phase struct {
	Message string
	Duty    int
	Hold    time.Duration
}

// Feeds returns the number of writes of the phase, at least one.
func (p Phase) Feeds(feed time.Duration) int {
	if feed <= 0 || p.Hold <= 0 {
		return 1
	}
	if n := int(p.Hold / feed); n > 0 {
		return n
	}
	return 1
}

// SpinTest idles the motor then spins it slowly.
var SpinTest = []Phase{
	{"Starting zero throttle for 2 seconds.", ServoMin, 2 * time.Second},
	{"Sending command - for 2 seconds", ServoTest, 2 * time.Second},
}

// Calibration teaches the ESC the throttle range. Power must be
// applied to the ESC while the maximum is held.
var Calibration = []Phase{
	{"Setting max thrust now - Plug Power Supply NOW.", ServoMax, 10 * time.Second},
	{"Setting min thrust now - holding for 10 seconds", ServoMin, 10 * time.Second},
	{"Holding idle - for 10 seconds", ServoIdle, 10 * time.Second},
	{"Test Speed - for 10 seconds", ServoMin, 10 * time.Second},
}

// Sequencer writes Phases to one output channel, one write per tick.
type Sequencer struct {
	Output    pwm.Output
	Channel   int
	Frequency int
	Range     pwm.Range
	Feed      time.Duration
	Phases    []Phase
	W         io.Writer

	phase    int
	fed      int
	stopped  bool
	lastTick uint64
}

// Init prepares the output channel. No duty cycle is written until
// the first step.
func (s *Sequencer) Init() error {
	if err := s.Range.Validate(); err != nil {
		return err
	}
	for n, p := range s.Phases {
		if !s.Range.Contains(p.Duty) {
			return fmt.Errorf("phase %d duty %d out of %v", n, p.Duty, s.Range)
		}
	}
	if err := s.Output.Initialize(s.Channel); err != nil {
		return fmt.Errorf("initialize pwm channel %d: %w", s.Channel, err)
	}
	if err := s.Output.SetFrequency(s.Channel, s.Frequency); err != nil {
		return fmt.Errorf("set pwm channel %d frequency: %w", s.Channel, err)
	}
	if err := s.Output.Enable(s.Channel); err != nil {
		return fmt.Errorf("enable pwm channel %d: %w", s.Channel, err)
	}
	return nil
}

// Duration returns the expected length of the sequence.
func (s *Sequencer) Duration() time.Duration {
	var n int
	for _, p := range s.Phases {
		n += p.Feeds(s.Feed)
	}
	return time.Duration(n+1) * s.Feed
}

// Step writes the next duty cycle. It returns true after the final
// stop command is written.
func (s *Sequencer) Step() (bool, error) {
	if s.phase >= len(s.Phases) {
		if !s.stopped {
			s.stopped = true
			fmt.Fprintln(s.W, "Stop")
			return true, s.Output.SetDutyCycle(s.Channel, s.Range.Min)
		}
		return true, nil
	}
	p := s.Phases[s.phase]
	if s.fed == 0 {
		fmt.Fprintln(s.W, p.Message)
	}
	s.fed++
	if s.fed >= p.Feeds(s.Feed) {
		s.phase++
		s.fed = 0
	}
	glog.V(4).Infof("phase %d duty %d", s.phase, p.Duty)
	return false, s.Output.SetDutyCycle(s.Channel, s.Range.Clamp(p.Duty))
}

// AddToLoop implements LoopAdder.
func (s *Sequencer) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvActuate, s)
}

// Control implements Controller.
func (s *Sequencer) Control(cc fx.ControlContext) error {
	if !cc.Scheduled() || cc.Tick() == s.lastTick {
		return nil
	}
	s.lastTick = cc.Tick()
	done, err := s.Step()
	if err != nil {
		return fx.Halt(err)
	}
	if done {
		return fx.Halt(ErrComplete)
	}
	return nil
}
