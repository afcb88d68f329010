// Package flight drives the manual mixer: every cycle it samples the
// receiver, runs the safety gate and writes the four motor commands.
package flight

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/navio.go/pkg/flight/msgs"
	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/comm"
	"github.com/robotalks/navio.go/pkg/mixer"
	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
	"github.com/robotalks/navio.go/pkg/safety"
)

// Controller is the control loop driver.
type Controller struct {
	Config    *Config
	Name      string
	Input     rc.Input
	Output    pwm.Output
	Reporter  *Reporter
	Registrar l1.Registrar

	gate     *safety.Gate
	state    safety.State
	loop     *fx.Loop
	lastTick uint64
	cycles   uint64

	mode     Mode
	throttle rc.Sample
	motors   mixer.Motors

	status        msgs.FlightStatus
	statusChanged bool
}

// NewController creates a Controller. The status lines go to stdout.
func NewController(conf *Config, name string, in rc.Input, out pwm.Output) *Controller {
	return &Controller{
		Config:        conf,
		Name:          name,
		Input:         in,
		Output:        out,
		Reporter:      &Reporter{W: os.Stdout, Every: conf.ReportEvery},
		gate:          safety.NewGate(conf.Safety),
		motors:        mixer.Uniform(conf.Range.Min),
		statusChanged: true,
	}
}

// Init configures every motor output at the idle command, then the
// receiver. Any failure is fatal.
func (c *Controller) Init() error {
	if err := c.Config.Validate(); err != nil {
		return err
	}
	for ch := mixer.M1; ch < mixer.NumMotors; ch++ {
		if err := pwm.Setup(c.Output, ch, c.Config.PWMFrequency, c.Config.Range.Min); err != nil {
			return fmt.Errorf("motor M%d: %w", ch+1, err)
		}
	}
	if err := c.Input.Initialize(); err != nil {
		return fmt.Errorf("rc input: %w", err)
	}
	c.Reporter.Banner()
	return nil
}

// State returns the safety state of the last cycle.
func (c *Controller) State() safety.State {
	return c.state
}

// Motors returns the commands written by the last cycle.
func (c *Controller) Motors() mixer.Motors {
	return c.motors
}

// Cycles returns the number of completed cycles.
func (c *Controller) Cycles() uint64 {
	return c.cycles
}

func (c *Controller) read(channel int) (rc.Sample, error) {
	s, err := c.Input.Read(channel)
	if err == nil && !s.Valid() {
		s, err = rc.Failed(channel, nil)
	}
	return s, err
}

// Cycle runs one iteration. A read failure returns a halt error and
// leaves the outputs untouched.
func (c *Controller) Cycle() error {
	ch := c.Config.Channels
	throttle, err := c.read(ch.Throttle)
	if err != nil {
		return fx.Halt(fmt.Errorf("throttle: %w", err))
	}
	safetySample, err := c.read(ch.Safety)
	if err != nil {
		return fx.Halt(fmt.Errorf("safety: %w", err))
	}
	modeSample, err := c.read(ch.Mode)
	if err != nil {
		return fx.Halt(fmt.Errorf("mode: %w", err))
	}

	c.state = c.gate.Evaluate(c.state, safetySample, throttle)
	c.throttle = throttle
	c.mode = Manual
	if modeSample > c.Config.AutoThreshold {
		c.mode = Auto
	}

	if c.state.ForceCut() {
		c.cycles++
		err := c.write(mixer.Uniform(c.Config.Range.Min))
		c.Reporter.Cut()
		return err
	}

	roll, err := c.read(ch.Roll)
	if err != nil {
		return fx.Halt(fmt.Errorf("roll: %w", err))
	}
	pitch, err := c.read(ch.Pitch)
	if err != nil {
		return fx.Halt(fmt.Errorf("pitch: %w", err))
	}
	yaw, err := c.read(ch.Yaw)
	if err != nil {
		return fx.Halt(fmt.Errorf("yaw: %w", err))
	}
	offsets := c.Config.Gains.Offsets(roll, pitch, yaw)
	motors := mixer.Mix(int(throttle), offsets, c.Config.Range)
	c.cycles++
	err = c.write(motors)
	c.Reporter.Mixed(c.mode, throttle, offsets, motors)
	return err
}

func (c *Controller) write(motors mixer.Motors) error {
	c.motors = motors
	var errs fx.AggregatedError
	for ch, us := range motors {
		if err := c.Output.SetDutyCycle(ch, us); err != nil {
			errs.Add(fmt.Errorf("motor M%d: %w", ch+1, err))
		}
	}
	if glog.V(4) {
		glog.Infof("cycle %d %v motors %v", c.cycles, c.state, motors)
	}
	return errs.Aggregate()
}

// Shutdown forces all motors to idle, best effort.
func (c *Controller) Shutdown() error {
	return c.write(mixer.Uniform(c.Config.Range.Min))
}

// Stop ends the flight after the loop returned err. Motors are forced
// idle, except after a receiver failure which leaves the outputs as
// last written.
func (c *Controller) Stop(err error) error {
	if IsReadFailure(err) {
		glog.Warningf("receiver failed, outputs left at %v", c.motors)
		return nil
	}
	return c.Shutdown()
}

// AddToLoop implements LoopAdder.
func (c *Controller) AddToLoop(loop *fx.Loop) {
	c.loop = loop
	loop.AddController(fx.PrLvControl, c)
	loop.AddController(fx.PrLvPostProc, fx.ControlFunc(c.notifyStatusChange))
}

// Control implements Controller. The cycle runs once per scheduled
// tick; iterations triggered by messages only serve commands.
func (c *Controller) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		if msg, ok := mctx.CurrentMessage().(*l1.CommandMsg); ok {
			if _, ok := msg.Command.Msg().(*msgs.FlightStatusQuery); ok {
				mctx.MessageTaken()
				status := c.Status()
				if err := msg.Command.Done(&msgs.FlightStatusReply{Status: &status}); err != nil {
					glog.Warningf("reply status: %v", err)
				}
			}
		}
	}))
	if !cc.Scheduled() || cc.Tick() == c.lastTick {
		return nil
	}
	c.lastTick = cc.Tick()
	err := c.Cycle()
	c.updateStatus()
	return err
}

// Status returns the current status.
func (c *Controller) Status() msgs.FlightStatus {
	status := msgs.FlightStatus{
		Board:    c.Name,
		Armed:    c.state.Armed(),
		Held:     c.state.Held,
		Auto:     c.mode == Auto,
		Throttle: int32(c.throttle),
		Motors:   make([]int32, len(c.motors)),
		Cycles:   c.cycles,
	}
	for i, us := range c.motors {
		status.Motors[i] = int32(us)
	}
	if c.loop != nil {
		status.Overruns = c.loop.Overruns()
	}
	return status
}

func (c *Controller) updateStatus() {
	status := c.Status()
	if status.Armed != c.status.Armed || status.Held != c.status.Held || status.Auto != c.status.Auto {
		c.statusChanged = true
	}
	c.status = status
}

// notifyStatusChange publishes the status after it changed. Registrars
// never block the loop; a status dropped for a peer which is not keeping
// up is sent again next cycle.
func (c *Controller) notifyStatusChange(cc fx.ControlContext) error {
	if !c.statusChanged || c.Registrar == nil || c.cycles == 0 {
		return nil
	}
	status := c.status
	err := c.Registrar.SendEvent(cc.Context(), &status)
	c.statusChanged = errors.Is(err, comm.ErrOutboxFull)
	if c.statusChanged {
		glog.V(1).Infof("status not sent: %v", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("send status: %w", err)
	}
	return nil
}

// IsReadFailure tells if err stopped the loop because of the receiver.
func IsReadFailure(err error) bool {
	return fx.IsHalt(err) && errors.Is(err, rc.ErrReadFailed)
}
