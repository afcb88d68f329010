package flight

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/navio.go/pkg/board/sim"
	"github.com/robotalks/navio.go/pkg/flight/msgs"
	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/comm"
	"github.com/robotalks/navio.go/pkg/l1/comm/stream"
	l1msgs "github.com/robotalks/navio.go/pkg/l1/msgs"
	"github.com/robotalks/navio.go/pkg/mixer"
	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
)

type testRig struct {
	in  *sim.Input
	out *sim.Output
	buf bytes.Buffer
	ctl *Controller
}

func newRig(t *testing.T, conf *Config) *testRig {
	if conf == nil {
		conf = NewConfig()
	}
	r := &testRig{
		in:  sim.NewInput(nil),
		out: sim.NewOutput(sim.NumOutputs),
	}
	r.ctl = NewController(conf, "sim", r.in, r.out)
	r.ctl.Reporter = NewReporter(&r.buf)
	require.NoError(t, r.ctl.Init())
	r.out.Reset()
	r.buf.Reset()
	return r
}

// sticks sets throttle, roll, pitch, yaw, safety and mode.
func (r *testRig) sticks(throttle, roll, pitch, yaw, safety, mode rc.Sample) {
	ch := r.ctl.Config.Channels
	r.in.Set(ch.Throttle, throttle)
	r.in.Set(ch.Roll, roll)
	r.in.Set(ch.Pitch, pitch)
	r.in.Set(ch.Yaw, yaw)
	r.in.Set(ch.Safety, safety)
	r.in.Set(ch.Mode, mode)
}

func (r *testRig) duties() mixer.Motors {
	var m mixer.Motors
	for ch := range m {
		m[ch] = r.out.Duty(ch)
	}
	return m
}

func TestInit(t *testing.T) {
	in, out := sim.NewInput(nil), sim.NewOutput(sim.NumOutputs)
	var buf bytes.Buffer
	ctl := NewController(NewConfig(), "sim", in, out)
	ctl.Reporter = NewReporter(&buf)
	require.NoError(t, ctl.Init())
	for ch := mixer.M1; ch < mixer.NumMotors; ch++ {
		require.True(t, out.Enabled(ch))
		require.Equal(t, pwm.DefaultFrequency, out.Frequency(ch))
		require.Equal(t, 1000, out.Duty(ch))
	}
	require.False(t, out.Enabled(mixer.NumMotors))
	require.Equal(t, "Manual flight mixer started.\nSafety ON = motors cut.\n", buf.String())
	_, err := in.Read(0)
	require.NoError(t, err)
}

func TestInitFailure(t *testing.T) {
	in, out := sim.NewInput(nil), sim.NewOutput(sim.NumOutputs)
	out.FailChannel(2, errors.New("no such pwm"))
	ctl := NewController(NewConfig(), "sim", in, out)
	ctl.Reporter = NewReporter(&bytes.Buffer{})
	err := ctl.Init()
	require.EqualError(t, err, "motor M3: initialize pwm channel 2: no such pwm")
	_, err = in.Read(0)
	require.True(t, errors.Is(err, rc.ErrNotInitialized))

	conf := NewConfig()
	conf.Interval = 0
	ctl = NewController(conf, "sim", sim.NewInput(nil), sim.NewOutput(4))
	require.Error(t, ctl.Init())
}

func TestCycleCentered(t *testing.T) {
	r := newRig(t, nil)
	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	require.NoError(t, r.ctl.Cycle())
	require.Equal(t, mixer.Uniform(1500), r.duties())
	require.Equal(t, mixer.Uniform(1500), r.ctl.Motors())
	require.True(t, r.ctl.State().Armed())
	require.Equal(t, "[MANUAL] T:1500 | R:0.00 P:0.00 Y:0.00 | M:1500 1500 1500 1500\n", r.buf.String())
	require.Len(t, r.out.Writes(), mixer.NumMotors)
}

func TestCycleMix(t *testing.T) {
	r := newRig(t, nil)
	r.sticks(1500, 1600, 1400, 1550, 1000, 1900)
	require.NoError(t, r.ctl.Cycle())
	require.Equal(t, mixer.Motors{1470, 1550, 1470, 1510}, r.duties())
	require.Equal(t, "[AUTO] T:1500 | R:10.00 P:30.00 Y:10.00 | M:1470 1550 1470 1510\n", r.buf.String())
	require.Equal(t, []sim.Write{{Channel: 0, Us: 1470}, {Channel: 1, Us: 1550}, {Channel: 2, Us: 1470}, {Channel: 3, Us: 1510}}, r.out.Writes())
}

func TestCycleSaturates(t *testing.T) {
	r := newRig(t, nil)
	r.sticks(2000, 2000, 1000, 2000, 1000, 1000)
	require.NoError(t, r.ctl.Cycle())
	for _, us := range r.duties() {
		require.True(t, pwm.MixerRange.Contains(us), "%d", us)
	}
}

func TestSafetyCutDominates(t *testing.T) {
	cases := []struct {
		name                       string
		throttle, roll, pitch, yaw rc.Sample
	}{
		{"centered", 1500, 1500, 1500, 1500},
		{"full", 2000, 2000, 2000, 2000},
		{"low", 1000, 1000, 1000, 1000},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := newRig(t, nil)
			r.sticks(c.throttle, c.roll, c.pitch, c.yaw, 1800, 1000)
			require.NoError(t, r.ctl.Cycle())
			require.Equal(t, mixer.Uniform(1000), r.duties())
			require.True(t, r.ctl.State().ForceCut())
			require.Equal(t, "[SAFETY] Motors cut\n", r.buf.String())
			// sticks are not sampled while cut.
			require.NotContains(t, r.in.Reads(), r.ctl.Config.Channels.Roll)
		})
	}
}

func TestReadFailureIsFatal(t *testing.T) {
	ch := rc.DefaultChannelMap
	for name, channel := range map[string]int{
		"throttle": ch.Throttle,
		"safety":   ch.Safety,
		"mode":     ch.Mode,
		"roll":     ch.Roll,
		"pitch":    ch.Pitch,
		"yaw":      ch.Yaw,
	} {
		t.Run(name, func(t *testing.T) {
			r := newRig(t, nil)
			r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
			r.in.Fail(channel)
			err := r.ctl.Cycle()
			require.Error(t, err)
			require.True(t, fx.IsHalt(err))
			require.True(t, IsReadFailure(err))
			require.Contains(t, err.Error(), name)
			require.Empty(t, r.out.Writes())
			require.Empty(t, r.buf.String())
		})
	}
}

type sentinelInput struct {
	*sim.Input
	channel int
}

func (in *sentinelInput) Read(channel int) (rc.Sample, error) {
	if channel == in.channel {
		return rc.ReadFailure, nil
	}
	return in.Input.Read(channel)
}

func TestReadFailureSentinel(t *testing.T) {
	in := &sentinelInput{Input: sim.NewInput(nil), channel: rc.DefaultChannelMap.Throttle}
	out := sim.NewOutput(4)
	ctl := NewController(NewConfig(), "sim", in, out)
	ctl.Reporter = NewReporter(&bytes.Buffer{})
	require.NoError(t, ctl.Init())
	out.Reset()
	err := ctl.Cycle()
	require.True(t, IsReadFailure(err))
	require.Empty(t, out.Writes())
}

func TestRearmHysteresis(t *testing.T) {
	r := newRig(t, nil)

	r.sticks(1500, 1500, 1500, 1500, 1800, 1000)
	require.NoError(t, r.ctl.Cycle())
	require.True(t, r.ctl.State().Cut)
	require.False(t, r.ctl.State().Held)

	// switch released with throttle up: stay cut.
	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	require.NoError(t, r.ctl.Cycle())
	require.True(t, r.ctl.State().Cut)
	require.True(t, r.ctl.State().Held)
	require.Equal(t, mixer.Uniform(1000), r.duties())

	// throttle down: switch honored again.
	r.sticks(1000, 1500, 1500, 1500, 1000, 1000)
	require.NoError(t, r.ctl.Cycle())
	require.True(t, r.ctl.State().Armed())

	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	require.NoError(t, r.ctl.Cycle())
	require.Equal(t, mixer.Uniform(1500), r.duties())
}

func TestRearmWithoutHold(t *testing.T) {
	conf := NewConfig()
	conf.Safety.HoldWhileThrottle = false
	r := newRig(t, conf)
	r.sticks(1500, 1500, 1500, 1500, 1800, 1000)
	require.NoError(t, r.ctl.Cycle())
	require.True(t, r.ctl.State().Cut)
	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	require.NoError(t, r.ctl.Cycle())
	require.True(t, r.ctl.State().Armed())
	require.Equal(t, mixer.Uniform(1500), r.duties())
}

func TestShutdown(t *testing.T) {
	r := newRig(t, nil)
	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	require.NoError(t, r.ctl.Cycle())
	require.NoError(t, r.ctl.Shutdown())
	require.Equal(t, mixer.Uniform(1000), r.duties())
}

func TestStopAfterReadFailure(t *testing.T) {
	r := newRig(t, nil)
	r.sticks(1600, 1500, 1500, 1500, 1000, 1000)
	require.NoError(t, r.ctl.Cycle())
	r.in.Fail(r.ctl.Config.Channels.Throttle)
	err := r.ctl.Cycle()
	require.True(t, IsReadFailure(err))
	r.out.Reset()
	require.NoError(t, r.ctl.Stop(err))
	require.Empty(t, r.out.Writes())
	require.Equal(t, mixer.Uniform(1600), r.duties())

	require.NoError(t, r.ctl.Stop(context.Canceled))
	require.Equal(t, mixer.Uniform(1000), r.duties())
}

type recordingRegistrar struct {
	events []*msgs.FlightStatus
}

func (r *recordingRegistrar) SendEvent(_ context.Context, msg fx.Message) error {
	r.events = append(r.events, msg.(*msgs.FlightStatus))
	return nil
}

type testCommand struct {
	msg   fx.Message
	reply fx.Message
}

func (c *testCommand) Msg() fx.Message { return c.msg }

func (c *testCommand) Done(reply fx.Message) error {
	c.reply = reply
	return nil
}

func TestLoopIntegration(t *testing.T) {
	r := newRig(t, nil)
	reg := &recordingRegistrar{}
	r.ctl.Registrar = reg
	loop := fx.NewLoop().WithInterval(r.ctl.Config.Interval)
	loop.Add(r.ctl)
	ctx := context.Background()

	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	require.NoError(t, loop.RunOnce(ctx))
	require.NoError(t, loop.RunOnce(ctx))
	require.Equal(t, uint64(2), r.ctl.Cycles())
	require.Len(t, reg.events, 1)
	require.True(t, reg.events[0].Armed)
	require.Equal(t, []int32{1500, 1500, 1500, 1500}, reg.events[0].Motors)

	r.sticks(1500, 1500, 1500, 1500, 1800, 1900)
	require.NoError(t, loop.RunOnce(ctx))
	require.Len(t, reg.events, 2)
	require.False(t, reg.events[1].Armed)
	require.True(t, reg.events[1].Auto)

	cmd := &testCommand{msg: &msgs.FlightStatusQuery{}}
	loop.PostMessage(&l1.CommandMsg{Command: cmd})
	require.NoError(t, loop.RunOnce(ctx))
	reply, ok := cmd.reply.(*msgs.FlightStatusReply)
	require.True(t, ok)
	require.Equal(t, "sim", reply.Status.Board)
	require.False(t, reply.Status.Armed)
	require.Equal(t, uint64(3), reply.Status.Cycles)

	r.in.Fail(r.ctl.Config.Channels.Safety)
	err := loop.RunOnce(ctx)
	require.True(t, IsReadFailure(err))
	require.Equal(t, uint64(4), r.ctl.Cycles())
}

func TestTriggeredIterationSkipsCycle(t *testing.T) {
	r := newRig(t, nil)
	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := &testCommand{msg: &msgs.FlightStatusQuery{}}
	done := make(chan struct{})
	loop := fx.NewLoop().WithInterval(MaxInterval * 100)
	loop.Add(r.ctl)
	loop.AddController(fx.PrLvIdle, fx.ControlFunc(func(cc fx.ControlContext) error {
		if cmd.reply != nil {
			close(done)
			cancel()
		}
		return nil
	}))
	loop.PostMessage(&l1.CommandMsg{Command: cmd})
	loop.TriggerNext()
	require.Equal(t, context.Canceled, loop.Run(ctx))
	<-done
	require.Equal(t, uint64(0), r.ctl.Cycles())
	require.Empty(t, r.out.Writes())
}

func TestStalledStationDoesNotBlockCut(t *testing.T) {
	r := newRig(t, nil)
	ctlEnd, stationEnd := net.Pipe()
	// the station never reads.
	defer stationEnd.Close()
	reg := comm.NewRegistrar(stream.New(ctlEnd))
	r.ctl.Registrar = reg

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loop := fx.NewLoop().WithInterval(20*time.Millisecond).Add(reg, r.ctl)
	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	stopped := make(chan error, 1)
	go func() { stopped <- loop.Run(ctx) }()

	require.Eventually(t, func() bool {
		return r.duties() == mixer.Uniform(1500)
	}, time.Second, 5*time.Millisecond)
	for reg.SendEvent(ctx, &msgs.FlightStatus{}) == nil {
	}
	require.NotZero(t, reg.Dropped())

	r.sticks(1500, 1500, 1500, 1500, 1800, 1000)
	require.Eventually(t, func() bool {
		return r.duties() == mixer.Uniform(1000)
	}, time.Second, 5*time.Millisecond)
	writes := len(r.out.Writes())
	require.Eventually(t, func() bool {
		return len(r.out.Writes()) > writes
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-stopped:
		require.Equal(t, context.Canceled, err)
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}

func TestStationOverStream(t *testing.T) {
	r := newRig(t, nil)
	ctlEnd, stationEnd := net.Pipe()
	reg := comm.NewRegistrar(stream.New(ctlEnd))
	r.ctl.Registrar = reg

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.sticks(1500, 1500, 1500, 1500, 1000, 1000)
	ctlLoop := fx.NewLoop().WithInterval(20*time.Millisecond).Add(reg, r.ctl, &comm.UnsupportedCommands{})
	go ctlLoop.Run(ctx)

	connector := &comm.DirectConnector{
		Info: l1.ControllerInfo{Ref: l1.ControllerRef{Type: "quad", ID: "sim"}},
		Dial: func(context.Context) (comm.PacketReadWriter, error) {
			return stream.New(stationEnd), nil
		},
	}
	conn, err := connector.Connect(ctx, connector.Info.Ref)
	require.NoError(t, err)
	events := make(chan *msgs.FlightStatus, 16)
	stationLoop := fx.NewLoop().WithInterval(10 * time.Millisecond)
	stationLoop.Add(conn.(fx.LoopAdder))
	stationLoop.AddController(fx.PrLvControl, fx.ControlFunc(func(cc fx.ControlContext) error {
		cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
			if ev, ok := mctx.CurrentMessage().(*msgs.FlightStatus); ok {
				mctx.MessageTaken()
				events <- ev
			}
		}))
		return nil
	}))
	go stationLoop.Run(ctx)

	nextEvent := func() *msgs.FlightStatus {
		select {
		case ev := <-events:
			return ev
		case <-time.After(time.Second):
			t.Fatal("no status event")
		}
		return nil
	}
	ev := nextEvent()
	require.Equal(t, "sim", ev.Board)
	require.True(t, ev.Armed)

	res := <-conn.DoCommand(&msgs.FlightStatusQuery{}).ResultChan()
	require.NoError(t, res.Err)
	reply, ok := res.Msg.(*msgs.FlightStatusReply)
	require.True(t, ok)
	require.Equal(t, "sim", reply.Status.Board)
	require.True(t, reply.Status.Armed)
	require.Equal(t, []int32{1500, 1500, 1500, 1500}, reply.Status.Motors)

	res = <-conn.DoCommand(l1msgs.NewCommandOK()).ResultChan()
	require.ErrorContains(t, res.Err, l1msgs.ErrUnsupportedCommand.Error())

	r.sticks(1500, 1500, 1500, 1500, 1800, 1000)
	ev = nextEvent()
	require.False(t, ev.Armed)
	require.Zero(t, reg.Dropped())
}
