package navioplus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"

	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
)

func feedFrame(d *Decoder, t time.Time, widths ...int) time.Time {
	for _, w := range widths {
		t = t.Add(time.Duration(w) * time.Microsecond)
		d.Edge(t)
	}
	t = t.Add(10 * time.Millisecond)
	d.Edge(t)
	return t
}

func TestDecoder(t *testing.T) {
	d := NewDecoder()
	start := time.Unix(1000, 0)
	d.Edge(start)
	_, ok := d.Channel(0, start, DefaultStaleAfter)
	require.False(t, ok)

	// the first frame follows no sync gap and must not be published
	at := feedFrame(d, start, 1500, 1500, 1000)
	_, ok = d.Channel(0, at, DefaultStaleAfter)
	require.False(t, ok)

	at = feedFrame(d, at, 1100, 1200, 1300, 1400)
	for ch, expected := range []int{1100, 1200, 1300, 1400} {
		us, ok := d.Channel(ch, at, DefaultStaleAfter)
		require.True(t, ok)
		require.Equal(t, expected, us)
	}
	_, ok = d.Channel(4, at, DefaultStaleAfter)
	require.False(t, ok)
	_, ok = d.Channel(0, at.Add(DefaultStaleAfter+time.Millisecond), DefaultStaleAfter)
	require.False(t, ok)
}

func TestDecoderMaxChannels(t *testing.T) {
	d := NewDecoder()
	d.MaxChannels = 2
	at := time.Unix(1000, 0)
	d.Pulse(5*time.Millisecond, at)
	for _, w := range []int{1000, 1100, 1200} {
		d.Pulse(time.Duration(w)*time.Microsecond, at)
	}
	d.Pulse(5*time.Millisecond, at)
	us, ok := d.Channel(1, at, DefaultStaleAfter)
	require.True(t, ok)
	require.Equal(t, 1100, us)
	_, ok = d.Channel(2, at, DefaultStaleAfter)
	require.False(t, ok)
}

type fakePin struct {
	clock *fakeClock
	edges chan time.Duration
}

func (p *fakePin) WaitForEdge(timeout time.Duration) bool {
	select {
	case after := <-p.edges:
		p.clock.Advance(after)
		return true
	case <-time.After(timeout):
		return false
	}
}

type fakeClock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now = c.now.Add(d)
	c.lock.Unlock()
}

func TestPPMInput(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	pin := &fakePin{clock: clock, edges: make(chan time.Duration)}
	in := NewPPMInput(pin)
	in.Now = clock.Now

	_, err := in.Read(0)
	require.True(t, errors.Is(err, rc.ErrNotInitialized))
	require.NoError(t, in.Initialize())
	defer in.Close()

	edge := func(after time.Duration) { pin.edges <- after }
	edge(0)
	edge(5 * time.Millisecond)
	edge(1500 * time.Microsecond)
	edge(1250 * time.Microsecond)
	edge(5 * time.Millisecond)

	require.Eventually(t, func() bool {
		s, err := in.Read(1)
		return err == nil && s == 1250
	}, time.Second, time.Millisecond)

	clock.Advance(time.Second)
	s, err := in.Read(1)
	require.Equal(t, rc.ReadFailure, s)
	require.True(t, errors.Is(err, ErrStale))
	require.True(t, errors.Is(err, rc.ErrReadFailed))
}

type setPwm struct {
	channel int
	off     gpio.Duty
}

type fakeController struct {
	freq physic.Frequency
	pwms []setPwm
}

func (c *fakeController) SetPwmFreq(freq physic.Frequency) error {
	c.freq = freq
	return nil
}

func (c *fakeController) SetPwm(channel int, on, off gpio.Duty) error {
	c.pwms = append(c.pwms, setPwm{channel: channel, off: off})
	return nil
}

func TestDutyCounts(t *testing.T) {
	tests := []struct {
		us, hz, counts int
	}{
		{1000, 400, 1637},
		{1500, 400, 2457},
		{2000, 400, 3276},
		{1000, 50, 204},
		{0, 400, 0},
		{5000, 400, 4095},
	}
	for _, test := range tests {
		require.Equal(t, test.counts, DutyCounts(test.us, test.hz), "%dus at %dHz", test.us, test.hz)
	}
}

func TestOutput(t *testing.T) {
	dev := &fakeController{}
	enables := 0
	out := NewOutput(dev, func() error { enables++; return nil })

	require.True(t, errors.Is(out.SetDutyCycle(0, 1000), pwm.ErrNotEnabled))
	require.NoError(t, pwm.Setup(out, 0, 400, 1000))
	require.NoError(t, pwm.Setup(out, 3, 400, 1000))
	require.Equal(t, 1, enables)
	require.Equal(t, physic.Frequency(406)*physic.Hertz, dev.freq)
	require.NoError(t, out.SetDutyCycle(3, 1500))
	require.Equal(t, []setPwm{{3, 1637}, {6, 1637}, {6, 2457}}, dev.pwms)

	require.True(t, errors.Is(out.Initialize(NumPWMChannels), pwm.ErrChannel))
}
