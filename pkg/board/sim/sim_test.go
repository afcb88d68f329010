package sim

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/navio.go/pkg/board"
	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
)

func TestInput(t *testing.T) {
	in := NewInput(map[int]rc.Sample{2: 1200})
	_, err := in.Read(2)
	require.True(t, errors.Is(err, rc.ErrNotInitialized))

	require.NoError(t, in.Initialize())
	s, err := in.Read(2)
	require.NoError(t, err)
	require.Equal(t, rc.Sample(1200), s)
	s, err = in.Read(7)
	require.NoError(t, err)
	require.Equal(t, rc.Center, s)

	in.Fail(2)
	s, err = in.Read(2)
	require.Equal(t, rc.ReadFailure, s)
	require.True(t, errors.Is(err, rc.ErrReadFailed))
	require.True(t, errors.Is(err, ErrInjected))

	in.Set(2, 1300)
	s, err = in.Read(2)
	require.NoError(t, err)
	require.Equal(t, rc.Sample(1300), s)
	require.Equal(t, []int{2, 2, 7, 2, 2}, in.Reads())
}

func TestOutput(t *testing.T) {
	out := NewOutput(4)
	require.True(t, errors.Is(out.Initialize(4), pwm.ErrChannel))
	require.True(t, errors.Is(out.SetDutyCycle(0, 1000), pwm.ErrNotEnabled))
	require.Error(t, out.Enable(1))

	require.NoError(t, pwm.Setup(out, 1, 400, 1000))
	require.True(t, out.Enabled(1))
	require.Equal(t, 400, out.Frequency(1))
	require.NoError(t, out.SetDutyCycle(1, 1234))
	require.Equal(t, 1234, out.Duty(1))
	require.Equal(t, []Write{{1, 1000}, {1, 1234}}, out.Writes())

	out.Reset()
	require.Empty(t, out.Writes())

	out.FailChannel(3, errors.New("broken"))
	require.EqualError(t, out.Initialize(3), "broken")
}

func TestBoard(t *testing.T) {
	conf := board.NewConfig()
	conf.Kind = board.Sim
	b, err := conf.Open()
	require.NoError(t, err)
	defer b.Close()
	require.Equal(t, board.Sim, b.Kind)
	require.NoError(t, b.Input.Initialize())
	s, err := b.Input.Read(2)
	require.NoError(t, err)
	require.Equal(t, rc.Sample(1000), s)
}
