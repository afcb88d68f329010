package sim

import (
	"github.com/robotalks/navio.go/pkg/board"
	"github.com/robotalks/navio.go/pkg/rc"
	"github.com/robotalks/navio.go/pkg/rc/joystick"
)

// NumOutputs matches the servo rail of a Navio board.
const NumOutputs = 14

// DefaultChannels is a transmitter at rest: sticks centered, throttle
// low and both switches off.
var DefaultChannels = map[int]rc.Sample{
	0: 1500,
	1: 1500,
	2: 1000,
	3: 1500,
	4: 1000,
	5: 1000,
}

// New opens a sim board. RC input comes from the joystick at
// conf.JoystickIndex when it is not negative.
func New(conf *board.Config) (*board.Board, error) {
	b := &board.Board{Name: "simulator", Output: NewOutput(NumOutputs)}
	if conf.JoystickIndex >= 0 {
		reader := joystick.NewReader(conf.JoystickIndex)
		b.Input = reader
		b.OnClose(reader.Close)
	} else {
		b.Input = NewInput(DefaultChannels)
	}
	return b, nil
}

func init() {
	board.Register(board.Sim, New)
}
