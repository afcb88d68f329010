package navio2

import (
	"github.com/robotalks/navio.go/pkg/board"
)

// New opens the Navio2 board.
func New(conf *board.Config) (*board.Board, error) {
	in := NewInput(conf.SysfsRoot)
	b := &board.Board{
		Name:   "Navio2",
		Input:  in,
		Output: NewOutput(conf.SysfsRoot),
	}
	b.OnClose(in.Close)
	return b, nil
}

func init() {
	board.Register(board.Navio2, New)
}
