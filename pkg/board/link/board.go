package link

import (
	"fmt"
	"time"

	"go.bug.st/serial"

	"github.com/robotalks/navio.go/pkg/board"
)

// ReadTimeout is the serial read timeout; a gap this long in the middle of
// a packet forces a resync.
const ReadTimeout = 50 * time.Millisecond

// Open opens the serial port and starts the link.
func Open(port string, baud int) (*Link, serial.Port, error) {
	p, err := serial.Open(port, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", port, err)
	}
	if err := p.SetReadTimeout(ReadTimeout); err != nil {
		p.Close()
		return nil, nil, fmt.Errorf("%s read timeout: %w", port, err)
	}
	l := New(p)
	l.Start()
	return l, p, nil
}

// NewBoard opens the co-processor board.
func NewBoard(conf *board.Config) (*board.Board, error) {
	l, port, err := Open(conf.LinkPort, conf.LinkBaud)
	if err != nil {
		return nil, err
	}
	b := &board.Board{
		Name:   "Link " + conf.LinkPort,
		Input:  l,
		Output: l.Output(),
	}
	b.OnClose(port.Close)
	b.OnClose(l.Close)
	return b, nil
}

func init() {
	board.Register(board.Link, NewBoard)
}
