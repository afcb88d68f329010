package stream

import (
	"context"
	"net"

	"github.com/robotalks/navio.go/pkg/l1/comm"
)

// Dial connects to a TCP endpoint.
func Dial(ctx context.Context, addr string) (*ReadWriter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Listener accepts packet streams over TCP.
type Listener struct {
	net.Listener
}

// Listen listens on a TCP address.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Listener{Listener: ln}, nil
}

// AcceptPackets implements comm.Acceptor.
func (l *Listener) AcceptPackets() (comm.PacketReadWriter, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}
