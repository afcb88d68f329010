package comm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/golang/glog"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1/msgs"
)

// PacketReader reads whole packets.
type PacketReader interface {
	ReadPacket() ([]byte, error)
}

// PacketWriter writes whole packets.
type PacketWriter interface {
	WritePacket([]byte) error
}

// PacketReadWriter is a packet transport.
type PacketReadWriter interface {
	PacketReader
	PacketWriter
}

// Handler receives decoded messages on the Pipe's reader goroutine. An
// error stops the Pipe.
type Handler func(ctx context.Context, msg fx.Message, typed *msgs.Typed) error

// DefaultOutboxSize is the number of packets queued for a peer before
// new ones are dropped.
const DefaultOutboxSize = 16

// ErrOutboxFull is returned by sends while the peer is not keeping up.
var ErrOutboxFull = errors.New("l1: peer not keeping up, packet dropped")

// Pipe exchanges Typed messages over a PacketReadWriter.
//
// Sends never touch the transport: packets are queued and written by Run
// on its own goroutine, so a stalled peer costs dropped packets rather
// than a blocked caller.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    Handler

	outbox  chan []byte
	dropped uint64
}

// NewPipe creates a Pipe queuing at most outboxSize packets, or
// DefaultOutboxSize when not positive.
func NewPipe(rw PacketReadWriter, outboxSize int) *Pipe {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &Pipe{ReadWriter: rw, outbox: make(chan []byte, outboxSize)}
}

// SendCommandMsg sends msg, which must be a command, with sequence seq.
func (p *Pipe) SendCommandMsg(msg fx.Message, seq uint32) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if !typed.IsCommand() {
		return fmt.Errorf("%T is not a command", msg)
	}
	typed.Sequence = seq
	return p.SendTyped(typed)
}

// SendEventMsg sends msg, which must be an event.
func (p *Pipe) SendEventMsg(msg fx.Message) error {
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	if !typed.IsEvent() {
		return fmt.Errorf("%T is not an event", msg)
	}
	return p.SendTyped(typed)
}

// SendTyped queues typed without blocking.
func (p *Pipe) SendTyped(typed *msgs.Typed) error {
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	select {
	case p.outbox <- pkt:
		return nil
	default:
		atomic.AddUint64(&p.dropped, 1)
		return ErrOutboxFull
	}
}

// Dropped returns the number of packets dropped on a full outbox.
func (p *Pipe) Dropped() uint64 {
	return atomic.LoadUint64(&p.dropped)
}

// Run writes queued packets and dispatches received ones to Handler
// until the transport fails or ctx is done. The transport is closed on
// return.
func (p *Pipe) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	writeErrCh := make(chan error, 1)
	go func() {
		err := p.drain(runCtx)
		writeErrCh <- err
		if err != nil {
			// unblocks the reader.
			p.Close()
		}
	}()
	err := fx.RunWithContextCloser(runCtx, p, func() error { return p.receive(runCtx) })
	cancel()
	writeErr := <-writeErrCh
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case writeErr != nil:
		return writeErr
	}
	return err
}

func (p *Pipe) drain(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case pkt := <-p.outbox:
			if err := p.ReadWriter.WritePacket(pkt); err != nil {
				return fmt.Errorf("write packet: %w", err)
			}
		}
	}
}

func (p *Pipe) receive(ctx context.Context) error {
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		typed, err := msgs.DecodeTyped(pkt)
		if err != nil {
			return err
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.V(1).Infof("undecodable message %08x: %v", typed.TypeId, err)
			if typed.IsCommand() {
				p.SendCommandMsg(msgs.NewCommandErr(err), typed.Sequence)
			}
			continue
		}
		if p.Handler == nil {
			continue
		}
		if err = p.Handler(ctx, msg, typed); err != nil {
			return err
		}
	}
}

// Close closes the transport when it is an io.Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// AddToLoop implements LoopAdder. A transport which needs to run, like
// an MQTT subscription, is added too.
func (p *Pipe) AddToLoop(loop *fx.Loop) {
	switch rw := p.ReadWriter.(type) {
	case fx.LoopAdder:
		loop.Add(rw)
	case fx.Runnable:
		loop.AddRunnable(rw)
	}
	loop.AddRunnable(p)
}
