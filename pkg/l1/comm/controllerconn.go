package comm

import (
	"context"
	"sync"
	"time"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/msgs"
)

// DefaultCommandExpiration is how long a command waits for its reply.
const DefaultCommandExpiration = time.Second

// ControllerConn is the station end of a Pipe. Replies are matched to
// commands by sequence; events are posted to the station loop.
type ControllerConn struct {
	Expiration time.Duration

	pipe    *Pipe
	lock    sync.Mutex
	seq     uint32
	pending map[uint32]*commandFuture
}

// Init sets up the connection over rw.
func (c *ControllerConn) Init(rw PacketReadWriter) {
	c.Expiration = DefaultCommandExpiration
	c.pipe = NewPipe(rw, DefaultOutboxSize)
	c.pipe.Handler = c.received
	c.pending = make(map[uint32]*commandFuture)
}

// Close closes the transport.
func (c *ControllerConn) Close() error {
	return c.pipe.Close()
}

// DoCommand implements l1.ControllerConn.
func (c *ControllerConn) DoCommand(msg fx.Message) l1.CommandFuture {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.seq++; c.seq == 0 {
		c.seq = 1
	}
	f := &commandFuture{
		expireAt: time.Now().Add(c.Expiration),
		result:   make(chan l1.Result, 1),
	}
	if err := c.pipe.SendCommandMsg(msg, c.seq); err != nil {
		f.result <- l1.Result{Err: err}
		return f
	}
	c.pending[c.seq] = f
	return f
}

// AddToLoop implements LoopAdder.
func (c *ControllerConn) AddToLoop(loop *fx.Loop) {
	loop.Add(c.pipe)
	loop.AddController(fx.PrLvIdle, fx.ControlFunc(c.expire))
}

func (c *ControllerConn) received(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	if typed.IsEvent() {
		loopCtl := fx.LoopCtlFrom(ctx)
		loopCtl.PostMessage(msg)
		loopCtl.TriggerNext()
		return nil
	}
	c.lock.Lock()
	f := c.pending[typed.Sequence]
	delete(c.pending, typed.Sequence)
	c.lock.Unlock()
	if f == nil {
		return nil
	}
	result := l1.Result{Msg: msg}
	if cmdErr, ok := msg.(*msgs.CommandErr); ok {
		result.Err = cmdErr
	}
	f.result <- result
	close(f.result)
	return nil
}

func (c *ControllerConn) expire(cc fx.ControlContext) error {
	now := cc.Time()
	c.lock.Lock()
	defer c.lock.Unlock()
	for seq, f := range c.pending {
		if now.After(f.expireAt) {
			delete(c.pending, seq)
			f.result <- l1.Result{Err: context.DeadlineExceeded}
			close(f.result)
		}
	}
	return nil
}

type commandFuture struct {
	expireAt time.Time
	result   chan l1.Result
}

func (f *commandFuture) ResultChan() <-chan l1.Result {
	return f.result
}
