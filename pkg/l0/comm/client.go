package comm

import (
	"context"
	"sync"
)

// Result is the reply to a command.
type Result struct {
	Err  error
	Code byte
	Data []byte
}

// Command is a request waiting for its reply.
type Command struct {
	seq    PacketSeq
	result chan Result
}

// Seq returns the sequence the request was sent with.
func (c *Command) Seq() PacketSeq {
	return c.seq
}

// ResultChan delivers exactly one Result, unless the command is canceled.
func (c *Command) ResultChan() <-chan Result {
	return c.result
}

// Client matches replies to requests over a FIFO. Replies carry the
// request sequence as their first data byte.
type Client struct {
	// OnEvent receives event packets on the FIFO goroutine.
	OnEvent func(*Packet)
	// OnState receives sync state changes on the FIFO goroutine.
	OnState func(SyncState)

	fifo    *FIFO
	lock    sync.Mutex
	pending []*Command
}

// NewClient creates a Client which takes over the FIFO callbacks.
func NewClient(fifo *FIFO) *Client {
	c := &Client{fifo: fifo}
	fifo.OnPacket = c.handlePacket
	fifo.OnState = c.stateChanged
	return c
}

// FIFO returns the underlying FIFO.
func (c *Client) FIFO() *FIFO {
	return c.fifo
}

// Do sends pkt as a request.
func (c *Client) Do(pkt *Packet) *Command {
	cmd := &Command{result: make(chan Result, 1)}
	c.lock.Lock()
	defer c.lock.Unlock()
	if err := c.fifo.Send(pkt); err != nil {
		cmd.result <- Result{Err: err}
		return cmd
	}
	cmd.seq = pkt.Seq
	c.pending = append(c.pending, cmd)
	return cmd
}

// Cancel stops waiting for cmd. A late reply is dropped.
func (c *Client) Cancel(cmd *Command) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for i, p := range c.pending {
		if p == cmd {
			c.pending = append(c.pending[:i:i], c.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of commands waiting for a reply.
func (c *Client) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.pending)
}

// Run implements Runnable.
func (c *Client) Run(ctx context.Context) error {
	return c.fifo.Run(ctx)
}

func (c *Client) handlePacket(pkt *Packet) {
	if pkt.IsEvent() {
		if c.OnEvent != nil {
			c.OnEvent(pkt)
		}
		return
	}
	if len(pkt.Data) == 0 {
		return
	}
	seq := PacketSeq(pkt.Data[0])
	if !seq.IsValid() {
		return
	}

	c.lock.Lock()
	var skipped []*Command
	var cmd *Command
	for i, p := range c.pending {
		if p.seq == seq {
			skipped, cmd = c.pending[:i:i], p
			c.pending = c.pending[i+1:]
			break
		}
	}
	c.lock.Unlock()
	if cmd == nil {
		return
	}

	// replies come in order, earlier requests were lost.
	for _, p := range skipped {
		p.result <- Result{Err: ErrNoReply}
	}
	code := pkt.Code & 0x7e
	if pkt.Code&1 != 0 {
		cmd.result <- Result{Err: &CommandError{Code: code}}
	} else {
		cmd.result <- Result{Code: code, Data: pkt.Data[1:]}
	}
}

func (c *Client) stateChanged(state SyncState) {
	if !state.IsReady() {
		// sequences restart after a resync.
		c.lock.Lock()
		lost := c.pending
		c.pending = nil
		c.lock.Unlock()
		for _, p := range lost {
			p.result <- Result{Err: ErrNotReady}
		}
	}
	if c.OnState != nil {
		c.OnState(state)
	}
}
