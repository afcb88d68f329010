package comm

import (
	"context"
	"io"
	"os"
	"sync"
	"time"
)

// DefaultSyncTimeout is how long a partial packet or an unanswered sync
// request may stall before the FIFO resyncs.
const DefaultSyncTimeout = 100 * time.Millisecond

// Stats counts FIFO traffic.
type Stats struct {
	Sent         uint64
	Received     uint64
	CRCErrors    uint64
	SyncRequests uint64
}

// FIFO frames packets over a byte stream and keeps both ends in sync.
//
// Port.Read may return (0, nil) or a timeout error when the line is idle,
// as serial ports with a read timeout do. An idle line in the middle of a
// packet forces a resync, like an expired SyncTimeout.
type FIFO struct {
	Port        io.ReadWriter
	SyncTimeout time.Duration

	// OnPacket and OnState are called on the Run goroutine.
	OnPacket func(*Packet)
	OnState  func(SyncState)

	lock   sync.Mutex
	seq    PacketSeq
	state  SyncState
	stats  Stats
	parser Parser
}

// NewFIFO creates a FIFO over port.
func NewFIFO(port io.ReadWriter) *FIFO {
	return &FIFO{
		Port:        port,
		SyncTimeout: DefaultSyncTimeout,
		seq:         NewPacketSeq(),
	}
}

// State returns the current sync state.
func (f *FIFO) State() SyncState {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.state
}

// Stats returns a snapshot of the counters.
func (f *FIFO) Stats() Stats {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.stats
}

// Send assigns the next sequence to pkt and writes it.
func (f *FIFO) Send(pkt *Packet) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if !f.state.IsReady() {
		return ErrNotReady
	}
	pkt.Seq = f.seq
	if _, err := pkt.WriteTo(f.Port); err != nil {
		return err
	}
	f.seq = f.seq.Next()
	f.stats.Sent++
	return nil
}

type lineEvent struct {
	b    byte
	idle bool
	err  error
}

// Run reads and parses until ctx is done or the port fails.
func (f *FIFO) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	events := make(chan lineEvent)
	go f.pump(ctx, events)

	var expire <-chan time.Time
	pr := f.parser.Reset()
	for {
		if err := f.apply(pr); err != nil {
			return err
		}
		switch pr.WhatAboutTimer() {
		case TimerRestart:
			expire = time.After(f.SyncTimeout)
		case TimerStop:
			expire = nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-expire:
			pr = f.parser.Timeout()
		case ev := <-events:
			switch {
			case ev.err != nil:
				return ev.err
			case ev.idle:
				pr = f.parser.Timeout()
			default:
				pr = f.parser.Parse(ev.b)
			}
		}
	}
}

// pump turns blocking single byte reads into events.
func (f *FIFO) pump(ctx context.Context, events chan<- lineEvent) {
	buf := make([]byte, 1)
	for {
		var ev lineEvent
		n, err := f.Port.Read(buf)
		switch {
		case err != nil && os.IsTimeout(err):
			ev.idle = true
		case err != nil:
			ev.err = err
		case n == 0:
			ev.idle = true
		default:
			ev.b = buf[0]
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
		if ev.err != nil {
			return
		}
	}
}

func (f *FIFO) apply(pr ParseResult) error {
	f.lock.Lock()
	changed := f.state != pr.State
	f.state = pr.State
	f.stats.CRCErrors = f.parser.CRCErrors()
	if pr.Packet != nil {
		f.stats.Received++
	}
	var err error
	if pr.Sync != 0 {
		if pr.Sync == syncREQ {
			f.stats.SyncRequests++
		}
		_, err = f.Port.Write([]byte{pr.Sync, byte(f.seq)})
	}
	f.lock.Unlock()
	if err != nil {
		return err
	}

	if changed && f.OnState != nil {
		f.OnState(pr.State)
	}
	if pr.Packet != nil && f.OnPacket != nil {
		f.OnPacket(pr.Packet)
	}
	return nil
}
