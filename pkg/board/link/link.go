package link

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/navio.go/pkg/l0/comm"
	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
)

// Timing defaults.
const (
	DefaultTimeout     = 20 * time.Millisecond
	DefaultSyncTimeout = time.Second
)

var (
	// ErrTimeout indicates the co-processor did not reply in time.
	ErrTimeout = errors.New("link: no reply")
	// ErrShortReply indicates a reply without the expected data.
	ErrShortReply = errors.New("link: short reply")
)

// Link is both the rc.Input and the pwm.Output of a co-processor.
type Link struct {
	// Timeout bounds each command round trip.
	Timeout time.Duration
	// SyncTimeout bounds the wait for the link to synchronize.
	SyncTimeout time.Duration

	client *comm.Client
	cancel context.CancelFunc
	done   chan struct{}

	// ready and readyOnce are only used on the protocol goroutine.
	ready     bool
	readyOnce sync.Once
	readyCh   chan struct{}
}

// New creates a Link over rw.
func New(rw io.ReadWriter) *Link {
	l := &Link{
		Timeout:     DefaultTimeout,
		SyncTimeout: DefaultSyncTimeout,
		client:      comm.NewClient(comm.NewFIFO(rw)),
		readyCh:     make(chan struct{}),
	}
	l.client.OnState = l.stateChanged
	l.client.OnEvent = func(pkt *comm.Packet) {
		glog.V(1).Infof("link event %02x %v", pkt.Code, pkt.Data)
	}
	return l
}

// Start runs the protocol in the background.
func (l *Link) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel, l.done = cancel, make(chan struct{})
	go func() {
		defer close(l.done)
		if err := l.client.Run(ctx); err != nil && err != context.Canceled {
			glog.Errorf("link stopped: %v", err)
		}
	}()
}

// Close stops the protocol.
func (l *Link) Close() error {
	if l.cancel != nil {
		l.cancel()
		<-l.done
		l.cancel = nil
		stats := l.Stats()
		glog.Infof("link closed: sent %d received %d crc errors %d sync requests %d",
			stats.Sent, stats.Received, stats.CRCErrors, stats.SyncRequests)
	}
	return nil
}

// Stats returns the protocol counters.
func (l *Link) Stats() comm.Stats {
	return l.client.FIFO().Stats()
}

func (l *Link) stateChanged(state comm.SyncState) {
	switch {
	case state.IsReady() && !l.ready:
		glog.Info("link synchronized")
		l.readyOnce.Do(func() { close(l.readyCh) })
	case !state.IsReady() && l.ready:
		glog.Warning("link lost sync")
	}
	l.ready = state.IsReady()
}

// WaitReady blocks until the link synchronized once.
func (l *Link) WaitReady(ctx context.Context) error {
	select {
	case <-l.readyCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("link sync: %w", ctx.Err())
	}
}

func (l *Link) do(code byte, data ...byte) ([]byte, error) {
	cmd := l.client.Do(&comm.Packet{Code: code, Data: data})
	timer := time.NewTimer(l.Timeout)
	defer timer.Stop()
	select {
	case r := <-cmd.ResultChan():
		return r.Data, r.Err
	case <-timer.C:
		l.client.Cancel(cmd)
		return nil, ErrTimeout
	}
}

// Initialize implements rc.Input.
func (l *Link) Initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), l.SyncTimeout)
	defer cancel()
	return l.WaitReady(ctx)
}

// Read implements rc.Input. It returns within Timeout.
func (l *Link) Read(channel int) (rc.Sample, error) {
	data, err := l.do(CmdRCRead, byte(channel))
	if err != nil {
		return rc.Failed(channel, err)
	}
	if len(data) < 2 {
		return rc.Failed(channel, ErrShortReply)
	}
	return rc.Sample(binary.LittleEndian.Uint16(data)), nil
}

func (l *Link) pwmErr(ch int, err error) error {
	var cmdErr *comm.CommandError
	if errors.As(err, &cmdErr) {
		switch cmdErr.Code {
		case ErrCodeChannel:
			return fmt.Errorf("%w: %d", pwm.ErrChannel, ch)
		case ErrCodeNotEnabled:
			return fmt.Errorf("%w: %d", pwm.ErrNotEnabled, ch)
		}
	}
	return err
}

// initChannel waits for the link then prepares a PWM channel.
func (l *Link) initChannel(ch int) error {
	if err := l.Initialize(); err != nil {
		return err
	}
	_, err := l.do(CmdPWMInit, byte(ch))
	return l.pwmErr(ch, err)
}

// Output exposes the PWM side of the link.
func (l *Link) Output() pwm.Output {
	return &output{l}
}

type output struct {
	l *Link
}

func (o *output) Initialize(ch int) error {
	return o.l.initChannel(ch)
}

func (o *output) SetFrequency(ch, hz int) error {
	_, err := o.l.do(CmdPWMFrequency, channelValue(ch, hz)...)
	return o.l.pwmErr(ch, err)
}

func (o *output) Enable(ch int) error {
	_, err := o.l.do(CmdPWMEnable, byte(ch))
	return o.l.pwmErr(ch, err)
}

func (o *output) SetDutyCycle(ch, us int) error {
	_, err := o.l.do(CmdPWMDuty, channelValue(ch, us)...)
	return o.l.pwmErr(ch, err)
}
