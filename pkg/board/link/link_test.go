package link

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/navio.go/pkg/l0/comm"
	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
)

type chanReadWriter struct {
	readCh  <-chan byte
	writeCh chan<- byte
}

func (c *chanReadWriter) Read(p []byte) (int, error) {
	p[0] = <-c.readCh
	return 1, nil
}

func (c *chanReadWriter) Write(p []byte) (int, error) {
	for _, b := range p {
		c.writeCh <- b
	}
	return len(p), nil
}

func pipe() (*chanReadWriter, *chanReadWriter) {
	a, b := make(chan byte, 4096), make(chan byte, 4096)
	return &chanReadWriter{readCh: a, writeCh: b}, &chanReadWriter{readCh: b, writeCh: a}
}

// firmware emulates the co-processor.
type firmware struct {
	fifo *comm.FIFO

	lock    sync.Mutex
	rc      map[int]int
	enabled map[int]bool
	freq    map[int]int
	duty    map[int]int
	silent  bool
}

func newFirmware(t *testing.T, rw *chanReadWriter) *firmware {
	f := &firmware{
		fifo:    comm.NewFIFO(rw),
		rc:      map[int]int{0: 1500, 2: 1000},
		enabled: make(map[int]bool),
		freq:    make(map[int]int),
		duty:    make(map[int]int),
	}
	f.fifo.OnPacket = f.handle
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go f.fifo.Run(ctx)
	return f
}

func (f *firmware) reply(req *comm.Packet, code byte, data ...byte) {
	f.fifo.Send(&comm.Packet{Code: code, Data: append([]byte{byte(req.Seq)}, data...)})
}

func (f *firmware) handle(pkt *comm.Packet) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.silent {
		return
	}
	ch := int(pkt.Data[0])
	value := func() int { return int(pkt.Data[1]) | int(pkt.Data[2])<<8 }
	if pkt.Code != CmdRCRead && ch >= 4 {
		f.reply(pkt, ErrCodeChannel|1)
		return
	}
	switch pkt.Code {
	case CmdRCRead:
		us, ok := f.rc[ch]
		if !ok {
			f.reply(pkt, ErrCodeNoSignal|1)
			return
		}
		f.reply(pkt, 0, byte(us), byte(us>>8))
	case CmdPWMInit:
		f.reply(pkt, 0)
	case CmdPWMFrequency:
		f.freq[ch] = value()
		f.reply(pkt, 0)
	case CmdPWMEnable:
		f.enabled[ch] = true
		f.reply(pkt, 0)
	case CmdPWMDuty:
		if !f.enabled[ch] {
			f.reply(pkt, ErrCodeNotEnabled|1)
			return
		}
		f.duty[ch] = value()
		f.reply(pkt, 0)
	}
}

func newTestLink(t *testing.T) (*Link, *firmware) {
	a, b := pipe()
	fw := newFirmware(t, b)
	l := New(a)
	l.Timeout = time.Second
	l.Start()
	t.Cleanup(func() { l.Close() })
	return l, fw
}

func TestLinkInput(t *testing.T) {
	l, _ := newTestLink(t)
	require.NoError(t, l.Initialize())

	s, err := l.Read(0)
	require.NoError(t, err)
	require.Equal(t, rc.Sample(1500), s)
	s, err = l.Read(2)
	require.NoError(t, err)
	require.Equal(t, rc.Sample(1000), s)

	s, err = l.Read(5)
	require.Equal(t, rc.ReadFailure, s)
	require.True(t, errors.Is(err, rc.ErrReadFailed))
	var cmdErr *comm.CommandError
	require.True(t, errors.As(err, &cmdErr))
	require.Equal(t, ErrCodeNoSignal, cmdErr.Code)
}

func TestLinkOutput(t *testing.T) {
	l, fw := newTestLink(t)
	out := l.Output()
	require.NoError(t, out.Initialize(1))
	require.True(t, errors.Is(out.SetDutyCycle(1, 1000), pwm.ErrNotEnabled))
	for ch := 0; ch < 4; ch++ {
		require.NoError(t, pwm.Setup(out, ch, 400, 1000))
	}
	require.NoError(t, out.SetDutyCycle(3, 1550))
	require.True(t, errors.Is(out.Initialize(4), pwm.ErrChannel))

	fw.lock.Lock()
	defer fw.lock.Unlock()
	require.Equal(t, map[int]int{0: 400, 1: 400, 2: 400, 3: 400}, fw.freq)
	require.Equal(t, map[int]int{0: 1000, 1: 1000, 2: 1000, 3: 1550}, fw.duty)
}

func TestLinkTimeout(t *testing.T) {
	l, fw := newTestLink(t)
	require.NoError(t, l.Initialize())
	fw.lock.Lock()
	fw.silent = true
	fw.lock.Unlock()

	l.Timeout = 20 * time.Millisecond
	start := time.Now()
	s, err := l.Read(0)
	require.Equal(t, rc.ReadFailure, s)
	require.True(t, errors.Is(err, ErrTimeout))
	require.Less(t, time.Since(start), time.Second)
	require.Zero(t, l.client.Pending())

	// replies resume once the firmware answers again.
	fw.lock.Lock()
	fw.silent = false
	fw.lock.Unlock()
	l.Timeout = time.Second
	s, err = l.Read(0)
	require.NoError(t, err)
	require.Equal(t, rc.Sample(1500), s)
	require.Equal(t, uint64(0), l.Stats().CRCErrors)
}

func TestLinkNotSynced(t *testing.T) {
	a, _ := pipe()
	l := New(a)
	l.SyncTimeout = 50 * time.Millisecond
	l.Start()
	defer l.Close()
	require.Error(t, l.Initialize())
	_, err := l.Read(0)
	require.True(t, errors.Is(err, comm.ErrNotReady))
}
