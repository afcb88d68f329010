package comm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type clientHarness struct {
	*fifoHarness
	client *Client
	events chan *Packet
}

// newSyncedClient returns a client whose link is synchronized with local
// and peer sequence 1.
func newSyncedClient(t *testing.T) *clientHarness {
	l := newLine()
	h := &clientHarness{events: make(chan *Packet, 4)}
	h.fifoHarness = newFIFOHarness(t, l, func(f *FIFO) {
		h.client = NewClient(f)
		h.client.OnEvent = func(pkt *Packet) { h.events <- pkt }
		h.client.OnState = func(state SyncState) { h.states <- state }
	})
	h.sync(t)
	return h
}

func result(t *testing.T, cmd *Command) Result {
	select {
	case r := <-cmd.ResultChan():
		return r
	case <-time.After(waitTimeout):
		t.Fatalf("command %d: no result", cmd.Seq())
	}
	return Result{}
}

func TestClientReply(t *testing.T) {
	testCases := []struct {
		name  string
		reply []byte
		want  Result
	}{
		{"empty", withCRC(1, 0x10, 1), Result{Code: 0, Data: []byte{}}},
		{"data", withCRC(1, 0x34, 1, 0xdc, 0x05), Result{Code: 4, Data: []byte{0xdc, 0x05}}},
		{"error", withCRC(1, 0x17, 1), Result{Err: &CommandError{Code: 6}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newSyncedClient(t)
			cmd := h.client.Do(&Packet{Code: 1, Data: []byte{2}})
			require.Equal(t, PacketSeq(1), cmd.Seq())
			h.line.expect(t, withCRC(1, 0x11, 2)...)
			h.line.feed(tc.reply...)
			require.Equal(t, tc.want, result(t, cmd))
			require.Zero(t, h.client.Pending())
		})
	}
}

func TestClientSkippedReply(t *testing.T) {
	h := newSyncedClient(t)
	first := h.client.Do(&Packet{Code: 1})
	second := h.client.Do(&Packet{Code: 2})
	h.line.expect(t, packets([]byte{1, 1}, []byte{2, 2})...)
	h.line.feed(withCRC(1, 0x22, 2, 3)...)
	require.Equal(t, ErrNoReply, result(t, first).Err)
	require.Equal(t, Result{Code: 2, Data: []byte{3}}, result(t, second))
}

func TestClientEvent(t *testing.T) {
	h := newSyncedClient(t)
	cmd := h.client.Do(&Packet{Code: 1})
	h.line.expect(t, withCRC(1, 1)...)
	h.line.feed(withCRC(1, 0x91, 2)...)
	select {
	case pkt := <-h.events:
		require.Equal(t, byte(0x81), pkt.Code)
		require.Equal(t, []byte{2}, pkt.Data)
	case <-time.After(waitTimeout):
		t.Fatal("no event")
	}
	require.Equal(t, 1, h.client.Pending())
	h.line.feed(withCRC(2, 0x14, 1)...)
	require.Equal(t, byte(4), result(t, cmd).Code)
}

func TestClientCancel(t *testing.T) {
	h := newSyncedClient(t)
	cmd := h.client.Do(&Packet{Code: 1})
	h.line.expect(t, withCRC(1, 1)...)
	h.client.Cancel(cmd)
	require.Zero(t, h.client.Pending())

	next := h.client.Do(&Packet{Code: 2})
	h.line.expect(t, withCRC(2, 2)...)
	// the late reply to the canceled command neither resolves it nor
	// fails the one after it.
	h.line.feed(withCRC(1, 0x10, 1)...)
	h.line.feed(withCRC(2, 0x12, 2)...)
	require.Equal(t, byte(2), result(t, next).Code)
	select {
	case r := <-cmd.ResultChan():
		t.Fatalf("canceled command resolved: %+v", r)
	default:
	}
}

func TestClientSyncLost(t *testing.T) {
	h := newSyncedClient(t)
	cmd := h.client.Do(&Packet{Code: 1})
	h.line.expect(t, withCRC(1, 1)...)
	h.line.feed(syncREQ)
	require.Equal(t, ErrNotReady, result(t, cmd).Err)
	require.Zero(t, h.client.Pending())

	h.line.feed(9)
	h.line.expect(t, syncACK, 2)
	h.waitState(t, SyncStateReady)
}

func TestClientNotReady(t *testing.T) {
	l := newLine()
	client := NewClient(NewFIFO(l))
	cmd := client.Do(&Packet{Code: 1})
	require.Equal(t, ErrNotReady, result(t, cmd).Err)
	require.Zero(t, client.Pending())
}
