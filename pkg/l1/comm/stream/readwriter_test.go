package stream

import (
	"bytes"
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestReadWriter(t *testing.T) {
	var buf bytes.Buffer
	rw := New(&buf)
	require.NoError(t, rw.WritePacket([]byte("hello")))
	require.NoError(t, rw.WritePacket(nil))
	require.Equal(t, []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o', 0, 0, 0, 0}, buf.Bytes())

	pkt, err := rw.ReadPacket()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), pkt)
	pkt, err = rw.ReadPacket()
	require.NoError(t, err)
	require.Empty(t, pkt)
	_, err = rw.ReadPacket()
	require.Error(t, err)
	require.NoError(t, rw.Close())
}

func TestReadWriterOversized(t *testing.T) {
	rw := New(bytes.NewBuffer([]byte{0xff, 0xff, 0xff, 0xff}))
	_, err := rw.ReadPacket()
	require.Error(t, err)
	require.Error(t, rw.WritePacket(make([]byte, MaxPacketSize+1)))
}

func TestReadWriterWriteTimeout(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()
	rw := New(a)
	rw.WriteTimeout = 20 * time.Millisecond
	start := time.Now()
	err := rw.WritePacket([]byte("nobody reads"))
	require.Error(t, err)
	require.True(t, os.IsTimeout(err))
	require.Less(t, time.Since(start), time.Second)
	require.NoError(t, rw.Close())
}

func TestListenDial(t *testing.T) {
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan []byte, 1)
	go func() {
		rw, err := ln.AcceptPackets()
		if err != nil {
			close(accepted)
			return
		}
		pkt, _ := rw.ReadPacket()
		accepted <- pkt
	}()

	rw, err := Dial(context.Background(), ln.Addr().String())
	require.NoError(t, err)
	defer rw.Close()
	require.NoError(t, rw.WritePacket([]byte{1, 2, 3}))
	require.Equal(t, []byte{1, 2, 3}, <-accepted)
}
