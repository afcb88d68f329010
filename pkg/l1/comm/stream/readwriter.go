// Package stream frames L1 packets on byte streams (TCP, pipes) with a
// 4-byte little-endian length prefix.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"
)

// MaxPacketSize bounds the length prefix accepted by ReadPacket.
const MaxPacketSize = 1 << 20

// DefaultWriteTimeout bounds a single WritePacket on streams supporting
// write deadlines.
const DefaultWriteTimeout = 5 * time.Second

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// ReadWriter is a comm.PacketReadWriter on a byte stream.
type ReadWriter struct {
	Stream io.ReadWriter
	// WriteTimeout fails a write the peer does not take in time. Zero
	// disables it.
	WriteTimeout time.Duration

	header [4]byte
}

// New creates a ReadWriter on s.
func New(s io.ReadWriter) *ReadWriter {
	return &ReadWriter{Stream: s, WriteTimeout: DefaultWriteTimeout}
}

// ReadPacket implements comm.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	if _, err := io.ReadFull(p.Stream, p.header[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(p.header[:])
	if size > MaxPacketSize {
		return nil, fmt.Errorf("packet size %d exceeds %d", size, MaxPacketSize)
	}
	pkt := make([]byte, size)
	if _, err := io.ReadFull(p.Stream, pkt); err != nil {
		return nil, err
	}
	return pkt, nil
}

// WritePacket implements comm.PacketWriter. The frame goes out in a
// single write.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if len(pkt) > MaxPacketSize {
		return fmt.Errorf("packet size %d exceeds %d", len(pkt), MaxPacketSize)
	}
	if d, ok := p.Stream.(writeDeadliner); ok && p.WriteTimeout > 0 {
		if err := d.SetWriteDeadline(time.Now().Add(p.WriteTimeout)); err != nil {
			return err
		}
	}
	frame := make([]byte, 4+len(pkt))
	binary.LittleEndian.PutUint32(frame, uint32(len(pkt)))
	copy(frame[4:], pkt)
	_, err := p.Stream.Write(frame)
	return err
}

// Close closes the underlying stream if it is closable.
func (p *ReadWriter) Close() error {
	if closer, ok := p.Stream.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
