package websocket

import (
	"time"

	"golang.org/x/net/websocket"
)

// DefaultWriteTimeout bounds a single WritePacket.
const DefaultWriteTimeout = 5 * time.Second

// ReadWriter is a comm.PacketReadWriter sending one binary frame per
// packet.
type ReadWriter struct {
	Conn         *websocket.Conn
	WriteTimeout time.Duration
}

// New wraps conn.
func New(conn *websocket.Conn) *ReadWriter {
	return &ReadWriter{Conn: conn, WriteTimeout: DefaultWriteTimeout}
}

// ReadPacket implements comm.PacketReader.
func (p *ReadWriter) ReadPacket() (pkt []byte, err error) {
	err = websocket.Message.Receive(p.Conn, &pkt)
	return
}

// WritePacket implements comm.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if p.WriteTimeout > 0 {
		if err := p.Conn.SetWriteDeadline(time.Now().Add(p.WriteTimeout)); err != nil {
			return err
		}
	}
	return websocket.Message.Send(p.Conn, pkt)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return p.Conn.Close()
}
