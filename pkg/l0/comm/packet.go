package comm

import (
	"io"
	"time"
)

// PacketSeq defines the type of packet sequence number.
type PacketSeq byte

// NewPacketSeq creates a randome packet sequence number.
func NewPacketSeq() PacketSeq {
	return PacketSeq(byte(time.Now().UnixNano())).Next()
}

// Next calculates the next sequence number.
func (s PacketSeq) Next() PacketSeq {
	n := byte(s) + 1
	if n == 0 || n >= 0xf0 {
		n = 1
	}
	return PacketSeq(n)
}

// IsValid checks if it's a valid sequence number.
func (s PacketSeq) IsValid() bool {
	n := byte(s)
	return n > 0 && n < 0xf0
}

// Packet contains the information of a parsed packet.
type Packet struct {
	Seq  PacketSeq
	Code byte
	Data []byte
}

// IsEvent tells an unsolicited packet from a reply.
func (p *Packet) IsEvent() bool {
	return p.Code&0x80 != 0
}

// MaxDataLen is the largest payload a packet carries.
const MaxDataLen = 0x7f

func (p *Packet) head() []byte {
	head := []byte{byte(p.Seq), p.Code & 0x8f, byte(len(p.Data))}
	if head[2] < 7 {
		head[1] |= (head[2] << 4) & 0x70
		return head[:2]
	}
	head[1] |= 0x70
	return head
}

// Bytes returns encoded bytes for sending.
func (p *Packet) Bytes() []byte {
	b := append(p.head(), p.Data...)
	return append(b, CRC8(0, b...))
}

// WriteTo writes encoded bytes as a single write.
func (p *Packet) WriteTo(w io.Writer) (n int, err error) {
	if len(p.Data) > MaxDataLen {
		return 0, ErrDataTooLong
	}
	return w.Write(p.Bytes())
}
