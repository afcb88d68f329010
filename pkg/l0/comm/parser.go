package comm

// SyncState is the link state seen by the parser.
type SyncState int

// SyncState bits.
const (
	SyncStateSyncing   SyncState = 0
	SyncStateReady     SyncState = 0x01
	SyncStateReceiving SyncState = 0x02
)

// IsReady tells if packets can be sent.
func (s SyncState) IsReady() bool {
	return s&SyncStateReady != 0
}

// IsReceiving tells if a sync exchange or a packet is in progress.
func (s SyncState) IsReceiving() bool {
	return s&SyncStateReceiving != 0
}

// TimerAction tells the owner of a Parser what to do with its sync timer.
type TimerAction int

// Timer actions.
const (
	TimerNoChange TimerAction = iota
	TimerRestart
	TimerStop
)

// ParseResult is the outcome of one parser step. Sync is a sync byte to
// send to the peer followed by the local sequence, or 0.
type ParseResult struct {
	Sync   byte
	State  SyncState
	Packet *Packet
}

// WhatAboutTimer derives the timer action from the result.
func (r ParseResult) WhatAboutTimer() TimerAction {
	switch {
	case r.State.IsReceiving(), r.Sync == syncREQ:
		return TimerRestart
	case r.State.IsReady():
		return TimerStop
	}
	return TimerNoChange
}

const (
	syncREQ byte = 0xff
	syncACK byte = 0xfe
)

type parseState int

// States after awaitSeq are synchronized.
const (
	awaitSync     parseState = iota // syncREQ sent
	awaitReqSeq                     // peer sent syncREQ
	awaitAckSeq                     // peer sent syncACK
	awaitSeq                        // idle
	awaitAckCheck                   // syncACK while synchronized
	awaitCode
	awaitLen
	awaitData
	awaitCRC
)

// Parser decodes the byte stream from the peer. It is not safe for
// concurrent use.
type Parser struct {
	state     parseState
	peerSeq   PacketSeq
	packet    *Packet
	filled    int
	crc       byte
	crcErrors uint64
}

// State returns the current sync state.
func (p *Parser) State() SyncState {
	switch {
	case p.state == awaitSync:
		return SyncStateSyncing
	case p.state == awaitSeq:
		return SyncStateReady
	case p.state > awaitSeq:
		return SyncStateReady | SyncStateReceiving
	}
	return SyncStateReceiving
}

// CRCErrors returns the number of packets dropped on CRC mismatch.
func (p *Parser) CRCErrors() uint64 {
	return p.crcErrors
}

// Reset drops any partial packet and requests a sync.
func (p *Parser) Reset() ParseResult {
	p.packet = nil
	return p.result(p.resync())
}

// Parse consumes one byte.
func (p *Parser) Parse(b byte) ParseResult {
	return p.result(p.step(b))
}

// Timeout tells the parser the line stalled. Anything but an idle
// synchronized link is resynced.
func (p *Parser) Timeout() ParseResult {
	if p.state == awaitSeq {
		return p.result(0, nil)
	}
	return p.result(p.resync())
}

func (p *Parser) result(sync byte, pkt *Packet) ParseResult {
	return ParseResult{Sync: sync, State: p.State(), Packet: pkt}
}

func (p *Parser) resync() (byte, *Packet) {
	p.state = awaitSync
	return syncREQ, nil
}

func (p *Parser) step(b byte) (byte, *Packet) {
	switch p.state {
	case awaitSync:
		switch b {
		case syncREQ:
			p.state = awaitReqSeq
		case syncACK:
			p.state = awaitAckSeq
		}
	case awaitReqSeq, awaitAckSeq:
		seq := PacketSeq(b)
		if !seq.IsValid() {
			return p.resync()
		}
		answer := p.state == awaitReqSeq
		p.peerSeq, p.state = seq, awaitSeq
		if answer {
			return syncACK, nil
		}
	case awaitSeq:
		return p.begin(b)
	case awaitAckCheck:
		if PacketSeq(b) != p.peerSeq {
			return p.resync()
		}
		p.state = awaitSeq
	case awaitCode:
		p.crc = CRC8(p.crc, b)
		p.packet.Code = b & 0x8f
		if n := int(b>>4) & 7; n == 7 {
			p.state = awaitLen
		} else {
			p.expectData(n)
		}
	case awaitLen:
		if b > MaxDataLen {
			return p.resync()
		}
		p.crc = CRC8(p.crc, b)
		p.expectData(int(b))
	case awaitData:
		p.packet.Data[p.filled] = b
		p.filled++
		p.crc = CRC8(p.crc, b)
		if p.filled == len(p.packet.Data) {
			p.state = awaitCRC
		}
	case awaitCRC:
		pkt := p.packet
		p.packet = nil
		if b != p.crc {
			p.crcErrors++
			return p.resync()
		}
		p.state = awaitSeq
		return 0, pkt
	}
	return 0, nil
}

// begin handles the first byte while synchronized.
func (p *Parser) begin(b byte) (byte, *Packet) {
	switch {
	case b == syncREQ:
		p.state = awaitReqSeq
	case b == syncACK:
		p.state = awaitAckCheck
	case PacketSeq(b) != p.peerSeq:
		return p.resync()
	default:
		p.packet = &Packet{Seq: p.peerSeq}
		p.peerSeq = p.peerSeq.Next()
		p.crc = CRC8(0, b)
		p.state = awaitCode
	}
	return 0, nil
}

func (p *Parser) expectData(n int) {
	if n == 0 {
		p.state = awaitCRC
		return
	}
	p.packet.Data, p.filled = make([]byte, n), 0
	p.state = awaitData
}
