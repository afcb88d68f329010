// Package link drives an IO co-processor that decodes RC and generates PWM,
// reached over a serial port with the L0 protocol.
package link

import (
	"encoding/binary"
)

// Command codes understood by the co-processor firmware.
// Replies carry the request sequence followed by the result data.
const (
	// CmdRCRead reads a channel: [ch] -> [us_lo, us_hi].
	CmdRCRead byte = 0x01
	// CmdPWMInit prepares a channel: [ch].
	CmdPWMInit byte = 0x02
	// CmdPWMFrequency sets a channel frequency: [ch, hz_lo, hz_hi].
	CmdPWMFrequency byte = 0x03
	// CmdPWMEnable starts output on a channel: [ch].
	CmdPWMEnable byte = 0x04
	// CmdPWMDuty sets a pulse width: [ch, us_lo, us_hi].
	CmdPWMDuty byte = 0x05
)

// Error codes reported by the firmware in failed replies.
const (
	ErrCodeChannel    byte = 0x02
	ErrCodeNotEnabled byte = 0x04
	ErrCodeNoSignal   byte = 0x06
)

func channelValue(ch, v int) []byte {
	data := []byte{byte(ch), 0, 0}
	binary.LittleEndian.PutUint16(data[1:], uint16(v))
	return data
}
