package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned while the link is not synchronized. Commands
	// pending when sync is lost fail with it too.
	ErrNotReady = errors.New("l0: not synchronized")
	// ErrNoReply fails a command when the peer answered a later one first.
	ErrNoReply = errors.New("l0: no reply")
	// ErrDataTooLong rejects packets with more than MaxDataLen data bytes.
	ErrDataTooLong = errors.New("l0: packet data too long")
)

// CommandError is a failed reply. Code is the reply code without the
// error bit.
type CommandError struct {
	Code byte
}

// Error implements error.
func (e *CommandError) Error() string {
	return fmt.Sprintf("l0: peer error 0x%02x", e.Code)
}
