// Package rc defines how RC receiver channels are sampled.
package rc

import (
	"errors"
	"fmt"
)

// Sample is a decoded channel pulse width in microseconds,
// nominally within [1000, 2000].
type Sample int

// ReadFailure is the sample returned along with a failed read.
const ReadFailure Sample = -1

// Center is the pulse width of a centered stick.
const Center Sample = 1500

// Valid tells if the sample carries a pulse width.
func (s Sample) Valid() bool {
	return s != ReadFailure
}

// Offset returns the distance from Center.
func (s Sample) Offset() int {
	return int(s - Center)
}

var (
	// ErrReadFailed indicates a channel could not be sampled.
	ErrReadFailed = errors.New("rc read failed")
	// ErrNotInitialized indicates Read is called before Initialize.
	ErrNotInitialized = errors.New("rc input not initialized")
)

// ChannelError reports a failed read on a specific channel.
type ChannelError struct {
	Channel int
	Err     error
}

// Error implements error.
func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel %d: %v", e.Channel, e.Err)
}

// Unwrap returns the cause.
func (e *ChannelError) Unwrap() error {
	return e.Err
}

// Failed builds the return values of a failed read.
// The resulting error always matches ErrReadFailed.
func Failed(channel int, cause error) (Sample, error) {
	err := ErrReadFailed
	if cause != nil && !errors.Is(cause, ErrReadFailed) {
		err = fmt.Errorf("%w: %w", ErrReadFailed, cause)
	} else if cause != nil {
		err = cause
	}
	return ReadFailure, &ChannelError{Channel: channel, Err: err}
}

// Input is an RC receiver decoder.
// Read must return promptly: implementations report a failure instead of
// blocking past their own deadline.
type Input interface {
	Initialize() error
	Read(channel int) (Sample, error)
}

// ChannelMap assigns receiver channels to stick functions.
type ChannelMap struct {
	Roll     int `yaml:"roll"`
	Pitch    int `yaml:"pitch"`
	Throttle int `yaml:"throttle"`
	Yaw      int `yaml:"yaw"`
	Safety   int `yaml:"safety"`
	Mode     int `yaml:"mode"`
}

// DefaultChannelMap is the AETR+switches layout most transmitters ship with.
var DefaultChannelMap = ChannelMap{
	Roll:     0,
	Pitch:    1,
	Throttle: 2,
	Yaw:      3,
	Safety:   4,
	Mode:     5,
}

// Validate checks channel indices are non-negative and distinct.
func (m ChannelMap) Validate() error {
	named := []struct {
		name string
		ch   int
	}{
		{"roll", m.Roll},
		{"pitch", m.Pitch},
		{"throttle", m.Throttle},
		{"yaw", m.Yaw},
		{"safety", m.Safety},
		{"mode", m.Mode},
	}
	used := make(map[int]string, len(named))
	for _, n := range named {
		if n.ch < 0 {
			return fmt.Errorf("%s channel %d is negative", n.name, n.ch)
		}
		if other, ok := used[n.ch]; ok {
			return fmt.Errorf("%s and %s share channel %d", other, n.name, n.ch)
		}
		used[n.ch] = n.name
	}
	return nil
}

// Max returns the highest channel index in use.
func (m ChannelMap) Max() int {
	max := m.Roll
	for _, ch := range []int{m.Pitch, m.Throttle, m.Yaw, m.Safety, m.Mode} {
		if ch > max {
			max = ch
		}
	}
	return max
}
