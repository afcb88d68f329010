// Package sim provides an in-memory board: RC channels set by code or
// a joystick, and PWM outputs which only record what is written.
package sim

import (
	"errors"
	"sync"

	"github.com/robotalks/navio.go/pkg/rc"
)

// ErrInjected is the cause reported by channels set to fail.
var ErrInjected = errors.New("injected failure")

// Input is an rc.Input with settable channels.
type Input struct {
	lock        sync.Mutex
	initialized bool
	values      map[int]rc.Sample
	failing     map[int]bool
	reads       []int
}

// NewInput creates an Input with channels preset.
func NewInput(values map[int]rc.Sample) *Input {
	in := &Input{
		values:  make(map[int]rc.Sample),
		failing: make(map[int]bool),
	}
	for ch, v := range values {
		in.values[ch] = v
	}
	return in
}

// Initialize implements rc.Input.
func (in *Input) Initialize() error {
	in.lock.Lock()
	defer in.lock.Unlock()
	in.initialized = true
	return nil
}

// Set sets the pulse width of a channel.
func (in *Input) Set(channel int, v rc.Sample) {
	in.lock.Lock()
	defer in.lock.Unlock()
	in.values[channel] = v
	delete(in.failing, channel)
}

// Fail makes reads on channel fail.
func (in *Input) Fail(channel int) {
	in.lock.Lock()
	defer in.lock.Unlock()
	in.failing[channel] = true
}

// Reads returns the channels read so far, in order.
func (in *Input) Reads() []int {
	in.lock.Lock()
	defer in.lock.Unlock()
	return append([]int(nil), in.reads...)
}

// Read implements rc.Input.
// A channel never set reads as Center.
func (in *Input) Read(channel int) (rc.Sample, error) {
	in.lock.Lock()
	defer in.lock.Unlock()
	in.reads = append(in.reads, channel)
	if !in.initialized {
		return rc.Failed(channel, rc.ErrNotInitialized)
	}
	if in.failing[channel] {
		return rc.Failed(channel, ErrInjected)
	}
	if v, ok := in.values[channel]; ok {
		return v, nil
	}
	return rc.Center, nil
}
