package navioplus

import (
	"errors"
	"sync"
	"time"

	"github.com/robotalks/navio.go/pkg/rc"
)

// ErrStale indicates no complete PPM frame was decoded recently.
var ErrStale = errors.New("ppm signal lost")

// EdgeWaiter is the part of gpio.PinIn used to sample the PPM train.
type EdgeWaiter interface {
	WaitForEdge(timeout time.Duration) bool
}

// PPMInput implements rc.Input by timing PPM edges on a GPIO.
type PPMInput struct {
	Pin        EdgeWaiter
	StaleAfter time.Duration
	Now        func() time.Time

	lock    sync.Mutex
	decoder *Decoder
	stop    chan struct{}
	done    chan struct{}
}

// NewPPMInput creates an input sampling pin.
func NewPPMInput(pin EdgeWaiter) *PPMInput {
	return &PPMInput{
		Pin:        pin,
		StaleAfter: DefaultStaleAfter,
		Now:        time.Now,
		decoder:    NewDecoder(),
	}
}

// Initialize implements rc.Input.
func (in *PPMInput) Initialize() error {
	in.lock.Lock()
	defer in.lock.Unlock()
	if in.stop != nil {
		return nil
	}
	in.stop, in.done = make(chan struct{}), make(chan struct{})
	go in.poll(in.stop, in.done)
	return nil
}

func (in *PPMInput) poll(stop, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if in.Pin.WaitForEdge(in.StaleAfter) {
			in.lock.Lock()
			in.decoder.Edge(in.Now())
			in.lock.Unlock()
		}
	}
}

// Read implements rc.Input.
func (in *PPMInput) Read(channel int) (rc.Sample, error) {
	in.lock.Lock()
	defer in.lock.Unlock()
	if in.stop == nil {
		return rc.Failed(channel, rc.ErrNotInitialized)
	}
	us, ok := in.decoder.Channel(channel, in.Now(), in.StaleAfter)
	if !ok {
		return rc.Failed(channel, ErrStale)
	}
	return rc.Sample(us), nil
}

// Close stops sampling. The pin must be halted by the caller to unblock
// a pending wait early.
func (in *PPMInput) Close() error {
	in.lock.Lock()
	stop, done := in.stop, in.done
	in.stop = nil
	in.lock.Unlock()
	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
