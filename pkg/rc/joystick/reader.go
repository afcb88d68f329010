// Package joystick feeds RC channels from a joystick device, which is
// how most transmitters present themselves over USB.
package joystick

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/navio.go/pkg/rc"
	"github.com/robotalks/navio.go/pkg/rc/joystick/device"
)

// AxisToSample maps an axis position to a pulse width in [1000, 2000].
func AxisToSample(v int) rc.Sample {
	if v > device.AxisMax {
		v = device.AxisMax
	} else if v < -device.AxisMax {
		v = -device.AxisMax
	}
	return rc.Center + rc.Sample(v*500/device.AxisMax)
}

var errNoAxisValue = errors.New("axis has not reported")

// Reader is an rc.Input backed by a joystick.
// Channel N reads axis Axes[N] when mapped, or axis N otherwise.
type Reader struct {
	// DeviceIndex selects /dev/input/jsN, -1 detects the first available.
	DeviceIndex int
	// Axes remaps channels to axes.
	Axes map[int]int
	// Inverted lists channels whose axis direction is reversed.
	Inverted map[int]bool

	open func(int) (device.Device, error)

	lock    sync.RWMutex
	dev     device.Device
	values  map[int]int
	pollErr error
}

// NewReader creates a Reader opening device index on Initialize.
func NewReader(index int) *Reader {
	return &Reader{DeviceIndex: index, open: openDevice}
}

// NewReaderWithDevice creates a Reader on an already opened device.
func NewReaderWithDevice(dev device.Device) *Reader {
	return &Reader{
		DeviceIndex: dev.Index(),
		open:        func(int) (device.Device, error) { return dev, nil },
	}
}

func openDevice(index int) (device.Device, error) {
	if index >= 0 {
		return device.Open(index)
	}
	dev, err := device.DetectAndOpen(0)
	if err == nil && dev == nil {
		err = errors.New("no joystick detected")
	}
	return dev, err
}

// Initialize implements rc.Input.
func (r *Reader) Initialize() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.dev != nil {
		return nil
	}
	dev, err := r.open(r.DeviceIndex)
	if err != nil {
		return fmt.Errorf("open joystick: %w", err)
	}
	glog.Infof("Joystick %d %q opened, %d axes", dev.Index(), dev.Name(), dev.AxisCount())
	r.dev, r.values, r.pollErr = dev, make(map[int]int), nil
	go r.poll(dev)
	return nil
}

// Read implements rc.Input. It never blocks: the latest axis value is
// returned, and an axis that has not reported yet reads as a failure.
func (r *Reader) Read(channel int) (rc.Sample, error) {
	axis := channel
	if a, ok := r.Axes[channel]; ok {
		axis = a
	}
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.dev == nil {
		return rc.Failed(channel, rc.ErrNotInitialized)
	}
	if r.pollErr != nil {
		return rc.Failed(channel, r.pollErr)
	}
	v, ok := r.values[axis]
	if !ok {
		return rc.Failed(channel, errNoAxisValue)
	}
	if r.Inverted[channel] {
		v = -v
	}
	return AxisToSample(v), nil
}

// Close releases the device.
func (r *Reader) Close() error {
	r.lock.Lock()
	dev := r.dev
	r.dev = nil
	r.lock.Unlock()
	if dev != nil {
		return dev.Close()
	}
	return nil
}

func (r *Reader) poll(dev device.Device) {
	for {
		ev, err := dev.ReadEvent()
		if err != nil {
			glog.Errorf("Joystick read error: %v", err)
			r.lock.Lock()
			r.pollErr = err
			r.lock.Unlock()
			return
		}
		axisEv, ok := ev.(device.AxisEvent)
		if !ok {
			continue
		}
		if glog.V(5) {
			var prefix string
			if axisEv.IsInit() {
				prefix = "[INIT] "
			}
			glog.Infof(prefix+"Axis %d: %d", axisEv.Index(), axisEv.Value())
		}
		r.lock.Lock()
		r.values[axisEv.Index()] = axisEv.Value()
		r.lock.Unlock()
	}
}
