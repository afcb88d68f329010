// Package device reads Linux joystick devices (/dev/input/jsN).
// Most RC transmitters expose their sticks and switches as joystick
// axes when plugged in over USB.
package device

import (
	"errors"
	"io"
)

// AxisMax is the absolute value of a fully deflected axis.
const AxisMax = 32767

// ErrUnsupported is returned on platforms without joystick support.
var ErrUnsupported = errors.New("joystick devices are not supported on this platform")

// Event is a change of an axis or a button. The driver reports the
// initial state of every control as init events right after open.
type Event interface {
	IsInit() bool
	// Index is the axis or button number.
	Index() int
}

// AxisEvent is an axis moving, Value in [-AxisMax, AxisMax].
type AxisEvent interface {
	Event
	Value() int
}

// ButtonEvent is a button or switch changing.
type ButtonEvent interface {
	Event
	Pressed() bool
}

// Device is an open joystick.
type Device interface {
	io.Closer
	// Index is N of /dev/input/jsN.
	Index() int
	Name() string
	AxisCount() int
	ButtonCount() int
	// ReadEvent blocks for the next event.
	ReadEvent() (Event, error)
}
