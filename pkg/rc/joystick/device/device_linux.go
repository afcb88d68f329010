//go:build linux

package device

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctls of linux/joystick.h.
const (
	jsIOCGAxes    = 0x80016a11
	jsIOCGButtons = 0x80016a12
	// name buffer of 255 bytes.
	jsIOCGName = 0x80ff6a13
)

type jsDevice struct {
	file    *os.File
	index   int
	name    string
	axes    uint8
	buttons uint8
	raw     [eventSize]byte
}

func devicePath(index int) string {
	return fmt.Sprintf("/dev/input/js%d", index)
}

// Open opens /dev/input/js<index>.
func Open(index int) (Device, error) {
	f, err := os.Open(devicePath(index))
	if err != nil {
		return nil, err
	}
	d := &jsDevice{file: f, index: index}
	var name [255]byte
	queries := []struct {
		req uintptr
		ptr unsafe.Pointer
	}{
		{jsIOCGAxes, unsafe.Pointer(&d.axes)},
		{jsIOCGButtons, unsafe.Pointer(&d.buttons)},
		{jsIOCGName, unsafe.Pointer(&name[0])},
	}
	for _, q := range queries {
		if _, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), q.req, uintptr(q.ptr)); errno != 0 {
			f.Close()
			return nil, fmt.Errorf("%s: ioctl %#x: %w", devicePath(index), q.req, errno)
		}
	}
	d.name = unix.ByteSliceToString(name[:])
	return d, nil
}

// DetectAndOpen opens the first joystick from startIndex on. It returns
// nil Device and nil error when there is none.
func DetectAndOpen(startIndex int) (Device, error) {
	for index := startIndex; index < 256; index++ {
		d, err := Open(index)
		if os.IsNotExist(err) {
			continue
		}
		return d, err
	}
	return nil, nil
}

func (d *jsDevice) Close() error     { return d.file.Close() }
func (d *jsDevice) Index() int       { return d.index }
func (d *jsDevice) Name() string     { return d.name }
func (d *jsDevice) AxisCount() int   { return int(d.axes) }
func (d *jsDevice) ButtonCount() int { return int(d.buttons) }

func (d *jsDevice) ReadEvent() (Event, error) {
	if _, err := io.ReadFull(d.file, d.raw[:]); err != nil {
		return nil, err
	}
	return decodeEvent(d.raw[:])
}
