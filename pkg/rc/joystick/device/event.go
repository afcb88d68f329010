package device

import (
	"encoding/binary"
	"fmt"
)

// struct js_event: u32 time in ms, s16 value, u8 type, u8 number.
const (
	eventSize = 8

	jsEventButton uint8 = 0x01
	jsEventAxis   uint8 = 0x02
	jsEventInit   uint8 = 0x80
)

type baseEvent struct {
	init   bool
	number int
}

func (e *baseEvent) IsInit() bool { return e.init }
func (e *baseEvent) Index() int   { return e.number }

type axisEvent struct {
	baseEvent
	value int
}

func (e *axisEvent) Value() int { return e.value }

type buttonEvent struct {
	baseEvent
	pressed bool
}

func (e *buttonEvent) Pressed() bool { return e.pressed }

func decodeEvent(raw []byte) (Event, error) {
	if len(raw) != eventSize {
		return nil, fmt.Errorf("joystick event size %d, expect %d", len(raw), eventSize)
	}
	value := int16(binary.LittleEndian.Uint16(raw[4:6]))
	base := baseEvent{init: raw[6]&jsEventInit != 0, number: int(raw[7])}
	switch raw[6] &^ jsEventInit {
	case jsEventAxis:
		return &axisEvent{baseEvent: base, value: int(value)}, nil
	case jsEventButton:
		return &buttonEvent{baseEvent: base, pressed: value != 0}, nil
	}
	return &base, nil
}
