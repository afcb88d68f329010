// Package msgs defines the L1 messages of the flight mixer.
package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1/msgs"
)

// FlightStatusQuery queries the current status.
type FlightStatusQuery struct {
}

// NewMessage implements Message.
func (m *FlightStatusQuery) NewMessage() fx.Message { return &FlightStatusQuery{} }

// TypeID implements SerializableMessage.
func (m *FlightStatusQuery) TypeID() uint32 { return FlightStatusQueryTypeID }

// Serializable implements SerializableMessage.
func (m *FlightStatusQuery) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *FlightStatusQuery) ProtoMessage() {}

// Reset implements proto.Message.
func (m *FlightStatusQuery) Reset() { *m = FlightStatusQuery{} }

// String implements proto.Message.
func (m *FlightStatusQuery) String() string { return proto.CompactTextString(m) }

// FlightStatusReply is the response for FlightStatusQuery.
type FlightStatusReply struct {
	Status *FlightStatus `protobuf:"bytes,1,opt,name=status,proto3" json:"status,omitempty"`
}

// NewMessage implements Message.
func (m *FlightStatusReply) NewMessage() fx.Message { return &FlightStatusReply{} }

// TypeID implements SerializableMessage.
func (m *FlightStatusReply) TypeID() uint32 { return FlightStatusReplyTypeID }

// Serializable implements SerializableMessage.
func (m *FlightStatusReply) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *FlightStatusReply) ProtoMessage() {}

// Reset implements proto.Message.
func (m *FlightStatusReply) Reset() { *m = FlightStatusReply{} }

// String implements proto.Message.
func (m *FlightStatusReply) String() string { return proto.CompactTextString(m) }

// FlightStatus is an Event message reflecting the mixer state.
// Motors carries the last commands of M1..M4.
type FlightStatus struct {
	Board    string  `protobuf:"bytes,1,opt,name=board,proto3" json:"board,omitempty"`
	Armed    bool    `protobuf:"varint,2,opt,name=armed,proto3" json:"armed,omitempty"`
	Held     bool    `protobuf:"varint,3,opt,name=held,proto3" json:"held,omitempty"`
	Auto     bool    `protobuf:"varint,4,opt,name=auto,proto3" json:"auto,omitempty"`
	Throttle int32   `protobuf:"varint,5,opt,name=throttle,proto3" json:"throttle,omitempty"`
	Motors   []int32 `protobuf:"varint,6,rep,packed,name=motors,proto3" json:"motors,omitempty"`
	Cycles   uint64  `protobuf:"varint,7,opt,name=cycles,proto3" json:"cycles,omitempty"`
	Overruns uint64  `protobuf:"varint,8,opt,name=overruns,proto3" json:"overruns,omitempty"`
}

// NewMessage implements Message.
func (m *FlightStatus) NewMessage() fx.Message { return &FlightStatus{} }

// TypeID implements SerializableMessage.
func (m *FlightStatus) TypeID() uint32 { return FlightStatusEventTypeID }

// Serializable implements SerializableMessage.
func (m *FlightStatus) Serializable() proto.Message { return m }

// ProtoMessage implements proto.Message.
func (m *FlightStatus) ProtoMessage() {}

// Reset implements proto.Message.
func (m *FlightStatus) Reset() { *m = FlightStatus{} }

// String implements proto.Message.
func (m *FlightStatus) String() string { return proto.CompactTextString(m) }

// GroupFlight is the message group of the flight mixer.
const GroupFlight = msgs.GroupFlight

// TypeIDs
const (
	FlightStatusEventTypeID uint32 = GroupFlight | msgs.TypeIDKindEvent | 0x0000
	FlightStatusQueryTypeID uint32 = GroupFlight | 0x0000
	FlightStatusReplyTypeID uint32 = GroupFlight | msgs.TypeIDMaskReply | 0x0000
)

func init() {
	msgs.Register(&FlightStatus{}, &FlightStatusQuery{}, &FlightStatusReply{})
}
