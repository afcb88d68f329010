// Package msgs is the L1 wire format. Every packet is a Typed envelope
// holding a protobuf message; the type ID tells the kind (command or
// event), whether a command is a reply, and which message to decode.
package msgs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/navio.go/pkg/framework"
)

// Type ID layout: kind bit, 15-bit group, reply bit, 15-bit ID.
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskReply uint32 = 0x00008000
	TypeIDMaskID    uint32 = 0x0000ffff

	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

var (
	// ErrNotSerializable is returned for messages without a type ID.
	ErrNotSerializable = errors.New("not serializable message")
	// ErrUnsupportedCommand is replied to commands nobody handles.
	ErrUnsupportedCommand = errors.New("unsupported command")
)

// ErrUnknownType is returned when decoding an unregistered type ID.
type ErrUnknownType struct {
	TypeID uint32
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// SerializableMessage is a message that can go on the wire.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

var (
	typesLock sync.RWMutex
	types     = map[uint32]SerializableMessage{}
)

func init() {
	Register(&CommandOK{}, &CommandErr{})
}

// Register makes messages decodable by their type IDs. Packages
// defining messages call it from init.
func Register(prototypes ...SerializableMessage) {
	typesLock.Lock()
	defer typesLock.Unlock()
	for _, m := range prototypes {
		types[m.TypeID()] = m
	}
}

// Typed is the envelope of every packet. Sequence pairs a reply with its
// command.
type Typed struct {
	TypeId   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

func (p *Typed) ProtoMessage()  {}
func (p *Typed) Reset()         { *p = Typed{} }
func (p *Typed) String() string { return proto.CompactTextString(p) }

// TypedFrom wraps msg, with sequence 0.
func TypedFrom(msg fx.Message) (*Typed, error) {
	s, ok := msg.(SerializableMessage)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(s.Serializable())
	if err != nil {
		return nil, err
	}
	return &Typed{TypeId: s.TypeID(), Message: data}, nil
}

// DecodeTyped parses a packet.
func DecodeTyped(data []byte) (*Typed, error) {
	typed := &Typed{}
	if err := proto.Unmarshal(data, typed); err != nil {
		return nil, err
	}
	return typed, nil
}

// Encode serializes the envelope.
func (p *Typed) Encode() ([]byte, error) {
	return proto.Marshal(p)
}

// Decode unwraps the message of a registered type.
func (p *Typed) Decode() (fx.Message, error) {
	typesLock.RLock()
	prototype, ok := types[p.TypeId]
	typesLock.RUnlock()
	if !ok {
		return nil, &ErrUnknownType{TypeID: p.TypeId}
	}
	msg := prototype.NewMessage()
	if err := proto.Unmarshal(p.Message, msg.(SerializableMessage).Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Kind is TypeIDKindCommand or TypeIDKindEvent.
func (p *Typed) Kind() uint32 {
	return p.TypeId & TypeIDMaskKind
}

// IsCommand is true for commands and their replies.
func (p *Typed) IsCommand() bool {
	return p.Kind() == TypeIDKindCommand
}

// IsEvent is true for events.
func (p *Typed) IsEvent() bool {
	return p.Kind() == TypeIDKindEvent
}

// IsReply is true for replies to commands.
func (p *Typed) IsReply() bool {
	return p.IsCommand() && p.TypeId&TypeIDMaskReply != 0
}
