package msgs

import (
	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/navio.go/pkg/framework"
)

// Type ID groups.
const (
	GroupCommand uint32 = 0x00000000
	GroupFlight  uint32 = 0x00030000
	// GroupCustom is the first group free for applications.
	GroupCustom uint32 = 0x7f000000
)

// Generic replies.
const (
	CommandOKTypeID  = GroupCommand | TypeIDMaskReply | 0x0000
	CommandErrTypeID = GroupCommand | TypeIDMaskReply | 0x0001
)

// CommandOK replies a command which succeeded without a result.
type CommandOK struct{}

// NewCommandOK creates a CommandOK.
func NewCommandOK() *CommandOK { return &CommandOK{} }

func (m *CommandOK) NewMessage() fx.Message      { return &CommandOK{} }
func (m *CommandOK) TypeID() uint32              { return CommandOKTypeID }
func (m *CommandOK) Serializable() proto.Message { return m }
func (m *CommandOK) ProtoMessage()               {}
func (m *CommandOK) Reset()                      { *m = CommandOK{} }
func (m *CommandOK) String() string              { return proto.CompactTextString(m) }

// CommandErr replies a failed command. It is also the error of the
// command's Result.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

// NewCommandErr replies err.
func NewCommandErr(err error) *CommandErr {
	return &CommandErr{Message: err.Error()}
}

// NewCommandErrFromMsg replies an error message.
func NewCommandErrFromMsg(message string) *CommandErr {
	return &CommandErr{Message: message}
}

func (m *CommandErr) NewMessage() fx.Message      { return &CommandErr{} }
func (m *CommandErr) TypeID() uint32              { return CommandErrTypeID }
func (m *CommandErr) Serializable() proto.Message { return m }
func (m *CommandErr) ProtoMessage()               {}
func (m *CommandErr) Reset()                      { *m = CommandErr{} }
func (m *CommandErr) String() string              { return proto.CompactTextString(m) }
func (m *CommandErr) Error() string               { return m.Message }
