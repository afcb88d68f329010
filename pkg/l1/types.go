// Package l1 defines how a flight controller (L1) talks to ground
// stations: the controller registers itself and publishes events, and
// stations discover it and send commands.
package l1

import (
	"context"

	fx "github.com/robotalks/navio.go/pkg/framework"
)

// ControllerRef names a controller as <type>/<id>.
type ControllerRef struct {
	Type string
	ID   string
}

// Name is the <type>/<id> form, also the MQTT topic prefix.
func (r ControllerRef) Name() string {
	return r.Type + "/" + r.ID
}

// IsValid requires both parts.
func (r ControllerRef) IsValid() bool {
	return r.Type != "" && r.ID != ""
}

// ControllerMeta is published with the registration.
type ControllerMeta struct {
	Description string            `json:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty"`
}

// ControllerInfo is what discovery returns.
type ControllerInfo struct {
	Ref  ControllerRef
	Meta ControllerMeta
}

// Registrar is the controller side: it publishes events to every
// connected station. Received commands show up as CommandMsg in the
// controller loop. SendEvent runs on the loop and must not block on the
// network.
type Registrar interface {
	SendEvent(context.Context, fx.Message) error
}

// Command is a received command. Done sends the reply.
type Command interface {
	Msg() fx.Message
	Done(reply fx.Message) error
}

// CommandMsg carries a Command through the controller loop.
type CommandMsg struct {
	Command Command
}

// NewMessage implements fx.Message.
func (m *CommandMsg) NewMessage() fx.Message { return &CommandMsg{} }

// Connector is the station side: it finds controllers and connects to
// one.
type Connector interface {
	Discover(context.Context) ([]ControllerInfo, error)
	Connect(context.Context, ControllerRef) (ControllerConn, error)
}

// ControllerConn sends commands to one controller. Events it receives
// are posted to the loop it is added to.
type ControllerConn interface {
	DoCommand(fx.Message) CommandFuture
}

// CommandFuture delivers exactly one Result.
type CommandFuture interface {
	ResultChan() <-chan Result
}

// Result is the reply of a command, or why there is none. A CommandErr
// reply is both Msg and Err.
type Result struct {
	Msg fx.Message
	Err error
}
