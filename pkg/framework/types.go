package framework

import (
	"context"
	"time"
)

// Runnable is a background task bound to a context.
type Runnable interface {
	Run(context.Context) error
}

// Message is posted to a Loop from any goroutine and consumed by
// controllers on the loop goroutine.
type Message interface {
	// NewMessage creates an empty message of the same type.
	NewMessage() Message
}

// Controller runs once per loop iteration at its priority level.
// Returning an error wrapped by Halt stops the loop; other errors are
// logged.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// ControlContext is the view of one iteration given to controllers.
type ControlContext interface {
	// Context is the context the loop runs with.
	Context() context.Context
	// Time is when the iteration started.
	Time() time.Time
	// Tick is the number of scheduled iterations so far. Iterations
	// triggered by TriggerNext share the tick of the last scheduled one.
	Tick() uint64
	// Scheduled tells if the interval timer drove the iteration.
	Scheduled() bool
	// Messages holds the messages posted before the iteration started
	// and not yet taken by a controller.
	Messages() MessageStore

	LoopControl
}

// LoopControl is the part of a Loop safe to use from any goroutine.
type LoopControl interface {
	// PostMessage queues msg for the next iteration.
	PostMessage(Message)
	// TriggerNext runs an extra iteration as soon as possible.
	TriggerNext()
}

// LoopAdder adds itself, and whatever it needs, to a Loop.
type LoopAdder interface {
	AddToLoop(*Loop)
}

// PriorityLevels is the number of priority levels. Lower levels run
// first in every iteration.
const PriorityLevels = 16

// Priority levels in use.
const (
	PrLvSense    = 4
	PrLvControl  = 8
	PrLvActuate  = 12
	PrLvPostProc = PriorityLevels - 2
	PrLvIdle     = PriorityLevels - 1
)

// MessageStore gives controllers the messages of an iteration.
type MessageStore interface {
	ProcessMessages(MessageProcessor)
}

// MessageProcessor examines messages one by one.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext is the message being processed.
type MessageProcessingContext interface {
	CurrentMessage() Message
	// MessageTaken removes the message, so controllers at later levels
	// do not see it.
	MessageTaken()
}
