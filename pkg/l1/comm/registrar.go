package comm

import (
	"context"

	"github.com/golang/glog"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/msgs"
)

// Registrar is the controller end of a Pipe. Received commands and events
// are posted to the loop; commands are answered through the same Pipe.
type Registrar struct {
	pipe *Pipe
}

// NewRegistrar creates a Registrar over rw.
func NewRegistrar(rw PacketReadWriter) *Registrar {
	r := &Registrar{pipe: NewPipe(rw, DefaultOutboxSize)}
	r.pipe.Handler = r.post
	return r
}

func (r *Registrar) post(ctx context.Context, msg fx.Message, typed *msgs.Typed) error {
	loopCtl := fx.LoopCtlFrom(ctx)
	switch typed.Kind() {
	case msgs.TypeIDKindCommand:
		loopCtl.PostMessage(&l1.CommandMsg{Command: &pipeCommand{seq: typed.Sequence, msg: msg, pipe: r.pipe}})
	case msgs.TypeIDKindEvent:
		loopCtl.PostMessage(msg)
	default:
		return nil
	}
	loopCtl.TriggerNext()
	return nil
}

// SendEvent implements l1.Registrar. It never blocks; ErrOutboxFull
// reports an event dropped for a peer which is not reading.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.pipe.SendEventMsg(msg)
}

// Dropped returns the number of packets dropped for this peer.
func (r *Registrar) Dropped() uint64 {
	return r.pipe.Dropped()
}

// Run runs the underlying Pipe.
func (r *Registrar) Run(ctx context.Context) error {
	return r.pipe.Run(ctx)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(r.pipe)
}

type pipeCommand struct {
	seq  uint32
	msg  fx.Message
	pipe *Pipe
}

func (c *pipeCommand) Msg() fx.Message {
	return c.msg
}

// Done queues the reply, see Pipe.SendTyped.
func (c *pipeCommand) Done(reply fx.Message) error {
	return c.pipe.SendCommandMsg(reply, c.seq)
}

// RegistrarMux fans events out to several registrars.
type RegistrarMux struct {
	Registrars []l1.Registrar
}

// Add appends registrars.
func (r *RegistrarMux) Add(regs ...l1.Registrar) {
	r.Registrars = append(r.Registrars, regs...)
}

// SendEvent implements l1.Registrar. A failing registrar does not stop
// the event from reaching the others.
func (r *RegistrarMux) SendEvent(ctx context.Context, msg fx.Message) error {
	var errs fx.AggregatedError
	for _, reg := range r.Registrars {
		errs.Add(reg.SendEvent(ctx, msg))
	}
	return errs.Aggregate()
}

// AddToLoop implements LoopAdder.
func (r *RegistrarMux) AddToLoop(loop *fx.Loop) {
	for _, reg := range r.Registrars {
		if adder, ok := reg.(fx.LoopAdder); ok {
			loop.Add(adder)
		}
	}
}

// UnsupportedCommands answers commands no controller took.
type UnsupportedCommands struct{}

// Control implements Controller.
func (c *UnsupportedCommands) Control(cc fx.ControlContext) error {
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		cmdMsg, ok := mctx.CurrentMessage().(*l1.CommandMsg)
		if !ok {
			return
		}
		mctx.MessageTaken()
		if err := cmdMsg.Command.Done(msgs.NewCommandErr(msgs.ErrUnsupportedCommand)); err != nil {
			glog.Warningf("reply unsupported %T: %v", cmdMsg.Command.Msg(), err)
		}
	}))
	return nil
}

// AddToLoop implements LoopAdder.
func (c *UnsupportedCommands) AddToLoop(loop *fx.Loop) {
	loop.AddController(fx.PrLvIdle, c)
}
