package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/comm"
	"github.com/robotalks/navio.go/pkg/l1/msgs"
)

// Topic suffixes under <type>/<id>/.
const (
	TopicMeta   = "meta"
	TopicStatus = "status"
)

// Registrar implements l1.Registrar using MQTT.
// Besides the event stream, the last event is retained on the status
// topic so monitors joining late see the current state.
type Registrar struct {
	Queue *Queue
	Info  l1.ControllerInfo

	meta      []byte
	registrar *comm.Registrar
	// holds the newest status not yet published.
	status chan []byte
}

// NewRegistrar creates a Registrar.
func NewRegistrar(brokerURL string, info l1.ControllerInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+info.Ref.Name()+"/"+TopicMeta, nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("navio:" + info.Ref.Name())
	}
	r := &Registrar{
		Queue:  NewQueue(opts, topicPrefix),
		Info:   info,
		meta:   meta,
		status: make(chan []byte, 1),
	}
	r.Queue.OnConnect = func(*Queue) { go r.publish(TopicMeta, r.meta) }
	r.registrar = comm.NewRegistrar(NewPacketReadWriter(r.Queue).ForController(info.Ref))
	return r, nil
}

// SendEvent implements l1.Registrar. It never blocks.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	if err := r.registrar.SendEvent(ctx, msg); err != nil {
		return err
	}
	typed, err := msgs.TypedFrom(msg)
	if err != nil {
		return err
	}
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	// newest wins.
	select {
	case <-r.status:
	default:
	}
	select {
	case r.status <- pkt:
	default:
	}
	return nil
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(r.registrar)
	loop.AddRunnable(r)
}

// Run connects and publishes retained status until ctx is done, then
// clears the retained topics.
func (r *Registrar) Run(ctx context.Context) error {
	r.Queue.Connect()
	defer r.Queue.Close()
	for {
		select {
		case pkt := <-r.status:
			r.publish(TopicStatus, pkt)
		case <-ctx.Done():
			r.publish(TopicMeta, nil)
			r.publish(TopicStatus, nil)
			return nil
		}
	}
}

func (r *Registrar) publish(suffix string, payload []byte) {
	topic := r.Info.Ref.Name() + "/" + suffix
	if err := r.Queue.Publish(topic, payload, 1, true); err != nil {
		glog.Warningf("mqtt publish %s: %v", topic, err)
	}
}
