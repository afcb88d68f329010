package mqtt

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/comm"
)

// ReadWriter is a comm.PacketReadWriter on a pair of topics.
//
// Neither side blocks for long: incoming packets beyond the buffer are
// dropped on the paho goroutine, and publishes are bounded by the queue's
// PublishTimeout. A failed publish is logged and the packet lost, as the
// broker reconnects on its own.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh  chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, comm.DefaultOutboxSize),
		done:     make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForConnector reads <ref>/msg and writes <ref>/cmd.
func (p *ReadWriter) ForConnector(ref l1.ControllerRef) *ReadWriter {
	return p.WithTopics(ref.Name()+"/msg", ref.Name()+"/cmd")
}

// ForController reads <ref>/cmd and writes <ref>/msg.
func (p *ReadWriter) ForController(ref l1.ControllerRef) *ReadWriter {
	return p.WithTopics(ref.Name()+"/cmd", ref.Name()+"/msg")
}

// ReadPacket implements comm.PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WritePacket implements comm.PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	if err := p.Queue.Publish(p.PubTopic, pkt, 0, false); err != nil {
		glog.Warningf("mqtt publish %s: %v", p.PubTopic, err)
	}
	return nil
}

// Close ends pending and future reads.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

// Run subscribes SubTopic until ctx is done.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	defer p.Close()
	defer sub.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return nil
	}
}

func (p *ReadWriter) handleMsg(topic string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.done:
	default:
		glog.V(1).Infof("%s: reader behind, packet dropped", topic)
	}
}
