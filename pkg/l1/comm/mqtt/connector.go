package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/comm"
)

// DefaultDiscoverTimeout is how long Discover collects retained meta.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Connector is an l1.Connector finding controllers by their retained
// meta topics.
type Connector struct {
	DiscoverTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// NewConnector creates a Connector for brokerURL.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{DiscoverTimeout: DefaultDiscoverTimeout, options: opts, topicPrefix: topicPrefix}, nil
}

// ParseMeta turns a retained <type>/<id>/meta message into
// ControllerInfo. An empty payload is a cleared registration.
func ParseMeta(topic string, payload []byte) (l1.ControllerInfo, bool) {
	levels := strings.Split(topic, "/")
	if len(levels) != 3 || levels[2] != TopicMeta || len(payload) == 0 {
		return l1.ControllerInfo{}, false
	}
	info := l1.ControllerInfo{Ref: l1.ControllerRef{Type: levels[0], ID: levels[1]}}
	if err := json.Unmarshal(payload, &info.Meta); err != nil {
		glog.V(1).Infof("%s: bad meta: %v", topic, err)
	}
	return info, true
}

// Discover implements l1.Connector.
func (c *Connector) Discover(ctx context.Context) ([]l1.ControllerInfo, error) {
	found := make(chan l1.ControllerInfo, 64)
	q := NewQueue(c.options, c.topicPrefix)
	q.Sub("+/+/"+TopicMeta, func(topic string, payload []byte) {
		if info, ok := ParseMeta(topic, payload); ok {
			select {
			case found <- info:
			default:
				glog.V(1).Infof("%s: too many controllers, skipped", topic)
			}
		}
	})
	q.Connect()
	defer q.Close()

	timeout := c.DiscoverTimeout
	if timeout <= 0 {
		timeout = DefaultDiscoverTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	var infos []l1.ControllerInfo
	for {
		select {
		case info := <-found:
			infos = append(infos, info)
		case <-timer.C:
			return infos, nil
		case <-ctx.Done():
			return infos, ctx.Err()
		}
	}
}

// Connect implements l1.Connector.
func (c *Connector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	conn := &ControllerConn{Queue: NewQueue(c.options, c.topicPrefix)}
	conn.Init(NewPacketReadWriter(conn.Queue).ForConnector(ref))
	token := conn.Queue.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		conn.Queue.Close()
		return nil, ctx.Err()
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	return conn, nil
}

// ControllerConn is an l1.ControllerConn over MQTT.
type ControllerConn struct {
	comm.ControllerConn
	Queue *Queue
}

// Close disconnects from the broker.
func (c *ControllerConn) Close() error {
	c.ControllerConn.Close()
	return c.Queue.Close()
}
