// Package mqtt carries L1 pipes over an MQTT broker. Controllers live
// under <prefix><type>/<id>/: meta (retained JSON), status (retained last
// event), cmd (station to controller) and msg (controller to station).
package mqtt

import (
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// DefaultPublishTimeout bounds Publish and paho's own publish queueing.
const DefaultPublishTimeout = time.Second

// ErrPublishTimeout is returned when the broker does not acknowledge a
// publish in time.
var ErrPublishTimeout = errors.New("mqtt: publish timeout")

// Handler receives messages on a subscribed topic, prefix stripped. It
// runs on the paho goroutine and must not block.
type Handler func(topic string, payload []byte)

// Queue is a paho client with a topic prefix and several handlers per
// topic filter. Subscriptions survive reconnects.
type Queue struct {
	Client         paho.Client
	TopicPrefix    string
	PublishTimeout time.Duration
	// OnConnect is called after every (re)connect.
	OnConnect func(*Queue)

	lock    sync.RWMutex
	filters map[string][]*Subscription
}

// Subscription is a Handler registered on a topic filter.
type Subscription struct {
	queue   *Queue
	filter  string
	handler Handler
}

// MatchTopic tells if topic matches filter, with MQTT wildcards.
func MatchTopic(topic, filter string) bool {
	levels := strings.Split(topic, "/")
	for i, f := range strings.Split(filter, "/") {
		if f == "#" {
			return true
		}
		if i >= len(levels) || (f != "+" && f != levels[i]) {
			return false
		}
	}
	return len(strings.Split(filter, "/")) == len(levels)
}

// ClientOptionsFromURL parses [mqtt|tcp|ssl|ws]://[user:pass@]host:port/prefix
// with an optional client-id query parameter. The path becomes the topic
// prefix.
func ClientOptionsFromURL(serverURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, "", err
	}
	scheme := u.Scheme
	if scheme == "" || scheme == "mqtt" {
		scheme = "tcp"
	}
	opts := paho.NewClientOptions().
		AddBroker(scheme + "://" + u.Host).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetWriteTimeout(DefaultPublishTimeout)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	if id := u.Query().Get("client-id"); id != "" {
		opts.SetClientID(id)
	}
	return opts, strings.TrimPrefix(u.Path, "/"), nil
}

// NewQueue creates a Queue. The connect handlers of options are replaced.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{
		TopicPrefix:    topicPrefix,
		PublishTimeout: DefaultPublishTimeout,
		filters:        make(map[string][]*Subscription),
	}
	options.SetOnConnectHandler(func(paho.Client) { q.connected() })
	options.SetConnectionLostHandler(func(_ paho.Client, err error) {
		glog.Warningf("mqtt connection lost: %v", err)
	})
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates a Queue from a broker URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect starts connecting.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// Close disconnects immediately.
func (q *Queue) Close() error {
	q.Client.Disconnect(0)
	return nil
}

// Publish publishes and waits at most PublishTimeout for completion.
func (q *Queue) Publish(topic string, payload []byte, qos byte, retain bool) error {
	token := q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
	if !token.WaitTimeout(q.PublishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Sub adds handler on filter, which may contain wildcards.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, filter: filter, handler: handler}
	q.lock.Lock()
	first := len(q.filters[filter]) == 0
	q.filters[filter] = append(q.filters[filter], sub)
	q.lock.Unlock()
	if first && q.Client.IsConnected() {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
		q.Client.Subscribe(q.TopicPrefix+filter, 0, q.dispatch)
	}
	return sub
}

func (q *Queue) connected() {
	glog.Info("mqtt connected")
	q.lock.RLock()
	filters := make(map[string]byte, len(q.filters))
	for filter := range q.filters {
		filters[q.TopicPrefix+filter] = 0
	}
	q.lock.RUnlock()
	if len(filters) > 0 {
		glog.V(2).Infof("SUB %v", filters)
		q.Client.SubscribeMultiple(filters, q.dispatch)
	}
	if q.OnConnect != nil {
		q.OnConnect(q)
	}
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	if !strings.HasPrefix(msg.Topic(), q.TopicPrefix) {
		return
	}
	topic := msg.Topic()[len(q.TopicPrefix):]
	glog.V(2).Infof("RCV %q", topic)
	var handlers []Handler
	q.lock.RLock()
	for filter, subs := range q.filters {
		if MatchTopic(topic, filter) {
			for _, sub := range subs {
				handlers = append(handlers, sub.handler)
			}
		}
	}
	q.lock.RUnlock()
	for _, h := range handlers {
		h(topic, msg.Payload())
	}
}

// Close removes the handler, and unsubscribes when it was the last one
// on its filter.
func (s *Subscription) Close() error {
	q := s.queue
	q.lock.Lock()
	subs := q.filters[s.filter]
	for i, sub := range subs {
		if sub == s {
			subs = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	last := len(subs) == 0
	if last {
		delete(q.filters, s.filter)
	} else {
		q.filters[s.filter] = subs
	}
	q.lock.Unlock()
	if !last || !q.Client.IsConnected() {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", q.TopicPrefix+s.filter)
	token := q.Client.Unsubscribe(q.TopicPrefix + s.filter)
	if !token.WaitTimeout(q.PublishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}
