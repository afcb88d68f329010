package websocket

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/navio.go/pkg/l1/comm"
)

// ErrListenerClosed is returned by AcceptPackets after Close.
var ErrListenerClosed = errors.New("websocket listener closed")

// Dial connects to a ws:// or wss:// endpoint.
func Dial(ctx context.Context, endpoint string) (*ReadWriter, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	origin := "http://" + u.Host
	if u.Scheme == "wss" {
		origin = "https://" + u.Host
	}
	conf, err := websocket.NewConfig(endpoint, origin)
	if err != nil {
		return nil, err
	}
	conn, err := conf.DialContext(ctx)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// Listener serves websocket connections on an HTTP path.
type Listener struct {
	Path string

	listener net.Listener
	server   *http.Server
	connCh   chan *serverConn
	closeCh  chan struct{}
	once     sync.Once
}

type serverConn struct {
	*ReadWriter
	once sync.Once
	done chan struct{}
}

// Close implements io.Closer and releases the http handler.
func (c *serverConn) Close() (err error) {
	c.once.Do(func() {
		err = c.ReadWriter.Close()
		close(c.done)
	})
	return
}

// Listen starts serving websocket at addr and path.
func Listen(addr, path string) (*Listener, error) {
	if path == "" {
		path = "/"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &Listener{
		Path:     path,
		listener: ln,
		connCh:   make(chan *serverConn),
		closeCh:  make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(l.handle))
	l.server = &http.Server{Handler: mux}
	go func() {
		if err := l.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			glog.Errorf("websocket server %s: %v", addr, err)
		}
	}()
	return l, nil
}

// Addr returns the listening address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *Listener) handle(conn *websocket.Conn) {
	conn.PayloadType = websocket.BinaryFrame
	c := &serverConn{ReadWriter: New(conn), done: make(chan struct{})}
	select {
	case l.connCh <- c:
	case <-l.closeCh:
		return
	}
	select {
	case <-c.done:
	case <-l.closeCh:
	}
}

// AcceptPackets implements comm.Acceptor.
func (l *Listener) AcceptPackets() (comm.PacketReadWriter, error) {
	select {
	case c := <-l.connCh:
		return c, nil
	case <-l.closeCh:
		return nil, ErrListenerClosed
	}
}

// Close stops the server.
func (l *Listener) Close() error {
	var err error
	l.once.Do(func() {
		close(l.closeCh)
		err = l.server.Close()
	})
	return err
}
