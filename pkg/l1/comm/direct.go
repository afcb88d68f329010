package comm

import (
	"context"

	"github.com/robotalks/navio.go/pkg/l1"
)

// DialFunc opens a packet connection to a controller.
type DialFunc func(context.Context) (PacketReadWriter, error)

// DirectConnector implements l1.Connector for a controller reached at
// a known endpoint instead of through a registry.
type DirectConnector struct {
	Info l1.ControllerInfo
	Dial DialFunc
}

// Discover implements Connector. The endpoint is the only controller.
func (c *DirectConnector) Discover(context.Context) ([]l1.ControllerInfo, error) {
	return []l1.ControllerInfo{c.Info}, nil
}

// Connect implements Connector. ref is not checked: whatever listens
// at the endpoint is connected.
func (c *DirectConnector) Connect(ctx context.Context, ref l1.ControllerRef) (l1.ControllerConn, error) {
	rw, err := c.Dial(ctx)
	if err != nil {
		return nil, err
	}
	conn := &DirectConn{}
	conn.Init(rw)
	return conn, nil
}

// DirectConn is the connection created by DirectConnector.
type DirectConn struct {
	ControllerConn
}
