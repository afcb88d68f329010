// Package connector configures how stations reach flight controllers:
// through an MQTT registry or a direct tcp:// or ws:// endpoint.
package connector

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/comm"
	"github.com/robotalks/navio.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/navio.go/pkg/l1/comm/stream"
	"github.com/robotalks/navio.go/pkg/l1/comm/websocket"
)

// Config selects the controller and how to reach it.
type Config struct {
	// Ref names the controller to connect at start, if valid.
	Ref l1.ControllerRef
	// RegistryURL is an MQTT registry, mqtt://host:port/topic-prefix,
	// or the endpoint of a controller listening for stations.
	RegistryURL string
}

var defaultConfig = Config{
	RegistryURL: "mqtt://localhost:1883/navio/",
}

func init() {
	for name, val := range map[string]*string{
		"ROBO_TYPE":         &defaultConfig.Ref.Type,
		"ROBO_ID":           &defaultConfig.Ref.ID,
		"ROBO_REGISTRY_URL": &defaultConfig.RegistryURL,
	} {
		if v := os.Getenv(name); v != "" {
			*val = v
		}
	}
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "robot-type", defaultConfig.Ref.Type, "Controller type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "robot-id", defaultConfig.Ref.ID, "Controller ID to connect.")
	flag.StringVar(&defaultConfig.RegistryURL, "robot-reg", defaultConfig.RegistryURL, "Registry URL or direct controller endpoint.")
}

// NewConfig copies the flag and environment defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

type dialer func(u *url.URL) comm.DialFunc

var directSchemes = map[string]dialer{
	"tcp": func(u *url.URL) comm.DialFunc {
		return func(ctx context.Context) (comm.PacketReadWriter, error) {
			return stream.Dial(ctx, u.Host)
		}
	},
	"ws":  dialWebsocket,
	"wss": dialWebsocket,
}

func dialWebsocket(u *url.URL) comm.DialFunc {
	return func(ctx context.Context) (comm.PacketReadWriter, error) {
		return websocket.Dial(ctx, u.String())
	}
}

// NewConnector creates the Connector for RegistryURL. A direct endpoint
// discovers as a single controller, named by Ref when set.
func (c *Config) NewConnector() (l1.Connector, error) {
	u, err := url.Parse(c.RegistryURL)
	if err != nil {
		return nil, fmt.Errorf("invalid registry URL: %w", err)
	}
	if u.Scheme == "mqtt" || u.Scheme == "ssl" {
		return mqtt.NewConnector(c.RegistryURL)
	}
	dial, ok := directSchemes[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("unknown registry URL scheme: %q", u.Scheme)
	}
	info := l1.ControllerInfo{
		Ref:  l1.ControllerRef{Type: "direct", ID: u.Host},
		Meta: l1.ControllerMeta{Description: c.RegistryURL},
	}
	if c.Ref.IsValid() {
		info.Ref = c.Ref
	}
	return &comm.DirectConnector{Info: info, Dial: dial(u)}, nil
}
