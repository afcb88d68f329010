// Package controller sets up the L1 side of a flight controller: an MQTT
// registration and endpoints stations connect to directly.
package controller

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/golang/glog"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/comm"
	"github.com/robotalks/navio.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/navio.go/pkg/l1/comm/stream"
	"github.com/robotalks/navio.go/pkg/l1/comm/websocket"
	"github.com/robotalks/navio.go/pkg/l1/env"
)

// Config tells how the controller is reached.
type Config struct {
	Info l1.ControllerInfo
	// MQTTBrokerURL registers the controller, mqtt://host:port/prefix.
	// Empty disables MQTT.
	MQTTBrokerURL string
	// Listen are endpoints for direct station connections, like
	// tcp://:7700 or ws://:7780/l1.
	Listen []string
}

var defaultConfig = Config{
	MQTTBrokerURL: "mqtt://localhost:1883/navio/",
}

// listFlag appends comma separated items.
type listFlag struct {
	list *[]string
}

func (f listFlag) String() string {
	if f.list == nil {
		return ""
	}
	return strings.Join(*f.list, ",")
}

func (f listFlag) Set(s string) error {
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*f.list = append(*f.list, item)
		}
	}
	return nil
}

func init() {
	if val, ok := os.LookupEnv("ROBO_MQTT_URL"); ok {
		defaultConfig.MQTTBrokerURL = val
	}
	listFlag{&defaultConfig.Listen}.Set(os.Getenv("NAVIO_LISTEN"))
	defaultConfig.Info.Ref.ID = env.MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Controller type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Controller ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL, empty to disable")
	flag.Var(listFlag{&defaultConfig.Listen}, "listen", "Endpoints for direct station connections: tcp://host:port or ws://host:port/path")
}

// SetControllerType is called from init of a controller binary.
func SetControllerType(typ string, meta l1.ControllerMeta) {
	defaultConfig.Info.Ref.Type = typ
	defaultConfig.Info.Meta = meta
}

// NewConfig copies the flag and environment defaults.
func NewConfig() *Config {
	conf := defaultConfig
	conf.Listen = append([]string(nil), defaultConfig.Listen...)
	return &conf
}

// Env holds the registrars of a controller. All of them receive every
// event. An Env without registrars is valid: the controller flies
// without a ground station.
type Env struct {
	Config    *Config
	Registrar *comm.RegistrarMux
	// Endpoints lists where the controller is reachable.
	Endpoints []string

	servers []*comm.Server
}

// NewEnv creates registrars from c. Listeners are open on return.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, errors.New("controller type and id must be specified")
	}
	e := &Env{Config: c, Registrar: &comm.RegistrarMux{}}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("mqtt registrar: %w", err)
		}
		e.Registrar.Add(reg)
		e.Endpoints = append(e.Endpoints, c.MQTTBrokerURL)
	}
	for _, endpoint := range c.Listen {
		acceptor, err := Listen(endpoint)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("listen %s: %w", endpoint, err)
		}
		glog.Infof("listening on %s", endpoint)
		server := comm.NewServer(acceptor)
		e.servers = append(e.servers, server)
		e.Registrar.Add(server)
		e.Endpoints = append(e.Endpoints, endpoint)
	}
	return e, nil
}

// Listen opens a tcp:// or ws:// endpoint.
func Listen(endpoint string) (comm.Acceptor, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "tcp":
		return stream.Listen(u.Host)
	case "ws":
		return websocket.Listen(u.Host, u.Path)
	}
	return nil, fmt.Errorf("unknown listen scheme: %q", u.Scheme)
}

// Close releases listeners of an Env never added to a loop.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for _, server := range e.servers {
		errs.Add(server.Acceptor.Close())
	}
	return errs.Aggregate()
}

// AddToLoop adds the registrars and answers commands no controller
// takes.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar, &comm.UnsupportedCommands{})
}
