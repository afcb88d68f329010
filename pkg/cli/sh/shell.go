// Package sh is the interactive ground-station shell connecting to a
// flight mixer over L1.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1"
	env "github.com/robotalks/navio.go/pkg/l1/env/connector"
	"github.com/robotalks/navio.go/pkg/l1/msgs"
)

// DefaultTimeout is the default Shell.Timeout.
const DefaultTimeout = 3 * time.Second

var (
	// ErrNotConnected is returned by commands needing a controller.
	ErrNotConnected = errors.New("not connected")
	// ErrTimeout is returned when a reply does not arrive in time.
	ErrTimeout = errors.New("command timeout")
)

// Query is a shell command which sends one L1 command to the connected
// controller and prints the reply.
type Query struct {
	Name    string
	Aliases []string
	Help    string
	// Msg builds the command from the shell arguments.
	Msg func(args []string) (fx.Message, error)
}

var (
	queries []Query

	evalOnly   bool
	outputJSON bool
	showEvents bool
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.BoolVar(&showEvents, "events", showEvents, "Print events from the connected controller.")
}

// AddQueries registers queries. It is meant for init funcs.
func AddQueries(qs ...Query) {
	queries = append(queries, qs...)
}

// Shell is an ishell backed station: it discovers controllers, keeps at
// most one connection and runs queries on it.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// Timeout bounds discovery and command replies.
	Timeout time.Duration
	Config  *env.Config

	ish     *ishell.Shell
	session *session
	events  atomic.Bool
}

type session struct {
	ref    l1.ControllerRef
	conn   l1.ControllerConn
	cancel context.CancelFunc
}

func (s *session) close() {
	s.cancel()
	if closer, ok := s.conn.(io.Closer); ok {
		closer.Close()
	}
}

// New creates a Shell with the registered queries.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     DefaultTimeout,
		Config:      conf,
		ish:         ishell.New(),
	}
	s.events.Store(showEvents)
	s.updatePrompt()
	s.ish.AddCmd(&ishell.Cmd{Name: "discover", Aliases: []string{"list", "l"}, Help: "list registered flight controllers", Func: s.discoverCmd})
	s.ish.AddCmd(&ishell.Cmd{Name: "connect", Aliases: []string{"c"}, Help: "[TYPE [ID]]", Func: s.connectCmd})
	s.ish.AddCmd(&ishell.Cmd{Name: "disconnect", Aliases: []string{"d"}, Func: func(*ishell.Context) { s.Disconnect() }})
	s.ish.AddCmd(&ishell.Cmd{Name: "events", Help: "on|off", Func: s.eventsCmd})
	for _, q := range queries {
		s.ish.AddCmd(&ishell.Cmd{Name: q.Name, Aliases: q.Aliases, Help: q.Help, Func: s.queryCmd(q)})
	}
	return s
}

// FormatInfo renders ControllerInfo for display.
func FormatInfo(info l1.ControllerInfo) string {
	if info.Meta.Description == "" {
		return info.Ref.Name()
	}
	return info.Ref.Name() + ": " + info.Meta.Description
}

// FormatMessage renders a received message for display.
func FormatMessage(msg fx.Message, asJSON bool) (string, error) {
	serializable, ok := msg.(msgs.SerializableMessage)
	if !ok {
		return "", msgs.ErrNotSerializable
	}
	switch {
	case asJSON:
		out, err := json.Marshal(serializable.Serializable())
		return string(out), err
	case reflect.TypeOf(msg) == reflect.TypeOf(&msgs.CommandOK{}):
		return "OK", nil
	}
	name := reflect.Indirect(reflect.ValueOf(msg)).Type().Name()
	return name + " " + serializable.Serializable().String(), nil
}

// ShowEvents turns event printing on or off.
func (s *Shell) ShowEvents(en bool) {
	s.events.Store(en)
}

// Discover lists controllers matching filter, nil for all.
func (s *Shell) Discover(filter func(l1.ControllerInfo) bool) ([]l1.ControllerInfo, error) {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	found, err := connector.Discover(ctx)
	if err != nil || filter == nil {
		return found, err
	}
	var infos []l1.ControllerInfo
	for _, info := range found {
		if filter(info) {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

// Connect replaces the current connection, if any, with one to ref.
func (s *Shell) Connect(ref l1.ControllerRef) error {
	connector, err := s.Config.NewConnector()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	conn, err := connector.Connect(ctx, ref)
	if err != nil {
		cancel()
		return err
	}
	s.Disconnect()
	s.session = &session{ref: ref, conn: conn, cancel: cancel}
	loop := fx.NewLoop()
	if adder, ok := conn.(fx.LoopAdder); ok {
		loop.Add(adder)
	}
	loop.AddController(fx.PrLvControl, fx.ControlFunc(s.printEvents))
	go func() {
		if err := loop.Run(ctx); err != nil && ctx.Err() == nil {
			glog.Errorf("connection to %s stopped: %v", ref.Name(), err)
		}
	}()
	s.updatePrompt()
	return nil
}

// Disconnect closes the current connection.
func (s *Shell) Disconnect() {
	if s.session == nil {
		return
	}
	s.session.close()
	s.session = nil
	s.updatePrompt()
}

// Do sends msg to the connected controller and waits for the reply.
func (s *Shell) Do(msg fx.Message) (fx.Message, error) {
	if s.session == nil {
		return nil, ErrNotConnected
	}
	select {
	case res := <-s.session.conn.DoCommand(msg).ResultChan():
		return res.Msg, res.Err
	case <-time.After(s.Timeout):
		return nil, ErrTimeout
	}
}

// Run processes args as a single command, or starts the interactive
// shell. It connects first when the config names a controller.
func (s *Shell) Run(args ...string) error {
	if ref := s.Config.Ref; ref.IsValid() {
		if err := s.Connect(ref); err != nil {
			return fmt.Errorf("connect %s: %w", ref.Name(), err)
		}
		defer s.Disconnect()
	}
	switch {
	case len(args) > 0:
		return s.ish.Process(args...)
	case s.Interactive:
		s.ish.Run()
		return nil
	}
	return errors.New("command expected")
}

// updatePrompt shows the connected controller. A Shell built without
// New has no prompt.
func (s *Shell) updatePrompt() {
	if s.ish == nil {
		return
	}
	if s.session == nil {
		s.ish.SetPrompt("[none] > ")
		return
	}
	s.ish.SetPrompt(s.session.ref.Name() + " > ")
}

// printEvents runs on the connection loop.
func (s *Shell) printEvents(cc fx.ControlContext) error {
	show := s.events.Load()
	cc.Messages().ProcessMessages(fx.ProcessMessageFunc(func(mctx fx.MessageProcessingContext) {
		mctx.MessageTaken()
		if !show {
			return
		}
		out, err := FormatMessage(mctx.CurrentMessage(), s.OutputJSON)
		if err != nil {
			glog.V(1).Infof("unprintable event %T: %v", mctx.CurrentMessage(), err)
			return
		}
		s.ish.Println(out)
	}))
	return nil
}

func (s *Shell) discoverCmd(c *ishell.Context) {
	infos, err := s.Discover(nil)
	if err != nil {
		c.Err(err)
		return
	}
	if s.OutputJSON {
		if infos == nil {
			infos = []l1.ControllerInfo{}
		}
		out, err := json.Marshal(infos)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	if len(infos) == 0 {
		c.Println("No controllers found")
	}
	for _, info := range infos {
		c.Println(FormatInfo(info))
	}
}

func (s *Shell) connectCmd(c *ishell.Context) {
	if len(c.Args) >= 2 {
		if err := s.Connect(l1.ControllerRef{Type: c.Args[0], ID: c.Args[1]}); err != nil {
			c.Err(err)
		}
		return
	}
	infos, err := s.Discover(func(info l1.ControllerInfo) bool {
		return len(c.Args) == 0 || info.Ref.Type == c.Args[0]
	})
	if err != nil {
		c.Err(err)
		return
	}
	var choice int
	switch {
	case len(infos) == 0:
		c.Err(errors.New("no controller discovered"))
		return
	case len(infos) > 1 && !s.Interactive:
		c.Err(fmt.Errorf("%d controllers discovered, specify TYPE ID", len(infos)))
		return
	case len(infos) > 1:
		names := make([]string, len(infos))
		for i, info := range infos {
			names[i] = FormatInfo(info)
		}
		choice = c.MultiChoice(names, "Which one to connect?")
	}
	if err := s.Connect(infos[choice].Ref); err != nil {
		c.Err(err)
	}
}

func (s *Shell) eventsCmd(c *ishell.Context) {
	switch strings.Join(c.Args, " ") {
	case "on":
		s.ShowEvents(true)
	case "off":
		s.ShowEvents(false)
	default:
		c.Err(errors.New("usage: events on|off"))
	}
}

func (s *Shell) queryCmd(q Query) func(*ishell.Context) {
	return func(c *ishell.Context) {
		msg, err := q.Msg(c.Args)
		if err != nil {
			c.Err(err)
			return
		}
		reply, err := s.Do(msg)
		if err != nil {
			c.Err(err)
			return
		}
		out, err := FormatMessage(reply, s.OutputJSON)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(out)
	}
}

// Main runs the shell from the command line.
func Main() {
	env.SetupFlags()
	flag.Parse()
	if err := New(env.NewConfig()).Run(flag.Args()...); err != nil {
		glog.Exit(err)
	}
}
