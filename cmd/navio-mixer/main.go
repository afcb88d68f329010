package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/navio.go/pkg/board"
	"github.com/robotalks/navio.go/pkg/flight"
	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1"
	env "github.com/robotalks/navio.go/pkg/l1/env/controller"

	_ "github.com/robotalks/navio.go/pkg/board/all"
)

func init() {
	env.SetControllerType("navio-mixer", l1.ControllerMeta{Description: "Navio manual flight mixer"})
	env.SetupFlags()
	board.SetupFlags()
	flight.SetupFlags()
	flag.Set("logtostderr", "true")
}

func run() error {
	conf := flight.NewConfig()
	if err := conf.LoadProfile(); err != nil {
		return err
	}
	if err := conf.Validate(); err != nil {
		return err
	}

	b, err := board.NewConfig().Open()
	if err != nil {
		return err
	}
	defer b.Close()

	ctl := flight.NewController(conf, b.Name, b.Input, b.Output)
	if err := ctl.Init(); err != nil {
		return err
	}

	l1env, err := env.NewConfig().NewEnv()
	if err != nil {
		ctl.Shutdown()
		return err
	}
	ctl.Registrar = l1env.Registrar

	runner := fx.NewRunner().HandleSignals()
	err = fx.NewLoop().
		WithInterval(conf.Interval).
		Add(l1env, ctl).
		Run(runner.Context)
	if stopErr := ctl.Stop(err); stopErr != nil {
		glog.Errorf("shutdown: %v", stopErr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if err := run(); err != nil {
		glog.Errorf("navio-mixer: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
