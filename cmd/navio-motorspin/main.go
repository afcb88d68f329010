package main

import (
	"context"
	"errors"
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/navio.go/pkg/board"
	"github.com/robotalks/navio.go/pkg/esc"
	fx "github.com/robotalks/navio.go/pkg/framework"

	_ "github.com/robotalks/navio.go/pkg/board/all"
)

func init() {
	board.SetupFlags()
	esc.SetupFlags()
	flag.Set("logtostderr", "true")
}

func run() error {
	conf := esc.NewConfig()
	if err := conf.Validate(); err != nil {
		return err
	}
	b, err := board.NewConfig().Open()
	if err != nil {
		return err
	}
	defer b.Close()

	seq := conf.NewSequencer(b.Output)
	if err := seq.Init(); err != nil {
		return err
	}
	glog.Infof("running %d phases on channel %d for %v", len(seq.Phases), seq.Channel, seq.Duration())

	runner := fx.NewRunner().HandleSignals()
	err = fx.NewLoop().WithInterval(conf.Feed).Add(seq).Run(runner.Context)
	switch {
	case errors.Is(err, esc.ErrComplete):
		return nil
	case errors.Is(err, context.Canceled):
		return b.Output.SetDutyCycle(seq.Channel, seq.Range.Min)
	}
	return err
}

func main() {
	flag.Parse()
	defer glog.Flush()
	if err := run(); err != nil {
		glog.Errorf("navio-motorspin: %v", err)
		glog.Flush()
		os.Exit(1)
	}
}
