// Package flight adds the flight mixer commands to the shell.
package flight

import (
	"github.com/robotalks/navio.go/pkg/cli/sh"
	"github.com/robotalks/navio.go/pkg/flight/msgs"
	fx "github.com/robotalks/navio.go/pkg/framework"
)

// StatusQuery asks the mixer for its armed, mode and motor state.
var StatusQuery = sh.Query{
	Name:    "flight.status",
	Aliases: []string{"fs", "status"},
	Help:    "query armed/mode/motor state of the mixer",
	Msg: func([]string) (fx.Message, error) {
		return &msgs.FlightStatusQuery{}, nil
	},
}

func init() {
	sh.AddQueries(StatusQuery)
}
