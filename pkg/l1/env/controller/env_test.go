package controller

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/navio.go/pkg/l1"
	"github.com/robotalks/navio.go/pkg/l1/comm"
)

func TestNewEnvListeners(t *testing.T) {
	conf := NewConfig()
	conf.Info.Ref = l1.ControllerRef{Type: "quad", ID: "test"}
	conf.MQTTBrokerURL = ""
	conf.Listen = []string{"tcp://127.0.0.1:0", "ws://127.0.0.1:0/l1"}
	e, err := conf.NewEnv()
	require.NoError(t, err)
	defer e.Close()
	require.Len(t, e.Registrar.Registrars, 2)
	require.Equal(t, conf.Listen, e.Endpoints)
	for _, reg := range e.Registrar.Registrars {
		require.IsType(t, &comm.Server{}, reg)
	}
}

func TestNewEnvErrors(t *testing.T) {
	conf := NewConfig()
	conf.Info.Ref = l1.ControllerRef{}
	_, err := conf.NewEnv()
	require.Error(t, err)

	conf.Info.Ref = l1.ControllerRef{Type: "quad", ID: "test"}
	conf.MQTTBrokerURL = ""
	conf.Listen = []string{"udp://:1"}
	_, err = conf.NewEnv()
	require.Error(t, err)
}

func TestListFlag(t *testing.T) {
	var list []string
	f := listFlag{&list}
	require.NoError(t, f.Set("tcp://:1, ws://:2/l1"))
	require.NoError(t, f.Set("tcp://:3"))
	require.Equal(t, []string{"tcp://:1", "ws://:2/l1", "tcp://:3"}, list)
	require.Equal(t, "tcp://:1,ws://:2/l1,tcp://:3", f.String())
}
