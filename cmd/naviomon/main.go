package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/navio.go/pkg/framework"
	"github.com/robotalks/navio.go/pkg/l1/comm/mqtt"
	"github.com/robotalks/navio.go/pkg/l1/msgs"

	_ "github.com/robotalks/navio.go/pkg/flight/msgs"
)

var (
	mqttURL    = "mqtt://localhost:1883/navio/"
	robotType  = "+"
	outputJSON bool
)

func init() {
	if val := os.Getenv("ROBO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&robotType, "type", robotType, "Only monitor controllers of this type.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print messages in JSON.")
	flag.Set("logtostderr", "true")
}

func format(payload []byte) (string, error) {
	typed, err := msgs.DecodeTyped(payload)
	if err != nil {
		return "", fmt.Errorf("bad message: %w", err)
	}
	msg, err := typed.Decode()
	if err != nil {
		return "", fmt.Errorf("decode error: (type_id=%x) %w", typed.TypeId, err)
	}
	serializable := msg.(msgs.SerializableMessage).Serializable()
	if outputJSON {
		out, err := json.Marshal(serializable)
		return string(out), err
	}
	return fmt.Sprintf("[%s] %s", reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), serializable.String()), nil
}

func main() {
	flag.Parse()

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		glog.Exitln(err)
	}
	now := func() string { return time.Now().Format("15:04:05.000000") }
	q.Sub(robotType+"/#", mqtt.Handler(func(topic string, payload []byte) {
		if strings.HasSuffix(topic, "/"+mqtt.TopicMeta) {
			fmt.Printf("%s %s: %s\n", now(), topic, string(payload))
			return
		}
		if len(payload) == 0 {
			fmt.Printf("%s %s: cleared\n", now(), topic)
			return
		}
		out, err := format(payload)
		if err != nil {
			glog.Warningf("%s: %v", topic, err)
			return
		}
		fmt.Printf("%s %s: %s\n", now(), topic, out)
	}))
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		glog.Exitf("connect %s: %v", mqttURL, token.Error())
	}
	defer q.Close()

	runner := fx.NewRunner().HandleSignals()
	<-runner.Context.Done()
}
