package bridge

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smartpot/internal/logger"
)

// PlainBridge talks to an unauthenticated broker at QoS 0. Used for local
// mosquitto-style deployments.
type PlainBridge struct {
	conn
}

func newPlainBridge(cfg Config, log *logger.Logger) *PlainBridge {
	b := &PlainBridge{conn{
		core:  newCore(log),
		topic: cfg.Topic,
		qos:   0,
	}}
	b.client = mqtt.NewClient(b.baseOptions(cfg, clientID("smart-pot-server")))
	return b
}
