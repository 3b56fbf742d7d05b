package bridge

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"smartpot/internal/logger"
)

// TLSBridge talks to a managed IoT endpoint over mutual TLS at QoS 1. The
// CA, client certificate and private key must all be configured; New
// refuses partial material before this constructor runs.
type TLSBridge struct {
	conn
}

func newTLSBridge(cfg Config, log *logger.Logger) (*TLSBridge, error) {
	tlsCfg, err := cfg.tlsConfig()
	if err != nil {
		return nil, err
	}

	b := &TLSBridge{conn{
		core:  newCore(log),
		topic: cfg.Topic,
		qos:   1,
	}}
	opts := b.baseOptions(cfg, clientID("smart-pot-server")).SetTLSConfig(tlsCfg)
	b.client = mqtt.NewClient(opts)
	return b, nil
}
