package bridge

import (
	"fmt"
	"math/rand"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// conn wraps a paho client bound to one topic, sharing the latest-reading
// core between the plain and TLS variants.
type conn struct {
	*core
	client mqtt.Client
	topic  string
	qos    byte
}

// Connect starts the broker connection. With connect-retry enabled paho
// keeps dialing with a fixed backoff, so not being connected yet is not an
// error here.
func (b *conn) Connect() error {
	token := b.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		b.log.Warnw("broker not reachable yet, retrying in background", "topic", b.topic)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}
	return nil
}

func (b *conn) Close() {
	b.client.Disconnect(250)
}

// baseOptions builds the client options shared by both variants. The
// subscription is issued from the OnConnect handler so it is reissued after
// every reconnect.
func (b *conn) baseOptions(cfg Config, clientID string) *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(clientID).
		SetCleanSession(true).
		SetKeepAlive(keepAlive).
		SetConnectTimeout(connectTimeout).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(reconnectPeriod).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectPeriod).
		SetOnConnectHandler(b.onConnect).
		SetConnectionLostHandler(b.onConnectionLost)
}

func (b *conn) onConnect(c mqtt.Client) {
	b.log.Infow("connected to broker, subscribing", "topic", b.topic, "qos", b.qos)
	token := c.Subscribe(b.topic, b.qos, b.onMessage)
	token.Wait()
	if err := token.Error(); err != nil {
		b.log.Errorw("subscribe failed", "topic", b.topic, "err", err)
		b.notifyError(fmt.Errorf("subscribe %q: %w", b.topic, err))
	}
}

func (b *conn) onConnectionLost(_ mqtt.Client, err error) {
	b.log.Warnw("broker connection lost", "err", err)
	b.notifyError(fmt.Errorf("broker connection lost: %w", err))
}

func (b *conn) onMessage(_ mqtt.Client, m mqtt.Message) {
	b.handleMessage(m.Payload())
}

// clientID appends a random hex suffix so restarted processes never collide
// on the broker.
func clientID(prefix string) string {
	return fmt.Sprintf("%s-%08x", prefix, rand.Uint32())
}
