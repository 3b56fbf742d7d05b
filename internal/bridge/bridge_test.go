package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"smartpot/internal/logger"
	"smartpot/internal/models"
)

func testCore(t *testing.T) *core {
	t.Helper()
	return newCore(logger.Get(logger.ErrorLevel))
}

func TestCore_LatestTracksLastParsedPayload(t *testing.T) {
	c := testCore(t)

	_, ok := c.Latest()
	assert.False(t, ok, "no data yet")

	c.handleMessage([]byte(`{"temperature": 21.5, "status": "working"}`))
	r, ok := c.Latest()
	assert.True(t, ok)
	assert.Equal(t, 21.5, r.Temperature)
	assert.Equal(t, models.StatusWorking, r.Status)

	c.handleMessage([]byte(`{"temperature": 95.3, "rssi": -61}`))
	r, _ = c.Latest()
	assert.Equal(t, 95.3, r.Temperature)
	if assert.NotNil(t, r.RSSI) {
		assert.Equal(t, -61, *r.RSSI)
	}
}

func TestCore_MalformedPayloadLeavesSlotUnchanged(t *testing.T) {
	c := testCore(t)
	c.handleMessage([]byte(`{"temperature": 42.0}`))
	c.handleMessage([]byte(`{broken`))
	c.handleMessage([]byte(``))

	r, ok := c.Latest()
	assert.True(t, ok)
	assert.Equal(t, 42.0, r.Temperature)
}

func TestCore_SubscribersGetEveryParsedReading(t *testing.T) {
	c := testCore(t)

	var got []float64
	detach := c.Attach(Subscriber{OnReading: func(r models.Reading) {
		got = append(got, r.Temperature)
	}})

	c.handleMessage([]byte(`{"temperature": 1}`))
	c.handleMessage([]byte(`not json`))
	c.handleMessage([]byte(`{"temperature": 2}`))
	assert.Equal(t, []float64{1, 2}, got)

	detach()
	c.handleMessage([]byte(`{"temperature": 3}`))
	assert.Equal(t, []float64{1, 2}, got, "detached subscriber stays silent")
}

func TestCore_NotifyErrorReachesSubscribers(t *testing.T) {
	c := testCore(t)

	var seen error
	c.Attach(Subscriber{OnError: func(err error) { seen = err }})
	c.notifyError(errors.New("broker gone"))
	assert.EqualError(t, seen, "broker gone")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"plain ok", Config{BrokerURL: "tcp://localhost:1883", Topic: "esp32/temperature"}, nil},
		{"missing broker", Config{Topic: "t"}, ErrMissingBroker},
		{"missing topic", Config{BrokerURL: "tcp://x"}, ErrMissingTopic},
		{
			"partial tls",
			Config{BrokerURL: "tls://x:8883", Topic: "t", CAFile: "ca.pem"},
			ErrPartialTLS,
		},
		{
			"full tls ok",
			Config{BrokerURL: "tls://x:8883", Topic: "t", CAFile: "ca.pem", CertFile: "c.pem", KeyFile: "k.pem"},
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestNew_RefusesPartialTLSMaterial(t *testing.T) {
	_, err := New(Config{
		BrokerURL: "tls://example:8883",
		Topic:     "esp32/temperature",
		CertFile:  "client.pem",
		KeyFile:   "client.key",
	}, logger.Get(logger.ErrorLevel))
	assert.ErrorIs(t, err, ErrPartialTLS)
}

func TestNew_PlainVariant(t *testing.T) {
	b, err := New(Config{BrokerURL: "tcp://localhost:1883", Topic: "esp32/temperature"},
		logger.Get(logger.ErrorLevel))
	assert.NoError(t, err)
	assert.IsType(t, &PlainBridge{}, b)
}
