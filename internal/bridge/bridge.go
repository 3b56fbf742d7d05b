package bridge

import (
	"encoding/json"
	"sync"

	"smartpot/internal/logger"
	"smartpot/internal/models"
)

// Subscriber receives bridge notifications. Callbacks are invoked
// synchronously on the broker client's handler goroutine and must not block.
type Subscriber struct {
	OnReading func(models.Reading)
	OnError   func(error)
}

// Bridge is the single process-wide link to the telemetry broker. It keeps
// only the most recent successfully parsed reading; consumers may miss
// intermediate values but never observe out-of-order ones.
type Bridge interface {
	// Connect establishes the broker connection. Transport failures are
	// retried internally with a fixed backoff; Connect only fails on
	// errors retrying cannot fix.
	Connect() error

	// Latest returns the last parsed reading. ok is false until the first
	// message arrives.
	Latest() (r models.Reading, ok bool)

	// Attach registers a subscriber and returns its detach function.
	// Detaching never affects the broker connection or other subscribers.
	Attach(sub Subscriber) (detach func())

	// Close drops the broker connection.
	Close()
}

// core holds the latest-reading slot and the subscriber set shared by both
// bridge variants.
type core struct {
	log *logger.Logger

	mu        sync.RWMutex
	latest    models.Reading
	hasLatest bool
	subs      map[int]Subscriber
	nextSub   int
}

func newCore(log *logger.Logger) *core {
	return &core{log: log, subs: make(map[int]Subscriber)}
}

func (c *core) Latest() (models.Reading, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.hasLatest
}

func (c *core) Attach(sub Subscriber) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = sub
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// handleMessage parses a raw broker payload and replaces the latest slot.
// Malformed payloads are logged and dropped; the slot keeps its old value.
func (c *core) handleMessage(payload []byte) {
	var r models.Reading
	if err := json.Unmarshal(payload, &r); err != nil {
		c.log.Warnw("dropping malformed telemetry payload", "err", err, "len", len(payload))
		return
	}

	c.mu.Lock()
	c.latest = r
	c.hasLatest = true
	subs := c.snapshotLocked()
	c.mu.Unlock()

	for _, s := range subs {
		if s.OnReading != nil {
			s.OnReading(r)
		}
	}
}

// notifyError fans a bridge-level error out to subscribers.
func (c *core) notifyError(err error) {
	c.mu.RLock()
	subs := c.snapshotLocked()
	c.mu.RUnlock()

	for _, s := range subs {
		if s.OnError != nil {
			s.OnError(err)
		}
	}
}

func (c *core) snapshotLocked() []Subscriber {
	out := make([]Subscriber, 0, len(c.subs))
	for _, s := range c.subs {
		out = append(out, s)
	}
	return out
}

// New selects the bridge variant from the config: mutual-TLS when cert
// material is present, plain otherwise. Partial TLS material is refused.
func New(cfg Config, log *logger.Logger) (Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UseTLS() {
		return newTLSBridge(cfg, log)
	}
	return newPlainBridge(cfg, log), nil
}
