package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"smartpot/internal/bridge"
	"smartpot/internal/history"
	"smartpot/internal/logger"
	"smartpot/internal/models"
)

type fakeTelemetry struct {
	mu      sync.Mutex
	reading models.Reading
	has     bool
}

func (f *fakeTelemetry) Latest() (models.Reading, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reading, f.has
}

func (f *fakeTelemetry) Attach(bridge.Subscriber) func() { return func() {} }

func (f *fakeTelemetry) set(r models.Reading) {
	f.mu.Lock()
	f.reading = r
	f.has = true
	f.mu.Unlock()
}

func TestRecorder_OnlyRecordsOnceDataArrives(t *testing.T) {
	log := logger.Get(logger.ErrorLevel)
	hist := history.NewStore(history.NewMemoryStorage(), log)
	tel := &fakeTelemetry{}
	rec := NewRecorder(tel, hist, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	if hist.Len() != 0 {
		t.Fatalf("expected empty history before first reading")
	}

	tel.set(models.Reading{Temperature: 42.0})
	deadline := time.Now().Add(time.Second)
	for hist.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	if hist.Len() == 0 {
		t.Fatalf("expected points recorded after reading arrived")
	}
	if got := hist.Points()[0].Temp; got != 42.0 {
		t.Fatalf("expected recorded temp 42.0, got %v", got)
	}
}
