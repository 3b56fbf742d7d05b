package service

import (
	"context"
	"sync"
	"time"

	"smartpot/internal/logger"
	"smartpot/internal/models"
)

const autoStopTimeout = 10 * time.Second

// Watcher observes device status transitions and closes the active session
// when the device reports it has stopped. The stop fires only on the
// working->stopped edge, never on repeated "stopped" reports.
type Watcher struct {
	sessions Sessions
	log      *logger.Logger

	mu   sync.Mutex
	prev models.DeviceStatus
}

func NewWatcher(sessions Sessions, log *logger.Logger) *Watcher {
	return &Watcher{sessions: sessions, log: log}
}

// OnReading tracks the device status of each reading. Called synchronously
// from the bridge, so the actual stop runs on its own goroutine to keep the
// message path unblocked.
func (w *Watcher) OnReading(r models.Reading) {
	if r.Status == models.StatusUnknown {
		return
	}

	w.mu.Lock()
	edge := w.prev == models.StatusWorking && r.Status == models.StatusStopped
	w.prev = r.Status
	w.mu.Unlock()

	if !edge {
		return
	}
	if _, active := w.sessions.Active(); !active {
		return
	}

	w.log.Infow("device reported stop, closing active session", "temperature", r.Temperature)
	go w.stop(r.Temperature)
}

func (w *Watcher) stop(currentTemp float64) {
	ctx, cancel := context.WithTimeout(context.Background(), autoStopTimeout)
	defer cancel()

	if _, err := w.sessions.Stop(ctx, currentTemp); err != nil {
		w.log.Errorw("auto-stop failed", "err", err)
	}
}
