// Package history keeps the live temperature history a dashboard works
// with: a time-ordered sequence of data points, running statistics over it,
// and a session-scoped cache so the history survives reloads.
package history

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"smartpot/internal/logger"
	"smartpot/internal/models"
	"smartpot/internal/stream"
)

// Store accumulates TempDataPoints from the telemetry stream. Indices are
// assigned monotonically (0-based count of prior points) and the whole
// history is written back to storage after every append.
type Store struct {
	log     *logger.Logger
	storage Storage

	mu        sync.RWMutex
	points    []models.TempDataPoint
	live      float64
	hasLive   bool
	connected bool
	lastErr   string
}

// NewStore restores any previously cached history. A corrupt cache entry is
// treated as empty history; no error surfaces.
func NewStore(storage Storage, log *logger.Logger) *Store {
	s := &Store{storage: storage, log: log}
	if raw, ok := storage.Get(HistoryKey); ok {
		var pts []models.TempDataPoint
		if err := json.Unmarshal([]byte(raw), &pts); err == nil {
			s.points = pts
		} else {
			log.Warnw("ignoring corrupt history cache", "err", err)
		}
	}
	return s
}

// Append records a reading taken at now, rounding the temperature to one
// decimal, and persists the updated history.
func (s *Store) Append(temp float64, now time.Time) models.TempDataPoint {
	p := models.TempDataPoint{
		Time:        now.Format(time.RFC3339),
		DisplayTime: fmt.Sprintf("%d:%02d:%02d", now.Hour(), now.Minute(), now.Second()),
		Temp:        round1(temp),
	}

	s.mu.Lock()
	p.Index = len(s.points)
	s.points = append(s.points, p)
	s.live = temp
	s.hasLive = true
	s.persistLocked()
	s.mu.Unlock()
	return p
}

// SetLive updates only the instantaneous temperature, without growing the
// history. Used between recorder ticks.
func (s *Store) SetLive(temp float64) {
	s.mu.Lock()
	s.live = temp
	s.hasLive = true
	s.mu.Unlock()
}

// Points returns a copy of the accumulated history.
func (s *Store) Points() []models.TempDataPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.TempDataPoint, len(s.points))
	copy(out, s.points)
	return out
}

// Len returns the number of accumulated points.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Live returns the most recent instantaneous temperature.
func (s *Store) Live() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.live
}

// MaxTemperature is the maximum over the history, or the live temperature
// when the history is empty.
func (s *Store) MaxTemperature() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.points) == 0 {
		return s.live
	}
	max := s.points[0].Temp
	for _, p := range s.points[1:] {
		if p.Temp > max {
			max = p.Temp
		}
	}
	return max
}

// AvgTemp is the mean over the history formatted to one decimal, or the
// live temperature when the history is empty.
func (s *Store) AvgTemp() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.points) == 0 {
		return fmt.Sprintf("%.1f", s.live)
	}
	var sum float64
	for _, p := range s.points {
		sum += p.Temp
	}
	return fmt.Sprintf("%.1f", sum/float64(len(s.points)))
}

// Reset truncates the history and clears its cache entry. Called when a
// session completes.
func (s *Store) Reset() {
	s.mu.Lock()
	s.points = nil
	s.storage.Delete(HistoryKey)
	s.mu.Unlock()
}

// Connected reports stream connectivity and the last surfaced error.
func (s *Store) Connected() (bool, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected, s.lastErr
}

// MarkDisconnected flips connectivity off with a generic message, keeping
// the history. Used on transport-level stream failure.
func (s *Store) MarkDisconnected() {
	s.mu.Lock()
	s.connected = false
	s.lastErr = "lost connection to the telemetry server"
	s.mu.Unlock()
}

// StreamHandler adapts the store to a stream client: connected events clear
// errors, error events flip connectivity, readings are appended.
func (s *Store) StreamHandler() stream.Handler {
	return stream.Handler{
		OnConnected: func() {
			s.mu.Lock()
			s.connected = true
			s.lastErr = ""
			s.mu.Unlock()
		},
		OnError: func(message string) {
			s.mu.Lock()
			s.connected = false
			s.lastErr = message
			s.mu.Unlock()
		},
		OnReading: func(r models.Reading) {
			s.Append(r.Temperature, time.Now())
		},
	}
}

func (s *Store) persistLocked() {
	b, err := json.Marshal(s.points)
	if err != nil {
		return
	}
	s.storage.Set(HistoryKey, string(b))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
