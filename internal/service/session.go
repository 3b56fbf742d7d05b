package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"smartpot/internal/history"
	"smartpot/internal/logger"
	"smartpot/internal/models"
	"smartpot/internal/repository"
)

// BoilingThresholdC is the temperature at which the water counts as boiling.
const BoilingThresholdC = 90.0

var (
	ErrSessionActive   = errors.New("a session is already active")
	ErrNoActiveSession = errors.New("no active session")
)

// SessionService manages the idle/active lifecycle. The active session is
// cached in session-scoped storage so a restarted dashboard resumes it
// without re-querying the durable store.
type SessionService struct {
	repo    repository.SessionRepo
	history *history.Store
	cache   history.Storage
	log     *logger.Logger

	mu     sync.Mutex
	active *models.Session
}

func NewSessionService(repo repository.SessionRepo, hist *history.Store, cache history.Storage, log *logger.Logger) *SessionService {
	s := &SessionService{repo: repo, history: hist, cache: cache, log: log}
	s.restoreFromCache()
	return s
}

// restoreFromCache resumes a cached active session. A corrupt cache entry
// is dropped silently; the cache is never the source of truth.
func (s *SessionService) restoreFromCache() {
	raw, ok := s.cache.Get(history.ActiveSessionKey)
	if !ok {
		return
	}
	var cached models.Session
	if err := json.Unmarshal([]byte(raw), &cached); err != nil || cached.ID == "" {
		s.cache.Delete(history.ActiveSessionKey)
		return
	}
	s.active = &cached
	s.log.Infow("restored active session from cache", "id", cached.ID)
}

// Start opens a new session at the given temperature. Valid only from idle;
// on persistence failure the service stays idle so the caller may retry.
func (s *SessionService) Start(ctx context.Context, currentTemp float64) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return models.Session{}, ErrSessionActive
	}

	created, err := s.repo.Insert(ctx, models.Session{
		StartedAt:  time.Now().UTC(),
		StartTemp:  round1(currentTemp),
		DataPoints: []models.SessionPoint{},
	})
	if err != nil {
		return models.Session{}, fmt.Errorf("create session: %w", err)
	}

	s.active = &created
	s.cacheActiveLocked()
	s.log.Infow("session started", "id", created.ID, "start_temp", created.StartTemp)
	return created, nil
}

// Stop closes the active session, deriving end/max temperature and boiling
// time from the accumulated history. On persistence failure the session
// stays active and the caller may retry; on success the history and the
// session cache are cleared.
func (s *SessionService) Stop(ctx context.Context, currentTemp float64) (models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.ID == "" {
		return models.Session{}, ErrNoActiveSession
	}

	points := s.history.Points()
	now := time.Now().UTC()
	endTemp := round1(currentTemp)
	closeFields := repository.SessionClose{
		EndedAt:            now,
		EndTemp:            endTemp,
		MaxTemp:            maxPointTemp(points, endTemp),
		BoilingTimeSeconds: BoilingTime(points),
		DataPoints:         stripPoints(points),
	}

	if err := s.repo.Finish(ctx, s.active.ID, closeFields); err != nil {
		return models.Session{}, fmt.Errorf("finish session: %w", err)
	}

	closed := *s.active
	closed.EndedAt = &closeFields.EndedAt
	closed.EndTemp = &closeFields.EndTemp
	closed.MaxTemp = &closeFields.MaxTemp
	closed.BoilingTimeSeconds = closeFields.BoilingTimeSeconds
	closed.DataPoints = closeFields.DataPoints

	s.active = nil
	s.cache.Delete(history.ActiveSessionKey)
	s.history.Reset()
	s.log.Infow("session finished", "id", closed.ID, "boiling_time_s", closeFields.BoilingTimeSeconds)
	return closed, nil
}

// Active returns the current session, if any.
func (s *SessionService) Active() (models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return models.Session{}, false
	}
	return *s.active, true
}

func (s *SessionService) List(ctx context.Context) ([]models.Session, error) {
	sessions, err := s.repo.List(ctx, repository.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("load sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionService) Get(ctx context.Context, id string) (models.Session, error) {
	session, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return models.Session{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return session, nil
}

func (s *SessionService) cacheActiveLocked() {
	b, err := json.Marshal(s.active)
	if err != nil {
		return
	}
	s.cache.Set(history.ActiveSessionKey, string(b))
}

// BoilingTime is the index of the first point at or above the boiling
// threshold. Points arrive roughly once per second, so the index doubles as
// elapsed seconds. Returns nil when the threshold was never reached; a
// value is never fabricated.
func BoilingTime(points []models.TempDataPoint) *int {
	for _, p := range points {
		if p.Temp >= BoilingThresholdC {
			idx := p.Index
			return &idx
		}
	}
	return nil
}

// maxPointTemp is the highest temperature in the snapshot that Stop
// persists. Derived from the same slice as data_points so a point
// appended mid-Stop can never shift the max without also being stored.
// Falls back to the end temperature when nothing was recorded.
func maxPointTemp(points []models.TempDataPoint, fallback float64) float64 {
	if len(points) == 0 {
		return fallback
	}
	max := points[0].Temp
	for _, p := range points[1:] {
		if p.Temp > max {
			max = p.Temp
		}
	}
	return max
}

func stripPoints(points []models.TempDataPoint) []models.SessionPoint {
	out := make([]models.SessionPoint, len(points))
	for i, p := range points {
		out[i] = models.SessionPoint{Time: p.Time, Temp: p.Temp}
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
