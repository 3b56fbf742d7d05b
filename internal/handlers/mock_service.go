package handlers

import (
	"context"
	"sync"

	"smartpot/internal/bridge"
	"smartpot/internal/models"
	"smartpot/internal/service"
)

// ---- Service Mocks ----

type mockTelemetry struct {
	mu      sync.Mutex
	reading models.Reading
	has     bool

	subs []bridge.Subscriber
}

func (m *mockTelemetry) Latest() (models.Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reading, m.has
}

func (m *mockTelemetry) Attach(sub bridge.Subscriber) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, sub)
	i := len(m.subs) - 1
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.subs[i] = bridge.Subscriber{}
	}
}

// push delivers a reading to every attached subscriber.
func (m *mockTelemetry) push(r models.Reading) {
	m.mu.Lock()
	m.reading = r
	m.has = true
	subs := append([]bridge.Subscriber(nil), m.subs...)
	m.mu.Unlock()
	for _, s := range subs {
		if s.OnReading != nil {
			s.OnReading(r)
		}
	}
}

func (m *mockTelemetry) fail(err error) {
	m.mu.Lock()
	subs := append([]bridge.Subscriber(nil), m.subs...)
	m.mu.Unlock()
	for _, s := range subs {
		if s.OnError != nil {
			s.OnError(err)
		}
	}
}

type mockSessions struct {
	startResp models.Session
	startErr  error
	stopResp  models.Session
	stopErr   error
	listResp  []models.Session
	listErr   error
	getResp   models.Session
	getErr    error
	activeOK  bool

	startCalls int
	stopCalls  int
	lastTemp   float64
	lastGetID  string
}

func (m *mockSessions) Start(ctx context.Context, temp float64) (models.Session, error) {
	m.startCalls++
	m.lastTemp = temp
	return m.startResp, m.startErr
}

func (m *mockSessions) Stop(ctx context.Context, temp float64) (models.Session, error) {
	m.stopCalls++
	m.lastTemp = temp
	return m.stopResp, m.stopErr
}

func (m *mockSessions) Active() (models.Session, bool) {
	return models.Session{}, m.activeOK
}

func (m *mockSessions) List(ctx context.Context) ([]models.Session, error) {
	return m.listResp, m.listErr
}

func (m *mockSessions) Get(ctx context.Context, id string) (models.Session, error) {
	m.lastGetID = id
	return m.getResp, m.getErr
}

type mockAnalysis struct {
	resp    models.ScaleAnalysis
	err     error
	lastIDs []string
}

func (m *mockAnalysis) Analyze(ctx context.Context, ids []string) (models.ScaleAnalysis, error) {
	m.lastIDs = ids
	return m.resp, m.err
}

// newTestHandler assembles a Handler over the mocks with logging disabled.
func newTestHandler(tel *mockTelemetry, sess *mockSessions, an *mockAnalysis, stream StreamConfig) *Handler {
	svc := &service.Service{Telemetry: tel, Sessions: sess, Analysis: an}
	return NewHandler(svc, nil, stream)
}
