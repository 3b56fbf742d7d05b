package service

import (
	"context"

	"smartpot/internal/bridge"
	"smartpot/internal/history"
	"smartpot/internal/logger"
	"smartpot/internal/models"
	"smartpot/internal/repository"
)

// Telemetry exposes the live reading surface backed by the broker bridge.
type Telemetry interface {
	Latest() (models.Reading, bool)
	Attach(sub bridge.Subscriber) (detach func())
}

// Sessions owns the boiling-session lifecycle: idle -> active -> idle.
type Sessions interface {
	Start(ctx context.Context, currentTemp float64) (models.Session, error)
	Stop(ctx context.Context, currentTemp float64) (models.Session, error)
	Active() (models.Session, bool)
	List(ctx context.Context) ([]models.Session, error)
	Get(ctx context.Context, id string) (models.Session, error)
}

// Analysis produces the scale-buildup diagnostic over stored sessions.
type Analysis interface {
	Analyze(ctx context.Context, ids []string) (models.ScaleAnalysis, error)
}

// Service aggregates all sub-services.
type Service struct {
	Telemetry
	Sessions
	Analysis
}

// NewService wires the repository, bridge and history store into concrete
// services.
func NewService(repos *repository.Repository, br bridge.Bridge, hist *history.Store, cache history.Storage, log *logger.Logger) *Service {
	return &Service{
		Telemetry: NewTelemetryService(br),
		Sessions:  NewSessionService(repos.Sessions, hist, cache, log),
		Analysis:  NewAnalysisService(repos.Sessions),
	}
}
