package service

import (
	"smartpot/internal/bridge"
	"smartpot/internal/models"
)

// TelemetryService is a thin read facade over the process-wide bridge, so
// handlers never hold the bridge directly.
type TelemetryService struct {
	bridge bridge.Bridge
}

func NewTelemetryService(br bridge.Bridge) *TelemetryService {
	return &TelemetryService{bridge: br}
}

func (s *TelemetryService) Latest() (models.Reading, bool) {
	return s.bridge.Latest()
}

func (s *TelemetryService) Attach(sub bridge.Subscriber) func() {
	return s.bridge.Attach(sub)
}
