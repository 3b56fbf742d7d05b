package models

import "time"

// TempDataPoint is one entry of the live temperature history. Index is the
// number of points recorded before this one, so indices always run 0..len-1.
type TempDataPoint struct {
	Time        string  `json:"time"`        // ISO-8601 timestamp
	DisplayTime string  `json:"displayTime"` // H:MM:SS for charts
	Temp        float64 `json:"temp"`        // rounded to 1 decimal
	Index       int     `json:"index"`
}

// SessionPoint is the stripped {time, temp} form persisted with a session.
type SessionPoint struct {
	Time string  `json:"time"`
	Temp float64 `json:"temp"`
}

// Session is one recorded boiling episode. A session is inserted open
// (started_at, start_temp) and updated exactly once when it closes; the
// closing fields stay nil while it is open.
type Session struct {
	ID                 string         `json:"id"`
	StartedAt          time.Time      `json:"started_at"`
	EndedAt            *time.Time     `json:"ended_at,omitempty"`
	StartTemp          float64        `json:"start_temp"`
	EndTemp            *float64       `json:"end_temp,omitempty"`
	MaxTemp            *float64       `json:"max_temp,omitempty"`
	BoilingTimeSeconds *int           `json:"boiling_time_seconds,omitempty"`
	DataPoints         []SessionPoint `json:"data_points"`
	HasScaleWarning    bool           `json:"has_scale_warning"`
}

// Closed reports whether the session has been finished.
func (s Session) Closed() bool { return s.EndedAt != nil }

// Trend classifies how boiling time moves across chronological sessions.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDegrading Trend = "degrading"
)

// ScaleAnalysis is the derived scale-buildup diagnostic. It is recomputed
// from the selected sessions on every request and never persisted.
type ScaleAnalysis struct {
	HasSlow        bool     `json:"hasSlow"`
	SlowSession    *Session `json:"slowSession,omitempty"`
	PercentDiff    int      `json:"percentDiff"`
	AvgBoilingTime float64  `json:"avgBoilingTime"`
	Trend          Trend    `json:"trend,omitempty"`
	Recommendation string   `json:"recommendation"`
}
