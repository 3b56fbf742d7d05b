package repository

import (
	"context"
	"database/sql"
	"time"

	"smartpot/internal/models"
)

// SessionClose carries the fields written when a session finishes. A
// session is mutated exactly once: Finish refuses sessions that are
// already closed.
type SessionClose struct {
	EndedAt            time.Time
	EndTemp            float64
	MaxTemp            float64
	BoilingTimeSeconds *int // nil when the boiling threshold was never reached
	DataPoints         []models.SessionPoint
}

// ListFilter narrows List results. Zero value lists everything.
type ListFilter struct {
	IDs          []string
	OnlyFinished bool
}

// SessionRepo is the durable store for boiling sessions. Failures are never
// retried here; callers surface them to the user.
type SessionRepo interface {
	Insert(ctx context.Context, s models.Session) (models.Session, error)
	Finish(ctx context.Context, id string, c SessionClose) error
	List(ctx context.Context, f ListFilter) ([]models.Session, error)
	GetByID(ctx context.Context, id string) (models.Session, error)
}

type Repository struct {
	Sessions SessionRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Sessions: NewSessionSQLite(db),
	}
}
