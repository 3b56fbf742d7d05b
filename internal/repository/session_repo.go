package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"smartpot/internal/models"
)

// ErrSessionNotFound is returned for unknown ids and for Finish calls on
// sessions that are already closed.
var ErrSessionNotFound = errors.New("session not found or already finished")

// SQLite TIMESTAMP format
const sqliteTimeLayout = "2006-01-02 15:04:05"

type SessionSQLite struct {
	db *sql.DB
}

func NewSessionSQLite(db *sql.DB) *SessionSQLite { return &SessionSQLite{db: db} }

const sessionColumns = `id, started_at, ended_at, start_temp, end_temp, max_temp, boiling_time_seconds, data_points, has_scale_warning`

// Insert creates an open session. If ID or StartedAt are empty, they're set.
func (r *SessionSQLite) Insert(ctx context.Context, s models.Session) (models.Session, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	} else {
		s.StartedAt = s.StartedAt.UTC()
	}
	if s.DataPoints == nil {
		s.DataPoints = []models.SessionPoint{}
	}

	points, err := marshalPoints(s.DataPoints)
	if err != nil {
		return models.Session{}, err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, start_temp, data_points, has_scale_warning)
		VALUES (?, ?, ?, ?, ?)
	`,
		s.ID,
		s.StartedAt.Format(sqliteTimeLayout),
		s.StartTemp,
		points,
		s.HasScaleWarning,
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// Finish writes the closing fields of an open session.
func (r *SessionSQLite) Finish(ctx context.Context, id string, c SessionClose) error {
	points, err := marshalPoints(c.DataPoints)
	if err != nil {
		return err
	}

	var boiling any
	if c.BoilingTimeSeconds != nil {
		boiling = *c.BoilingTimeSeconds
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET ended_at = ?, end_temp = ?, max_temp = ?, boiling_time_seconds = ?, data_points = ?
		WHERE id = ? AND ended_at IS NULL
	`,
		c.EndedAt.UTC().Format(sqliteTimeLayout),
		c.EndTemp,
		c.MaxTemp,
		boiling,
		points,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session %s: %w", id, err)
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// List returns sessions ordered by started_at descending (newest first).
func (r *SessionSQLite) List(ctx context.Context, f ListFilter) ([]models.Session, error) {
	var (
		conds []string
		args  []any
	)

	if len(f.IDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.IDs)), ",")
		conds = append(conds, "id IN ("+placeholders+")")
		for _, id := range f.IDs {
			args = append(args, id)
		}
	}
	if f.OnlyFinished {
		conds = append(conds, "ended_at IS NOT NULL")
	}

	q := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY started_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Session, 0, 16)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

func (r *SessionSQLite) GetByID(ctx context.Context, id string) (models.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (models.Session, error) {
	var (
		s         models.Session
		endedAt   sql.NullTime
		endTemp   sql.NullFloat64
		maxTemp   sql.NullFloat64
		boiling   sql.NullInt64
		pointsRaw string
	)
	if err := row.Scan(
		&s.ID,
		&s.StartedAt,
		&endedAt,
		&s.StartTemp,
		&endTemp,
		&maxTemp,
		&boiling,
		&pointsRaw,
		&s.HasScaleWarning,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Session{}, err
		}
		return models.Session{}, fmt.Errorf("scan session: %w", err)
	}

	s.StartedAt = s.StartedAt.UTC()
	if endedAt.Valid {
		t := endedAt.Time.UTC()
		s.EndedAt = &t
	}
	if endTemp.Valid {
		v := endTemp.Float64
		s.EndTemp = &v
	}
	if maxTemp.Valid {
		v := maxTemp.Float64
		s.MaxTemp = &v
	}
	if boiling.Valid {
		v := int(boiling.Int64)
		s.BoilingTimeSeconds = &v
	}

	s.DataPoints = []models.SessionPoint{}
	if pointsRaw != "" {
		if err := json.Unmarshal([]byte(pointsRaw), &s.DataPoints); err != nil {
			return models.Session{}, fmt.Errorf("decode data points of session %s: %w", s.ID, err)
		}
	}
	return s, nil
}

func marshalPoints(points []models.SessionPoint) (string, error) {
	if points == nil {
		points = []models.SessionPoint{}
	}
	b, err := json.Marshal(points)
	if err != nil {
		return "", fmt.Errorf("encode data points: %w", err)
	}
	return string(b), nil
}
