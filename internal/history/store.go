package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind labels what produced an analysis-history row.
const (
	KindAnalysis   = "analysis"
	KindSimulation = "simulation"
)

// Record is one analysis or simulation run.
type Record struct {
	ID           uuid.UUID `json:"id"`
	SessionID    string    `json:"session_id"`
	Kind         string    `json:"kind"`
	Status       string    `json:"status"`
	FallbackUsed bool      `json:"fallback_used"`
	CreatedAt    time.Time `json:"created_at"`
}

// Store persists run history to PostgreSQL. A nil store (or nil db) is a
// no-op so the gateway runs without a DATABASE_URL.
type Store struct {
	db *sql.DB
}

// NewStore creates a run-history store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// RecordRun inserts a history row. Missing IDs and timestamps are filled in.
func (s *Store) RecordRun(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return nil
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Kind == "" {
		rec.Kind = KindAnalysis
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			id, session_id, kind, status, fallback_used, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.SessionID, rec.Kind, rec.Status, rec.FallbackUsed, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("history: failed to insert run: %w", err)
	}
	return nil
}

// ListRecent returns the newest runs, newest first.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, kind, status, fallback_used, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Kind, &rec.Status, &rec.FallbackUsed, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: failed to scan run: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountBySession returns how many runs a session has recorded.
func (s *Store) CountBySession(ctx context.Context, sessionID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM analysis_runs WHERE session_id = $1
	`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: failed to count runs: %w", err)
	}
	return n, nil
}
