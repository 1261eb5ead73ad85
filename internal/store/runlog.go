package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// RunEntry is one row of the ingest_runs log.
type RunEntry struct {
	ID          string     `json:"id"`
	ETFCode     string     `json:"etf_code"`
	Status      string     `json:"status"`
	Rows        int        `json:"rows"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StartRun records the beginning of one source's ingestion attempt and
// returns the run id.
func (s *Store) StartRun(ctx context.Context, code string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, etf_code, status, started_at) VALUES (?, ?, 'running', ?)`,
		id, code, time.Now().UTC(),
	)
	if err != nil {
		return "", classify(err, "start run")
	}
	return id, nil
}

// FinishRun marks a run with its terminal status: inserted, skipped,
// or failed.
func (s *Store) FinishRun(ctx context.Context, runID, status string, rows int, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, rows = ?, error = ?, completed_at = ? WHERE id = ?`,
		status, rows, nullStr(errMsg), time.Now().UTC(), runID,
	)
	return classify(err, "finish run")
}

// ListRuns returns run log entries, most recent first. A zero limit
// returns the last 100.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, etf_code, status, rows, error, started_at, completed_at
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, classify(err, "list runs")
	}
	defer rows.Close() //nolint:errcheck

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var errStr sql.NullString
		var completed sql.NullTime
		if err := rows.Scan(&e.ID, &e.ETFCode, &e.Status, &e.Rows, &errStr, &e.StartedAt, &completed); err != nil {
			return nil, classify(err, "scan run")
		}
		e.Error = errStr.String
		if completed.Valid {
			t := completed.Time
			e.CompletedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, classify(rows.Err(), "iterate runs")
}
