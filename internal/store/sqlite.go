package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/holdings-cli/internal/model"
)

// Store wraps the SQLite holdings database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at the given
// path and configures WAL mode.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "store: create dir %s", dir)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "store: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "store: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS holdings (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	etf_code       TEXT NOT NULL,
	capture_date   TEXT NOT NULL,
	ticker         TEXT,
	name           TEXT,
	location       TEXT,
	sector         TEXT,
	maturity       TEXT,
	weight_pct     REAL,
	ytm_pct        REAL,
	market_value   REAL,
	notional_value REAL,
	shares         REAL,
	price          REAL,
	extra          TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id           TEXT PRIMARY KEY,
	etf_code     TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	rows         INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_holdings_etf_date ON holdings(etf_code, capture_date);
CREATE INDEX IF NOT EXISTS idx_holdings_date ON holdings(capture_date);
CREATE INDEX IF NOT EXISTS idx_holdings_name ON holdings(name);
CREATE INDEX IF NOT EXISTS idx_holdings_location ON holdings(location);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_etf ON ingest_runs(etf_code, started_at);
`

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return classify(err, "migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// HasDay reports whether any rows exist for the given code and date.
// This is the idempotency guard for the write path.
func (s *Store) HasDay(ctx context.Context, code, date string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM holdings WHERE etf_code = ? AND capture_date = ?`,
		code, date,
	).Scan(&n)
	if err != nil {
		return false, classify(err, "has day")
	}
	return n > 0, nil
}

// HasCode reports whether the ETF code has any rows at all.
func (s *Store) HasCode(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM holdings WHERE etf_code = ?)`,
		code,
	).Scan(&n)
	if err != nil {
		return false, classify(err, "has code")
	}
	return n > 0, nil
}

// InsertDay inserts one day's batch for one code in a single
// transaction. Returns ErrDuplicateDate if the day already exists;
// the batch is never merged into an existing day.
func (s *Store) InsertDay(ctx context.Context, code, date string, records []model.Holding) (int, error) {
	return s.writeDay(ctx, code, date, records, false)
}

// ReplaceDay deletes any existing rows for the day and inserts the
// batch, in one transaction. Reserved for explicit operator action;
// the pipeline itself never replaces.
func (s *Store) ReplaceDay(ctx context.Context, code, date string, records []model.Holding) (int, error) {
	return s.writeDay(ctx, code, date, records, true)
}

func (s *Store) writeDay(ctx context.Context, code, date string, records []model.Holding, replace bool) (int, error) {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return 0, eris.Wrapf(err, "store: invalid capture date %q", date)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, classify(err, "begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM holdings WHERE etf_code = ? AND capture_date = ?`,
		code, date,
	).Scan(&n); err != nil {
		return 0, classify(err, "check existing day")
	}

	if n > 0 {
		if !replace {
			return 0, eris.Wrapf(ErrDuplicateDate, "store: %s %s has %d rows", code, date, n)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM holdings WHERE etf_code = ? AND capture_date = ?`,
			code, date,
		); err != nil {
			return 0, classify(err, "delete day")
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO holdings (
			etf_code, capture_date, ticker, name, location, sector, maturity,
			weight_pct, ytm_pct, market_value, notional_value, shares, price, extra
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, classify(err, "prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	inserted := 0
	for i := range records {
		h := &records[i]

		var extraJSON any
		if len(h.Extra) > 0 {
			data, err := json.Marshal(h.Extra)
			if err != nil {
				return 0, eris.Wrapf(err, "store: marshal extra for %s", h.Name)
			}
			extraJSON = string(data)
		}

		if _, err := stmt.ExecContext(ctx,
			code, date, nullStr(h.Ticker), nullStr(h.Name), nullStr(h.Location),
			nullStr(h.Sector), nullStr(h.Maturity),
			nullFloat(h.WeightPct), nullFloat(h.YTMPct), nullFloat(h.MarketValue),
			nullFloat(h.NotionalValue), nullFloat(h.Shares), nullFloat(h.Price),
			extraJSON,
		); err != nil {
			return 0, classify(err, "insert row")
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(err, "commit")
	}
	return inserted, nil
}

// LatestDate returns the most recent capture date for a code, or ""
// if the code has no rows.
func (s *Store) LatestDate(ctx context.Context, code string) (string, error) {
	var date sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(capture_date) FROM holdings WHERE etf_code = ?`,
		code,
	).Scan(&date)
	if err != nil {
		return "", classify(err, "latest date")
	}
	return date.String, nil
}

// helpers

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func toPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
