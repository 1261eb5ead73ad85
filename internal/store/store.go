// Package store persists holdings snapshots in a single-file SQLite
// database. The store is the only durable state in the system: one
// holdings table keyed by (etf_code, capture_date) plus a run log.
//
// Write discipline is single-writer: one ingestion process at a time.
// Lock contention surfaces as ErrLocked rather than corrupting data.
package store

import (
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	sqlite "modernc.org/sqlite"
)

// ErrDuplicateDate is returned when inserting a day that already has
// stored rows for that ETF code. The whole batch is rejected; stored
// days are final unless the operator explicitly replaces them.
var ErrDuplicateDate = eris.New("store: date already present")

// ErrLocked is returned when another writer holds the database lock.
var ErrLocked = eris.New("store: database locked by another writer")

// SQLite primary result codes for lock contention.
const (
	codeBusy   = 5 // SQLITE_BUSY
	codeLocked = 6 // SQLITE_LOCKED
)

// classify maps driver-level lock errors to ErrLocked and wraps
// everything else with context.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case codeBusy, codeLocked:
			return eris.Wrapf(ErrLocked, "store: %s", op)
		}
	}
	if strings.Contains(err.Error(), "database is locked") {
		return eris.Wrapf(ErrLocked, "store: %s", op)
	}
	return eris.Wrapf(err, "store: %s", op)
}
