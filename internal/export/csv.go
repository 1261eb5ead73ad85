// Package export serializes query results to delimited text. This is
// a pass-through convenience for the CLI's --out flags, not part of
// the store contract.
package export

import (
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/holdings-cli/internal/model"
)

// WriteHoldings writes holdings as CSV with a header row.
func WriteHoldings(w io.Writer, rows []model.Holding) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "export: marshal holdings")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write")
	}
	return nil
}

// WriteHoldingsFile writes holdings as CSV to the given path.
func WriteHoldingsFile(path string, rows []model.Holding) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	if err := WriteHoldings(f, rows); err != nil {
		return err
	}
	return eris.Wrapf(f.Sync(), "export: sync %s", path)
}

// WriteRecords writes any csvutil-taggable slice (diff rows, exposure
// points) as CSV.
func WriteRecords(w io.Writer, rows any) error {
	data, err := csvutil.Marshal(rows)
	if err != nil {
		return eris.Wrap(err, "export: marshal records")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write")
	}
	return nil
}
