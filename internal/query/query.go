// Package query provides read-only analytical views over the holdings
// store: latest snapshot, top-N by weight, per-issuer history, country
// exposure over time, date-to-date diffing, and database statistics.
package query

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/holdings-cli/internal/model"
	"github.com/sells-group/holdings-cli/internal/store"
)

// ErrNoData is returned when the requested ETF code or date has zero
// stored rows. An empty intersection over existing data (e.g. a bond
// name that never matches) is an empty result, not an error.
var ErrNoData = eris.New("query: no data for request")

// Service derives read-only views from the store. It never mutates
// records.
type Service struct {
	store *store.Store
}

// NewService creates a query service over the given store.
func NewService(st *store.Store) *Service {
	return &Service{store: st}
}

// requireCode fails with ErrNoData when the code has no rows at all.
func (s *Service) requireCode(ctx context.Context, code string) error {
	ok, err := s.store.HasCode(ctx, code)
	if err != nil {
		return err
	}
	if !ok {
		return eris.Wrapf(ErrNoData, "query: etf %s", code)
	}
	return nil
}

// Latest returns the holdings of the most recent capture date for the
// code, heaviest first.
func (s *Service) Latest(ctx context.Context, code string) ([]model.Holding, error) {
	date, err := s.store.LatestDate(ctx, code)
	if err != nil {
		return nil, err
	}
	if date == "" {
		return nil, eris.Wrapf(ErrNoData, "query: etf %s", code)
	}
	return s.store.Rows(ctx, store.RowFilter{
		ETFCode: code,
		Date:    date,
		OrderBy: store.OrderByWeight,
	})
}

// Top returns the n heaviest holdings on the given date (latest when
// date is empty). Ties at the cut are broken by issuer name ascending,
// so the result is deterministic.
func (s *Service) Top(ctx context.Context, code string, n int, date string) ([]model.Holding, error) {
	if n <= 0 {
		n = 10
	}
	if date == "" {
		var err error
		date, err = s.store.LatestDate(ctx, code)
		if err != nil {
			return nil, err
		}
		if date == "" {
			return nil, eris.Wrapf(ErrNoData, "query: etf %s", code)
		}
	}

	rows, err := s.store.Rows(ctx, store.RowFilter{
		ETFCode: code,
		Date:    date,
		OrderBy: store.OrderByWeight,
		Limit:   n,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Wrapf(ErrNoData, "query: etf %s on %s", code, date)
	}
	return rows, nil
}

// BondHistory returns every record whose name contains the given
// substring, across all captured dates, ascending by date. An empty
// result for an existing code is not an error.
func (s *Service) BondHistory(ctx context.Context, code, name string) ([]model.Holding, error) {
	if err := s.requireCode(ctx, code); err != nil {
		return nil, err
	}
	return s.store.Rows(ctx, store.RowFilter{
		ETFCode:  code,
		NameLike: name,
		OrderBy:  store.OrderByDate,
	})
}

// CountryExposure returns the per-date aggregate weight of a location
// within the code, ascending by date.
func (s *Service) CountryExposure(ctx context.Context, code, location string) ([]store.ExposurePoint, error) {
	if err := s.requireCode(ctx, code); err != nil {
		return nil, err
	}
	return s.store.Exposure(ctx, code, location)
}

// AvailableDates lists the stored capture dates for a code with row
// counts, most recent first.
func (s *Service) AvailableDates(ctx context.Context, code string) ([]store.DateCount, error) {
	if code != "" {
		if err := s.requireCode(ctx, code); err != nil {
			return nil, err
		}
	}
	return s.store.DayCounts(ctx, code)
}

// Stats summarizes the database contents.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.Summarize(ctx)
}
