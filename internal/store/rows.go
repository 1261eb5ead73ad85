package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/holdings-cli/internal/model"
)

// Row ordering for RowFilter queries.
const (
	OrderByDate   = "date"   // capture_date asc, then weight desc
	OrderByWeight = "weight" // weight desc, ties broken by name asc
)

// RowFilter selects holdings rows. Zero-value fields are ignored.
type RowFilter struct {
	ETFCode  string
	Date     string // exact capture date
	FromDate string // inclusive range start
	ToDate   string // inclusive range end
	NameLike string // substring match on issuer/bond name
	OrderBy  string // OrderByDate (default) or OrderByWeight
	Limit    int
}

const rowColumns = `id, etf_code, capture_date, ticker, name, location, sector, maturity,
	weight_pct, ytm_pct, market_value, notional_value, shares, price, extra`

// Rows returns holdings matching the filter.
func (s *Store) Rows(ctx context.Context, f RowFilter) ([]model.Holding, error) {
	query := `SELECT ` + rowColumns + ` FROM holdings WHERE 1=1`
	var args []any

	if f.ETFCode != "" {
		query += ` AND etf_code = ?`
		args = append(args, f.ETFCode)
	}
	if f.Date != "" {
		query += ` AND capture_date = ?`
		args = append(args, f.Date)
	}
	if f.FromDate != "" {
		query += ` AND capture_date >= ?`
		args = append(args, f.FromDate)
	}
	if f.ToDate != "" {
		query += ` AND capture_date <= ?`
		args = append(args, f.ToDate)
	}
	if f.NameLike != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+f.NameLike+"%")
	}

	switch f.OrderBy {
	case OrderByWeight:
		query += ` ORDER BY weight_pct DESC, name ASC`
	default:
		query += ` ORDER BY capture_date ASC, weight_pct DESC, name ASC`
	}

	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "query rows")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, classify(rows.Err(), "iterate rows")
}

func scanHolding(rows *sql.Rows) (*model.Holding, error) {
	var h model.Holding
	var ticker, name, location, sector, maturity, extra sql.NullString
	var weight, ytm, mktVal, notional, shares, price sql.NullFloat64

	if err := rows.Scan(
		&h.ID, &h.ETFCode, &h.CaptureDate, &ticker, &name, &location, &sector, &maturity,
		&weight, &ytm, &mktVal, &notional, &shares, &price, &extra,
	); err != nil {
		return nil, classify(err, "scan holding")
	}

	h.Ticker = ticker.String
	h.Name = name.String
	h.Location = location.String
	h.Sector = sector.String
	h.Maturity = maturity.String
	h.WeightPct = toPtr(weight)
	h.YTMPct = toPtr(ytm)
	h.MarketValue = toPtr(mktVal)
	h.NotionalValue = toPtr(notional)
	h.Shares = toPtr(shares)
	h.Price = toPtr(price)

	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &h.Extra); err != nil {
			return nil, eris.Wrapf(err, "store: unmarshal extra for row %d", h.ID)
		}
	}
	return &h, nil
}

// DateCount is one capture date and its row count.
type DateCount struct {
	Date string `json:"date"`
	Rows int    `json:"rows"`
}

// DayCounts lists the capture dates stored for a code, most recent
// first. An empty code lists dates across all codes.
func (s *Store) DayCounts(ctx context.Context, code string) ([]DateCount, error) {
	query := `SELECT capture_date, COUNT(*) FROM holdings`
	var args []any
	if code != "" {
		query += ` WHERE etf_code = ?`
		args = append(args, code)
	}
	query += ` GROUP BY capture_date ORDER BY capture_date DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "day counts")
	}
	defer rows.Close() //nolint:errcheck

	var out []DateCount
	for rows.Next() {
		var dc DateCount
		if err := rows.Scan(&dc.Date, &dc.Rows); err != nil {
			return nil, classify(err, "scan day count")
		}
		out = append(out, dc)
	}
	return out, classify(rows.Err(), "iterate day counts")
}

// ExposurePoint is one capture date's aggregate for a location.
type ExposurePoint struct {
	Date        string   `json:"date"`
	TotalWeight float64  `json:"total_weight"`
	Holdings    int      `json:"holdings"`
	AvgYTM      *float64 `json:"avg_ytm,omitempty"`
}

// Exposure aggregates a location's weight within a code per capture
// date, ascending by date.
func (s *Store) Exposure(ctx context.Context, code, location string) ([]ExposurePoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT capture_date,
		       COALESCE(SUM(weight_pct), 0),
		       COUNT(*),
		       AVG(ytm_pct)
		FROM holdings
		WHERE etf_code = ? AND location = ?
		GROUP BY capture_date
		ORDER BY capture_date ASC`,
		code, location,
	)
	if err != nil {
		return nil, classify(err, "exposure")
	}
	defer rows.Close() //nolint:errcheck

	var out []ExposurePoint
	for rows.Next() {
		var p ExposurePoint
		var avgYTM sql.NullFloat64
		if err := rows.Scan(&p.Date, &p.TotalWeight, &p.Holdings, &avgYTM); err != nil {
			return nil, classify(err, "scan exposure")
		}
		p.AvgYTM = toPtr(avgYTM)
		out = append(out, p)
	}
	return out, classify(rows.Err(), "iterate exposure")
}

// CodeStats is the per-code breakdown within Stats.
type CodeStats struct {
	ETFCode   string `json:"etf_code"`
	Rows      int    `json:"rows"`
	Dates     int    `json:"dates"`
	FirstDate string `json:"first_date"`
	LastDate  string `json:"last_date"`
}

// Stats summarizes the database contents.
type Stats struct {
	TotalRows     int         `json:"total_rows"`
	DistinctDates int         `json:"distinct_dates"`
	DistinctCodes int         `json:"distinct_codes"`
	FirstDate     string      `json:"first_date,omitempty"`
	LastDate      string      `json:"last_date,omitempty"`
	ByCode        []CodeStats `json:"by_code,omitempty"`
}

// Summarize computes overall database statistics.
func (s *Store) Summarize(ctx context.Context) (*Stats, error) {
	var st Stats
	var first, last sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT capture_date), COUNT(DISTINCT etf_code),
		       MIN(capture_date), MAX(capture_date)
		FROM holdings`,
	).Scan(&st.TotalRows, &st.DistinctDates, &st.DistinctCodes, &first, &last)
	if err != nil {
		return nil, classify(err, "stats")
	}
	st.FirstDate = first.String
	st.LastDate = last.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT etf_code, COUNT(*), COUNT(DISTINCT capture_date),
		       MIN(capture_date), MAX(capture_date)
		FROM holdings
		GROUP BY etf_code
		ORDER BY etf_code ASC`,
	)
	if err != nil {
		return nil, classify(err, "stats by code")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var cs CodeStats
		if err := rows.Scan(&cs.ETFCode, &cs.Rows, &cs.Dates, &cs.FirstDate, &cs.LastDate); err != nil {
			return nil, classify(err, "scan code stats")
		}
		st.ByCode = append(st.ByCode, cs)
	}
	return &st, classify(rows.Err(), "iterate code stats")
}
