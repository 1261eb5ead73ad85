// Package model defines the holdings records and ingest report types
// shared across the pipeline, store, and query layers.
package model

import "time"

// DateLayout is the canonical capture-date format stored in the database.
// Capture dates carry no time component.
const DateLayout = "2006-01-02"

// Holding is one line item of an ETF's published portfolio on one
// capture date. Numeric fields are pointers: nil means the source
// document had no usable value for that column.
type Holding struct {
	ID            int64   `json:"id,omitempty" csv:"-"`
	ETFCode       string  `json:"etf_code" csv:"etf_code"`
	CaptureDate   string  `json:"capture_date" csv:"capture_date"`
	Ticker        string  `json:"ticker,omitempty" csv:"ticker"`
	Name          string  `json:"name" csv:"name"`
	Location      string  `json:"location,omitempty" csv:"location"`
	Sector        string  `json:"sector,omitempty" csv:"sector"`
	Maturity      string  `json:"maturity,omitempty" csv:"maturity"`
	WeightPct     *float64 `json:"weight_pct,omitempty" csv:"weight_pct"`
	YTMPct        *float64 `json:"ytm_pct,omitempty" csv:"ytm_pct"`
	MarketValue   *float64 `json:"market_value,omitempty" csv:"market_value"`
	NotionalValue *float64 `json:"notional_value,omitempty" csv:"notional_value"`
	Shares        *float64 `json:"shares,omitempty" csv:"shares"`
	Price         *float64 `json:"price,omitempty" csv:"price"`

	// Extra holds source columns that have no canonical field. Stored
	// as a JSON object in the extra column.
	Extra map[string]string `json:"extra,omitempty" csv:"-"`
}

// Weight returns the weight in percent, or 0 if absent.
func (h *Holding) Weight() float64 {
	if h.WeightPct == nil {
		return 0
	}
	return *h.WeightPct
}

// Date parses the capture date. Dates are validated on the write path,
// so a stored record always parses.
func (h *Holding) Date() (time.Time, error) {
	return time.Parse(DateLayout, h.CaptureDate)
}
