// Package normalize turns raw tabular holdings documents into uniform
// holding records. Column matching is alias-based: each canonical
// field declares the header spellings it accepts, and unknown columns
// are carried through rather than dropped.
package normalize

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/holdings-cli/internal/model"
	"github.com/sells-group/holdings-cli/internal/source"
)

// ErrFormat is returned when a document cannot be interpreted as a
// holdings table — usually an upstream layout change.
var ErrFormat = eris.New("normalize: unrecognized document format")

const (
	// headerScanWindow bounds how many rows past the configured skip
	// offset are examined for a recognizable header row.
	headerScanWindow = 5

	// maxRecords caps the records kept per document; iShares files end
	// in a long disclaimer block and very small cash lines.
	maxRecords = 1000
)

// fieldMapper binds one canonical holding field to the header aliases
// that populate it.
type fieldMapper struct {
	canonical string
	aliases   []string
	assign    func(h *model.Holding, raw string)
}

// mappers is the single normalization pass: every canonical field with
// the header spellings observed across the tracked providers.
var mappers = []fieldMapper{
	{
		canonical: "ticker",
		aliases:   []string{"ticker", "symbol", "issuer ticker"},
		assign:    func(h *model.Holding, raw string) { h.Ticker = raw },
	},
	{
		canonical: "name",
		aliases:   []string{"name", "issuer name", "security name", "holding name", "description"},
		assign:    func(h *model.Holding, raw string) { h.Name = raw },
	},
	{
		canonical: "location",
		aliases:   []string{"location", "country", "country of risk"},
		assign:    func(h *model.Holding, raw string) { h.Location = raw },
	},
	{
		canonical: "sector",
		aliases:   []string{"sector", "industry", "asset class"},
		assign:    func(h *model.Holding, raw string) { h.Sector = raw },
	},
	{
		canonical: "maturity",
		aliases:   []string{"maturity", "maturity date"},
		assign:    func(h *model.Holding, raw string) { h.Maturity = raw },
	},
	{
		canonical: "weight_pct",
		aliases:   []string{"weight %", "weight(%)", "weight", "weighting", "% of net assets", "pct of net assets"},
		assign:    func(h *model.Holding, raw string) { h.WeightPct = CoerceFloat(raw) },
	},
	{
		canonical: "ytm_pct",
		aliases:   []string{"ytm %", "ytm", "yield to maturity", "yield %"},
		assign:    func(h *model.Holding, raw string) { h.YTMPct = CoerceFloat(raw) },
	},
	{
		canonical: "market_value",
		aliases:   []string{"market value", "market value usd", "mkt value"},
		assign:    func(h *model.Holding, raw string) { h.MarketValue = CoerceFloat(raw) },
	},
	{
		canonical: "notional_value",
		aliases:   []string{"notional value", "notional"},
		assign:    func(h *model.Holding, raw string) { h.NotionalValue = CoerceFloat(raw) },
	},
	{
		canonical: "shares",
		aliases:   []string{"shares", "par value", "quantity", "units"},
		assign:    func(h *model.Holding, raw string) { h.Shares = CoerceFloat(raw) },
	},
	{
		canonical: "price",
		aliases:   []string{"price", "unit price"},
		assign:    func(h *model.Holding, raw string) { h.Price = CoerceFloat(raw) },
	},
}

// normalizeCol strips parentheses, collapses whitespace, and
// lowercases for cross-format column matching: "Weight (%)" → "weight %".
func normalizeCol(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "(", "")
	s = strings.ReplaceAll(s, ")", "")
	return strings.Join(strings.Fields(s), " ")
}

// mapperFor returns the field mapper accepting the given header cell.
func mapperFor(header string) (fieldMapper, bool) {
	norm := normalizeCol(header)
	if norm == "" {
		return fieldMapper{}, false
	}
	for _, m := range mappers {
		for _, alias := range m.aliases {
			if norm == normalizeCol(alias) {
				return m, true
			}
		}
	}
	return fieldMapper{}, false
}

// findHeader scans a bounded window past the skip offset for a row in
// which at least two cells match known aliases. Returns the header row
// index, or -1.
func findHeader(rows [][]string, skip int) int {
	end := skip + headerScanWindow
	if end > len(rows) {
		end = len(rows)
	}
	for i := skip; i < end; i++ {
		matched := 0
		for _, cell := range rows[i] {
			if _, ok := mapperFor(cell); ok {
				matched++
			}
		}
		if matched >= 2 {
			return i
		}
	}
	return -1
}

// column binds one document column index to its mapper, or marks it as
// a passthrough column.
type column struct {
	index  int
	name   string // original header cell, trimmed
	mapper *fieldMapper
}

// Normalize parses the document rows for one source, honoring the
// configured header skip, and returns holding records tagged with the
// ETF code and capture date.
func Normalize(rows [][]string, src source.Source, captureDate string) ([]model.Holding, error) {
	if len(rows) <= src.HeaderSkip {
		return nil, eris.Wrapf(ErrFormat, "%s: document has %d rows, header skip is %d",
			src.Code, len(rows), src.HeaderSkip)
	}

	headerIdx := findHeader(rows, src.HeaderSkip)
	if headerIdx < 0 {
		return nil, eris.Wrapf(ErrFormat, "%s: no header row within %d rows of offset %d",
			src.Code, headerScanWindow, src.HeaderSkip)
	}

	var columns []column
	seen := make(map[string]bool)
	for i, cell := range rows[headerIdx] {
		name := strings.TrimSpace(cell)
		if name == "" {
			continue
		}
		col := column{index: i, name: name}
		if m, ok := mapperFor(name); ok && !seen[m.canonical] {
			// First matching column wins; a duplicate alias falls
			// through to passthrough.
			mCopy := m
			col.mapper = &mCopy
			seen[m.canonical] = true
		}
		columns = append(columns, col)
	}

	var records []model.Holding
	for _, row := range rows[headerIdx+1:] {
		if len(records) >= maxRecords {
			break
		}
		h := buildRecord(row, columns)
		if h == nil {
			continue
		}
		h.ETFCode = src.Code
		h.CaptureDate = captureDate
		records = append(records, *h)
	}

	if len(records) == 0 {
		return nil, eris.Wrapf(ErrFormat, "%s: no data rows", src.Code)
	}

	return records, nil
}

// buildRecord maps one data row through the columns. Returns nil for
// rows with no issuer name and no numeric content (disclaimer footers,
// blank separators).
func buildRecord(row []string, columns []column) *model.Holding {
	var h model.Holding
	for _, col := range columns {
		if col.index >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[col.index])
		if col.mapper != nil {
			col.mapper.assign(&h, raw)
			continue
		}
		if raw != "" {
			if h.Extra == nil {
				h.Extra = make(map[string]string)
			}
			h.Extra[col.name] = raw
		}
	}

	if h.Name == "" && !hasNumeric(&h) {
		return nil
	}
	return &h
}

func hasNumeric(h *model.Holding) bool {
	return h.WeightPct != nil || h.YTMPct != nil || h.MarketValue != nil ||
		h.NotionalValue != nil || h.Shares != nil || h.Price != nil
}
