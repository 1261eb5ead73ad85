package normalize

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/holdings-cli/internal/source"
)

func fixtureSource() source.Source {
	return source.Source{
		Code:       "EMBI",
		Name:       "iShares J.P. Morgan USD Emerging Markets Bond ETF",
		URL:        "https://example.com/EMB_holdings.csv",
		HeaderSkip: 2,
	}
}

// fixtureRows mimics an iShares export: preamble, header, data,
// disclaimer footer.
func fixtureRows() [][]string {
	return [][]string{
		{"iShares J.P. Morgan USD Emerging Markets Bond ETF"},
		{"Fund Holdings as of", "Oct 01, 2025"},
		{"Ticker", "Name", "Location", "Sector", "Maturity", "Weight (%)", "YTM (%)", "Market Value", "Shares", "Price", "CUSIP"},
		{"MEX", "MEXICO (UNITED MEXICAN STATES)", "Mexico", "Sovereign", "2031-05-04", "5.23%", "6.10", "1,234,567.89", "1,200,000", "98.75", "91086QBB4"},
		{"BRA", "BRAZIL FEDERATIVE REPUBLIC OF", "Brazil", "Sovereign", "2034-01-12", "2.00", "6.85", "456,789.00", "450,000", "101.20", "105756CB4"},
		{"", "CASH COLLATERAL", "", "Cash", "", "N/A", "", "10,000.00", "", "", ""},
		{""},
		{"The content above is provided for information purposes only."},
	}
}

func TestNormalize_MapsCanonicalFields(t *testing.T) {
	records, err := Normalize(fixtureRows(), fixtureSource(), "2025-10-01")
	require.NoError(t, err)
	require.Len(t, records, 3)

	mex := records[0]
	assert.Equal(t, "EMBI", mex.ETFCode)
	assert.Equal(t, "2025-10-01", mex.CaptureDate)
	assert.Equal(t, "MEX", mex.Ticker)
	assert.Equal(t, "MEXICO (UNITED MEXICAN STATES)", mex.Name)
	assert.Equal(t, "Mexico", mex.Location)
	assert.Equal(t, "Sovereign", mex.Sector)
	assert.Equal(t, "2031-05-04", mex.Maturity)
	require.NotNil(t, mex.WeightPct)
	assert.InDelta(t, 5.23, *mex.WeightPct, 1e-9)
	require.NotNil(t, mex.MarketValue)
	assert.InDelta(t, 1234567.89, *mex.MarketValue, 1e-6)
	require.NotNil(t, mex.Shares)
	assert.InDelta(t, 1200000, *mex.Shares, 1e-6)
}

func TestNormalize_UnknownColumnsPassThrough(t *testing.T) {
	records, err := Normalize(fixtureRows(), fixtureSource(), "2025-10-01")
	require.NoError(t, err)

	assert.Equal(t, "91086QBB4", records[0].Extra["CUSIP"])
	_, mapped := records[0].Extra["Weight (%)"]
	assert.False(t, mapped, "canonical columns must not leak into Extra")
}

func TestNormalize_AbsentNumericsKept(t *testing.T) {
	records, err := Normalize(fixtureRows(), fixtureSource(), "2025-10-01")
	require.NoError(t, err)

	// The cash line has an unparseable weight but real content: the
	// record is kept with an absent weight, not dropped or an error.
	cash := records[2]
	assert.Equal(t, "CASH COLLATERAL", cash.Name)
	assert.Nil(t, cash.WeightPct)
	require.NotNil(t, cash.MarketValue)
	assert.InDelta(t, 10000, *cash.MarketValue, 1e-9)
}

func TestNormalize_FooterRowsDropped(t *testing.T) {
	records, err := Normalize(fixtureRows(), fixtureSource(), "2025-10-01")
	require.NoError(t, err)
	for _, r := range records {
		assert.NotContains(t, r.Name, "information purposes")
	}
}

func TestNormalize_HeaderWithinScanWindow(t *testing.T) {
	// Header one row later than configured: still found by the scan.
	rows := fixtureRows()
	rows = append(rows[:2], append([][]string{{"Holdings detail"}}, rows[2:]...)...)

	records, err := Normalize(rows, fixtureSource(), "2025-10-01")
	require.NoError(t, err)
	assert.Len(t, records, 3)
}

func TestNormalize_AliasVariants(t *testing.T) {
	rows := [][]string{
		{"name", "COUNTRY", " Weight(%) ", "Par Value"},
		{"PETROBRAS GLOBAL FINANCE", "Brazil", "1.10", "500,000"},
	}
	src := fixtureSource()
	src.HeaderSkip = 0

	records, err := Normalize(rows, src, "2025-10-01")
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, "PETROBRAS GLOBAL FINANCE", r.Name)
	assert.Equal(t, "Brazil", r.Location)
	require.NotNil(t, r.WeightPct)
	assert.InDelta(t, 1.10, *r.WeightPct, 1e-9)
	require.NotNil(t, r.Shares)
	assert.InDelta(t, 500000, *r.Shares, 1e-9)
}

func TestNormalize_NoHeaderFound(t *testing.T) {
	rows := [][]string{
		{"just"}, {"some"}, {"prose"}, {"rows"}, {"without"}, {"a"}, {"table"},
	}
	src := fixtureSource()
	src.HeaderSkip = 0

	_, err := Normalize(rows, src, "2025-10-01")
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestNormalize_NoDataRows(t *testing.T) {
	rows := [][]string{
		{"Name", "Weight (%)"},
		{"", ""},
	}
	src := fixtureSource()
	src.HeaderSkip = 0

	_, err := Normalize(rows, src, "2025-10-01")
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestNormalize_TooFewRowsForSkip(t *testing.T) {
	src := fixtureSource()
	src.HeaderSkip = 9

	_, err := Normalize([][]string{{"only"}, {"two"}}, src, "2025-10-01")
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestNormalize_RecordCap(t *testing.T) {
	rows := [][]string{{"Name", "Weight (%)"}}
	for i := 0; i < maxRecords+50; i++ {
		rows = append(rows, []string{fmt.Sprintf("BOND %05d", i), "0.01"})
	}
	src := fixtureSource()
	src.HeaderSkip = 0

	records, err := Normalize(rows, src, "2025-10-01")
	require.NoError(t, err)
	assert.Len(t, records, maxRecords)
}
