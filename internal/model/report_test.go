package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleReport() *Report {
	return &Report{
		RunDate: "2025-10-01",
		Outcomes: []Outcome{
			{ETFCode: "CEMBI", Status: StatusInserted, Rows: 120},
			{ETFCode: "EMBI", Status: StatusSkipped, Reason: "already present"},
			{ETFCode: "GBI", Status: StatusFailed, Reason: "fetch: unexpected status 404"},
			{ETFCode: "EMHY", Status: StatusInserted, Rows: 80},
		},
	}
}

func TestReport_ByStatus(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, []string{"CEMBI", "EMHY"}, r.ByStatus(StatusInserted))
	assert.Equal(t, []string{"EMBI"}, r.ByStatus(StatusSkipped))
	assert.Equal(t, []string{"GBI"}, r.ByStatus(StatusFailed))
}

func TestReport_TotalRows(t *testing.T) {
	assert.Equal(t, 200, sampleReport().TotalRows())
}

func TestReport_Summary(t *testing.T) {
	s := sampleReport().Summary()
	assert.Contains(t, s, "run 2025-10-01: 4 sources")
	assert.Contains(t, s, "inserted 120 rows")
	assert.Contains(t, s, "skipped (already present)")
	assert.Contains(t, s, "FAILED: fetch: unexpected status 404")
	assert.Contains(t, s, "inserted=2 skipped=1 failed=1")
}

func TestHolding_Weight(t *testing.T) {
	w := 4.5
	h := Holding{WeightPct: &w}
	assert.InDelta(t, 4.5, h.Weight(), 1e-9)

	var empty Holding
	assert.Zero(t, empty.Weight())
}

func TestHolding_Date(t *testing.T) {
	h := Holding{CaptureDate: "2025-10-01"}
	d, err := h.Date()
	assert.NoError(t, err)
	assert.Equal(t, 2025, d.Year())
}
