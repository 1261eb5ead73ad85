package model

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeStatus classifies one source's result within a single run.
type OutcomeStatus string

const (
	StatusInserted OutcomeStatus = "inserted"
	StatusSkipped  OutcomeStatus = "skipped"
	StatusFailed   OutcomeStatus = "failed"
)

// Outcome is the per-source result of one ingestion run.
type Outcome struct {
	ETFCode string        `json:"etf_code"`
	Status  OutcomeStatus `json:"status"`
	Rows    int           `json:"rows,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
}

// Report is the summary of one ingestion run, in registry order.
type Report struct {
	RunDate  string    `json:"run_date"`
	Outcomes []Outcome `json:"outcomes"`
}

// ByStatus returns the codes with the given status, in run order.
func (r *Report) ByStatus(status OutcomeStatus) []string {
	var codes []string
	for _, o := range r.Outcomes {
		if o.Status == status {
			codes = append(codes, o.ETFCode)
		}
	}
	return codes
}

// TotalRows sums the inserted row counts across all outcomes.
func (r *Report) TotalRows() int {
	var n int
	for _, o := range r.Outcomes {
		n += o.Rows
	}
	return n
}

// Summary renders the run report as a short human-readable block.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d sources\n", r.RunDate, len(r.Outcomes))
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusInserted:
			fmt.Fprintf(&b, "  %-8s inserted %d rows\n", o.ETFCode, o.Rows)
		case StatusSkipped:
			fmt.Fprintf(&b, "  %-8s skipped (%s)\n", o.ETFCode, o.Reason)
		case StatusFailed:
			fmt.Fprintf(&b, "  %-8s FAILED: %s\n", o.ETFCode, o.Reason)
		}
	}
	fmt.Fprintf(&b, "inserted=%d skipped=%d failed=%d",
		len(r.ByStatus(StatusInserted)),
		len(r.ByStatus(StatusSkipped)),
		len(r.ByStatus(StatusFailed)),
	)
	return b.String()
}
