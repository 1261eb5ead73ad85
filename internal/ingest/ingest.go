// Package ingest orchestrates one ingestion run: registry order,
// fetch, normalize, insert, with per-source isolation. One source's
// failure never aborts the rest; the run produces a per-source report.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/holdings-cli/internal/fetcher"
	"github.com/sells-group/holdings-cli/internal/model"
	"github.com/sells-group/holdings-cli/internal/normalize"
	"github.com/sells-group/holdings-cli/internal/source"
	"github.com/sells-group/holdings-cli/internal/store"
)

// Engine runs the fetch → normalize → insert pipeline.
type Engine struct {
	reg     *source.Registry
	fetcher fetcher.Fetcher
	store   *store.Store
}

// Opts configures one run.
type Opts struct {
	// Date is the capture date (defaults to today, UTC).
	Date string
	// Replace deletes and re-ingests a day that is already stored.
	// Without it, an existing day is skipped. Stored days are final;
	// this flag is the explicit operator override.
	Replace bool
}

// NewEngine creates an engine over the given registry, fetcher, and store.
func NewEngine(reg *source.Registry, f fetcher.Fetcher, st *store.Store) *Engine {
	return &Engine{reg: reg, fetcher: f, store: st}
}

// Run executes one ingestion pass over every registered source,
// sequentially, and returns the per-source report. It errors only when
// the whole run is meaningless (empty registry); per-source failures
// are outcomes, not errors.
func (e *Engine) Run(ctx context.Context, opts Opts) (*model.Report, error) {
	if e.reg.Len() == 0 {
		return nil, eris.New("ingest: no sources configured")
	}

	date := opts.Date
	if date == "" {
		date = time.Now().UTC().Format(model.DateLayout)
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, eris.Wrapf(err, "ingest: invalid date %q", date)
	}

	log := zap.L().With(zap.String("component", "ingest"), zap.String("date", date))
	report := &model.Report{RunDate: date}

	for _, src := range e.reg.All() {
		select {
		case <-ctx.Done():
			return report, eris.Wrap(ctx.Err(), "ingest: run cancelled")
		default:
		}

		outcome := e.runSource(ctx, log, src, date, opts.Replace)
		report.Outcomes = append(report.Outcomes, outcome)
	}

	log.Info("run complete",
		zap.Int("inserted", len(report.ByStatus(model.StatusInserted))),
		zap.Int("skipped", len(report.ByStatus(model.StatusSkipped))),
		zap.Int("failed", len(report.ByStatus(model.StatusFailed))),
		zap.Int("rows", report.TotalRows()),
	)
	return report, nil
}

// runSource processes a single source. Every error becomes a failed
// outcome except lock contention, which also becomes a failed outcome
// but is logged at error level since it means a second writer is live.
func (e *Engine) runSource(ctx context.Context, log *zap.Logger, src source.Source, date string, replace bool) model.Outcome {
	srcLog := log.With(zap.String("etf", src.Code))
	start := time.Now()

	outcome := func(status model.OutcomeStatus, rows int, reason string) model.Outcome {
		return model.Outcome{
			ETFCode: src.Code,
			Status:  status,
			Rows:    rows,
			Reason:  reason,
			Elapsed: time.Since(start),
		}
	}

	// Idempotency guard first: skip before spending a network request.
	if !replace {
		exists, err := e.store.HasDay(ctx, src.Code, date)
		if err != nil {
			srcLog.Error("existence check failed", zap.Error(err))
			return outcome(model.StatusFailed, 0, "store: "+eris.Cause(err).Error())
		}
		if exists {
			srcLog.Info("already present, skipping")
			return outcome(model.StatusSkipped, 0, "already present")
		}
	}

	runID, err := e.store.StartRun(ctx, src.Code)
	if err != nil {
		srcLog.Error("run log start failed", zap.Error(err))
		return outcome(model.StatusFailed, 0, "store: "+eris.Cause(err).Error())
	}
	finish := func(o model.Outcome) model.Outcome {
		if err := e.store.FinishRun(ctx, runID, string(o.Status), o.Rows, o.Reason); err != nil {
			srcLog.Warn("run log finish failed", zap.Error(err))
		}
		return o
	}

	srcLog.Info("fetching", zap.String("url", src.URL))
	data, err := fetcher.FetchBytes(ctx, e.fetcher, src.URL)
	if err != nil {
		srcLog.Warn("fetch failed", zap.Error(err))
		return finish(outcome(model.StatusFailed, 0, "fetch: "+eris.Cause(err).Error()))
	}

	rows, err := fetcher.DecodeRows(src.URL, data)
	if err != nil {
		srcLog.Warn("decode failed", zap.Error(err))
		return finish(outcome(model.StatusFailed, 0, "parse: "+eris.Cause(err).Error()))
	}

	records, err := normalize.Normalize(rows, src, date)
	if err != nil {
		srcLog.Warn("normalize failed", zap.Error(err))
		return finish(outcome(model.StatusFailed, 0, "parse: "+eris.Cause(err).Error()))
	}

	var n int
	if replace {
		n, err = e.store.ReplaceDay(ctx, src.Code, date, records)
	} else {
		n, err = e.store.InsertDay(ctx, src.Code, date, records)
	}
	if err != nil {
		// Raced with another insert since the guard check.
		if errors.Is(err, store.ErrDuplicateDate) {
			srcLog.Info("already present, skipping")
			return finish(outcome(model.StatusSkipped, 0, "already present"))
		}
		srcLog.Error("insert failed", zap.Error(err))
		return finish(outcome(model.StatusFailed, 0, "store: "+eris.Cause(err).Error()))
	}

	srcLog.Info("inserted", zap.Int("rows", n), zap.Duration("elapsed", time.Since(start)))
	return finish(outcome(model.StatusInserted, n, ""))
}
