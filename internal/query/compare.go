package query

import (
	"context"
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/holdings-cli/internal/model"
	"github.com/sells-group/holdings-cli/internal/store"
)

// Presence flags a diff row's membership across the two snapshots.
type Presence string

const (
	PresenceBoth    Presence = "both"
	PresenceAdded   Presence = "added"   // only in the later snapshot
	PresenceRemoved Presence = "removed" // only in the earlier snapshot
)

// DiffRow is one holding's change between two capture dates. Deltas
// treat an absent side as zero, so a holding present on only one date
// carries its full value as the delta.
type DiffRow struct {
	Ticker      string   `json:"ticker,omitempty"`
	Name        string   `json:"name"`
	Location    string   `json:"location,omitempty"`
	Presence    Presence `json:"presence"`
	WeightA     *float64 `json:"weight_a,omitempty"`
	WeightB     *float64 `json:"weight_b,omitempty"`
	WeightDelta float64  `json:"weight_delta"`
	ValueA      *float64 `json:"value_a,omitempty"`
	ValueB      *float64 `json:"value_b,omitempty"`
	ValueDelta  float64  `json:"value_delta"`
	YTMA        *float64 `json:"ytm_a,omitempty"`
	YTMB        *float64 `json:"ytm_b,omitempty"`
}

// diffKey identifies a holding across snapshots.
type diffKey struct {
	ticker string
	name   string
}

// CompareDates diffs the code's snapshots on two dates. Both dates
// must have stored rows; the diff itself may be empty only in the
// degenerate sense that every holding is unchanged — holdings present
// on one side always appear, flagged added or removed. Rows are
// ordered by absolute weight change, largest first.
func (s *Service) CompareDates(ctx context.Context, code, dateA, dateB string) ([]DiffRow, error) {
	snapA, err := s.snapshot(ctx, code, dateA)
	if err != nil {
		return nil, err
	}
	snapB, err := s.snapshot(ctx, code, dateB)
	if err != nil {
		return nil, err
	}

	keys := make(map[diffKey]bool, len(snapA)+len(snapB))
	for k := range snapA {
		keys[k] = true
	}
	for k := range snapB {
		keys[k] = true
	}

	diff := make([]DiffRow, 0, len(keys))
	for k := range keys {
		a, inA := snapA[k]
		b, inB := snapB[k]

		row := DiffRow{Ticker: k.ticker, Name: k.name}
		switch {
		case inA && inB:
			row.Presence = PresenceBoth
		case inB:
			row.Presence = PresenceAdded
		default:
			row.Presence = PresenceRemoved
		}

		if inA {
			row.Location = a.Location
			row.WeightA = a.WeightPct
			row.ValueA = a.MarketValue
			row.YTMA = a.YTMPct
		}
		if inB {
			row.Location = b.Location
			row.WeightB = b.WeightPct
			row.ValueB = b.MarketValue
			row.YTMB = b.YTMPct
		}

		row.WeightDelta = orZero(row.WeightB) - orZero(row.WeightA)
		row.ValueDelta = orZero(row.ValueB) - orZero(row.ValueA)
		diff = append(diff, row)
	}

	sort.Slice(diff, func(i, j int) bool {
		di, dj := math.Abs(diff[i].WeightDelta), math.Abs(diff[j].WeightDelta)
		if di != dj {
			return di > dj
		}
		return diff[i].Name < diff[j].Name
	})
	return diff, nil
}

// snapshot loads one day's rows keyed for diffing. Duplicate keys
// within a day keep the first (heaviest) row.
func (s *Service) snapshot(ctx context.Context, code, date string) (map[diffKey]model.Holding, error) {
	rows, err := s.store.Rows(ctx, store.RowFilter{
		ETFCode: code,
		Date:    date,
		OrderBy: store.OrderByWeight,
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.Wrapf(ErrNoData, "query: etf %s on %s", code, date)
	}

	snap := make(map[diffKey]model.Holding, len(rows))
	for _, h := range rows {
		k := diffKey{ticker: h.Ticker, name: h.Name}
		if _, dup := snap[k]; !dup {
			snap[k] = h
		}
	}
	return snap, nil
}

func orZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
