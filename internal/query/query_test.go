package query

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/holdings-cli/internal/model"
	"github.com/sells-group/holdings-cli/internal/store"
)

func fp(v float64) *float64 { return &v }

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return NewService(st), st
}

func seed(t *testing.T, st *store.Store, code, date string, records []model.Holding) {
	t.Helper()
	_, err := st.InsertDay(context.Background(), code, date, records)
	require.NoError(t, err)
}

func dayOne() []model.Holding {
	return []model.Holding{
		{Ticker: "MEX", Name: "MEXICO", Location: "Mexico", WeightPct: fp(5.0), MarketValue: fp(1000), YTMPct: fp(6.0)},
		{Ticker: "BRA", Name: "BRAZIL", Location: "Brazil", WeightPct: fp(3.0), MarketValue: fp(600)},
		{Ticker: "TUR", Name: "TURKEY", Location: "Turkey", WeightPct: fp(1.0), MarketValue: fp(200)},
	}
}

func dayTwo() []model.Holding {
	return []model.Holding{
		{Ticker: "MEX", Name: "MEXICO", Location: "Mexico", WeightPct: fp(5.5), MarketValue: fp(1100), YTMPct: fp(6.2)},
		{Ticker: "BRA", Name: "BRAZIL", Location: "Brazil", WeightPct: fp(5.0), MarketValue: fp(1000)},
	}
}

func TestLatest(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())
	seed(t, st, "EMBI", "2025-10-02", dayTwo())

	rows, err := svc.Latest(context.Background(), "EMBI")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-10-02", rows[0].CaptureDate)
	assert.Equal(t, "MEXICO", rows[0].Name, "heaviest first")
}

func TestLatest_NoData(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Latest(context.Background(), "NOCODE")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestTop(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())

	rows, err := svc.Top(context.Background(), "EMBI", 2, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "MEXICO", rows[0].Name)
	assert.Equal(t, "BRAZIL", rows[1].Name)
}

func TestTop_DefaultN(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())

	rows, err := svc.Top(context.Background(), "EMBI", 0, "2025-10-01")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestTop_TiesBreakByName(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", []model.Holding{
		{Name: "ZAMBIA", WeightPct: fp(2.0)},
		{Name: "ANGOLA", WeightPct: fp(2.0)},
		{Name: "KENYA", WeightPct: fp(2.0)},
	})

	rows, err := svc.Top(context.Background(), "EMBI", 2, "2025-10-01")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ANGOLA", rows[0].Name)
	assert.Equal(t, "KENYA", rows[1].Name)
}

func TestTop_MissingDate(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())

	_, err := svc.Top(context.Background(), "EMBI", 5, "2025-12-25")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestBondHistory(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())
	seed(t, st, "EMBI", "2025-10-02", dayTwo())

	rows, err := svc.BondHistory(context.Background(), "EMBI", "MEXIC")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2025-10-01", rows[0].CaptureDate)
	assert.Equal(t, "2025-10-02", rows[1].CaptureDate)
}

func TestBondHistory_NoMatchIsEmptyNotError(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())

	rows, err := svc.BondHistory(context.Background(), "EMBI", "ATLANTIS")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBondHistory_UnknownCode(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())

	_, err := svc.BondHistory(context.Background(), "NOCODE", "MEXICO")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestCountryExposure(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())
	seed(t, st, "EMBI", "2025-10-02", dayTwo())

	points, err := svc.CountryExposure(context.Background(), "EMBI", "Mexico")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.InDelta(t, 5.0, points[0].TotalWeight, 1e-9)
	assert.InDelta(t, 5.5, points[1].TotalWeight, 1e-9)

	// Never-seen country over an existing code: empty, not an error.
	points, err = svc.CountryExposure(context.Background(), "EMBI", "Atlantis")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestCompareDates(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())
	seed(t, st, "EMBI", "2025-10-02", dayTwo())

	diff, err := svc.CompareDates(context.Background(), "EMBI", "2025-10-01", "2025-10-02")
	require.NoError(t, err)
	require.Len(t, diff, 3)

	// Ordered by absolute weight change descending.
	assert.Equal(t, "BRAZIL", diff[0].Name)
	assert.InDelta(t, 2.0, diff[0].WeightDelta, 1e-9)
	assert.Equal(t, PresenceBoth, diff[0].Presence)

	assert.Equal(t, "TURKEY", diff[1].Name)
	assert.Equal(t, PresenceRemoved, diff[1].Presence)
	assert.InDelta(t, -1.0, diff[1].WeightDelta, 1e-9)
	assert.Nil(t, diff[1].WeightB)

	assert.Equal(t, "MEXICO", diff[2].Name)
	assert.InDelta(t, 0.5, diff[2].WeightDelta, 1e-9)
	assert.InDelta(t, 100, diff[2].ValueDelta, 1e-9)
}

func TestCompareDates_Added(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayTwo())
	seed(t, st, "EMBI", "2025-10-02", dayOne())

	diff, err := svc.CompareDates(context.Background(), "EMBI", "2025-10-01", "2025-10-02")
	require.NoError(t, err)

	var turkey *DiffRow
	for i := range diff {
		if diff[i].Name == "TURKEY" {
			turkey = &diff[i]
		}
	}
	require.NotNil(t, turkey)
	assert.Equal(t, PresenceAdded, turkey.Presence)
	assert.Nil(t, turkey.WeightA)
	assert.InDelta(t, 1.0, turkey.WeightDelta, 1e-9)
}

func TestCompareDates_MissingSide(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())

	_, err := svc.CompareDates(context.Background(), "EMBI", "2025-10-01", "2025-10-09")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoData))
}

func TestAvailableDates(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())
	seed(t, st, "EMBI", "2025-10-02", dayTwo())

	dates, err := svc.AvailableDates(context.Background(), "EMBI")
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.Equal(t, "2025-10-02", dates[0].Date)
	assert.Equal(t, 2, dates[0].Rows)
	assert.Equal(t, "2025-10-01", dates[1].Date)
	assert.Equal(t, 3, dates[1].Rows)
}

func TestStats(t *testing.T) {
	svc, st := newTestService(t)
	seed(t, st, "EMBI", "2025-10-01", dayOne())
	seed(t, st, "EMHY", "2025-10-02", dayTwo())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.TotalRows)
	assert.Equal(t, 2, stats.DistinctCodes)
}
