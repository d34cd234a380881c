package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestAddOrUpdate_NewTicker(t *testing.T) {
	l := New(CostBlendUnknownAsZero)

	pos, warnings, err := l.AddOrUpdate("bbca.jk", 10, dec(9000), nil)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, "BBCA.JK", pos.Ticker)
	assert.Equal(t, int64(10), pos.Lots)
	assert.True(t, pos.AverageCost.Equal(decimal.NewFromInt(9000)))
}

func TestAddOrUpdate_WeightedAverage(t *testing.T) {
	l := New(CostBlendUnknownAsZero)
	_, _, err := l.AddOrUpdate("AAA", 10, dec(1000), nil)
	require.NoError(t, err)

	pos, warnings, err := l.AddOrUpdate("AAA", 10, dec(2000), nil)

	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, int64(20), pos.Lots)
	assert.True(t, pos.AverageCost.Equal(decimal.NewFromInt(1500)), "got %s", pos.AverageCost)
}

func TestAddOrUpdate_SplitPurchasesMatchCombined(t *testing.T) {
	split := New(CostBlendUnknownAsZero)
	_, _, _ = split.AddOrUpdate("AAA", 10, dec(1000), nil)
	_, _, _ = split.AddOrUpdate("AAA", 5, dec(2000), nil)
	s, _, err := split.AddOrUpdate("AAA", 5, dec(2000), nil)
	require.NoError(t, err)

	combined := New(CostBlendUnknownAsZero)
	_, _, _ = combined.AddOrUpdate("AAA", 10, dec(1000), nil)
	c, _, err := combined.AddOrUpdate("AAA", 10, dec(2000), nil)
	require.NoError(t, err)

	assert.Equal(t, c.Lots, s.Lots)
	assert.True(t, c.AverageCost.Round(8).Equal(s.AverageCost.Round(8)),
		"split %s vs combined %s", s.AverageCost, c.AverageCost)
}

func TestAddOrUpdate_UnknownOldCost_UnknownAsZero(t *testing.T) {
	l := FromPositions(CostBlendUnknownAsZero, []domain.Position{{Ticker: "TLKM.JK", Lots: 10}})

	pos, warnings, err := l.AddOrUpdate("TLKM.JK", 10, dec(4000), nil)

	require.NoError(t, err)
	assert.Equal(t, int64(20), pos.Lots)
	// Old lots count as zero value: (0 + 10*4000) / 20
	assert.True(t, pos.AverageCost.Equal(decimal.NewFromInt(2000)))
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarnCostBasisApproximated, warnings[0].Code)
	assert.Equal(t, "TLKM.JK", warnings[0].Ticker)
}

func TestAddOrUpdate_UnknownOldCost_ExcludeUnknown(t *testing.T) {
	l := FromPositions(CostBlendExcludeUnknown, []domain.Position{{Ticker: "TLKM.JK", Lots: 10}})

	pos, warnings, err := l.AddOrUpdate("TLKM.JK", 10, dec(4000), nil)

	require.NoError(t, err)
	assert.Equal(t, int64(20), pos.Lots)
	assert.True(t, pos.AverageCost.Equal(decimal.NewFromInt(4000)))
	require.Len(t, warnings, 1)
	assert.Equal(t, domain.WarnCostBasisApproximated, warnings[0].Code)
}

func TestAddOrUpdate_UnknownNewPrice(t *testing.T) {
	zero := FromPositions(CostBlendUnknownAsZero, []domain.Position{{Ticker: "AAA", Lots: 10, AverageCost: dec(1000)}})
	pos, warnings, err := zero.AddOrUpdate("AAA", 10, nil, nil)
	require.NoError(t, err)
	assert.True(t, pos.AverageCost.Equal(decimal.NewFromInt(500)))
	assert.Len(t, warnings, 1)

	exclude := FromPositions(CostBlendExcludeUnknown, []domain.Position{{Ticker: "AAA", Lots: 10, AverageCost: dec(1000)}})
	pos, _, err = exclude.AddOrUpdate("AAA", 10, nil, nil)
	require.NoError(t, err)
	assert.True(t, pos.AverageCost.Equal(decimal.NewFromInt(1000)))
}

func TestAddOrUpdate_BothUnknownStaysUnknown(t *testing.T) {
	l := FromPositions(CostBlendUnknownAsZero, []domain.Position{{Ticker: "AAA", Lots: 3}})

	pos, warnings, err := l.AddOrUpdate("AAA", 2, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, int64(5), pos.Lots)
	assert.Nil(t, pos.AverageCost)
	assert.Empty(t, warnings)
}

func TestAddOrUpdate_RejectsInvalidInput(t *testing.T) {
	l := New(CostBlendUnknownAsZero)
	_, _, _ = l.AddOrUpdate("AAA", 1, dec(10), nil)

	_, _, err := l.AddOrUpdate("AAA", -5, dec(10), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = l.AddOrUpdate("AAA", 0, dec(10), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = l.AddOrUpdate("AAA", 1, dec(-1), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = l.AddOrUpdate("   ", 1, dec(1), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	p, _ := l.Get("AAA")
	assert.Equal(t, int64(1), p.Lots)
}

func TestAddOrUpdate_RejectsLotOverflow(t *testing.T) {
	l := New(CostBlendUnknownAsZero)

	_, _, err := l.AddOrUpdate("AAA", math.MaxInt64, dec(1000), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, ok := l.Get("AAA")
	assert.False(t, ok)

	_, _, err = l.AddOrUpdate("AAA", domain.MaxLots, dec(1000), nil)
	require.NoError(t, err)

	_, _, err = l.AddOrUpdate("AAA", 1, dec(1000), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	p, _ := l.Get("AAA")
	assert.Equal(t, int64(domain.MaxLots), p.Lots)
	assert.Positive(t, p.Shares())
	assert.True(t, p.AverageCost.Equal(decimal.NewFromInt(1000)))
}

func TestAddOrUpdate_KeepsFirstAcquisitionDate(t *testing.T) {
	first := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	later := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	l := New(CostBlendUnknownAsZero)

	_, _, _ = l.AddOrUpdate("AAA", 1, dec(10), &first)
	pos, _, err := l.AddOrUpdate("AAA", 1, dec(10), &later)

	require.NoError(t, err)
	assert.Equal(t, first, *pos.AcquiredOn)
}

func TestLedger_InsertionOrder(t *testing.T) {
	l := New(CostBlendUnknownAsZero)
	for _, tk := range []string{"UNVR.JK", "ASII.JK", "BBRI.JK"} {
		_, _, err := l.AddOrUpdate(tk, 1, nil, nil)
		require.NoError(t, err)
	}
	_, _, _ = l.AddOrUpdate("ASII.JK", 1, nil, nil)

	assert.Equal(t, []string{"UNVR.JK", "ASII.JK", "BBRI.JK"}, l.Tickers())
}

func TestRemove(t *testing.T) {
	l := New(CostBlendUnknownAsZero)
	_, _, _ = l.AddOrUpdate("AAA", 1, nil, nil)
	_, _, _ = l.AddOrUpdate("BBB", 1, nil, nil)

	require.NoError(t, l.Remove("aaa"))
	assert.Equal(t, []string{"BBB"}, l.Tickers())

	err := l.Remove("AAA")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, l.Len())
}

func TestClear(t *testing.T) {
	l := New(CostBlendUnknownAsZero)
	_, _, _ = l.AddOrUpdate("AAA", 1, nil, nil)
	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Positions())
}

func TestParseCostBlendMode(t *testing.T) {
	m, err := ParseCostBlendMode("")
	require.NoError(t, err)
	assert.Equal(t, CostBlendUnknownAsZero, m)

	m, err = ParseCostBlendMode("exclude_unknown")
	require.NoError(t, err)
	assert.Equal(t, CostBlendExcludeUnknown, m)

	_, err = ParseCostBlendMode("average")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
