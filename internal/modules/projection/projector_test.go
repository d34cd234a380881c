package projection

import (
	"testing"

	"github.com/aristath/folio/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnnual_ZeroGrowthIsConstant(t *testing.T) {
	for _, reinvest := range []bool{true, false} {
		series := Annual(1_000_000, 0, 0, reinvest, 10)
		require.Len(t, series, 10)
		for i, p := range series {
			assert.Equal(t, i+1, p.Year)
			assert.Equal(t, 1_000_000.0, p.Value)
		}
	}
}

func TestAnnual_ReinvestAddsYield(t *testing.T) {
	with := Annual(100, 0.10, 0.05, true, 2)
	without := Annual(100, 0.10, 0.05, false, 2)

	assert.InDelta(t, 115.0, with[0].Value, 1e-9)
	assert.InDelta(t, 132.25, with[1].Value, 1e-9)
	assert.InDelta(t, 110.0, without[0].Value, 1e-9)
	assert.InDelta(t, 121.0, without[1].Value, 1e-9)
}

func TestMonthly_ZeroRateZeroContributionIsConstant(t *testing.T) {
	series := Monthly(5000, 0, 0, 7)
	require.Len(t, series, 7)
	for _, p := range series {
		assert.Equal(t, 5000.0, p.Value)
	}
}

func TestMonthly_ContributionOnly(t *testing.T) {
	series := Monthly(0, 100, 0, 3)
	require.Len(t, series, 3)
	assert.InDelta(t, 1200.0, series[0].Value, 1e-9)
	assert.InDelta(t, 3600.0, series[2].Value, 1e-9)
	assert.Equal(t, 3, series[2].Year)
}

func TestMonthly_CompoundsBeforeContribution(t *testing.T) {
	series := Monthly(1000, 10, 0.12, 1)
	require.Len(t, series, 1)

	want := 1000.0
	for i := 0; i < 12; i++ {
		want = want*1.01 + 10
	}
	assert.InDelta(t, want, series[0].Value, 1e-9)
}

func TestCompound(t *testing.T) {
	series := Compound(1000, 0.10, 3)
	require.Len(t, series, 3)
	assert.InDelta(t, 1100.0, series[0].Value, 1e-9)
	assert.InDelta(t, 1331.0, series[2].Value, 1e-9)
	assert.InDelta(t, 1331.0, series.Final(), 1e-9)
}

func TestProject_Validation(t *testing.T) {
	tests := []struct {
		name string
		a    Assumptions
	}{
		{"zero years", Assumptions{Years: 0}},
		{"too many years", Assumptions{Years: MaxYears + 1}},
		{"negative value", Assumptions{Years: 1, InitialValue: -1}},
		{"growth wipes out value", Assumptions{Years: 1, GrowthRate: -1}},
		{"negative contribution", Assumptions{Years: 1, Mode: ModeMonthly, Contribution: -5}},
		{"unknown mode", Assumptions{Years: 1, Mode: "weekly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Project(tt.a)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestProject_DispatchesOnMode(t *testing.T) {
	annual, err := Project(Assumptions{InitialValue: 100, GrowthRate: 0.1, Years: 1})
	require.NoError(t, err)
	assert.InDelta(t, 110.0, annual.Final(), 1e-9)

	monthly, err := Project(Assumptions{Mode: ModeMonthly, Contribution: 1, Years: 1})
	require.NoError(t, err)
	assert.InDelta(t, 12.0, monthly.Final(), 1e-9)
}

func TestRenderPNG(t *testing.T) {
	buf, err := RenderPNG(Annual(100, 0, 0, false, 5), "Flat")
	require.NoError(t, err)
	require.Greater(t, len(buf), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, buf[:4])

	_, err = RenderPNG(nil, "empty")
	assert.Error(t, err)
}
