package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/towerstats/analyzer-cli/internal/chartcfg"
	"github.com/towerstats/analyzer-cli/internal/metric"
	"github.com/towerstats/analyzer-cli/internal/report"
)

func extract(t *testing.T, text string) *report.Report {
	t.Helper()
	return report.Extract(text, report.DefaultSchema())
}

func TestSummary_PresentFieldsOnly(t *testing.T) {
	rep := extract(t, "Tier: 10\nWave: 5341\nCoins Earned: 16.89M\nReal Time: 2h46m15s\n")
	sum := Summary(rep)

	assert.Equal(t, 10.0, sum["tier"])
	assert.InEpsilon(t, 16_890_000, sum["coins_earned"], 1e-9)
	_, present := sum["cells_earned"]
	assert.False(t, present, "missing fields stay absent, never zero")
}

func TestSummary_DerivesCoinsPerHour(t *testing.T) {
	rep := extract(t, "Coins Earned: 16.89M\nReal Time: 2h46m15s\n")
	sum := Summary(rep)
	require.Contains(t, sum, "coins_per_hour")
	assert.InDelta(t, 6_090_000, sum["coins_per_hour"], 10_000)
}

func TestSummary_ReportedCoinsPerHourWins(t *testing.T) {
	rep := extract(t, "Coins Earned: 16.89M\nReal Time: 2h46m15s\nCoins Per Hour: 6.09M\n")
	sum := Summary(rep)
	assert.InEpsilon(t, 6_090_000, sum["coins_per_hour"], 1e-9)
}

func TestBuildSeries_OrderAndX(t *testing.T) {
	reports := []*report.Report{
		extract(t, "Battle Date: 2026-08-01\nCoins Earned: 10M\nReal Time: 1h\n"),
		extract(t, "Battle Date: 2026-08-02\nCoins Earned: 12M\nReal Time: 1h\n"),
		extract(t, "Cells Earned: 500\n"), // no coins: skipped
	}
	s := BuildSeries(reports, "coins_earned", metric.SeriesContext{})
	require.Len(t, s.Points, 2)
	assert.Less(t, s.Points[0].X, s.Points[1].X)
	assert.InEpsilon(t, 10_000_000, s.Points[0].Value, 1e-9)
}

func TestBuildSeries_TierFilter(t *testing.T) {
	reports := []*report.Report{
		extract(t, "Tier: 10\nCoins Earned: 10M\n"),
		extract(t, "Tier: 11\nCoins Earned: 99M\n"),
	}
	s := BuildSeries(reports, "coins_earned", metric.SeriesContext{Tier: "10"})
	require.Len(t, s.Points, 1)
	assert.InEpsilon(t, 10_000_000, s.Points[0].Value, 1e-9)
	assert.Equal(t, "10", s.Context.Tier)
}

func TestBuildSeries_SingleAxisPerSeries(t *testing.T) {
	// One dateless report among dated ones must not inject a positional X
	// onto a timestamp axis; it is dropped instead.
	reports := []*report.Report{
		extract(t, "Battle Date: 2026-08-01\nCoins Earned: 10M\n"),
		extract(t, "Coins Earned: 11M\n"),
		extract(t, "Battle Date: 2026-08-02\nCoins Earned: 12M\n"),
	}
	s := BuildSeries(reports, "coins_earned", metric.SeriesContext{})
	require.Len(t, s.Points, 2)
	assert.Less(t, s.Points[0].X, s.Points[1].X)
	assert.Greater(t, s.Points[0].X, 1e9) // unix seconds, not an index
	assert.InEpsilon(t, 10_000_000, s.Points[0].Value, 1e-9)
	assert.InEpsilon(t, 12_000_000, s.Points[1].Value, 1e-9)
}

func TestBuildSeries_IndexAxisWhenNoDates(t *testing.T) {
	reports := []*report.Report{
		extract(t, "Coins Earned: 10M\n"),
		extract(t, "Coins Earned: 12M\n"),
	}
	s := BuildSeries(reports, "coins_earned", metric.SeriesContext{})
	require.Len(t, s.Points, 2)
	assert.Equal(t, 0.0, s.Points[0].X)
	assert.Equal(t, 1.0, s.Points[1].X)
}

func TestBuildSeries_NoMatchesIsTypedEmpty(t *testing.T) {
	s := BuildSeries(nil, "coins_earned", metric.SeriesContext{})
	assert.NotNil(t, s.Points)
	assert.Empty(t, s.Points)
}

func TestEvalFormula(t *testing.T) {
	cfg := chartcfg.Config{
		Metrics:        []string{"coins_earned", "cash_earned"},
		ChartType:      chartcfg.ChartLine,
		ComparisonMode: chartcfg.CompareNone,
		DerivedFormula: "coins_earned + cash_earned",
	}
	vc, err := chartcfg.Validate(cfg, metric.Default())
	require.NoError(t, err)

	rep := extract(t, "Coins Earned: 10M\nCash Earned: 2M\n")
	v, ok := EvalFormula(vc, rep)
	require.True(t, ok)
	assert.InEpsilon(t, 12_000_000, v, 1e-9)

	// A report missing a referenced metric is undefined, not zero.
	rep = extract(t, "Coins Earned: 10M\n")
	_, ok = EvalFormula(vc, rep)
	assert.False(t, ok)
}
