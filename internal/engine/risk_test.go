package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailyOpts(equityBase float64) RiskOptions {
	return RiskOptions{EquityBase: equityBase, PeriodsPerYear: 365}
}

func TestSharpeKnownValue(t *testing.T) {
	// returns 1%, 2%, 3%: mean 2%, sample stdev 1%
	m := ComputeRiskMetrics([]float64{1, 2, 3}, []float64{1, 2, 3}, dailyOpts(100))

	want := 0.02 / 0.01 * math.Sqrt(365)
	assert.InDelta(t, want, m.Sharpe, 1e-9)
	assert.False(t, m.HasFlag(FlagInsufficientVariance))
	assert.False(t, m.HasFlag(FlagPseudoReturns))
}

func TestSortinoKnownValue(t *testing.T) {
	m := ComputeRiskMetrics([]float64{1, -2, 3}, []float64{1, -2, 3}, dailyOpts(100))

	// mean return = 0.02/3, downside deviation = 0.02
	want := (0.02 / 3) / 0.02 * math.Sqrt(365)
	assert.InDelta(t, want, m.Sortino, 1e-9)
}

func TestMaxDrawdown(t *testing.T) {
	m := ComputeRiskMetrics([]float64{10, -5, -5, 20}, nil, dailyOpts(100))

	// equity: 110, 105, 100, 120; peak 110 at index 0, trough at index 2
	assert.InDelta(t, 10.0/110.0, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, 10.0, m.MaxDrawdownAbs, 1e-12)
	assert.Equal(t, 0, m.PeakIndex)
	assert.Equal(t, 2, m.TroughIndex)
	assert.LessOrEqual(t, m.PeakIndex, m.TroughIndex)
	require.Len(t, m.DrawdownCurve, 4)
	assert.Equal(t, 120.0, m.DrawdownCurve[3].Equity)
	assert.Equal(t, 0.0, m.DrawdownCurve[3].Drawdown)
}

func TestMaxDrawdownFractionBounds(t *testing.T) {
	series := [][]float64{
		{5, -3, 8, -10, 2},
		{-1, -1, -1},
		{0, 0, 0},
		{100},
	}

	for i, pnl := range series {
		m := ComputeRiskMetrics(pnl, nil, dailyOpts(50))
		assert.GreaterOrEqual(t, m.MaxDrawdown, 0.0, "series %d", i)
		assert.LessOrEqual(t, m.MaxDrawdown, 1.0, "series %d", i)
		assert.LessOrEqual(t, m.PeakIndex, m.TroughIndex, "series %d", i)
	}
}

// Constant series: Sharpe 0 with the insufficient_variance flag, never a
// division fault, and zero drawdown.
func TestConstantSeries(t *testing.T) {
	m := ComputeRiskMetrics([]float64{0, 0, 0, 0}, []float64{0, 0}, dailyOpts(100))

	assert.Equal(t, 0.0, m.Sharpe)
	assert.True(t, m.HasFlag(FlagInsufficientVariance))
	assert.Equal(t, 0.0, m.MaxDrawdown)
	assert.Equal(t, 0.0, m.ProfitFactor)
	assert.False(t, math.IsNaN(m.Sharpe))
	assert.False(t, math.IsNaN(m.Sortino))
}

// A constant nonzero series has no variance either, even though its computed
// sample stdev is floating-point residue rather than exactly zero. The
// residue must not leak an astronomical Sharpe.
func TestConstantNonzeroSeries(t *testing.T) {
	pnl := make([]float64, 30)
	for i := range pnl {
		pnl[i] = 10
	}

	m := ComputeRiskMetrics(pnl, pnl, dailyOpts(1000))

	assert.Equal(t, 0.0, m.Sharpe)
	assert.True(t, m.HasFlag(FlagInsufficientVariance))
	assert.True(t, m.HasFlag(FlagInsufficientDownside))
	assert.False(t, math.IsInf(m.Sharpe, 0))
}

// All-winning series: Sortino flagged insufficient_downside, profit factor
// reported via the capped sentinel instead of +Inf.
func TestAllWinningSeries(t *testing.T) {
	m := ComputeRiskMetrics([]float64{5, 10, 7}, []float64{5, 10, 7}, dailyOpts(100))

	assert.Equal(t, 0.0, m.Sortino)
	assert.True(t, m.HasFlag(FlagInsufficientDownside))
	assert.Equal(t, profitFactorCap, m.ProfitFactor)
	assert.True(t, m.HasFlag(FlagProfitFactorCapped))
	assert.False(t, math.IsInf(m.ProfitFactor, 1))
}

func TestPseudoReturnsMode(t *testing.T) {
	m := ComputeRiskMetrics([]float64{10, -5, 8}, []float64{10, -5, 8}, dailyOpts(0))

	assert.True(t, m.HasFlag(FlagPseudoReturns))
	assert.False(t, math.IsNaN(m.Sharpe))
}

func TestRiskFreeRateReducesSharpe(t *testing.T) {
	base := ComputeRiskMetrics([]float64{1, 2, 3}, nil, dailyOpts(100))
	withRf := ComputeRiskMetrics([]float64{1, 2, 3}, nil, RiskOptions{
		EquityBase:     100,
		RiskFreeRate:   0.05,
		PeriodsPerYear: 365,
	})

	assert.Less(t, withRf.Sharpe, base.Sharpe)
}

func TestSinglePointSeries(t *testing.T) {
	m := ComputeRiskMetrics([]float64{42}, []float64{42}, dailyOpts(100))

	assert.Equal(t, 0.0, m.Sharpe)
	assert.True(t, m.HasFlag(FlagInsufficientVariance))
	assert.True(t, m.HasFlag(FlagInsufficientDownside))
}

func TestEmptyInput(t *testing.T) {
	m := ComputeRiskMetrics(nil, nil, dailyOpts(100))
	assert.True(t, m.InsufficientData)
}

func TestComputeTradeStats(t *testing.T) {
	s := ComputeTradeStats([]float64{10, 20, -5, -5, -5, 30, 0, 15})

	assert.Equal(t, 8, s.TotalTrades)
	assert.Equal(t, 4, s.WinningTrades)
	assert.Equal(t, 3, s.LosingTrades)
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.Equal(t, 75.0, s.GrossProfit)
	assert.Equal(t, 15.0, s.GrossLoss)
	assert.Equal(t, 60.0, s.NetProfit)
	assert.Equal(t, 30.0, s.LargestWin)
	assert.Equal(t, -5.0, s.LargestLoss)
	assert.Equal(t, 2, s.MaxWinStreak)
	assert.Equal(t, 3, s.MaxLossStreak)
	assert.Equal(t, 1, s.CurrentStreak) // trailing win after the flat trade

	// Expectancy = winRate*avgWin - (1-winRate)*avgLoss
	want := 0.5*18.75 - 0.5*5
	assert.InDelta(t, want, s.Expectancy, 1e-12)
}

func TestComputeTradeStatsLossStreakCurrent(t *testing.T) {
	s := ComputeTradeStats([]float64{10, -1, -2})
	assert.Equal(t, -2, s.CurrentStreak)
}
