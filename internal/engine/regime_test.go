package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func classify(returns []float64) RegimeLabel {
	return ClassifyRegime(returns, 365, DefaultRegimeConfig())
}

func TestClassifyRegimeInsufficientData(t *testing.T) {
	label := classify(make([]float64, 10))

	assert.True(t, label.InsufficientData)
	assert.Equal(t, VolatilityNormal, label.Volatility)
	assert.Equal(t, TrendSideways, label.Trend)
	assert.Equal(t, PerformanceNeutral, label.Performance)
}

func TestClassifyRegimeHighVolatility(t *testing.T) {
	// Calm first half, violent second half: the trailing window's realized
	// vol sits above the window's own upper percentile cutoff.
	returns := make([]float64, 30)
	for i := 0; i < 16; i++ {
		returns[i] = 0.001 * float64(1-2*(i%2))
	}
	for i := 16; i < 30; i++ {
		returns[i] = 0.05 * float64(1-2*(i%2))
	}

	label := classify(returns)
	assert.False(t, label.InsufficientData)
	assert.Equal(t, VolatilityHigh, label.Volatility)
	assert.Greater(t, label.VolatilityScore, 0.0)
}

func TestClassifyRegimeLowVolatility(t *testing.T) {
	// Violent first half, dead-flat tail
	returns := make([]float64, 30)
	for i := 0; i < 16; i++ {
		returns[i] = 0.05 * float64(1-2*(i%2))
	}
	for i := 16; i < 30; i++ {
		returns[i] = 0.001
	}

	label := classify(returns)
	assert.Equal(t, VolatilityLow, label.Volatility)
}

func TestClassifyRegimeTrendBullish(t *testing.T) {
	returns := make([]float64, 30)
	for i := range returns {
		returns[i] = 0.01
	}

	label := classify(returns)
	assert.Equal(t, TrendBullish, label.Trend)
	assert.Greater(t, label.TrendScore, 0.0)

	// Constant returns also exercise the tie rules: rolling vol is 0
	// everywhere so the volatility axis stays normal, and the flat
	// trailing ratio keeps performance neutral.
	assert.Equal(t, VolatilityNormal, label.Volatility)
	assert.Equal(t, PerformanceNeutral, label.Performance)
}

func TestClassifyRegimeTrendBearish(t *testing.T) {
	returns := make([]float64, 30)
	for i := range returns {
		returns[i] = -0.01
	}

	label := classify(returns)
	assert.Equal(t, TrendBearish, label.Trend)
	assert.Less(t, label.TrendScore, 0.0)
}

func TestClassifyRegimeSideways(t *testing.T) {
	// Small alternating returns keep the MA spread inside the slope band
	returns := make([]float64, 30)
	for i := range returns {
		returns[i] = 0.004 * float64(1-2*(i%2))
	}

	label := classify(returns)
	assert.Equal(t, TrendSideways, label.Trend)
}

func TestClassifyRegimePerformanceAxis(t *testing.T) {
	// Strong steady gains with slight noise: trailing annualized ratio is
	// far above the good-performance cutoff
	up := make([]float64, 30)
	for i := range up {
		up[i] = 0.01 + 0.001*float64(i%2)
	}
	assert.Equal(t, PerformanceOutperforming, classify(up).Performance)

	// Steady losses with slight noise
	down := make([]float64, 30)
	for i := range down {
		down[i] = -0.01 - 0.001*float64(i%2)
	}
	assert.Equal(t, PerformanceUnderperforming, classify(down).Performance)
}

func TestPercentile(t *testing.T) {
	values := []float64{4, 1, 3, 2}

	assert.Equal(t, 1.0, percentile(values, 0))
	assert.Equal(t, 4.0, percentile(values, 1))
	assert.InDelta(t, 2.5, percentile(values, 0.5), 1e-12)
	assert.Equal(t, 0.0, percentile(nil, 0.5))
}
