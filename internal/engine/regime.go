package engine

import (
	"math"
	"sort"
)

// Regime axis labels. Threshold ties always resolve toward the calmer label
// (normal/sideways/neutral).
const (
	VolatilityLow    = "low"
	VolatilityNormal = "normal"
	VolatilityHigh   = "high"

	TrendBullish  = "bullish"
	TrendBearish  = "bearish"
	TrendSideways = "sideways"

	PerformanceOutperforming   = "outperforming"
	PerformanceNeutral         = "neutral"
	PerformanceUnderperforming = "underperforming"
)

// RegimeLabel classifies the current market regime along three independent
// axes. Each label carries the numeric score that produced it.
type RegimeLabel struct {
	Volatility      string  `json:"volatility"`
	VolatilityScore float64 `json:"volatility_score"` // trailing realized vol

	Trend      string  `json:"trend"`
	TrendScore float64 `json:"trend_score"` // short MA minus long MA

	Performance      string  `json:"performance"`
	PerformanceScore float64 `json:"performance_score"` // annualized trailing ratio

	InsufficientData bool `json:"insufficient_data"`
}

// ClassifyRegime labels the current regime from the window's returns series.
// Volatility cutoffs are calibrated against the window's own rolling-vol
// distribution rather than absolute levels, so the axis adapts to the
// strategy's scale. periodsPerYear annualizes the performance ratio.
func ClassifyRegime(returns []float64, periodsPerYear float64, cfg RegimeConfig) RegimeLabel {
	label := RegimeLabel{
		Volatility:  VolatilityNormal,
		Trend:       TrendSideways,
		Performance: PerformanceNeutral,
	}

	// The rolling-vol distribution needs at least a few windows and the
	// trend axis needs the long MA to be meaningful.
	if len(returns) < cfg.LongWindow || len(returns) < cfg.VolWindow+2 {
		label.InsufficientData = true
		return label
	}

	classifyVolatility(returns, cfg, &label)
	classifyTrend(returns, cfg, &label)
	classifyPerformance(returns, periodsPerYear, cfg, &label)

	return label
}

// classifyVolatility compares the trailing realized vol against percentile
// cutoffs of the window's own rolling-vol distribution
func classifyVolatility(returns []float64, cfg RegimeConfig, label *RegimeLabel) {
	w := cfg.VolWindow
	vols := make([]float64, 0, len(returns)-w+1)
	for i := w; i <= len(returns); i++ {
		vols = append(vols, sampleStdev(returns[i-w:i]))
	}

	current := vols[len(vols)-1]
	low := percentile(vols, cfg.VolLowPercentile)
	high := percentile(vols, cfg.VolHighPercentile)

	label.VolatilityScore = current
	switch {
	case current > high:
		label.Volatility = VolatilityHigh
	case current < low:
		label.Volatility = VolatilityLow
	default:
		label.Volatility = VolatilityNormal
	}
}

// classifyTrend compares short and long moving averages of cumulative equity
func classifyTrend(returns []float64, cfg RegimeConfig, label *RegimeLabel) {
	equity := make([]float64, len(returns))
	var cum float64
	for i, r := range returns {
		cum += r
		equity[i] = cum
	}

	shortMA := mean(equity[len(equity)-cfg.ShortWindow:])
	longMA := mean(equity[len(equity)-cfg.LongWindow:])
	spread := shortMA - longMA

	label.TrendScore = spread
	switch {
	case spread > cfg.MinSlope:
		label.Trend = TrendBullish
	case spread < -cfg.MinSlope:
		label.Trend = TrendBearish
	default:
		label.Trend = TrendSideways
	}
}

// classifyPerformance computes a Sharpe-like ratio over the trailing
// sub-window only and compares it to zero and the good-performance cutoff
func classifyPerformance(returns []float64, periodsPerYear float64, cfg RegimeConfig, label *RegimeLabel) {
	trailing := returns[len(returns)-cfg.VolWindow:]

	avg := mean(trailing)
	sd := sampleStdev(trailing)
	if nearZeroDeviation(sd, avg) {
		// Flat trailing window: score 0, neutral
		label.Performance = PerformanceNeutral
		return
	}

	score := avg / sd * math.Sqrt(periodsPerYear)
	label.PerformanceScore = score
	switch {
	case score > cfg.GoodSharpe:
		label.Performance = PerformanceOutperforming
	case score < 0:
		label.Performance = PerformanceUnderperforming
	default:
		label.Performance = PerformanceNeutral
	}
}

// percentile returns the p-th percentile (0..1) of values using linear
// interpolation between closest ranks
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
