package engine

import "math"

// profitFactorCap bounds the profit-factor ratio so that an all-winning
// window still reports a finite, displayable value. Reaching the cap is
// annotated with the profit_factor_capped flag.
const profitFactorCap = 99.99

// RiskOptions parameterizes the risk metric computation
type RiskOptions struct {
	// EquityBase is the reference capital; 0 selects pseudo-return mode
	EquityBase float64

	// RiskFreeRate is annual
	RiskFreeRate float64

	// PeriodsPerYear annualizes Sharpe/Sortino (365 daily, 8760 hourly)
	PeriodsPerYear float64
}

// DrawdownPoint is one sample of the cumulative-equity vs running-peak curve
type DrawdownPoint struct {
	Index    int     `json:"index"`
	Equity   float64 `json:"equity"`
	Peak     float64 `json:"peak"`
	Drawdown float64 `json:"drawdown"` // fraction of peak
}

// TradeStats are per-trade outcome statistics (as opposed to the per-period
// series metrics). Streaks and expectancy come from the chronological trade
// list.
type TradeStats struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`
	GrossProfit   float64 `json:"gross_profit"`
	GrossLoss     float64 `json:"gross_loss"` // absolute value
	NetProfit     float64 `json:"net_profit"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"` // absolute value
	RiskReward    float64 `json:"risk_reward"`
	Expectancy    float64 `json:"expectancy"`
	LargestWin    float64 `json:"largest_win"`
	LargestLoss   float64 `json:"largest_loss"`
	MaxWinStreak  int     `json:"max_win_streak"`
	MaxLossStreak int     `json:"max_loss_streak"`

	// CurrentStreak is positive for consecutive wins, negative for losses
	CurrentStreak int `json:"current_streak"`
}

// RiskMetrics is the full risk-adjusted performance section.
// Sharpe, Sortino and the drawdown stats come from one pass over the
// gap-filled period series; the profit factor and trade stats come from the
// trade-level P&L list so that single-bucket batches still attribute wins
// and losses individually.
type RiskMetrics struct {
	Sharpe         float64 `json:"sharpe"`
	Sortino        float64 `json:"sortino"`
	MaxDrawdown    float64 `json:"max_drawdown"`     // fraction of peak
	MaxDrawdownAbs float64 `json:"max_drawdown_abs"` // currency
	PeakIndex      int     `json:"peak_index"`
	TroughIndex    int     `json:"trough_index"`
	ProfitFactor   float64 `json:"profit_factor"`

	DrawdownCurve []DrawdownPoint `json:"drawdown_curve,omitempty"`
	Trades        TradeStats      `json:"trades"`

	Periods          int      `json:"periods"`
	Flags            []string `json:"flags,omitempty"`
	InsufficientData bool     `json:"insufficient_data"`
}

func (m *RiskMetrics) flag(f string) {
	for _, existing := range m.Flags {
		if existing == f {
			return
		}
	}
	m.Flags = append(m.Flags, f)
}

// HasFlag reports whether the metric set carries the given flag
func (m RiskMetrics) HasFlag(f string) bool {
	for _, existing := range m.Flags {
		if existing == f {
			return true
		}
	}
	return false
}

// ComputeRiskMetrics computes the risk section from a contiguous,
// chronologically ascending, gap-filled P&L series (one value per period)
// plus the chronological trade-level P&L list. Ratios that would divide by
// zero are reported as 0 with an explanatory flag, never as NaN or Inf.
func ComputeRiskMetrics(periodPnL []float64, tradePnL []float64, opts RiskOptions) RiskMetrics {
	m := RiskMetrics{Periods: len(periodPnL)}

	if len(periodPnL) == 0 && len(tradePnL) == 0 {
		m.InsufficientData = true
		return m
	}

	returns, pseudo := ReturnSeries(periodPnL, opts.EquityBase)
	if pseudo {
		m.flag(FlagPseudoReturns)
	}

	computeSharpeSortino(returns, opts, &m)
	computeDrawdown(periodPnL, opts.EquityBase, &m)
	m.Trades = ComputeTradeStats(tradePnL)
	m.ProfitFactor = m.Trades.riskAdjustedProfitFactor(&m)

	return m
}

// ReturnSeries converts the P&L series into per-period returns. With an
// equity base the conversion is exact; without one the series is normalized
// by the magnitude of its own mean, a degraded mode reported as pseudo=true
// and flagged pseudo_returns on the risk section. The regime classifier
// consumes the same series so both sections agree on period count and scale.
func ReturnSeries(periodPnL []float64, equityBase float64) (returns []float64, pseudo bool) {
	returns = make([]float64, len(periodPnL))

	if equityBase > 0 {
		for i, pnl := range periodPnL {
			returns[i] = pnl / equityBase
		}
		return returns, false
	}

	denom := math.Max(math.Abs(mean(periodPnL)), 1)
	for i, pnl := range periodPnL {
		returns[i] = pnl / denom
	}
	return returns, true
}

func computeSharpeSortino(returns []float64, opts RiskOptions, m *RiskMetrics) {
	if len(returns) < 2 {
		m.flag(FlagInsufficientVariance)
		m.flag(FlagInsufficientDownside)
		return
	}

	rfPerPeriod := opts.RiskFreeRate / opts.PeriodsPerYear
	avg := mean(returns)
	excess := avg - rfPerPeriod
	annualize := math.Sqrt(opts.PeriodsPerYear)

	if sd := sampleStdev(returns); !nearZeroDeviation(sd, avg) {
		m.Sharpe = excess / sd * annualize
	} else {
		m.flag(FlagInsufficientVariance)
	}

	// Downside deviation: RMS of negative returns against a 0 target
	var downSum float64
	var downCount int
	for _, r := range returns {
		if r < 0 {
			downSum += r * r
			downCount++
		}
	}
	if downCount == 0 {
		m.flag(FlagInsufficientDownside)
		return
	}
	if dd := math.Sqrt(downSum / float64(downCount)); !nearZeroDeviation(dd, avg) {
		m.Sortino = excess / dd * annualize
	} else {
		m.flag(FlagInsufficientDownside)
	}
}

// computeDrawdown builds the cumulative-equity curve (seeded with the equity
// base when available) and tracks the running peak. The reported indices
// satisfy peak_index <= trough_index.
func computeDrawdown(periodPnL []float64, equityBase float64, m *RiskMetrics) {
	if len(periodPnL) == 0 {
		return
	}

	equity := equityBase
	peak := equity
	peakIdx := 0
	curve := make([]DrawdownPoint, 0, len(periodPnL))

	for i, pnl := range periodPnL {
		equity += pnl
		if equity > peak {
			peak = equity
			peakIdx = i
		}

		var frac float64
		if peak > 0 {
			frac = (peak - equity) / peak
		}
		curve = append(curve, DrawdownPoint{Index: i, Equity: equity, Peak: peak, Drawdown: frac})

		if frac > m.MaxDrawdown {
			m.MaxDrawdown = frac
			m.MaxDrawdownAbs = peak - equity
			m.PeakIndex = peakIdx
			m.TroughIndex = i
		}
	}

	m.DrawdownCurve = curve
}

// ComputeTradeStats computes per-trade outcome statistics from the
// chronological trade-level P&L list
func ComputeTradeStats(tradePnL []float64) TradeStats {
	var s TradeStats
	s.TotalTrades = len(tradePnL)
	if s.TotalTrades == 0 {
		return s
	}

	var curWin, curLoss int
	for _, pnl := range tradePnL {
		switch {
		case pnl > 0:
			s.WinningTrades++
			s.GrossProfit += pnl
			if pnl > s.LargestWin {
				s.LargestWin = pnl
			}
			curWin++
			curLoss = 0
			if curWin > s.MaxWinStreak {
				s.MaxWinStreak = curWin
			}
		case pnl < 0:
			s.LosingTrades++
			s.GrossLoss += -pnl
			if pnl < s.LargestLoss {
				s.LargestLoss = pnl
			}
			curLoss++
			curWin = 0
			if curLoss > s.MaxLossStreak {
				s.MaxLossStreak = curLoss
			}
		default:
			// Flat trades break streaks but count toward the total
			curWin = 0
			curLoss = 0
		}
	}

	if curWin > 0 {
		s.CurrentStreak = curWin
	} else if curLoss > 0 {
		s.CurrentStreak = -curLoss
	}

	s.NetProfit = s.GrossProfit - s.GrossLoss
	s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)

	if s.WinningTrades > 0 {
		s.AvgWin = s.GrossProfit / float64(s.WinningTrades)
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.LosingTrades)
	}

	if s.AvgLoss > 0 {
		s.RiskReward = math.Min(s.AvgWin/s.AvgLoss, profitFactorCap)
	} else if s.AvgWin > 0 {
		s.RiskReward = profitFactorCap
	}

	lossRate := 1 - s.WinRate
	s.Expectancy = s.WinRate*s.AvgWin - lossRate*s.AvgLoss

	return s
}

// riskAdjustedProfitFactor derives the reported profit factor, replacing the
// infinite all-wins case with the capped sentinel plus flag.
func (s TradeStats) riskAdjustedProfitFactor(m *RiskMetrics) float64 {
	if s.GrossLoss > 0 {
		pf := s.GrossProfit / s.GrossLoss
		if pf > profitFactorCap {
			m.flag(FlagProfitFactorCapped)
			return profitFactorCap
		}
		return pf
	}
	if s.GrossProfit > 0 {
		// All wins: infinity sentinel
		m.flag(FlagProfitFactorCapped)
		return profitFactorCap
	}
	return 0
}

// mean returns the arithmetic mean, 0 for an empty slice
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// nearZeroDeviation reports whether a computed deviation is floating-point
// residue rather than real variance. A constant nonzero series yields a
// stdev around 1e-18 instead of exactly 0, so the zero-variance guards
// compare against an epsilon scaled by the series mean.
func nearZeroDeviation(dev, avg float64) bool {
	return dev <= math.Abs(avg)*1e-12+1e-15
}

// sampleStdev returns the sample standard deviation (n-1), 0 when n < 2
func sampleStdev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	avg := mean(values)
	var ss float64
	for _, v := range values {
		d := v - avg
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-1))
}
