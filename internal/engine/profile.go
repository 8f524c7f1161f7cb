package engine

import "sort"

// HourOfDayStats is one slot of the 24-hour performance profile
type HourOfDayStats struct {
	Hour       int     `json:"hour"`
	PnLSum     float64 `json:"pnl_sum"`
	FeeSum     float64 `json:"fee_sum"`
	TradeCount int     `json:"trade_count"`
	WinCount   int     `json:"win_count"`
	WinRate    float64 `json:"win_rate"`
}

// HourOfDayProfile folds trade performance onto the 24 hours of the day in
// the operator's local time. All 24 slots are emitted, inactive ones zeroed.
// utcOffsetHours shifts slot assignment only; bucketing elsewhere stays UTC.
func HourOfDayProfile(records []TradeRecord, utcOffsetHours int) []HourOfDayStats {
	profile := make([]HourOfDayStats, 24)
	for h := range profile {
		profile[h].Hour = h
	}

	for _, r := range records {
		if r.Kind != KindTrade {
			continue
		}
		h := ((r.Timestamp.UTC().Hour()+utcOffsetHours)%24 + 24) % 24

		profile[h].PnLSum += r.RealizedPnL
		profile[h].FeeSum += r.Fee
		profile[h].TradeCount++
		if r.RealizedPnL > 0 {
			profile[h].WinCount++
		}
	}

	for h := range profile {
		if profile[h].TradeCount > 0 {
			profile[h].WinRate = float64(profile[h].WinCount) / float64(profile[h].TradeCount)
		}
	}

	return profile
}

// BestWorstHours picks the top and bottom n active hours by P&L
func BestWorstHours(profile []HourOfDayStats, n int) (best, worst []HourOfDayStats) {
	active := make([]HourOfDayStats, 0, len(profile))
	for _, h := range profile {
		if h.TradeCount > 0 {
			active = append(active, h)
		}
	}

	sort.Slice(active, func(i, j int) bool {
		if active[i].PnLSum != active[j].PnLSum {
			return active[i].PnLSum > active[j].PnLSum
		}
		return active[i].Hour < active[j].Hour
	})

	if n > len(active) {
		n = len(active)
	}

	best = append(best, active[:n]...)
	for i := 0; i < n; i++ {
		worst = append(worst, active[len(active)-1-i])
	}
	return best, worst
}

// SideStats is the outcome rollup for one trade direction
type SideStats struct {
	TradeCount int     `json:"trade_count"`
	PnLSum     float64 `json:"pnl_sum"`
	WinCount   int     `json:"win_count"`
	WinRate    float64 `json:"win_rate"`
	AvgPnL     float64 `json:"avg_pnl"`
}

// Market bias labels for the direction attribution
const (
	BiasBullish = "bullish"
	BiasBearish = "bearish"
	BiasNeutral = "neutral"
)

// DirectionStats attributes performance to longs vs shorts
type DirectionStats struct {
	Long       SideStats `json:"long"`
	Short      SideStats `json:"short"`
	MarketBias string    `json:"market_bias"`
}

// AttributeDirection rolls up trade outcomes by side. A side dominating the
// other's P&L by more than 1.5x marks the corresponding market bias.
func AttributeDirection(records []TradeRecord) DirectionStats {
	out := DirectionStats{MarketBias: BiasNeutral}

	for _, r := range records {
		if r.Kind != KindTrade {
			continue
		}

		side := &out.Long
		if r.Side == SideSell {
			side = &out.Short
		}

		side.TradeCount++
		side.PnLSum += r.RealizedPnL
		if r.RealizedPnL > 0 {
			side.WinCount++
		}
	}

	finalizeSide(&out.Long)
	finalizeSide(&out.Short)

	switch {
	case out.Long.PnLSum > out.Short.PnLSum*1.5 && out.Long.PnLSum > 0:
		out.MarketBias = BiasBullish
	case out.Short.PnLSum > out.Long.PnLSum*1.5 && out.Short.PnLSum > 0:
		out.MarketBias = BiasBearish
	}

	return out
}

func finalizeSide(s *SideStats) {
	if s.TradeCount == 0 {
		return
	}
	s.WinRate = float64(s.WinCount) / float64(s.TradeCount)
	s.AvgPnL = s.PnLSum / float64(s.TradeCount)
}
