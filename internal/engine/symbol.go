package engine

import "sort"

// SymbolStats is the per-instrument rollup
type SymbolStats struct {
	Symbol      string  `json:"symbol"`
	PnLSum      float64 `json:"pnl_sum"`
	FeeSum      float64 `json:"fee_sum"`
	FundingSum  float64 `json:"funding_sum"`
	TradeCount  int     `json:"trade_count"`
	WinCount    int     `json:"win_count"`
	LossCount   int     `json:"loss_count"`
	WinRate     float64 `json:"win_rate"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
	LargestWin  float64 `json:"largest_win"`
	LargestLoss float64 `json:"largest_loss"`
}

// AggregateSymbols partitions records by symbol and computes per-instrument
// stats. Output is ordered by descending pnl_sum with an ascending symbol
// tie-break, so identical input sets always yield identical output
// regardless of input ordering.
func AggregateSymbols(records []TradeRecord) []SymbolStats {
	bySymbol := make(map[string]*SymbolStats)

	for _, r := range records {
		s, ok := bySymbol[r.Symbol]
		if !ok {
			s = &SymbolStats{Symbol: r.Symbol}
			bySymbol[r.Symbol] = s
		}

		s.FeeSum += r.Fee
		s.FundingSum += r.Funding

		if r.Kind != KindTrade {
			continue
		}

		pnl := r.RealizedPnL
		s.PnLSum += pnl
		s.TradeCount++

		switch {
		case pnl > 0:
			s.WinCount++
			s.AvgWin += pnl // running sum, divided below
			if pnl > s.LargestWin {
				s.LargestWin = pnl
			}
		case pnl < 0:
			s.LossCount++
			s.AvgLoss += pnl
			if pnl < s.LargestLoss {
				s.LargestLoss = pnl
			}
		}
	}

	stats := make([]SymbolStats, 0, len(bySymbol))
	for _, s := range bySymbol {
		if s.TradeCount > 0 {
			s.WinRate = float64(s.WinCount) / float64(s.TradeCount)
		}
		if s.WinCount > 0 {
			s.AvgWin /= float64(s.WinCount)
		}
		if s.LossCount > 0 {
			s.AvgLoss /= float64(s.LossCount)
		}
		stats = append(stats, *s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].PnLSum != stats[j].PnLSum {
			return stats[i].PnLSum > stats[j].PnLSum
		}
		return stats[i].Symbol < stats[j].Symbol
	})

	return stats
}
