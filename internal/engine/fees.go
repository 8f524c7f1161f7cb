package engine

import (
	"math"
	"sort"
)

// feeDragEpsilon guards the fee-drag ratio when gross P&L is zero
const feeDragEpsilon = 1e-9

// SymbolFees is the per-instrument cost rollup
type SymbolFees struct {
	Symbol     string  `json:"symbol"`
	FeeSum     float64 `json:"fee_sum"`
	FundingSum float64 `json:"funding_sum"`
	TradeCount int     `json:"trade_count"`
	AvgFee     float64 `json:"avg_fee"`
}

// FeeBreakdown attributes commission and funding independently of realized P&L
type FeeBreakdown struct {
	GrossPnL        float64 `json:"gross_pnl"`
	FeeSum          float64 `json:"fee_sum"`
	FundingPaid     float64 `json:"funding_paid"`
	FundingReceived float64 `json:"funding_received"`
	NetFunding      float64 `json:"net_funding"` // positive = net cost
	NetPnL          float64 `json:"net_pnl"`
	TradeCount      int     `json:"trade_count"`

	// FeeDrag is fee_sum / max(|gross P&L|, epsilon)
	FeeDrag        float64 `json:"fee_drag"`
	AvgFeePerTrade float64 `json:"avg_fee_per_trade"`

	// BySymbol is ordered by descending fee_sum
	BySymbol []SymbolFees `json:"by_symbol"`
}

// AttributeFees computes the cost breakdown. Totals and the per-symbol view
// are derived from the symbol partition built by AggregateSymbols; records
// are consulted only for the funding paid/received split, which sums cannot
// recover.
func AttributeFees(records []TradeRecord, symbols []SymbolStats) FeeBreakdown {
	var out FeeBreakdown

	out.BySymbol = make([]SymbolFees, 0, len(symbols))
	for _, s := range symbols {
		out.GrossPnL += s.PnLSum
		out.FeeSum += s.FeeSum
		out.TradeCount += s.TradeCount

		avg := 0.0
		if s.TradeCount > 0 {
			avg = s.FeeSum / float64(s.TradeCount)
		}
		out.BySymbol = append(out.BySymbol, SymbolFees{
			Symbol:     s.Symbol,
			FeeSum:     s.FeeSum,
			FundingSum: s.FundingSum,
			TradeCount: s.TradeCount,
			AvgFee:     avg,
		})
	}
	sort.Slice(out.BySymbol, func(i, j int) bool {
		if out.BySymbol[i].FeeSum != out.BySymbol[j].FeeSum {
			return out.BySymbol[i].FeeSum > out.BySymbol[j].FeeSum
		}
		return out.BySymbol[i].Symbol < out.BySymbol[j].Symbol
	})

	for _, r := range records {
		if r.Funding > 0 {
			out.FundingPaid += r.Funding
		} else {
			out.FundingReceived += -r.Funding
		}
	}

	out.NetFunding = out.FundingPaid - out.FundingReceived
	out.NetPnL = out.GrossPnL - out.FeeSum - out.NetFunding
	out.FeeDrag = out.FeeSum / math.Max(math.Abs(out.GrossPnL), feeDragEpsilon)
	if out.TradeCount > 0 {
		out.AvgFeePerTrade = out.FeeSum / float64(out.TradeCount)
	}

	return out
}
