package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeFees(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T10:00:00Z", "BTCUSDT", 100, 2),
		trade("2026-08-01T11:00:00Z", "ETHUSDT", -20, 1),
		funding("2026-08-01T16:00:00Z", "BTCUSDT", 3),    // paid
		funding("2026-08-02T00:00:00Z", "ETHUSDT", -1.5), // received
	}

	fees := AttributeFees(records, AggregateSymbols(records))

	assert.Equal(t, 80.0, fees.GrossPnL)
	assert.Equal(t, 3.0, fees.FeeSum)
	assert.Equal(t, 3.0, fees.FundingPaid)
	assert.Equal(t, 1.5, fees.FundingReceived)
	assert.Equal(t, 1.5, fees.NetFunding)
	assert.Equal(t, 75.5, fees.NetPnL)
	assert.Equal(t, 2, fees.TradeCount)
	assert.InDelta(t, 3.0/80.0, fees.FeeDrag, 1e-12)
	assert.Equal(t, 1.5, fees.AvgFeePerTrade)

	require.Len(t, fees.BySymbol, 2)
	assert.Equal(t, "BTCUSDT", fees.BySymbol[0].Symbol) // highest fee first
	assert.Equal(t, 2.0, fees.BySymbol[0].FeeSum)
}

// Fee drag must stay finite when gross P&L is zero
func TestAttributeFeesZeroGross(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T10:00:00Z", "BTCUSDT", 50, 1),
		trade("2026-08-01T11:00:00Z", "BTCUSDT", -50, 1),
	}

	fees := AttributeFees(records, AggregateSymbols(records))

	assert.Equal(t, 0.0, fees.GrossPnL)
	assert.False(t, fees.FeeDrag != fees.FeeDrag, "fee drag must not be NaN")
	assert.Greater(t, fees.FeeDrag, 0.0)
}

func TestAttributeFeesEmpty(t *testing.T) {
	fees := AttributeFees(nil, nil)
	assert.Zero(t, fees.FeeSum)
	assert.Zero(t, fees.AvgFeePerTrade)
	assert.Zero(t, fees.FeeDrag)
}
