package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHourOfDayProfile(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T10:05:00Z", "BTCUSDT", 100, 1),
		trade("2026-08-01T10:45:00Z", "BTCUSDT", -40, 1),
		trade("2026-08-02T10:15:00Z", "ETHUSDT", 20, 0.5),
		trade("2026-08-01T14:00:00Z", "BTCUSDT", 5, 0.5),
		funding("2026-08-01T10:00:00Z", "BTCUSDT", 2),
	}

	profile := HourOfDayProfile(records, 0)
	require.Len(t, profile, 24)

	ten := profile[10]
	assert.Equal(t, 10, ten.Hour)
	assert.Equal(t, 80.0, ten.PnLSum)
	assert.Equal(t, 2.5, ten.FeeSum)
	assert.Equal(t, 3, ten.TradeCount)
	assert.Equal(t, 2, ten.WinCount)
	assert.InDelta(t, 2.0/3.0, ten.WinRate, 1e-12)

	// Funding records never count toward hourly activity
	assert.Equal(t, 0, profile[0].TradeCount)

	// Inactive slots stay zeroed but present
	assert.Equal(t, 7, profile[7].Hour)
	assert.Zero(t, profile[7].TradeCount)
	assert.Zero(t, profile[7].WinRate)
}

func TestHourOfDayProfileOffsetWraps(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T22:30:00Z", "BTCUSDT", 10, 0),
	}

	// UTC 22 with a +7 offset lands on local hour 5
	profile := HourOfDayProfile(records, 7)
	assert.Equal(t, 1, profile[5].TradeCount)
	assert.Zero(t, profile[22].TradeCount)

	// Negative offsets wrap the other way: UTC 2 with -7 lands on 19
	early := []TradeRecord{trade("2026-08-01T02:00:00Z", "BTCUSDT", 1, 0)}
	profile = HourOfDayProfile(early, -7)
	assert.Equal(t, 1, profile[19].TradeCount)
}

func TestBestWorstHours(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T03:00:00Z", "A", 50, 0),
		trade("2026-08-01T08:00:00Z", "A", -20, 0),
		trade("2026-08-01T12:00:00Z", "A", 30, 0),
		trade("2026-08-01T20:00:00Z", "A", 5, 0),
	}

	best, worst := BestWorstHours(HourOfDayProfile(records, 0), 2)

	require.Len(t, best, 2)
	assert.Equal(t, 3, best[0].Hour)
	assert.Equal(t, 12, best[1].Hour)

	require.Len(t, worst, 2)
	assert.Equal(t, 8, worst[0].Hour)
	assert.Equal(t, 20, worst[1].Hour)
}

func TestBestWorstHoursFewerActiveThanRequested(t *testing.T) {
	records := []TradeRecord{trade("2026-08-01T03:00:00Z", "A", 50, 0)}

	best, worst := BestWorstHours(HourOfDayProfile(records, 0), 3)
	assert.Len(t, best, 1)
	assert.Len(t, worst, 1)
}

func TestAttributeDirection(t *testing.T) {
	records := []TradeRecord{
		{Timestamp: ts("2026-08-01T10:00:00Z"), Symbol: "A", Side: SideBuy, Quantity: 1, Price: 1, RealizedPnL: 100, Kind: KindTrade},
		{Timestamp: ts("2026-08-01T11:00:00Z"), Symbol: "A", Side: SideBuy, Quantity: 1, Price: 1, RealizedPnL: -20, Kind: KindTrade},
		{Timestamp: ts("2026-08-01T12:00:00Z"), Symbol: "A", Side: SideSell, Quantity: 1, Price: 1, RealizedPnL: 10, Kind: KindTrade},
	}

	d := AttributeDirection(records)

	assert.Equal(t, 2, d.Long.TradeCount)
	assert.Equal(t, 80.0, d.Long.PnLSum)
	assert.InDelta(t, 0.5, d.Long.WinRate, 1e-12)
	assert.Equal(t, 40.0, d.Long.AvgPnL)

	assert.Equal(t, 1, d.Short.TradeCount)
	assert.Equal(t, 10.0, d.Short.PnLSum)

	// 80 > 10*1.5, so longs dominate
	assert.Equal(t, BiasBullish, d.MarketBias)
}

func TestAttributeDirectionNeutral(t *testing.T) {
	records := []TradeRecord{
		{Timestamp: ts("2026-08-01T10:00:00Z"), Symbol: "A", Side: SideBuy, Quantity: 1, Price: 1, RealizedPnL: 10, Kind: KindTrade},
		{Timestamp: ts("2026-08-01T11:00:00Z"), Symbol: "A", Side: SideSell, Quantity: 1, Price: 1, RealizedPnL: 9, Kind: KindTrade},
	}

	assert.Equal(t, BiasNeutral, AttributeDirection(records).MarketBias)
}

// A side only marks the bias when its P&L is actually positive; dominating a
// deeply negative other side is not bullishness.
func TestAttributeDirectionBothLosing(t *testing.T) {
	records := []TradeRecord{
		{Timestamp: ts("2026-08-01T10:00:00Z"), Symbol: "A", Side: SideBuy, Quantity: 1, Price: 1, RealizedPnL: -5, Kind: KindTrade},
		{Timestamp: ts("2026-08-01T11:00:00Z"), Symbol: "A", Side: SideSell, Quantity: 1, Price: 1, RealizedPnL: -50, Kind: KindTrade},
	}

	assert.Equal(t, BiasNeutral, AttributeDirection(records).MarketBias)
}
