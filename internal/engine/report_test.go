package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reportParams(asOf string) Params {
	p := DefaultParams(ts(asOf))
	p.EquityBase = 1000
	return p
}

// Three trades in one day: +100, -50, +20 with fee 1 each. The daily bucket
// carries P&L 70 and fees 3, win rate is 2/3, and the profit factor is
// 120/50 = 2.4.
func TestBuildReportSingleDay(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T10:00:00Z", "BTCUSDT", 100, 1),
		trade("2026-08-01T12:00:00Z", "BTCUSDT", -50, 1),
		trade("2026-08-01T14:00:00Z", "ETHUSDT", 20, 1),
	}

	report, err := BuildReport(records, reportParams("2026-08-02T00:00:00Z"))
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 3, report.RecordCount)
	assert.False(t, report.InsufficientData())

	require.Len(t, report.Daily.Buckets, 1)
	day := report.Daily.Buckets[0]
	assert.Equal(t, ts("2026-08-01T00:00:00Z"), day.Start)
	assert.Equal(t, 70.0, day.PnLSum)
	assert.Equal(t, 3.0, day.FeeSum)

	assert.Equal(t, 3.0, report.Fees.FeeSum)
	assert.InDelta(t, 2.0/3.0, report.Risk.Trades.WinRate, 1e-12)
	assert.InDelta(t, 2.4, report.Risk.ProfitFactor, 1e-12)

	require.Len(t, report.Symbols.Symbols, 2)
	assert.Equal(t, "BTCUSDT", report.Symbols.Symbols[0].Symbol)
}

// An empty window is not an error: every section is marked insufficient
func TestBuildReportEmptyWindow(t *testing.T) {
	report, err := BuildReport(nil, reportParams("2026-08-02T00:00:00Z"))
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.InsufficientData())
	assert.Equal(t, 0, report.RecordCount)
	assert.Equal(t, VolatilityNormal, report.Regime.Volatility)
	assert.Equal(t, TrendSideways, report.Regime.Trend)
}

func TestBuildReportIdempotent(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T10:00:00Z", "BTCUSDT", 100, 1),
		trade("2026-08-01T12:00:00Z", "ETHUSDT", -50, 1),
		funding("2026-08-01T16:00:00Z", "BTCUSDT", 0.5),
	}
	p := reportParams("2026-08-02T00:00:00Z")

	first, err := BuildReport(records, p)
	require.NoError(t, err)
	second, err := BuildReport(records, p)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

// Input order must not influence the report
func TestBuildReportOrderIndependent(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T10:00:00Z", "BTCUSDT", 100, 1),
		trade("2026-08-01T12:00:00Z", "ETHUSDT", -50, 1),
		trade("2026-07-30T09:00:00Z", "BTCUSDT", 25, 1),
	}
	reversed := []TradeRecord{records[2], records[1], records[0]}
	p := reportParams("2026-08-02T00:00:00Z")

	a, err := BuildReport(records, p)
	require.NoError(t, err)
	b, err := BuildReport(reversed, p)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestBuildReportSkipsMalformedRecords(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T10:00:00Z", "BTCUSDT", 100, 1),
		{Timestamp: ts("2026-08-01T11:00:00Z"), Side: SideBuy, Quantity: 1, Price: 1, Kind: KindTrade}, // no symbol
		{Timestamp: ts("2026-08-01T12:00:00Z"), Symbol: "ETHUSDT", Side: SideBuy, Quantity: -1, Price: 1, Kind: KindTrade},
	}

	report, err := BuildReport(records, reportParams("2026-08-02T00:00:00Z"))
	require.NoError(t, err)

	assert.Equal(t, 1, report.RecordCount)
	require.Len(t, report.SkippedRecords, 2)
	assert.Equal(t, 1, report.SkippedRecords[0].Index)
	assert.Equal(t, "missing symbol", report.SkippedRecords[0].Reason)
	assert.Equal(t, "non-positive quantity", report.SkippedRecords[1].Reason)
}

func TestBuildReportWindowFilter(t *testing.T) {
	p := reportParams("2026-08-02T00:00:00Z")
	p.Lookback = 24 * time.Hour

	records := []TradeRecord{
		trade("2026-07-15T10:00:00Z", "BTCUSDT", 999, 1), // before the window
		trade("2026-08-01T10:00:00Z", "BTCUSDT", 70, 1),
	}

	report, err := BuildReport(records, p)
	require.NoError(t, err)

	assert.Equal(t, 1, report.RecordCount)
	require.Len(t, report.Daily.Buckets, 1)
	assert.Equal(t, 70.0, report.Daily.Buckets[0].PnLSum)
}

func TestBuildReportContractViolations(t *testing.T) {
	records := []TradeRecord{trade("2026-08-01T10:00:00Z", "BTCUSDT", 1, 0)}

	cases := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{"zero as-of", func(p *Params) { p.AsOf = time.Time{} }, ErrZeroAsOf},
		{"zero lookback", func(p *Params) { p.Lookback = 0 }, ErrInvalidLookback},
		{"negative lookback", func(p *Params) { p.Lookback = -time.Hour }, ErrInvalidLookback},
		{"bad granularity", func(p *Params) { p.Granularity = "week" }, ErrInvalidGranularity},
		{"negative equity base", func(p *Params) { p.EquityBase = -1 }, ErrNegativeEquityBase},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := reportParams("2026-08-02T00:00:00Z")
			tc.mutate(&p)

			report, err := BuildReport(records, p)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestBuildReportRecordAfterAsOf(t *testing.T) {
	records := []TradeRecord{
		trade("2026-08-01T10:00:00Z", "BTCUSDT", 1, 0),
		trade("2026-08-03T10:00:00Z", "BTCUSDT", 1, 0),
	}

	report, err := BuildReport(records, reportParams("2026-08-02T00:00:00Z"))
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrRecordAfterAsOf)
}

// Input records stay untouched: local timestamps are normalized on a copy
func TestBuildReportDoesNotMutateInput(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	records := []TradeRecord{
		{
			Timestamp:   time.Date(2026, 8, 1, 17, 0, 0, 0, loc),
			Symbol:      "BTCUSDT",
			Side:        SideBuy,
			Quantity:    1,
			Price:       100,
			RealizedPnL: 10,
			Kind:        KindTrade,
		},
	}
	before := records[0]

	_, err := BuildReport(records, reportParams("2026-08-02T00:00:00Z"))
	require.NoError(t, err)

	assert.Equal(t, before, records[0])
	assert.Equal(t, loc, records[0].Timestamp.Location())
}

func TestBuildReportHourlyGranularity(t *testing.T) {
	p := reportParams("2026-08-01T12:00:00Z")
	p.Granularity = GranularityHour
	p.Lookback = 6 * time.Hour

	records := []TradeRecord{
		trade("2026-08-01T07:30:00Z", "BTCUSDT", 10, 0.1),
		trade("2026-08-01T09:10:00Z", "BTCUSDT", -4, 0.1),
	}

	report, err := BuildReport(records, p)
	require.NoError(t, err)

	assert.Equal(t, GranularityHour, report.Granularity)
	require.Len(t, report.Hourly.Buckets, 2)
	assert.Equal(t, ts("2026-08-01T07:00:00Z"), report.Hourly.Buckets[0].Start)
}
