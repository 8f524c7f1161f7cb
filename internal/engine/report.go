package engine

import (
	"fmt"
	"time"
)

// BucketSeries is a time-bucketed report section
type BucketSeries struct {
	Buckets          []TimeBucket `json:"buckets"`
	InsufficientData bool         `json:"insufficient_data"`
}

// SymbolSection is the per-instrument report section
type SymbolSection struct {
	Symbols          []SymbolStats `json:"symbols"`
	InsufficientData bool          `json:"insufficient_data"`
}

// FeeSection is the cost attribution report section
type FeeSection struct {
	FeeBreakdown
	InsufficientData bool `json:"insufficient_data"`
}

// HourProfileSection is the hour-of-day report section
type HourProfileSection struct {
	Offset           int              `json:"offset"` // hours from UTC
	Hours            []HourOfDayStats `json:"hours"`
	BestHours        []HourOfDayStats `json:"best_hours,omitempty"`
	WorstHours       []HourOfDayStats `json:"worst_hours,omitempty"`
	InsufficientData bool             `json:"insufficient_data"`
}

// DirectionSection is the long-vs-short attribution section
type DirectionSection struct {
	DirectionStats
	InsufficientData bool `json:"insufficient_data"`
}

// Report is the immutable composite for one as-of instant and lookback
// window. Every section carries either computed values or an explicit
// insufficient_data marker; a true zero-performance period is therefore
// distinguishable from an empty window.
type Report struct {
	AsOf        time.Time   `json:"as_of"`
	WindowStart time.Time   `json:"window_start"`
	Lookback    string      `json:"lookback"`
	Granularity Granularity `json:"granularity"`
	RecordCount int         `json:"record_count"`

	Hourly    BucketSeries       `json:"hourly"`
	Daily     BucketSeries       `json:"daily"`
	Symbols   SymbolSection      `json:"symbols"`
	Fees      FeeSection         `json:"fees"`
	Risk      RiskMetrics        `json:"risk"`
	Regime    RegimeLabel        `json:"regime"`
	HourOfDay HourProfileSection `json:"hour_of_day"`
	Direction DirectionSection   `json:"direction"`

	SkippedRecords []SkippedRecord `json:"skipped_records,omitempty"`
}

// InsufficientData reports whether every section of the report is marked
// insufficient (typically an empty window)
func (r *Report) InsufficientData() bool {
	return r.Hourly.InsufficientData &&
		r.Daily.InsufficientData &&
		r.Symbols.InsufficientData &&
		r.Fees.InsufficientData &&
		r.Risk.InsufficientData &&
		r.Regime.InsufficientData &&
		r.HourOfDay.InsufficientData &&
		r.Direction.InsufficientData
}

// BuildReport runs the full analysis over one batch of trade records.
//
// The engine is a pure function of its arguments: records are read-only,
// no I/O happens, and two calls with the same batch and params yield
// identical reports. Malformed records are excluded individually and listed
// in skipped_records; an empty window yields a report with every section
// marked insufficient_data. Only contract violations return an error.
func BuildReport(records []TradeRecord, p Params) (*Report, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	clean, skipped := sanitizeRecords(records)

	// Data from the future relative to as-of breaks every windowed
	// computation; that is a caller bug, not a data-quality issue.
	if n := len(clean); n > 0 && clean[n-1].Timestamp.After(p.AsOf) {
		return nil, fmt.Errorf("%w: %s > %s",
			ErrRecordAfterAsOf,
			clean[n-1].Timestamp.Format(time.RFC3339),
			p.AsOf.Format(time.RFC3339))
	}

	windowStart := p.AsOf.Add(-p.Lookback)
	windowed := clean[:0:0]
	for _, r := range clean {
		if !r.Timestamp.Before(windowStart) {
			windowed = append(windowed, r)
		}
	}

	report := &Report{
		AsOf:           p.AsOf,
		WindowStart:    windowStart,
		Lookback:       p.Lookback.String(),
		Granularity:    p.Granularity,
		RecordCount:    len(windowed),
		SkippedRecords: skipped,
	}

	if len(windowed) == 0 {
		markAllInsufficient(report)
		return report, nil
	}

	// Bucketer first: the risk and regime sections depend on its output
	report.Hourly = BucketSeries{Buckets: BucketRecords(windowed, GranularityHour)}
	report.Daily = BucketSeries{Buckets: BucketRecords(windowed, GranularityDay)}

	symbols := AggregateSymbols(windowed)
	report.Symbols = SymbolSection{Symbols: symbols}
	report.Fees = FeeSection{FeeBreakdown: AttributeFees(windowed, symbols)}

	granular := report.Daily.Buckets
	if p.Granularity == GranularityHour {
		granular = report.Hourly.Buckets
	}
	padded := PadBuckets(granular, p.Granularity, windowStart, p.AsOf)
	periodPnL := PnLSeries(padded)

	tradePnL := make([]float64, 0, len(windowed))
	for _, r := range windowed {
		if r.Kind == KindTrade {
			tradePnL = append(tradePnL, r.RealizedPnL)
		}
	}

	report.Risk = ComputeRiskMetrics(periodPnL, tradePnL, RiskOptions{
		EquityBase:     p.EquityBase,
		RiskFreeRate:   p.RiskFreeRate,
		PeriodsPerYear: p.Granularity.PeriodsPerYear(),
	})

	returns, _ := ReturnSeries(periodPnL, p.EquityBase)
	report.Regime = ClassifyRegime(returns, p.Granularity.PeriodsPerYear(), p.Regime)

	hours := HourOfDayProfile(windowed, p.HourOffset)
	best, worst := BestWorstHours(hours, 3)
	report.HourOfDay = HourProfileSection{
		Offset:     p.HourOffset,
		Hours:      hours,
		BestHours:  best,
		WorstHours: worst,
	}

	report.Direction = DirectionSection{DirectionStats: AttributeDirection(windowed)}

	return report, nil
}

func markAllInsufficient(r *Report) {
	r.Hourly.InsufficientData = true
	r.Daily.InsufficientData = true
	r.Symbols.InsufficientData = true
	r.Fees.InsufficientData = true
	r.Risk.InsufficientData = true
	r.Regime = RegimeLabel{
		Volatility:       VolatilityNormal,
		Trend:            TrendSideways,
		Performance:      PerformanceNeutral,
		InsufficientData: true,
	}
	r.HourOfDay.InsufficientData = true
	r.Direction.InsufficientData = true
}
