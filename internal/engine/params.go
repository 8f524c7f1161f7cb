package engine

import (
	"errors"
	"fmt"
	"time"
)

// Granularity selects the bucketing period
type Granularity string

const (
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
)

// Duration returns the bucket width
func (g Granularity) Duration() time.Duration {
	if g == GranularityHour {
		return time.Hour
	}
	return 24 * time.Hour
}

// PeriodsPerYear returns the annualization base for the granularity.
// Crypto markets trade every day of the year.
func (g Granularity) PeriodsPerYear() float64 {
	if g == GranularityHour {
		return 24 * 365
	}
	return 365
}

// Contract violations: the only error class that aborts report assembly.
// Per-record and per-metric problems are recovered locally and annotated
// on the report instead.
var (
	ErrZeroAsOf           = errors.New("as-of instant must be set")
	ErrInvalidLookback    = errors.New("lookback window must be positive")
	ErrInvalidGranularity = errors.New("granularity must be hour or day")
	ErrNegativeEquityBase = errors.New("equity base must not be negative")
	ErrRecordAfterAsOf    = errors.New("record timestamped after as-of instant")
)

// Output flags for degraded or boundary computations. These are part of the
// report, never errors: the values they annotate are displayed to users and
// must stay finite.
const (
	FlagInsufficientVariance = "insufficient_variance"
	FlagInsufficientDownside = "insufficient_downside"
	FlagPseudoReturns        = "pseudo_returns"
	FlagProfitFactorCapped   = "profit_factor_capped"
)

// RegimeConfig holds regime classifier thresholds.
// Exact defaults are a product decision; everything here is overridable.
type RegimeConfig struct {
	// Rolling sub-window (periods) for realized volatility and the
	// trailing performance ratio
	VolWindow int `json:"vol_window"`

	// Percentiles of the window's own rolling-vol distribution used as
	// low/high cutoffs
	VolLowPercentile  float64 `json:"vol_low_percentile"`
	VolHighPercentile float64 `json:"vol_high_percentile"`

	// Moving-average windows over cumulative equity for the trend axis
	ShortWindow int `json:"short_window"`
	LongWindow  int `json:"long_window"`

	// Minimum short-vs-long MA spread to call a trend
	MinSlope float64 `json:"min_slope"`

	// Annualized trailing ratio above which performance is "outperforming"
	GoodSharpe float64 `json:"good_sharpe"`
}

// DefaultRegimeConfig returns the default classifier thresholds
func DefaultRegimeConfig() RegimeConfig {
	return RegimeConfig{
		VolWindow:         14,
		VolLowPercentile:  0.25,
		VolHighPercentile: 0.75,
		ShortWindow:       5,
		LongWindow:        20,
		MinSlope:          0.0005,
		GoodSharpe:        1.0,
	}
}

func (c RegimeConfig) validate() error {
	if c.VolWindow < 2 {
		return fmt.Errorf("vol window must be >= 2, got %d", c.VolWindow)
	}
	if c.VolLowPercentile < 0 || c.VolHighPercentile > 1 || c.VolLowPercentile > c.VolHighPercentile {
		return fmt.Errorf("vol percentiles must satisfy 0 <= low <= high <= 1")
	}
	if c.ShortWindow < 1 || c.LongWindow <= c.ShortWindow {
		return fmt.Errorf("MA windows must satisfy 1 <= short < long")
	}
	return nil
}

// Params are the scalar inputs for one report request
type Params struct {
	// AsOf is the report's reference instant; records after it are a
	// contract violation
	AsOf time.Time `json:"as_of"`

	// Lookback is the analysis window ending at AsOf
	Lookback time.Duration `json:"lookback"`

	// Granularity selects the period for the risk-metric series
	Granularity Granularity `json:"granularity"`

	// EquityBase is the reference capital for converting P&L to returns;
	// 0 enables the pseudo-return degraded mode
	EquityBase float64 `json:"equity_base"`

	// RiskFreeRate is annual (e.g. 0.04 for 4%)
	RiskFreeRate float64 `json:"risk_free_rate"`

	// HourOffset shifts the hour-of-day profile from UTC
	HourOffset int `json:"hour_offset"`

	Regime RegimeConfig `json:"regime"`
}

// DefaultParams returns report parameters for a 30-day daily report
func DefaultParams(asOf time.Time) Params {
	return Params{
		AsOf:        asOf,
		Lookback:    30 * 24 * time.Hour,
		Granularity: GranularityDay,
		Regime:      DefaultRegimeConfig(),
	}
}

func (p Params) validate() error {
	if p.AsOf.IsZero() {
		return ErrZeroAsOf
	}
	if p.Lookback <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidLookback, p.Lookback)
	}
	if p.Granularity != GranularityHour && p.Granularity != GranularityDay {
		return fmt.Errorf("%w: %q", ErrInvalidGranularity, p.Granularity)
	}
	if p.EquityBase < 0 {
		return fmt.Errorf("%w: %f", ErrNegativeEquityBase, p.EquityBase)
	}
	if err := p.Regime.validate(); err != nil {
		return fmt.Errorf("regime config: %w", err)
	}
	return nil
}
