package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/taho/analytics/internal/engine"
	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/logger"
	"github.com/taho/analytics/pkg/redis"
)

// RecordSource is the slice of the repository the analytics handler reads
type RecordSource interface {
	GetRecords(ctx context.Context, from, to time.Time) ([]engine.TradeRecord, error)
}

// AnalyticsHandler serves report sections computed on demand. Whole reports
// are cached briefly; every section endpoint is a view over the same report,
// so one cache entry serves all of them.
type AnalyticsHandler struct {
	records   RecordSource
	cache     *redis.Cache
	engineCfg config.EngineConfig
	logger    *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(records RecordSource, cache *redis.Cache, engineCfg config.EngineConfig, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		records:   records,
		cache:     cache,
		engineCfg: engineCfg,
		logger:    log,
	}
}

// parseParams builds engine params from query parameters, falling back to
// the configured defaults. as_of defaults to the current minute so that
// repeated requests inside the cache window share a key.
func (h *AnalyticsHandler) parseParams(r *http.Request) (engine.Params, error) {
	q := r.URL.Query()

	asOf := time.Now().UTC().Truncate(time.Minute)
	if v := q.Get("as_of"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return engine.Params{}, fmt.Errorf("invalid as_of (expected RFC3339): %w", err)
		}
		asOf = parsed.UTC()
	}

	p := engine.DefaultParams(asOf)
	p.Lookback = time.Duration(h.engineCfg.LookbackDays) * 24 * time.Hour
	p.EquityBase = h.engineCfg.EquityBase
	p.RiskFreeRate = h.engineCfg.RiskFreeRate
	p.HourOffset = h.engineCfg.HourOffset

	if v := q.Get("lookback_days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return engine.Params{}, fmt.Errorf("invalid lookback_days: %w", err)
		}
		p.Lookback = time.Duration(days) * 24 * time.Hour
	}
	if v := q.Get("granularity"); v != "" {
		p.Granularity = engine.Granularity(v)
	}
	if v := q.Get("equity_base"); v != "" {
		base, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return engine.Params{}, fmt.Errorf("invalid equity_base: %w", err)
		}
		p.EquityBase = base
	}
	if v := q.Get("hour_offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil {
			return engine.Params{}, fmt.Errorf("invalid hour_offset: %w", err)
		}
		p.HourOffset = offset
	}

	return p, nil
}

func cacheKey(p engine.Params) string {
	return fmt.Sprintf("report:%s:%s:%s:%g:%d",
		p.AsOf.Format(time.RFC3339), p.Granularity, p.Lookback, p.EquityBase, p.HourOffset)
}

// buildReport loads the window's records and runs the engine, consulting
// the report cache first
func (h *AnalyticsHandler) buildReport(ctx context.Context, p engine.Params) (*engine.Report, error) {
	key := cacheKey(p)

	var cached engine.Report
	hit, err := h.cache.Get(ctx, key, &cached)
	if err != nil {
		// Evict undecodable entries so they cannot shadow the rebuilt report
		h.logger.WithError(err).Warn("Report cache read failed")
		if delErr := h.cache.Delete(ctx, key); delErr != nil {
			h.logger.WithError(delErr).Warn("Report cache evict failed")
		}
	}
	if hit {
		return &cached, nil
	}

	records, err := h.records.GetRecords(ctx, p.AsOf.Add(-p.Lookback), p.AsOf)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	report, err := engine.BuildReport(records, p)
	if err != nil {
		return nil, err
	}

	if err := h.cache.Set(ctx, key, report, h.engineCfg.CacheTTL); err != nil {
		h.logger.WithError(err).Warn("Report cache write failed")
	}

	return report, nil
}

// serve runs one report request and writes the chosen section
func (h *AnalyticsHandler) serve(w http.ResponseWriter, r *http.Request, section func(*engine.Report) interface{}) {
	p, err := h.parseParams(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.buildReport(r.Context(), p)
	if err != nil {
		if isContractViolation(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("Failed to build report")
		respondError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}

	respondJSON(w, http.StatusOK, section(report))
}

func isContractViolation(err error) bool {
	return errors.Is(err, engine.ErrZeroAsOf) ||
		errors.Is(err, engine.ErrInvalidLookback) ||
		errors.Is(err, engine.ErrInvalidGranularity) ||
		errors.Is(err, engine.ErrNegativeEquityBase) ||
		errors.Is(err, engine.ErrRecordAfterAsOf)
}

// GetReport returns the full report
// GET /api/analytics/report
func (h *AnalyticsHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *engine.Report) interface{} { return rep })
}

// GetDaily returns the daily bucket series
// GET /api/analytics/daily
func (h *AnalyticsHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *engine.Report) interface{} { return rep.Daily })
}

// GetHourly returns the hourly bucket series plus the hour-of-day profile
// GET /api/analytics/hourly
func (h *AnalyticsHandler) GetHourly(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *engine.Report) interface{} {
		return map[string]interface{}{
			"hourly":      rep.Hourly,
			"hour_of_day": rep.HourOfDay,
		}
	})
}

// GetSymbols returns the per-symbol aggregation
// GET /api/analytics/symbols
func (h *AnalyticsHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *engine.Report) interface{} { return rep.Symbols })
}

// GetFees returns the fee attribution section
// GET /api/analytics/fees
func (h *AnalyticsHandler) GetFees(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *engine.Report) interface{} { return rep.Fees })
}

// GetRisk returns the risk metrics plus the direction attribution
// GET /api/analytics/risk
func (h *AnalyticsHandler) GetRisk(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *engine.Report) interface{} {
		return map[string]interface{}{
			"risk":      rep.Risk,
			"direction": rep.Direction,
		}
	})
}

// GetRegime returns the regime classification
// GET /api/analytics/regime
func (h *AnalyticsHandler) GetRegime(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, func(rep *engine.Report) interface{} { return rep.Regime })
}
