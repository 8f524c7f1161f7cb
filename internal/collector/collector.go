package collector

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/taho/analytics/internal/engine"
	"github.com/taho/analytics/internal/store"
	"github.com/taho/analytics/pkg/logger"
)

// RecordStore is the slice of the repository the collector writes through
type RecordStore interface {
	UpsertRecords(ctx context.Context, records []store.Record) (int, error)
	LatestRecordTime(ctx context.Context) (time.Time, error)
}

// Collector pulls fills and funding fees from the exchange and lands them
// in the record store. Upserts deduplicate by exchange id, so overlapping
// collection windows are harmless.
type Collector struct {
	client  *Client
	store   RecordStore
	logger  *logger.Logger
	symbols []string
}

// New creates a collector for the configured symbols
func New(client *Client, st RecordStore, symbols []string, log *logger.Logger) *Collector {
	return &Collector{
		client:  client,
		store:   st,
		logger:  log,
		symbols: symbols,
	}
}

// Result summarizes one collection run
type Result struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Fetched     int       `json:"fetched"`
	NewRecords  int       `json:"new_records"`
	Symbols     []string  `json:"symbols"`
	DurationsMS int64     `json:"duration_ms"`
}

// Collect fetches all fills and funding fees in [from, to] and stores them
func (c *Collector) Collect(ctx context.Context, from, to time.Time) (*Result, error) {
	start := time.Now()
	var batch []store.Record

	for _, symbol := range c.symbols {
		trades, err := c.client.GetUserTrades(ctx, symbol, from, to)
		if err != nil {
			return nil, fmt.Errorf("collect %s: %w", symbol, err)
		}

		for _, t := range trades {
			batch = append(batch, tradeToRecord(t))
		}

		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"trades": len(trades),
		}).Debug("Collected user trades")
	}

	funding, err := c.client.GetFundingIncome(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("collect funding: %w", err)
	}
	for _, f := range funding {
		batch = append(batch, fundingToRecord(f))
	}

	inserted, err := c.store.UpsertRecords(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("store records: %w", err)
	}

	result := &Result{
		From:        from,
		To:          to,
		Fetched:     len(batch),
		NewRecords:  inserted,
		Symbols:     c.symbols,
		DurationsMS: time.Since(start).Milliseconds(),
	}

	c.logger.WithFields(map[string]interface{}{
		"fetched": result.Fetched,
		"new":     result.NewRecords,
		"from":    from.Format(time.RFC3339),
		"to":      to.Format(time.RFC3339),
	}).Info("Collection run completed")

	return result, nil
}

// CollectIncremental collects from just after the newest stored record up
// to now. An empty store falls back to the given initial lookback.
func (c *Collector) CollectIncremental(ctx context.Context, initialLookback time.Duration) (*Result, error) {
	latest, err := c.store.LatestRecordTime(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest record time: %w", err)
	}

	now := time.Now().UTC()
	from := now.Add(-initialLookback)
	if !latest.IsZero() {
		from = latest.Add(time.Millisecond)
	}

	return c.Collect(ctx, from, now)
}

// tradeToRecord converts an exchange fill to a stored trade record.
// Binance reports commission as a positive cost.
func tradeToRecord(t UserTrade) store.Record {
	side := engine.SideBuy
	if t.Side == "SELL" {
		side = engine.SideSell
	}

	return store.Record{
		ID: fmt.Sprintf("trade-%s-%d", t.Symbol, t.ID),
		TradeRecord: engine.TradeRecord{
			Timestamp:   time.UnixMilli(t.Time).UTC(),
			Symbol:      t.Symbol,
			Side:        side,
			Quantity:    t.Quantity,
			Price:       t.Price,
			RealizedPnL: t.RealizedPnL,
			Fee:         t.Commission,
			Kind:        engine.KindTrade,
		},
	}
}

// fundingToRecord converts a funding cash flow. The exchange reports income
// from the account's perspective (positive = received); the record model
// stores funding as paid (positive = cost), so the sign flips.
func fundingToRecord(f IncomeRecord) store.Record {
	return store.Record{
		ID: "funding-" + f.Symbol + "-" + strconv.FormatInt(f.TranID, 10),
		TradeRecord: engine.TradeRecord{
			Timestamp: time.UnixMilli(f.Time).UTC(),
			Symbol:    f.Symbol,
			Funding:   -f.Income,
			Kind:      engine.KindFunding,
		},
	}
}
