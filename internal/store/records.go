package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taho/analytics/internal/engine"
)

// Record is a persisted trade record. ID is the exchange-side identifier
// (trade id or income id) and deduplicates repeated collection runs.
type Record struct {
	ID string `json:"id"`
	engine.TradeRecord
}

// UpsertRecords stores a batch of collected records. Records already present
// are left untouched, so re-collecting an overlapping time range is safe.
// Returns the number of newly inserted rows.
func (r *Repository) UpsertRecords(ctx context.Context, records []Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO analytics.trade_records (
			id, ts, symbol, side, quantity, price, realized_pnl, fee, funding, kind
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	inserted := 0
	for _, rec := range records {
		tag, err := tx.Exec(ctx, query,
			rec.ID, rec.Timestamp, rec.Symbol, string(rec.Side),
			rec.Quantity, rec.Price, rec.RealizedPnL, rec.Fee, rec.Funding,
			string(rec.Kind),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert record %s: %w", rec.ID, err)
		}
		inserted += int(tag.RowsAffected())
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return inserted, nil
}

// GetRecords retrieves records in [from, to] ordered by timestamp ascending
func (r *Repository) GetRecords(ctx context.Context, from, to time.Time) ([]engine.TradeRecord, error) {
	query := `
		SELECT ts, symbol, side, quantity, price, realized_pnl, fee, funding, kind
		FROM analytics.trade_records
		WHERE ts BETWEEN $1 AND $2
		ORDER BY ts ASC
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]engine.TradeRecord, 0)

	for rows.Next() {
		var rec engine.TradeRecord
		var side, kind string

		err := rows.Scan(
			&rec.Timestamp, &rec.Symbol, &side, &rec.Quantity, &rec.Price,
			&rec.RealizedPnL, &rec.Fee, &rec.Funding, &kind,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.Side = engine.Side(side)
		rec.Kind = engine.RecordKind(kind)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// LatestRecordTime returns the timestamp of the newest stored record.
// The zero time means the store is empty; collection then starts from the
// configured lookback window instead of an incremental cursor.
func (r *Repository) LatestRecordTime(ctx context.Context) (time.Time, error) {
	query := `SELECT ts FROM analytics.trade_records ORDER BY ts DESC LIMIT 1`

	var ts time.Time
	err := r.pool.QueryRow(ctx, query).Scan(&ts)

	if err == pgx.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get latest record time: %w", err)
	}

	return ts, nil
}

// CountRecords returns the number of stored records in [from, to]
func (r *Repository) CountRecords(ctx context.Context, from, to time.Time) (int, error) {
	query := `SELECT count(*) FROM analytics.trade_records WHERE ts BETWEEN $1 AND $2`

	var n int
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}

	return n, nil
}
