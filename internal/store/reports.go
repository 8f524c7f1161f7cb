package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taho/analytics/internal/engine"
)

// SaveReport persists a report snapshot keyed by its as-of instant and
// granularity. Re-running the same report replaces the stored copy.
func (r *Repository) SaveReport(ctx context.Context, report *engine.Report) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	query := `
		INSERT INTO analytics.reports (as_of, granularity, lookback, report)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (as_of, granularity) DO UPDATE SET
			lookback = EXCLUDED.lookback,
			report = EXCLUDED.report,
			created_at = now()
	`

	_, err = r.pool.Exec(ctx, query,
		report.AsOf, string(report.Granularity), report.Lookback, reportJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// GetReport retrieves the stored report for an exact as-of instant
func (r *Repository) GetReport(ctx context.Context, asOf time.Time, g engine.Granularity) (*engine.Report, error) {
	query := `
		SELECT report FROM analytics.reports
		WHERE as_of = $1 AND granularity = $2
	`

	var reportJSON []byte
	err := r.pool.QueryRow(ctx, query, asOf, string(g)).Scan(&reportJSON)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("report not found for %s", asOf.Format(time.RFC3339))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report engine.Report
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// GetLatestReport retrieves the newest stored report for a granularity.
// Returns nil without error when no report has been stored yet.
func (r *Repository) GetLatestReport(ctx context.Context, g engine.Granularity) (*engine.Report, error) {
	query := `
		SELECT report FROM analytics.reports
		WHERE granularity = $1
		ORDER BY as_of DESC
		LIMIT 1
	`

	var reportJSON []byte
	err := r.pool.QueryRow(ctx, query, string(g)).Scan(&reportJSON)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest report: %w", err)
	}

	var report engine.Report
	if err := json.Unmarshal(reportJSON, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}
