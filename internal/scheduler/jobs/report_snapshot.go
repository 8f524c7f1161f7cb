package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/taho/analytics/internal/engine"
	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/logger"
)

// ReportStore is the slice of the repository the snapshot job uses
type ReportStore interface {
	GetRecords(ctx context.Context, from, to time.Time) ([]engine.TradeRecord, error)
	SaveReport(ctx context.Context, report *engine.Report) error
}

// ReportSnapshotJob builds the daily report shortly after midnight UTC and
// persists it, so historical reports survive data corrections and stay
// queryable as they were produced.
type ReportSnapshotJob struct {
	store     ReportStore
	engineCfg config.EngineConfig
	logger    *logger.Logger

	// now is swappable in tests
	now func() time.Time
}

// NewReportSnapshotJob creates the daily snapshot job
func NewReportSnapshotJob(st ReportStore, engineCfg config.EngineConfig, log *logger.Logger) *ReportSnapshotJob {
	return &ReportSnapshotJob{
		store:     st,
		engineCfg: engineCfg,
		logger:    log,
		now:       time.Now,
	}
}

// Name returns the job name
func (j *ReportSnapshotJob) Name() string {
	return "report_snapshot"
}

// Schedule returns the cron schedule (00:10 UTC daily, after the hourly
// collection pass has landed the previous day's tail)
func (j *ReportSnapshotJob) Schedule() string {
	return "0 10 0 * * *"
}

// Run builds and stores the report as of last midnight
func (j *ReportSnapshotJob) Run(ctx context.Context) error {
	asOf := j.now().UTC().Truncate(24 * time.Hour)

	p := engine.DefaultParams(asOf)
	p.Lookback = time.Duration(j.engineCfg.LookbackDays) * 24 * time.Hour
	p.EquityBase = j.engineCfg.EquityBase
	p.RiskFreeRate = j.engineCfg.RiskFreeRate
	p.HourOffset = j.engineCfg.HourOffset

	records, err := j.store.GetRecords(ctx, asOf.Add(-p.Lookback), asOf)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	report, err := engine.BuildReport(records, p)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if err := j.store.SaveReport(ctx, report); err != nil {
		return fmt.Errorf("save report: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"as_of":   asOf.Format(time.RFC3339),
		"records": report.RecordCount,
	}).Info("Report snapshot stored")

	return nil
}
