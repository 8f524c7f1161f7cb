package jobs

import (
	"context"
	"time"

	"github.com/taho/analytics/internal/collector"
	"github.com/taho/analytics/pkg/logger"
)

// IncrementalCollector runs one incremental collection pass
type IncrementalCollector interface {
	CollectIncremental(ctx context.Context, initialLookback time.Duration) (*collector.Result, error)
}

// CollectionJob pulls new fills and funding fees every hour. The websocket
// stream delivers fills live; this job backfills anything missed while
// disconnected.
type CollectionJob struct {
	collector       IncrementalCollector
	initialLookback time.Duration
	logger          *logger.Logger
}

// NewCollectionJob creates the hourly collection job
func NewCollectionJob(col IncrementalCollector, initialLookback time.Duration, log *logger.Logger) *CollectionJob {
	return &CollectionJob{
		collector:       col,
		initialLookback: initialLookback,
		logger:          log,
	}
}

// Name returns the job name
func (j *CollectionJob) Name() string {
	return "collection"
}

// Schedule returns the cron schedule (five minutes past every hour)
func (j *CollectionJob) Schedule() string {
	return "0 5 * * * *"
}

// Run executes one incremental collection
func (j *CollectionJob) Run(ctx context.Context) error {
	result, err := j.collector.CollectIncremental(ctx, j.initialLookback)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"fetched": result.Fetched,
		"new":     result.NewRecords,
	}).Info("Scheduled collection completed")

	return nil
}
