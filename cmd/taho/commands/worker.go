package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taho/analytics/internal/collector"
	"github.com/taho/analytics/internal/scheduler"
	"github.com/taho/analytics/internal/scheduler/jobs"
	"github.com/taho/analytics/internal/store"
	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/database"
	"github.com/taho/analytics/pkg/httputil"
	"github.com/taho/analytics/pkg/logger"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the background worker",
	Long: `Runs the background worker:

- user-data websocket stream (live fills)
- hourly collection job (REST backfill)
- daily report snapshot job (00:10 UTC)

Example:
  go run ./cmd/taho worker
  go run ./cmd/taho worker --no-stream`,
	RunE: runWorker,
}

var (
	workerNoStream bool
	workerRunNow   string
)

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().BoolVar(&workerNoStream, "no-stream", false, "disable the websocket stream")
	workerCmd.Flags().StringVar(&workerRunNow, "run-now", "", "run the named job immediately on startup (collection, report_snapshot)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)
	log.WithField("env", cfg.Env).Info("Initializing worker")

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	httpClient := httputil.New(log)
	binanceClient := collector.NewClient(cfg.Binance, httpClient, log)
	col := collector.New(binanceClient, repo, cfg.Binance.Symbols, log)

	initialLookback := time.Duration(cfg.Engine.LookbackDays) * 24 * time.Hour

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewCollectionJob(col, initialLookback, log)); err != nil {
		return fmt.Errorf("add collection job: %w", err)
	}
	if err := sched.AddJob(jobs.NewReportSnapshotJob(repo, cfg.Engine, log)); err != nil {
		return fmt.Errorf("add report snapshot job: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	if workerRunNow != "" {
		if err := sched.RunJob(workerRunNow); err != nil {
			return fmt.Errorf("run job %q: %w", workerRunNow, err)
		}
	}

	statusDone := make(chan struct{})
	defer close(statusDone)
	go logJobStatus(sched, log, statusDone)

	var stream *collector.Stream
	if !workerNoStream {
		stream = collector.NewStream(binanceClient, repo, log)
		if err := stream.Start(cmd.Context()); err != nil {
			// The REST sweep still covers collection; keep the worker up
			log.WithError(err).Warn("Websocket stream unavailable, relying on REST collection")
			stream = nil
		}
	}
	if stream != nil {
		defer stream.Stop()
	}

	fmt.Println("Worker running. Press Ctrl+C to stop.")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Worker stopped")
	return nil
}

// logJobStatus periodically reports per-job run counts and success rates
func logJobStatus(sched *scheduler.Scheduler, log *logger.Logger, done <-chan struct{}) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, name := range sched.GetAllJobs() {
				history, err := sched.GetJobHistory(name)
				if err != nil {
					continue
				}
				latest := history.GetLatestResults(1)
				if len(latest) == 0 {
					continue
				}
				log.WithFields(map[string]interface{}{
					"job":          name,
					"runs":         len(history.Results),
					"success_rate": history.GetSuccessRate(),
					"last_success": latest[0].Success,
				}).Info("Job status")
			}
		}
	}
}
