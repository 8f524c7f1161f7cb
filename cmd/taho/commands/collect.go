package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/taho/analytics/internal/collector"
	"github.com/taho/analytics/internal/store"
	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/database"
	"github.com/taho/analytics/pkg/httputil"
	"github.com/taho/analytics/pkg/logger"
)

// collectCmd represents the collect command
var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect fills and funding fees from the exchange",
	Long: `Runs one collection pass over the requested time range and stores
the records. Re-running an overlapping range is safe; records deduplicate
by exchange id.

Example:
  go run ./cmd/taho collect --days 7
  go run ./cmd/taho collect --from 2026-08-01T00:00:00Z --to 2026-08-02T00:00:00Z`,
	RunE: runCollect,
}

var (
	collectDays int
	collectFrom string
	collectTo   string
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().IntVar(&collectDays, "days", 1, "collect the last N days")
	collectCmd.Flags().StringVar(&collectFrom, "from", "", "range start (RFC3339, overrides --days)")
	collectCmd.Flags().StringVar(&collectTo, "to", "", "range end (RFC3339, default now)")
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -collectDays)
	to := now

	if collectFrom != "" {
		if from, err = time.Parse(time.RFC3339, collectFrom); err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
	}
	if collectTo != "" {
		if to, err = time.Parse(time.RFC3339, collectTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}
	if !from.Before(to) {
		return fmt.Errorf("--from must be before --to")
	}

	httpClient := httputil.New(log)
	binanceClient := collector.NewClient(cfg.Binance, httpClient, log)
	col := collector.New(binanceClient, repo, cfg.Binance.Symbols, log)

	result, err := col.Collect(cmd.Context(), from, to)
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	stored, err := repo.CountRecords(cmd.Context(), from, to)
	if err != nil {
		return fmt.Errorf("count records: %w", err)
	}

	fmt.Printf("Collected %d records (%d new, %d stored in range) for %s .. %s\n",
		result.Fetched, result.NewRecords, stored,
		from.Format(time.RFC3339), to.Format(time.RFC3339))

	return nil
}
