package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taho/analytics/internal/engine"
	"github.com/taho/analytics/internal/store"
	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/database"
	"github.com/taho/analytics/pkg/logger"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build a performance report from stored records",
	Long: `Builds the full report over the stored records and prints it as
JSON. With --save the report snapshot is also persisted.

Example:
  go run ./cmd/taho report --days 30
  go run ./cmd/taho report --as-of 2026-08-01T00:00:00Z --granularity hour
  go run ./cmd/taho report --days 7 --save`,
	RunE: runReport,
}

var (
	reportAsOf        string
	reportDays        int
	reportGranularity string
	reportSave        bool
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportAsOf, "as-of", "", "report reference instant (RFC3339, default now)")
	reportCmd.Flags().IntVar(&reportDays, "days", 0, "lookback days (default ENGINE_LOOKBACK_DAYS)")
	reportCmd.Flags().StringVar(&reportGranularity, "granularity", "day", "risk series granularity (hour|day)")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "persist the report snapshot")
}

func runReport(cmd *cobra.Command, args []string) error {
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

	asOf := time.Now().UTC()
	if reportAsOf != "" {
		if asOf, err = time.Parse(time.RFC3339, reportAsOf); err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
	}

	days := cfg.Engine.LookbackDays
	if reportDays > 0 {
		days = reportDays
	}

	p := engine.DefaultParams(asOf)
	p.Lookback = time.Duration(days) * 24 * time.Hour
	p.Granularity = engine.Granularity(reportGranularity)
	p.EquityBase = cfg.Engine.EquityBase
	p.RiskFreeRate = cfg.Engine.RiskFreeRate
	p.HourOffset = cfg.Engine.HourOffset

	records, err := repo.GetRecords(cmd.Context(), asOf.Add(-p.Lookback), asOf)
	if err != nil {
		return fmt.Errorf("load records: %w", err)
	}

	report, err := engine.BuildReport(records, p)
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if reportSave {
		if err := repo.SaveReport(cmd.Context(), report); err != nil {
			return fmt.Errorf("save report: %w", err)
		}
		log.WithField("as_of", report.AsOf.Format(time.RFC3339)).Info("Report snapshot stored")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
