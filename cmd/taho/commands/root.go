package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "taho",
	Short: "TaHo - trading bot performance analytics",
	Long: `TaHo Analytics CLI

Performance analytics for a Binance Futures trading bot: collects fills
and funding fees, stores them, and computes report sections (time buckets,
symbol aggregation, fee attribution, risk metrics, regime classification).

Usage:
  go run ./cmd/taho [command]

Examples:
  go run ./cmd/taho api
  go run ./cmd/taho collect --days 7
  go run ./cmd/taho report --days 30
  go run ./cmd/taho worker`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
