package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/taho/analytics/internal/api"
	"github.com/taho/analytics/internal/api/handlers"
	"github.com/taho/analytics/internal/collector"
	"github.com/taho/analytics/internal/store"
	"github.com/taho/analytics/pkg/config"
	"github.com/taho/analytics/pkg/database"
	"github.com/taho/analytics/pkg/httputil"
	"github.com/taho/analytics/pkg/logger"
	"github.com/taho/analytics/pkg/redis"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the analytics API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                  - Health check
  POST /api/collect             - Trigger collection for a time range
  GET  /api/analytics/report    - Full report
  GET  /api/analytics/daily     - Daily bucket series
  GET  /api/analytics/hourly    - Hourly buckets + hour-of-day profile
  GET  /api/analytics/symbols   - Per-symbol aggregation
  GET  /api/analytics/fees      - Fee attribution
  GET  /api/analytics/risk      - Risk metrics + direction attribution
  GET  /api/analytics/regime    - Regime classification

Example:
  go run ./cmd/taho api
  go run ./cmd/taho api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()
	cache := redis.NewCache(redisClient, "taho")

	httpClient := httputil.New(log)
	binanceClient := collector.NewClient(cfg.Binance, httpClient, log)
	col := collector.New(binanceClient, repo, cfg.Binance.Symbols, log)

	analyticsHandler := handlers.NewAnalyticsHandler(repo, cache, cfg.Engine, log)
	collectHandler := handlers.NewCollectHandler(col, log)

	router := api.NewRouter(analyticsHandler, collectHandler, log)
	server := api.New(cfg, log, router)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	fmt.Printf("Server running on http://localhost:%s\n", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
