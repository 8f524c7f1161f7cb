package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server
	Port   string
	Env    string // development, staging, production
	Server ServerConfig

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Binance Futures API
	Binance BinanceConfig

	// Analytics engine defaults
	Engine EngineConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// ServerConfig holds HTTP server timeouts
type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// ShutdownTimeout bounds the graceful drain on SIGTERM
	ShutdownTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration for report caching
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// BinanceConfig holds Binance Futures API configuration
type BinanceConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	WSBaseURL string

	// Symbols the bot trades; userTrades must be fetched per symbol
	Symbols []string

	// REST request budget (requests per second)
	RequestsPerSecond float64
}

// EngineConfig holds analytics engine defaults
// These seed engine.Params for API and scheduled reports; per-request
// query parameters can override them.
type EngineConfig struct {
	LookbackDays int
	EquityBase   float64 // 0 = pseudo-return mode
	RiskFreeRate float64 // annual
	HourOffset   int     // hour-of-day profile offset from UTC
	CacheTTL     time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),
		Server: ServerConfig{
			ReadTimeout: getEnvAsDuration("SERVER_READ_TIMEOUT", "15s"),
			// Report JSON over a long hourly window gets large; allow a slow write
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "30s"),
		},

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		// Binance
		Binance: BinanceConfig{
			APIKey:            getEnv("BINANCE_API_KEY", ""),
			APISecret:         getEnv("BINANCE_API_SECRET", ""),
			BaseURL:           getEnv("BINANCE_BASE_URL", "https://fapi.binance.com"),
			WSBaseURL:         getEnv("BINANCE_WS_BASE_URL", "wss://fstream.binance.com"),
			Symbols:           getEnvAsList("BINANCE_SYMBOLS", ""),
			RequestsPerSecond: getEnvAsFloat("BINANCE_REQUESTS_PER_SECOND", 5),
		},

		// Engine defaults
		Engine: EngineConfig{
			LookbackDays: getEnvAsInt("ENGINE_LOOKBACK_DAYS", 30),
			EquityBase:   getEnvAsFloat("ENGINE_EQUITY_BASE", 0),
			RiskFreeRate: getEnvAsFloat("ENGINE_RISK_FREE_RATE", 0),
			HourOffset:   getEnvAsInt("ENGINE_HOUR_OFFSET", 7), // bot operator is UTC+7
			CacheTTL:     getEnvAsDuration("ENGINE_CACHE_TTL", "5m"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.LookbackDays <= 0 {
		return fmt.Errorf("ENGINE_LOOKBACK_DAYS must be > 0")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma-separated env value into a slice
func getEnvAsList(key, defaultValue string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	if valueStr == "" {
		return nil
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
