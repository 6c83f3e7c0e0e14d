// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/aristath/pairlab/internal/archive"
	"github.com/aristath/pairlab/internal/domain"
	"github.com/aristath/pairlab/internal/modules/backtest"
	"github.com/aristath/pairlab/internal/modules/pairs"
	"github.com/aristath/pairlab/internal/modules/spread"
	"github.com/aristath/pairlab/internal/utils"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir      string `toml:"-"` // Base directory for history.db and results.db (always absolute)
	LogLevel     string `toml:"-"`
	Port         int    `toml:"-"`
	DevMode      bool   `toml:"-"`
	StrategyFile string `toml:"-"` // Optional TOML file applied over the environment values

	// Archive holds object-store credentials; environment only
	Archive archive.Config `toml:"-"`

	// Universe restricts the scan to these symbols; empty means every stored symbol
	Universe []string        `toml:"universe"`
	Scan     ScanConfig      `toml:"scan"`
	Backtest backtest.Config `toml:"backtest"`
	Schedule ScheduleConfig  `toml:"schedule"`
}

// ScanConfig holds pair scanner parameters
type ScanConfig struct {
	Significance    float64 `toml:"significance"`
	MaxCandidates   int     `toml:"max_candidates"`
	MinObservations int     `toml:"min_observations"`
	Workers         int     `toml:"workers"`
}

// ScheduleConfig holds cron expressions for background jobs. Empty disables a job.
type ScheduleConfig struct {
	Research    string `toml:"research"`
	Maintenance string `toml:"maintenance"`
}

// PairsConfig returns the scanner configuration
func (s ScanConfig) PairsConfig() pairs.Config {
	return pairs.Config{MinObservations: s.MinObservations, Workers: s.Workers}
}

// Load reads .env, the environment and the optional strategy file, then validates.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("TRADER_DATA_DIR", "data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:      absDataDir,
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnvAsInt("GO_PORT", 8001),
		DevMode:      getEnvAsBool("DEV_MODE", false),
		StrategyFile: getEnv("STRATEGY_CONFIG", ""),
		Universe:     getEnvAsList("PAIRS_UNIVERSE"),
		Scan: ScanConfig{
			Significance:    getEnvAsFloat("SCAN_SIGNIFICANCE", 0.05),
			MaxCandidates:   getEnvAsInt("SCAN_MAX_CANDIDATES", 10),
			MinObservations: getEnvAsInt("SCAN_MIN_OBSERVATIONS", pairs.DefaultMinObservations),
			Workers:         getEnvAsInt("SCAN_WORKERS", runtime.GOMAXPROCS(0)),
		},
		Backtest: backtest.Config{
			InitialCapital: getEnvAsFloat("BACKTEST_INITIAL_CAPITAL", backtest.DefaultInitialCapital),
			EntryThreshold: getEnvAsFloat("BACKTEST_ENTRY_Z", backtest.DefaultEntryThreshold),
			ExitThreshold:  getEnvAsFloat("BACKTEST_EXIT_Z", backtest.DefaultExitThreshold),
			RiskFraction:   getEnvAsFloat("BACKTEST_RISK_FRACTION", backtest.DefaultRiskFraction),
			CloseOpenAtEnd: getEnvAsBool("CLOSE_OPEN_AT_END", false),
			Spread: spread.Options{
				Normalization: spread.Normalization(getEnv("ZSCORE_MODE", string(spread.NormalizationFullSample))),
				Window:        getEnvAsInt("ZSCORE_WINDOW", spread.DefaultWindow),
			},
		},
		Schedule: ScheduleConfig{
			Research:    getEnv("SCAN_SCHEDULE", ""),
			Maintenance: getEnv("MAINTENANCE_SCHEDULE", "@daily"),
		},
		Archive: archive.Config{
			Endpoint:       getEnv("ARCHIVE_S3_ENDPOINT", ""),
			Region:         getEnv("ARCHIVE_S3_REGION", "us-east-1"),
			Bucket:         getEnv("ARCHIVE_S3_BUCKET", ""),
			AccessKey:      getEnv("ARCHIVE_S3_ACCESS_KEY", ""),
			SecretKey:      getEnv("ARCHIVE_S3_SECRET_KEY", ""),
			Prefix:         getEnv("ARCHIVE_S3_PREFIX", "pairlab"),
			ForcePathStyle: getEnvAsBool("ARCHIVE_S3_PATH_STYLE", false),
		},
	}

	if cfg.StrategyFile != "" {
		if err := cfg.ApplyStrategyFile(cfg.StrategyFile); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// HistoryDBPath returns the path of the price history database
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ResultsDBPath returns the path of the backtest results database
func (c *Config) ResultsDBPath() string {
	return filepath.Join(c.DataDir, "results.db")
}

// Validate checks parameter ranges
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range: %w", c.Port, domain.ErrInvalidConfig)
	}
	if c.Scan.Significance <= 0 || c.Scan.Significance >= 1 {
		return fmt.Errorf("scan significance must be in (0, 1), got %g: %w", c.Scan.Significance, domain.ErrInvalidConfig)
	}
	if c.Scan.MinObservations < 2 {
		return fmt.Errorf("scan min observations must be at least 2, got %d: %w", c.Scan.MinObservations, domain.ErrInvalidConfig)
	}
	if c.Scan.MaxCandidates < 0 {
		return fmt.Errorf("scan max candidates must not be negative, got %d: %w", c.Scan.MaxCandidates, domain.ErrInvalidConfig)
	}
	return c.Backtest.Validate()
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blanks
func getEnvAsList(key string) []string {
	return utils.ParseSymbols(os.Getenv(key))
}
