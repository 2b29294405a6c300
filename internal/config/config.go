// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Account store backends
const (
	AccountStoreSQLite = "sqlite"
	AccountStoreMemory = "memory"
	AccountStoreS3     = "s3"
)

// Randomness sources
const (
	RandomnessRandomOrg = "randomorg"
	RandomnessLocal     = "local"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	LogLevel string
	Port     int
	DevMode  bool

	TickInterval      time.Duration
	RandomnessTimeout time.Duration
	RandomnessSource  string
	RandomOrgURL      string
	RandomOrgPerMin   int

	AccountStore    string
	StartingBalance decimal.Decimal
	SymbolsFile     string
	Symbols         []Symbol

	NewsAPIURL   string
	NewsAPIKey   string
	NewsAPIHost  string
	NewsCacheTTL time.Duration

	StoreRetryAttempts  int
	StoreRetryBaseDelay time.Duration
	StoreRetryMaxDelay  time.Duration // zero leaves the backoff uncapped

	PriceHistoryRetention time.Duration

	BackupSchedule      string
	BackupRetentionDays int
	S3                  S3Config
}

// S3Config holds S3-compatible object storage settings (AWS, R2, MinIO)
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
}

// Enabled reports whether a bucket is configured
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("STONKS_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	startingBalance, err := decimal.NewFromString(getEnv("STARTING_BALANCE", "10000"))
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}

	cfg := &Config{
		DataDir:  absDataDir,
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvAsInt("PORT", 8080),
		DevMode:  getEnvAsBool("DEV_MODE", false),

		TickInterval:      getEnvAsDuration("TICK_INTERVAL", 10*time.Second),
		RandomnessTimeout: getEnvAsDuration("RANDOMNESS_TIMEOUT", 5*time.Second),
		RandomnessSource:  strings.ToLower(getEnv("RANDOMNESS_SOURCE", RandomnessRandomOrg)),
		RandomOrgURL:      getEnv("RANDOM_ORG_URL", "https://www.random.org/integers/"),
		RandomOrgPerMin:   getEnvAsInt("RANDOM_ORG_RATE_PER_MINUTE", 60),

		AccountStore:    strings.ToLower(getEnv("ACCOUNT_STORE", AccountStoreSQLite)),
		StartingBalance: startingBalance,
		SymbolsFile:     getEnv("SYMBOLS_FILE", ""),

		NewsAPIURL:   getEnv("NEWS_API_URL", "https://apidojo-yahoo-finance-v1.p.rapidapi.com/stock/v2/get-timeseries?symbol=IBM&region=US"),
		NewsAPIKey:   getEnv("NEWS_API_KEY", ""),
		NewsAPIHost:  getEnv("NEWS_API_HOST", "apidojo-yahoo-finance-v1.p.rapidapi.com"),
		NewsCacheTTL: getEnvAsDuration("NEWS_CACHE_TTL", 15*time.Minute),

		StoreRetryAttempts:  getEnvAsInt("STORE_RETRY_ATTEMPTS", 3),
		StoreRetryBaseDelay: getEnvAsDuration("STORE_RETRY_BASE_DELAY", 100*time.Millisecond),
		StoreRetryMaxDelay:  getEnvAsDuration("STORE_RETRY_MAX_DELAY", 2*time.Second),

		PriceHistoryRetention: getEnvAsDuration("PRICE_HISTORY_RETENTION", 7*24*time.Hour),

		BackupSchedule:      getEnv("BACKUP_SCHEDULE", ""),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 14),
		S3: S3Config{
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "auto"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", "stonks"),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		},
	}

	cfg.Symbols = DefaultSymbols()
	if cfg.SymbolsFile != "" {
		symbols, err := LoadSymbols(cfg.SymbolsFile)
		if err != nil {
			return nil, err
		}
		cfg.Symbols = symbols
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval)
	}
	if c.RandomnessTimeout <= 0 {
		return fmt.Errorf("RANDOMNESS_TIMEOUT must be positive, got %s", c.RandomnessTimeout)
	}
	switch c.RandomnessSource {
	case RandomnessRandomOrg, RandomnessLocal:
	default:
		return fmt.Errorf("unknown RANDOMNESS_SOURCE %q", c.RandomnessSource)
	}
	switch c.AccountStore {
	case AccountStoreSQLite, AccountStoreMemory:
	case AccountStoreS3:
		if !c.S3.Enabled() {
			return fmt.Errorf("ACCOUNT_STORE=s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown ACCOUNT_STORE %q", c.AccountStore)
	}
	if c.StartingBalance.IsNegative() {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if c.StoreRetryAttempts < 1 {
		return fmt.Errorf("STORE_RETRY_ATTEMPTS must be at least 1")
	}
	if c.StoreRetryMaxDelay < 0 {
		return fmt.Errorf("STORE_RETRY_MAX_DELAY must not be negative, got %s", c.StoreRetryMaxDelay)
	}
	if c.BackupSchedule != "" && !c.S3.Enabled() {
		return fmt.Errorf("BACKUP_SCHEDULE requires S3_BUCKET")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("at least one tracked symbol is required")
	}
	return nil
}

// SymbolNames returns the tracked symbols in configuration order
func (c *Config) SymbolNames() []string {
	names := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		names = append(names, s.Symbol)
	}
	return names
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
