// Package config provides configuration management functionality.
//
// Values are resolved in three layers: built-in defaults, then an optional
// TOML file named by FOLIO_CONFIG, then environment variables (a .env file
// in the working directory is loaded first). Later layers win.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Ledger storage backends
const (
	LedgerBackendFile   = "file"
	LedgerBackendSQLite = "sqlite"
)

// Market data providers
const (
	ProviderYahoo = "yahoo"
	ProviderEODHD = "eodhd"
)

// Cost blend modes, mirrored from the ledger package so config stays a leaf.
const (
	CostBlendUnknownAsZero  = "unknown_as_zero"
	CostBlendExcludeUnknown = "exclude_unknown"
)

// Duration is a time.Duration that reads from TOML strings such as "1h".
type Duration time.Duration

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds application configuration
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	MarketData MarketDataConfig `toml:"market_data"`
	Analytics  AnalyticsConfig  `toml:"analytics"`
	Backup     BackupConfig     `toml:"backup"`
}

// ServerConfig holds HTTP and logging settings
type ServerConfig struct {
	Port      int    `toml:"port"`
	LogLevel  string `toml:"log_level"`
	LogPretty bool   `toml:"log_pretty"`
	DevMode   bool   `toml:"dev_mode"`
}

// StorageConfig holds persistence settings
type StorageConfig struct {
	DataDir       string `toml:"data_dir"` // always absolute after Load
	LedgerBackend string `toml:"ledger_backend"`
	CostBlendMode string `toml:"cost_blend_mode"`
	// Portfolios are the ledgers covered by background refresh and backup.
	Portfolios []string `toml:"portfolios"`

	// MaintenanceSchedule runs WAL checkpoint and VACUUM; empty disables it.
	MaintenanceSchedule string `toml:"maintenance_schedule"`
}

// MarketDataConfig holds provider and cache settings
type MarketDataConfig struct {
	Provider        string   `toml:"provider"`
	EODHDAPIKey     string   `toml:"eodhd_api_key"`
	ProviderTimeout Duration `toml:"provider_timeout"`
	RetryBackoff    Duration `toml:"retry_backoff"`
	CacheTTL        Duration `toml:"cache_ttl"`
	CacheRetention  Duration `toml:"cache_retention"`
	WindowDays      int      `toml:"history_window_days"`
	Concurrency     int      `toml:"concurrency"`
	Benchmark       string   `toml:"benchmark"`
	CleanupSchedule string   `toml:"cleanup_schedule"`
	RefreshSchedule string   `toml:"refresh_schedule"` // empty disables the refresh job
}

// AnalyticsConfig holds model assumptions
type AnalyticsConfig struct {
	RiskFreeRate float64 `toml:"risk_free_rate"`
}

// BackupConfig holds ledger backup settings. Backups are disabled while
// Bucket is empty.
type BackupConfig struct {
	Schedule        string `toml:"schedule"`
	RetentionDays   int    `toml:"retention_days"` // 0 keeps every backup
	Bucket          string `toml:"bucket"`
	Endpoint        string `toml:"endpoint"`
	Region          string `toml:"region"`
	AccessKeyID     string `toml:"access_key_id"`
	SecretAccessKey string `toml:"secret_access_key"`
}

// Enabled reports whether a backup target is configured.
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8001,
			LogLevel: "info",
		},
		Storage: StorageConfig{
			DataDir:       "data",
			LedgerBackend: LedgerBackendFile,
			CostBlendMode: CostBlendUnknownAsZero,
			Portfolios:    []string{"portfolio"},

			MaintenanceSchedule: "0 4 * * 0",
		},
		MarketData: MarketDataConfig{
			Provider:        ProviderYahoo,
			ProviderTimeout: Duration(10 * time.Second),
			RetryBackoff:    Duration(500 * time.Millisecond),
			CacheTTL:        Duration(time.Hour),
			CacheRetention:  Duration(30 * 24 * time.Hour),
			WindowDays:      365,
			Concurrency:     4,
			Benchmark:       "^JKSE",
			CleanupSchedule: "0 3 * * *",
		},
		Analytics: AnalyticsConfig{
			RiskFreeRate: 0.06,
		},
		Backup: BackupConfig{
			Schedule:      "0 2 * * *",
			RetentionDays: 30,
			Region:        "auto",
		},
	}
}

// Load reads configuration from defaults, the optional TOML file and the
// environment, resolves the data directory and validates the result.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("FOLIO_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	absDataDir, err := filepath.Abs(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	cfg.Storage.DataDir = absDataDir

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays a TOML file onto c. Keys missing from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides c from environment variables.
func (c *Config) ApplyEnv() {
	c.Server.Port = getEnvAsInt("PORT", c.Server.Port)
	c.Server.LogLevel = getEnv("LOG_LEVEL", c.Server.LogLevel)
	c.Server.LogPretty = getEnvAsBool("LOG_PRETTY", c.Server.LogPretty)
	c.Server.DevMode = getEnvAsBool("DEV_MODE", c.Server.DevMode)

	c.Storage.DataDir = getEnv("DATA_DIR", c.Storage.DataDir)
	c.Storage.LedgerBackend = strings.ToLower(getEnv("LEDGER_BACKEND", c.Storage.LedgerBackend))
	c.Storage.CostBlendMode = strings.ToLower(getEnv("COST_BLEND_MODE", c.Storage.CostBlendMode))
	if v := os.Getenv("PORTFOLIOS"); v != "" {
		c.Storage.Portfolios = splitList(v)
	}
	c.Storage.MaintenanceSchedule = getEnv("MAINTENANCE_SCHEDULE", c.Storage.MaintenanceSchedule)

	md := &c.MarketData
	md.Provider = strings.ToLower(getEnv("PROVIDER", md.Provider))
	md.EODHDAPIKey = getEnv("EODHD_API_KEY", md.EODHDAPIKey)
	md.ProviderTimeout = Duration(getEnvAsDuration("PROVIDER_TIMEOUT", md.ProviderTimeout.Std()))
	md.RetryBackoff = Duration(getEnvAsDuration("PROVIDER_RETRY_BACKOFF", md.RetryBackoff.Std()))
	md.CacheTTL = Duration(getEnvAsDuration("CACHE_TTL", md.CacheTTL.Std()))
	md.CacheRetention = Duration(getEnvAsDuration("CACHE_RETENTION", md.CacheRetention.Std()))
	md.WindowDays = getEnvAsInt("HISTORY_WINDOW_DAYS", md.WindowDays)
	md.Concurrency = getEnvAsInt("FETCH_CONCURRENCY", md.Concurrency)
	md.Benchmark = getEnv("BENCHMARK_TICKER", md.Benchmark)
	md.CleanupSchedule = getEnv("CACHE_CLEANUP_SCHEDULE", md.CleanupSchedule)
	md.RefreshSchedule = getEnv("CACHE_REFRESH_SCHEDULE", md.RefreshSchedule)

	c.Analytics.RiskFreeRate = getEnvAsFloat("RISK_FREE_RATE", c.Analytics.RiskFreeRate)

	b := &c.Backup
	b.Schedule = getEnv("BACKUP_SCHEDULE", b.Schedule)
	b.RetentionDays = getEnvAsInt("BACKUP_RETENTION_DAYS", b.RetentionDays)
	b.Bucket = getEnv("S3_BUCKET", b.Bucket)
	b.Endpoint = getEnv("S3_ENDPOINT", b.Endpoint)
	b.Region = getEnv("S3_REGION", b.Region)
	b.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", b.AccessKeyID)
	b.SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", b.SecretAccessKey)
}

// Validate checks enum values and ranges
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}

	switch c.Storage.LedgerBackend {
	case LedgerBackendFile, LedgerBackendSQLite:
	default:
		return fmt.Errorf("invalid ledger backend %q (must be %s or %s)", c.Storage.LedgerBackend, LedgerBackendFile, LedgerBackendSQLite)
	}

	switch c.Storage.CostBlendMode {
	case CostBlendUnknownAsZero, CostBlendExcludeUnknown:
	default:
		return fmt.Errorf("invalid cost blend mode %q", c.Storage.CostBlendMode)
	}

	if len(c.Storage.Portfolios) == 0 {
		return fmt.Errorf("at least one portfolio is required")
	}

	md := c.MarketData
	switch md.Provider {
	case ProviderYahoo:
	case ProviderEODHD:
		if md.EODHDAPIKey == "" {
			return fmt.Errorf("EODHD_API_KEY is required when PROVIDER=%s", ProviderEODHD)
		}
	default:
		return fmt.Errorf("invalid provider %q (must be %s or %s)", md.Provider, ProviderYahoo, ProviderEODHD)
	}

	for name, d := range map[string]Duration{
		"provider timeout": md.ProviderTimeout,
		"cache TTL":        md.CacheTTL,
		"cache retention":  md.CacheRetention,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if md.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative")
	}
	if md.WindowDays <= 1 {
		return fmt.Errorf("history window must be more than one day")
	}
	if md.Concurrency <= 0 {
		return fmt.Errorf("fetch concurrency must be positive")
	}
	if md.Benchmark == "" {
		return fmt.Errorf("benchmark ticker is required")
	}

	if c.Backup.RetentionDays < 0 {
		return fmt.Errorf("backup retention must not be negative")
	}
	if c.Backup.Enabled() && c.Backup.Schedule == "" {
		return fmt.Errorf("backup schedule is required when a bucket is configured")
	}

	return nil
}

// Helper functions
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
