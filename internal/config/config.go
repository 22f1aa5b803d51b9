package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file at the ledger root.
const FileName = "ledger.yaml"

// Storage drivers.
const (
	DriverCSV      = "csv"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Checkpoint cache backends.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Environment variables that override the file.
const (
	EnvDSN          = "LEDGER_DSN"
	EnvRedisAddress = "LEDGER_REDIS_ADDRESS"
	EnvLogLevel     = "LEDGER_LOG_LEVEL"
)

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Business BusinessConfig `yaml:"business"`
	Fiscal   FiscalConfig   `yaml:"fiscal"`
	Storage  StorageConfig  `yaml:"storage"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
	Git      GitConfig      `yaml:"git"`
	Import   ImportConfig   `yaml:"import"`
}

// BusinessConfig identifies the business entity.
type BusinessConfig struct {
	Name       string `yaml:"name"`
	EntityType string `yaml:"entity_type"`
}

// FiscalConfig defines the fiscal year boundaries.
type FiscalConfig struct {
	YearStart string `yaml:"year_start"` // "MM-DD" format, e.g. "01-01"
}

// StorageConfig selects where the ledger lives. Dir is relative to the
// project root and only used by the csv driver.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir,omitempty"`
	DSN    string `yaml:"dsn,omitempty"`
}

// CacheConfig selects the balance checkpoint cache.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Address string `yaml:"address,omitempty"`
	Prefix  string `yaml:"prefix,omitempty"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// GitConfig controls git integration.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// ImportConfig holds defaults for bank statement imports. Accounts are
// referenced by slug.
type ImportConfig struct {
	Bank   string `yaml:"bank,omitempty"`
	Offset string `yaml:"offset,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Load reads a ledger.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.fillDefaults()
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new project.
func Default(businessName, entityType string) *Config {
	cfg := &Config{
		Business: BusinessConfig{
			Name:       businessName,
			EntityType: entityType,
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Ledger",
			AuthorEmail: "ledger@cleared.dev",
		},
		Import: ImportConfig{
			Bank:   "business-checking",
			Format: "chase",
		},
	}
	cfg.fillDefaults()
	return cfg
}

func (c *Config) fillDefaults() {
	if c.Fiscal.YearStart == "" {
		c.Fiscal.YearStart = "01-01"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverCSV
	}
	if c.Storage.Driver == DriverCSV && c.Storage.Dir == "" {
		c.Storage.Dir = "."
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = CacheMemory
	}
	if c.Cache.Backend == CacheRedis && c.Cache.Prefix == "" {
		c.Cache.Prefix = "ledger:"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// ApplyEnv overrides file settings with non-empty environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDSN); v != "" {
		c.Storage.DSN = v
	}
	if v := getenv(EnvRedisAddress); v != "" {
		c.Cache.Address = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks that the settings can be used together.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverCSV:
	case DriverPostgres, DriverMySQL:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage driver %q needs a dsn (or %s)", c.Storage.Driver, EnvDSN)
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Cache.Backend {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if c.Storage.Driver == DriverCSV {
			// csv revisions restart at every open and cannot be shared.
			return fmt.Errorf("cache backend %q requires a sql storage driver", CacheRedis)
		}
		if c.Cache.Address == "" {
			return fmt.Errorf("cache backend %q needs an address (or %s)", CacheRedis, EnvRedisAddress)
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	if _, err := time.Parse("01-02", c.Fiscal.YearStart); err != nil {
		return fmt.Errorf("fiscal year_start %q must be MM-DD", c.Fiscal.YearStart)
	}
	return nil
}

// FiscalYearStart returns the first day of the fiscal year containing day.
func (c *Config) FiscalYearStart(day time.Time) time.Time {
	start, err := time.Parse("01-02", c.Fiscal.YearStart)
	if err != nil {
		start = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	y := day.Year()
	first := time.Date(y, start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	if first.After(day) {
		first = first.AddDate(-1, 0, 0)
	}
	return first
}
