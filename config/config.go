package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Business BusinessConfig `yaml:"business"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
// Driver is either "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"`
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// BusinessConfig holds the warehouse business rules that vary per deployment.
type BusinessConfig struct {
	// Timezone is the governing wall clock for shifts, time buckets and
	// business-day boundaries.
	Timezone string `yaml:"timezone"`
	// DayBoundary selects the business-day rule: "natural" (midnight to
	// midnight) or "shifted" (CutoffHour to CutoffHour next day).
	DayBoundary string `yaml:"day_boundary"`
	// CutoffHour is the shifted-day boundary hour, e.g. 5 for 05:00.
	CutoffHour int `yaml:"cutoff_hour"`
	// ShiftCutoffHour splits the early and late shifts.
	ShiftCutoffHour int `yaml:"shift_cutoff_hour"`
	// DuplicateThresholdMinutes is the advisory window for flagging a
	// possible duplicate arrival on the same dock.
	DuplicateThresholdMinutes int `yaml:"duplicate_threshold_minutes"`

	Location *time.Location `yaml:"-"`
}

const (
	DayBoundaryNatural = "natural"
	DayBoundaryShifted = "shifted"
)

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 60
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "dock_stats.db"
	}

	if err := ApplyBusinessDefaults(&cfg.Business); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ApplyBusinessDefaults fills in defaults and resolves the timezone.
// Exported so tests can build a BusinessConfig without a YAML file.
func ApplyBusinessDefaults(b *BusinessConfig) error {
	if b.Timezone == "" {
		b.Timezone = "America/Los_Angeles"
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return fmt.Errorf("invalid business timezone %q: %w", b.Timezone, err)
	}
	b.Location = loc

	switch b.DayBoundary {
	case "":
		b.DayBoundary = DayBoundaryShifted
	case DayBoundaryNatural, DayBoundaryShifted:
	default:
		return fmt.Errorf("invalid day_boundary %q: must be %q or %q",
			b.DayBoundary, DayBoundaryNatural, DayBoundaryShifted)
	}

	if b.CutoffHour <= 0 || b.CutoffHour > 23 {
		b.CutoffHour = 5
	}
	if b.ShiftCutoffHour <= 0 || b.ShiftCutoffHour > 23 {
		b.ShiftCutoffHour = 17
	}
	if b.DuplicateThresholdMinutes <= 0 {
		b.DuplicateThresholdMinutes = 25
	}
	return nil
}
