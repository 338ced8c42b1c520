package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "SESSIONS_"

// Store kinds.
const (
	StoreSQLite = "sqlite"
	StoreMemory = "memory"
)

// Config captures file and environment driven configuration values for the
// scheduler service.
type Config struct {
	HTTPPort        int           `yaml:"http_port" env:"HTTP_PORT"`
	Store           string        `yaml:"store" env:"STORE"`
	SQLiteDSN       string        `yaml:"sqlite_dsn" env:"SQLITE_DSN"`
	LogLevel        string        `yaml:"log_level" env:"LOG_LEVEL"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`

	// DefaultTimezone is the display zone used when a request names none.
	DefaultTimezone        string        `yaml:"default_timezone" env:"DEFAULT_TIMEZONE"`
	EarlyJoin              time.Duration `yaml:"early_join" env:"EARLY_JOIN"`
	DefaultRecurrenceCount int           `yaml:"default_recurrence_count" env:"DEFAULT_RECURRENCE_COUNT"`

	// SweepCron is a five-field cron expression, e.g. "* * * * *".
	SweepCron      string        `yaml:"sweep_cron" env:"SWEEP_CRON"`
	ReminderLead   time.Duration `yaml:"reminder_lead" env:"REMINDER_LEAD"`
	NoShowLookback time.Duration `yaml:"no_show_lookback" env:"NO_SHOW_LOOKBACK"`

	OTELEndpoint string `yaml:"otel_endpoint" env:"OTEL_ENDPOINT"`
	OTELEnabled  bool   `yaml:"otel_enabled" env:"OTEL_ENABLED"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPPort:               8080,
		Store:                  StoreSQLite,
		SQLiteDSN:              "data/sessions.db",
		LogLevel:               "info",
		ShutdownTimeout:        10 * time.Second,
		DefaultTimezone:        "UTC",
		EarlyJoin:              5 * time.Minute,
		DefaultRecurrenceCount: 5,
		SweepCron:              "* * * * *",
		ReminderLead:           10 * time.Minute,
		NoShowLookback:         24 * time.Hour,
		OTELEnabled:            true,
	}
}

// Normalize fills in missing or zero values with defaults so that partially
// filled files still behave correctly.
func (c *Config) Normalize() {
	def := Default()
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = def.Store
	}
	c.SQLiteDSN = strings.TrimSpace(c.SQLiteDSN)
	if c.SQLiteDSN == "" {
		c.SQLiteDSN = def.SQLiteDSN
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
	if strings.TrimSpace(c.DefaultTimezone) == "" {
		c.DefaultTimezone = def.DefaultTimezone
	}
	if c.EarlyJoin <= 0 {
		c.EarlyJoin = def.EarlyJoin
	}
	if c.DefaultRecurrenceCount == 0 {
		c.DefaultRecurrenceCount = def.DefaultRecurrenceCount
	}
	c.SweepCron = strings.TrimSpace(c.SweepCron)
	if c.SweepCron == "" {
		c.SweepCron = def.SweepCron
	}
	if c.ReminderLead <= 0 {
		c.ReminderLead = def.ReminderLead
	}
	if c.NoShowLookback <= 0 {
		c.NoShowLookback = def.NoShowLookback
	}
	c.OTELEndpoint = strings.TrimSpace(c.OTELEndpoint)
}

// Load builds the configuration from defaults, the optional YAML file at path
// and then SESSIONS_* environment variables, in increasing precedence.
//
// Every invalid value is reported in a single error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config file %s does not exist", path)
			}
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the keys whose values cannot be used.
func (c Config) Validate() error {
	invalid := make([]string, 0, 4)

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, EnvPrefix+"HTTP_PORT")
	}
	if c.Store != StoreSQLite && c.Store != StoreMemory {
		invalid = append(invalid, EnvPrefix+"STORE")
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		invalid = append(invalid, EnvPrefix+"LOG_LEVEL")
	}
	if c.DefaultRecurrenceCount < 1 || c.DefaultRecurrenceCount > 52 {
		invalid = append(invalid, EnvPrefix+"DEFAULT_RECURRENCE_COUNT")
	}
	if c.ReminderLead > c.NoShowLookback {
		invalid = append(invalid, EnvPrefix+"REMINDER_LEAD")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// Level returns the slog level named by LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func parseLevel(value string) (slog.Level, bool) {
	switch strings.ToLower(value) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
