package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configKeys = []string{
	"SESSIONS_HTTP_PORT",
	"SESSIONS_STORE",
	"SESSIONS_SQLITE_DSN",
	"SESSIONS_LOG_LEVEL",
	"SESSIONS_DEFAULT_TIMEZONE",
	"SESSIONS_EARLY_JOIN",
	"SESSIONS_DEFAULT_RECURRENCE_COUNT",
	"SESSIONS_SWEEP_CRON",
	"SESSIONS_REMINDER_LEAD",
	"SESSIONS_NO_SHOW_LOOKBACK",
	"SESSIONS_OTEL_ENDPOINT",
	"SESSIONS_OTEL_ENABLED",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoader_ParseEnvironment(t *testing.T) {

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreSQLite || cfg.SQLiteDSN != "data/sessions.db" {
			t.Fatalf("unexpected default store %q %q", cfg.Store, cfg.SQLiteDSN)
		}
		if cfg.EarlyJoin != 5*time.Minute || cfg.DefaultRecurrenceCount != 5 {
			t.Fatalf("unexpected lifecycle defaults %+v", cfg)
		}
		if cfg.Level() != slog.LevelInfo {
			t.Fatalf("expected info level, got %s", cfg.Level())
		}
	})

	t.Run("environment overrides defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SESSIONS_HTTP_PORT", "9090")
		t.Setenv("SESSIONS_STORE", "Memory")
		t.Setenv("SESSIONS_LOG_LEVEL", "debug")
		t.Setenv("SESSIONS_REMINDER_LEAD", "15m")
		t.Setenv("SESSIONS_OTEL_ENDPOINT", "http://collector:4318")

		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 9090 || cfg.Addr() != ":9090" {
			t.Fatalf("expected port override, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreMemory {
			t.Fatalf("expected store to be normalized to memory, got %q", cfg.Store)
		}
		if cfg.Level() != slog.LevelDebug {
			t.Fatalf("expected debug level, got %s", cfg.Level())
		}
		if cfg.ReminderLead != 15*time.Minute {
			t.Fatalf("expected reminder lead override, got %s", cfg.ReminderLead)
		}
		if cfg.OTELEndpoint != "http://collector:4318" || !cfg.OTELEnabled {
			t.Fatalf("unexpected telemetry settings %q %v", cfg.OTELEndpoint, cfg.OTELEnabled)
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SESSIONS_HTTP_PORT", "70000")
		t.Setenv("SESSIONS_STORE", "postgres")
		t.Setenv("SESSIONS_DEFAULT_RECURRENCE_COUNT", "99")

		_, err := Load("")
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		expected := "invalid configuration values: SESSIONS_HTTP_PORT, SESSIONS_STORE, SESSIONS_DEFAULT_RECURRENCE_COUNT"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("rejects unparsable values", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SESSIONS_EARLY_JOIN", "soon")

		if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "parse env") {
			t.Fatalf("expected parse error, got %v", err)
		}
	})
}

func TestLoader_File(t *testing.T) {

	t.Run("file values apply and env wins", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, strings.Join([]string{
			"http_port: 7070",
			"store: memory",
			"default_timezone: Asia/Tokyo",
			"early_join: 10m",
			"sweep_cron: '*/5 * * * *'",
		}, "\n"))
		t.Setenv("SESSIONS_HTTP_PORT", "7171")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.HTTPPort != 7171 {
			t.Fatalf("expected env to override file port, got %d", cfg.HTTPPort)
		}
		if cfg.Store != StoreMemory || cfg.DefaultTimezone != "Asia/Tokyo" {
			t.Fatalf("expected file values, got %+v", cfg)
		}
		if cfg.EarlyJoin != 10*time.Minute || cfg.SweepCron != "*/5 * * * *" {
			t.Fatalf("unexpected schedule values %s %q", cfg.EarlyJoin, cfg.SweepCron)
		}
		if cfg.ReminderLead != 10*time.Minute {
			t.Fatalf("expected defaults for keys missing from the file, got %s", cfg.ReminderLead)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
			t.Fatalf("expected error for missing file")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "http_port: [not a number")
		if _, err := Load(path); err == nil {
			t.Fatalf("expected parse error")
		}
	})
}
