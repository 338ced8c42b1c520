package migration

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestManager_Run(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, DefaultSQLiteConfig(filepath.Join(t.TempDir(), "migrate.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	files := fstest.MapFS{
		"m/001_create_notes.sql": {Data: []byte("CREATE TABLE notes (id TEXT PRIMARY KEY, body TEXT NOT NULL);")},
		"m/002_add_index.sql":    {Data: []byte("CREATE INDEX idx_notes_body ON notes(body);")},
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	manager := NewManager(NewScanner(files, "m"), NewSQLiteExecutor(db), logger)

	if err := manager.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.Contains(logs.String(), "migration applied") {
		t.Fatalf("expected applied log, got %q", logs.String())
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.CurrentVersion != "002" || len(status.Pending) != 0 || len(status.Applied) != 2 {
		t.Fatalf("unexpected status: %+v", status)
	}

	if _, err := db.ExecContext(ctx, `INSERT INTO notes (id, body) VALUES ('n1', 'hello')`); err != nil {
		t.Fatalf("expected migrated table to accept rows: %v", err)
	}

	// A second run is a no-op.
	if err := manager.Run(ctx); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	files["m/002_add_index.sql"] = &fstest.MapFile{Data: []byte("CREATE INDEX idx_notes_id ON notes(id);")}
	if err := manager.Run(ctx); !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("expected ErrChecksumMismatch after editing an applied file, got %v", err)
	}
}

func TestManager_RunRollsBackFailedMigration(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := Open(ctx, DefaultSQLiteConfig(filepath.Join(t.TempDir(), "broken.db")))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	files := fstest.MapFS{
		"m/001_broken.sql": {Data: []byte("CREATE TABLE ok (id TEXT);\nCREATE TABLE broken (;")},
	}
	manager := NewManager(NewScanner(files, "m"), NewSQLiteExecutor(db), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	err = manager.Run(ctx)
	if !errors.Is(err, ErrMigrationFailed) {
		t.Fatalf("expected ErrMigrationFailed, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'ok'`).Scan(&count); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected partial migration to be rolled back")
	}

	status, err := manager.Status(ctx)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(status.Pending) != 1 {
		t.Fatalf("expected failed migration to remain pending, got %+v", status)
	}
}

func TestSQLiteConfig_Validate(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*SQLiteConfig){
		"empty dsn":        func(c *SQLiteConfig) { c.DSN = " " },
		"negative timeout": func(c *SQLiteConfig) { c.BusyTimeout = -1 },
		"journal mode":     func(c *SQLiteConfig) { c.JournalMode = "FAST" },
		"synchronous":      func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" },
		"negative conns":   func(c *SQLiteConfig) { c.MaxOpenConns = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultSQLiteConfig("data/app.db")
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if err := DefaultSQLiteConfig(":memory:").Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
}
