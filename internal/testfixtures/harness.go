package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/session-scheduler/internal/logging"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/memory"
	"github.com/example/session-scheduler/internal/persistence/sqlite"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
)

// StoreHarness bundles the repositories of one storage backend.
type StoreHarness struct {
	Name     string
	Users    persistence.UserRepository
	Sessions persistence.SessionRepository
	Ping     func(context.Context) error
}

// NewMemoryHarness returns a harness over a fresh in-memory store.
func NewMemoryHarness(tb testing.TB) *StoreHarness {
	tb.Helper()
	store := memory.New()
	return &StoreHarness{Name: "memory", Users: store, Sessions: store, Ping: store.Ping}
}

// NewSQLiteHarness opens and migrates a SQLite database in a temporary
// directory. The database is closed when the test finishes.
func NewSQLiteHarness(tb testing.TB) *StoreHarness {
	tb.Helper()

	ctx := context.Background()
	cfg := migration.DefaultSQLiteConfig(filepath.Join(tb.TempDir(), "scheduler.db"))
	store, err := sqlite.Open(ctx, cfg, logging.Discard())
	if err != nil {
		tb.Fatalf("open sqlite store: %v", err)
	}
	tb.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		tb.Fatalf("migrate sqlite store: %v", err)
	}
	return &StoreHarness{Name: "sqlite", Users: store.Users, Sessions: store.Sessions, Ping: store.Ping}
}

// SeedUsers stores the fixtures, failing the test on error.
func (h *StoreHarness) SeedUsers(tb testing.TB, users ...UserFixture) {
	tb.Helper()
	for _, u := range users {
		if err := h.Users.CreateUser(context.Background(), u.Persistence()); err != nil {
			tb.Fatalf("%s: seed user %s: %v", h.Name, u.ID, err)
		}
	}
}

// SeedSessions stores the fixtures as one batch, failing the test on error.
func (h *StoreHarness) SeedSessions(tb testing.TB, sessions ...SessionFixture) {
	tb.Helper()
	records := make([]persistence.SessionRecord, 0, len(sessions))
	for _, s := range sessions {
		records = append(records, s.Record())
	}
	if err := h.Sessions.CreateSessions(context.Background(), records); err != nil {
		tb.Fatalf("%s: seed sessions: %v", h.Name, err)
	}
}
