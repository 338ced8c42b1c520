package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
)

// timestampLayout is fixed width so that stored instants compare lexicographically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// ConnectionPool owns the database handle and runs write transactions,
// retrying them while another writer holds the SQLite lock.
type ConnectionPool struct {
	db    *sql.DB
	retry RetryPolicy
}

// NewConnectionPool opens a SQLite database using config.
func NewConnectionPool(ctx context.Context, config migration.SQLiteConfig) (*ConnectionPool, error) {
	db, err := migration.Open(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open pool: %w", err)
	}
	return &ConnectionPool{db: db, retry: DefaultRetryPolicy()}, nil
}

// DB exposes the handle for the migration runner.
func (cp *ConnectionPool) DB() *sql.DB {
	return cp.db
}

// Close releases the handle.
func (cp *ConnectionPool) Close() error {
	if cp.db == nil {
		return nil
	}
	return cp.db.Close()
}

// Ping checks that the database answers.
func (cp *ConnectionPool) Ping(ctx context.Context) error {
	return cp.db.PingContext(ctx)
}

// TransactionFunc is the body of a write transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction runs fn in a transaction. A busy database restarts the
// whole transaction; any other error rolls back and is returned as is.
func (cp *ConnectionPool) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := cp.runTx(ctx, fn)
		if err != nil && !isBusy(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, cp.retry.options()...)
	return err
}

func (cp *ConnectionPool) runTx(ctx context.Context, fn TransactionFunc) (err error) {
	tx, err := cp.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// RetryPolicy bounds how long a write waits for a busy database.
type RetryPolicy struct {
	MaxTries     uint
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultRetryPolicy allows four attempts starting at 50ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxTries: 4, InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second}
}

func (p RetryPolicy) options() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialDelay
	b.MaxInterval = p.MaxDelay
	return []backoff.RetryOption{backoff.WithBackOff(b), backoff.WithMaxTries(p.MaxTries)}
}

func isBusy(err error) bool {
	return containsAny(err.Error(), "database is locked", "SQLITE_BUSY", "database table is locked")
}

// QueryHelper runs single statements outside a transaction.
type QueryHelper struct {
	db *sql.DB
}

// NewQueryHelper binds a helper to the pool's handle.
func NewQueryHelper(pool *ConnectionPool) *QueryHelper {
	return &QueryHelper{db: pool.db}
}

// QueryRow runs a query expected to return at most one row.
func (qh *QueryHelper) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return qh.db.QueryRowContext(ctx, query, args...)
}

// Query runs a query returning rows.
func (qh *QueryHelper) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return qh.db.QueryContext(ctx, query, args...)
}

// Exec runs a statement that returns no rows.
func (qh *QueryHelper) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return qh.db.ExecContext(ctx, query, args...)
}

// ErrorMapper translates driver errors into persistence sentinels, keeping
// the driver message in the chain.
type ErrorMapper struct{}

// NewErrorMapper returns an ErrorMapper.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{}
}

// MapError returns nil for nil and ErrNotFound for sql.ErrNoRows.
func (em *ErrorMapper) MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return persistence.ErrNotFound
	}

	var sentinel error
	msg := err.Error()
	switch {
	case containsAny(msg, "UNIQUE constraint failed", "PRIMARY KEY constraint failed"):
		sentinel = persistence.ErrDuplicate
	case containsAny(msg, "FOREIGN KEY constraint failed"):
		sentinel = persistence.ErrForeignKeyViolation
	case containsAny(msg, "CHECK constraint failed", "NOT NULL constraint failed"):
		sentinel = persistence.ErrConstraintViolation
	default:
		return err
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

func containsAny(s string, substrings ...string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
