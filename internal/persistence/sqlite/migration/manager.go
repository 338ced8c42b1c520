package migration

import (
	"context"
	"fmt"
	"log/slog"
)

// Manager applies pending migrations in version order.
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager wires a scanner and an executor.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// Run applies every pending migration. Already applied migrations must not have changed.
func (m *Manager) Run(ctx context.Context) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "schema version",
		"current_version", status.CurrentVersion,
		"applied", len(status.Applied),
		"pending", len(status.Pending),
	)

	for i, migration := range status.Pending {
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				"version", migration.Version,
				"file", migration.FilePath,
				"error", err,
			)
			return err
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"position", fmt.Sprintf("%d/%d", i+1, len(status.Pending)),
			"duration_ms", elapsed.Milliseconds(),
		)
	}
	return nil
}

// Status compares the available files with the version table.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, err
	}

	available, err := m.scanner.Scan()
	if err != nil {
		return Status{}, err
	}
	applied, err := m.executor.AppliedVersions(ctx)
	if err != nil {
		return Status{}, err
	}

	checksums := make(map[string]string, len(applied))
	status := Status{Applied: applied}
	for _, record := range applied {
		checksums[record.Version] = record.Checksum
		if versionNumber(record.Version) > versionNumber(status.CurrentVersion) {
			status.CurrentVersion = record.Version
		}
	}

	for _, migration := range available {
		sum, ok := checksums[migration.Version]
		if !ok {
			status.Pending = append(status.Pending, migration)
			continue
		}
		if sum != "" && sum != migration.Checksum {
			return Status{}, stepError(migration.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
	}
	return status, nil
}
