// Package migration applies versioned SQL files to a SQLite database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (for example "001_create_sessions.sql") and are read from an fs.FS, which
// is usually an embed.FS compiled into the binary. Applied versions are
// tracked in the schema_migrations table; each migration runs in its own
// transaction together with its bookkeeping row.
//
//	manager := migration.NewManager(migration.NewScanner(files, "migrations"), migration.NewSQLiteExecutor(db), logger)
//	if err := manager.Run(ctx); err != nil {
//		return err
//	}
package migration
