// Package migration applies versioned SQL files to the booking SQLite database.
//
// Migration files are read from an fs.FS (normally an embed.FS compiled into
// the binary) and follow the naming convention {version}_{description}.sql,
// e.g. "001_initial_schema.sql". Each file runs in its own transaction and is
// recorded in the schema_migrations table so it is applied exactly once.
//
//	manager := NewMigrationManager(NewFileScanner(files), NewSQLiteExecutor(db), ".", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
