package migration

import (
	"strings"
	"testing"
)

func TestConnectionManager_ValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(*SQLiteConfig) {}},
		{name: "empty DSN", mutate: func(c *SQLiteConfig) { c.DSN = "" }, wantErr: true},
		{name: "negative busy timeout", mutate: func(c *SQLiteConfig) { c.BusyTimeout = -1 }, wantErr: true},
		{name: "unknown journal mode", mutate: func(c *SQLiteConfig) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "unknown synchronous mode", mutate: func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative pool size", mutate: func(c *SQLiteConfig) { c.MaxOpenConns = -1 }, wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultSQLiteConfig("bookings.db")
			tc.mutate(&cfg)
			err := NewConnectionManager(cfg).ValidateConfig()
			if (err != nil) != tc.wantErr {
				t.Fatalf("ValidateConfig() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestConnectionString(t *testing.T) {
	t.Parallel()

	cm := &sqliteConnectionManager{config: DefaultSQLiteConfig("data/bookings.db")}
	dsn := cm.connectionString()
	if !strings.HasPrefix(dsn, "file:data/bookings.db?") {
		t.Fatalf("unexpected DSN prefix: %s", dsn)
	}
	for _, want := range []string{"foreign_keys%281%29", "journal_mode%28WAL%29", "busy_timeout%2830000%29"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("DSN %s missing %s", dsn, want)
		}
	}

	if got := databasePath("file:data/bookings.db?mode=rwc"); got != "data/bookings.db" {
		t.Fatalf("databasePath() = %q", got)
	}
	if got := databasePath(":memory:"); got != "" {
		t.Fatalf("in-memory database should have no path, got %q", got)
	}
}
