package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestFileScanner_ScanMigrations(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"migrations/002_add_index.sql":      {Data: []byte("CREATE INDEX idx ON things(name);")},
		"migrations/001_initial_schema.sql": {Data: []byte("-- Description: create things\nCREATE TABLE things (id TEXT);")},
		"migrations/README.md":              {Data: []byte("ignored")},
		"migrations/010_later.sql":          {Data: []byte("SELECT 1;")},
	}

	migrations, err := NewFileScanner(files).ScanMigrations("migrations")
	if err != nil {
		t.Fatalf("ScanMigrations returned error: %v", err)
	}

	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	wantOrder := []string{"001", "002", "010"}
	for i, want := range wantOrder {
		if migrations[i].Version != want {
			t.Fatalf("migration %d version = %s, want %s", i, migrations[i].Version, want)
		}
	}
	if migrations[0].Description != "create things" {
		t.Fatalf("expected description from header comment, got %q", migrations[0].Description)
	}
	if migrations[1].Description != "add index" {
		t.Fatalf("expected description from filename, got %q", migrations[1].Description)
	}
	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Fatal("expected distinct checksums")
	}
}

func TestFileScanner_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files fstest.MapFS
		want  error
	}{
		{
			name:  "bad filename",
			files: fstest.MapFS{"m/initial.sql": {Data: []byte("SELECT 1;")}},
			want:  ErrInvalidMigrationFile,
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"m/001_a.sql": {Data: []byte("SELECT 1;")},
				"m/1_b.sql":   {Data: []byte("SELECT 2;")},
			},
			want: ErrDuplicateVersion,
		},
		{
			name:  "comment only file",
			files: fstest.MapFS{"m/001_empty.sql": {Data: []byte("-- nothing here\n")}},
			want:  ErrInvalidMigrationFile,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewFileScanner(tc.files).ScanMigrations("m")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	sql := `-- header
CREATE TABLE a (id TEXT);

-- second
CREATE TABLE b (id TEXT);
`
	statements := splitStatements(sql)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE TABLE b (id TEXT)" {
		t.Fatalf("unexpected statement %q", statements[1])
	}
}
