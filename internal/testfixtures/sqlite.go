package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/roombooking/internal/persistence"
	"github.com/example/roombooking/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite storage
// instance for integration-style persistence tests.
type SQLiteHarness struct {
	Storage  *sqlite.Storage
	Rooms    persistence.RoomRepository
	People   persistence.PersonRepository
	Bookings persistence.BookingRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. Callers may optionally invoke Close, but the helper
// will also register a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "roombooking.db")

	storage, err := sqlite.Open(path, nil)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:  storage,
		Rooms:    storage,
		People:   storage,
		Bookings: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}

// SeedRoom stores a room fixture and fails the test on error.
func (h *SQLiteHarness) SeedRoom(tb testing.TB, opts ...RoomOption) RoomFixture {
	tb.Helper()
	room := NewRoomFixture(opts...)
	if err := h.Rooms.CreateRoom(context.Background(), room.Persistence()); err != nil {
		tb.Fatalf("failed to seed room: %v", err)
	}
	return room
}

// SeedPerson stores a person fixture and fails the test on error.
func (h *SQLiteHarness) SeedPerson(tb testing.TB, opts ...PersonOption) PersonFixture {
	tb.Helper()
	person := NewPersonFixture(opts...)
	if err := h.People.CreatePerson(context.Background(), person.Persistence()); err != nil {
		tb.Fatalf("failed to seed person: %v", err)
	}
	return person
}
