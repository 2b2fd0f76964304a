package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/roombooking/internal/persistence"
	"github.com/example/roombooking/internal/timegrid"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dir := t.TempDir()
	dsn := filepath.Join(dir, "roombooking.db")
	storage, err := Open(dsn, nil)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() {
		_ = storage.Close()
	})

	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	return storage
}

var testDate = timegrid.Date{Year: 2030, Month: time.June, Day: 3}

func seedRoomAndPerson(t *testing.T, storage *Storage) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	if err := storage.CreateRoom(ctx, persistence.Room{
		ID: "room-1", Name: "Coach Corner", Capacity: 4, OpenHour: 9, CloseHour: 17,
		Color: "#34a853", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	for _, p := range []persistence.Person{
		{ID: "person-1", Name: "Ada", Email: "ada@example.com", CreatedAt: now},
		{ID: "person-2", Name: "Grace", Email: "grace@example.com", CreatedAt: now},
	} {
		if err := storage.CreatePerson(ctx, p); err != nil {
			t.Fatalf("CreatePerson failed: %v", err)
		}
	}
}

func TestPersonRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	now := time.Now().UTC().Truncate(time.Second)

	person := persistence.Person{ID: "person-1", Name: "Ada", Email: "Ada@Example.com", CreatedAt: now}
	if err := storage.CreatePerson(ctx, person); err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}

	fetched, err := storage.GetPersonByEmail(ctx, "ADA@example.COM")
	if err != nil {
		t.Fatalf("GetPersonByEmail failed: %v", err)
	}
	if fetched.ID != person.ID || fetched.Email != "ada@example.com" {
		t.Fatalf("unexpected person retrieved: %#v", fetched)
	}
	if !fetched.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", fetched.CreatedAt, now)
	}

	if _, err := storage.GetPerson(ctx, person.ID); err != nil {
		t.Fatalf("GetPerson failed: %v", err)
	}

	duplicate := persistence.Person{ID: "person-2", Name: "Ada Again", Email: "ada@example.com", CreatedAt: now}
	if err := storage.CreatePerson(ctx, duplicate); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	if _, err := storage.GetPersonByEmail(ctx, "nobody@example.com"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBookingRepository(t *testing.T) {
	ctx := context.Background()
	storage := newTestStorage(t)
	seedRoomAndPerson(t, storage)
	now := time.Now().UTC().Truncate(time.Second)

	booking := persistence.Booking{
		ID:              "booking-1",
		RoomID:          "room-1",
		PersonID:        "person-1",
		Date:            testDate,
		StartHour:       10,
		DurationHours:   2,
		CancelTokenHash: "hash",
		CreatedAt:       now,
	}
	if err := storage.CreateBooking(ctx, booking); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	fetched, err := storage.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetBooking failed: %v", err)
	}
	if fetched.Date != testDate || fetched.StartHour != 10 || fetched.DurationHours != 2 || fetched.CancelTokenHash != "hash" {
		t.Fatalf("unexpected booking retrieved: %#v", fetched)
	}

	t.Run("overlapping hour is rejected as slot taken", func(t *testing.T) {
		overlapping := booking
		overlapping.ID = "booking-2"
		overlapping.PersonID = "person-2"
		overlapping.StartHour = 11
		overlapping.DurationHours = 1
		if err := storage.CreateBooking(ctx, overlapping); !errors.Is(err, persistence.ErrSlotTaken) {
			t.Fatalf("expected ErrSlotTaken, got %v", err)
		}
		if _, err := storage.GetBooking(ctx, overlapping.ID); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("rejected booking must not be stored, got %v", err)
		}
	})

	t.Run("same start hour is rejected as slot taken", func(t *testing.T) {
		same := booking
		same.ID = "booking-3"
		same.PersonID = "person-2"
		same.DurationHours = 1
		if err := storage.CreateBooking(ctx, same); !errors.Is(err, persistence.ErrSlotTaken) {
			t.Fatalf("expected ErrSlotTaken, got %v", err)
		}
	})

	t.Run("duplicate id is a duplicate", func(t *testing.T) {
		dup := booking
		dup.Date = testDate.AddDays(1)
		if err := storage.CreateBooking(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("unknown room is a foreign key violation", func(t *testing.T) {
		orphan := booking
		orphan.ID = "booking-4"
		orphan.RoomID = "missing"
		if err := storage.CreateBooking(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
	})

	adjacent := persistence.Booking{
		ID: "booking-5", RoomID: "room-1", PersonID: "person-2", Date: testDate,
		StartHour: 12, DurationHours: 1, CreatedAt: now,
	}
	if err := storage.CreateBooking(ctx, adjacent); err != nil {
		t.Fatalf("adjacent booking for another person should be stored: %v", err)
	}

	nextWeek := persistence.Booking{
		ID: "booking-6", RoomID: "room-1", PersonID: "person-1", Date: testDate.AddDays(7),
		StartHour: 9, DurationHours: 1, CreatedAt: now,
	}
	if err := storage.CreateBooking(ctx, nextWeek); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	listed, err := storage.ListBookings(ctx, persistence.BookingFilter{RoomID: "room-1", From: testDate, To: testDate})
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	if len(listed) != 2 || listed[0].ID != "booking-1" || listed[1].ID != "booking-5" {
		t.Fatalf("unexpected bookings listed: %#v", listed)
	}

	byPerson, err := storage.ListBookings(ctx, persistence.BookingFilter{PersonID: "person-1"})
	if err != nil {
		t.Fatalf("ListBookings failed: %v", err)
	}
	if len(byPerson) != 2 {
		t.Fatalf("expected 2 bookings for person-1, got %d", len(byPerson))
	}

	if err := storage.DeleteBooking(ctx, "booking-1"); err != nil {
		t.Fatalf("DeleteBooking failed: %v", err)
	}
	if err := storage.DeleteBooking(ctx, "booking-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	freed := booking
	freed.ID = "booking-7"
	freed.PersonID = "person-2"
	freed.StartHour = 10
	freed.DurationHours = 1
	if err := storage.CreateBooking(ctx, freed); err != nil {
		t.Fatalf("hours freed by deletion should be bookable: %v", err)
	}
}

func TestStorageMigrateIsIdempotent(t *testing.T) {
	storage := newTestStorage(t)
	if err := storage.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
	if err := storage.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
