package postgres

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/example/roombooking/internal/persistence"
	"github.com/example/roombooking/internal/timegrid"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: persistence.ErrNotFound},
		{name: "slot primary key", err: &pgconn.PgError{Code: "23505", ConstraintName: "booking_slots_pkey"}, want: persistence.ErrSlotTaken},
		{name: "room start unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "bookings_room_start_key"}, want: persistence.ErrSlotTaken},
		{name: "email unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "people_email_key"}, want: persistence.ErrDuplicate},
		{name: "wrapped unique", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "rooms_name_key"}), want: persistence.ErrDuplicate},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: persistence.ErrForeignKeyViolation},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, want: persistence.ErrConstraintViolation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(tc.err), tc.want)
		})
	}

	assert.NoError(t, mapError(nil))
	other := errors.New("connection reset")
	assert.Equal(t, other, mapError(other))
}

func TestBookingQuery(t *testing.T) {
	from := timegrid.Date{Year: 2030, Month: time.June, Day: 3}
	query, args := bookingQuery(persistence.BookingFilter{RoomID: "room-1", From: from, To: from.AddDays(4)})

	assert.Contains(t, query, "WHERE room_id = $1 AND booking_date >= $2 AND booking_date <= $3")
	assert.Contains(t, query, "ORDER BY booking_date ASC, start_hour ASC, id ASC")
	assert.Equal(t, []any{"room-1", time.Date(2030, time.June, 3, 0, 0, 0, 0, time.UTC), time.Date(2030, time.June, 7, 0, 0, 0, 0, time.UTC)}, args)

	query, args = bookingQuery(persistence.BookingFilter{})
	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}
