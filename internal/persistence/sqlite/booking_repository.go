package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/example/roombooking/internal/persistence"
	"github.com/example/roombooking/internal/timegrid"
)

// BookingRepository implements persistence.BookingRepository using SQLite.
// Each booking also writes one booking_slots row per covered hour; the
// primary key on that table rejects a second booking for the same hour.
type BookingRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
	retry  *RetryHelper
}

// NewBookingRepository creates a new SQLite booking repository
func NewBookingRepository(pool *ConnectionPool) *BookingRepository {
	return &BookingRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
		retry:  NewRetryHelper(DefaultRetryConfig()),
	}
}

const bookingColumns = `id, room_id, person_id, booking_date, start_hour, duration_hours, COALESCE(cancel_token_hash, ''), created_at`

// CreateBooking inserts the booking and its slot rows in one transaction.
func (r *BookingRepository) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || booking.Date.IsZero() || booking.DurationHours <= 0 {
		return persistence.ErrConstraintViolation
	}

	err := r.retry.WithRetry(ctx, func() error {
		return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := r.helper.ExecTx(ctx, tx, `
				INSERT INTO bookings (id, room_id, person_id, booking_date, start_hour, duration_hours, cancel_token_hash, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				booking.ID,
				booking.RoomID,
				booking.PersonID,
				booking.Date.String(),
				booking.StartHour,
				booking.DurationHours,
				nullableText(booking.CancelTokenHash),
				formatTime(booking.CreatedAt),
			); err != nil {
				return err
			}

			for _, hour := range timegrid.CoveredHours(booking.StartHour, booking.DurationHours) {
				if _, err := r.helper.ExecTx(ctx, tx,
					`INSERT INTO booking_slots (room_id, booking_date, hour, booking_id) VALUES (?, ?, ?, ?)`,
					booking.RoomID, booking.Date.String(), hour, booking.ID,
				); err != nil {
					return err
				}
			}
			return r.checkAdjacent(ctx, tx, booking)
		})
	})
	return r.mapCreateError(err)
}

// checkAdjacent rejects the booking when its person already holds an
// overlapping or touching booking in the room that day. It runs after the
// inserts, so the write lock orders concurrent callers.
func (r *BookingRepository) checkAdjacent(ctx context.Context, tx *sql.Tx, booking persistence.Booking) error {
	if booking.PersonID == "" {
		return nil
	}
	var other string
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM bookings
		WHERE room_id = ? AND person_id = ? AND booking_date = ? AND id <> ?
		  AND start_hour <= ? AND start_hour + duration_hours >= ?
		LIMIT 1`,
		booking.RoomID,
		booking.PersonID,
		booking.Date.String(),
		booking.ID,
		booking.StartHour+booking.DurationHours,
		booking.StartHour,
	).Scan(&other)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil
	case err != nil:
		return err
	}
	return fmt.Errorf("%w: booking %s", persistence.ErrAdjacentBooking, other)
}

// mapCreateError reports slot collisions as ErrSlotTaken. A duplicate booking
// ID stays ErrDuplicate.
func (r *BookingRepository) mapCreateError(err error) error {
	mapped := r.mapper.MapError(err)
	if !errors.Is(mapped, persistence.ErrDuplicate) {
		return mapped
	}
	if containsAny(err.Error(), "booking_slots.", "bookings.room_id") {
		return fmt.Errorf("%w: %v", persistence.ErrSlotTaken, err)
	}
	return mapped
}

// GetBooking retrieves a booking by ID
func (r *BookingRepository) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	if id == "" {
		return persistence.Booking{}, persistence.ErrNotFound
	}

	booking, err := scanBooking(r.helper.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Booking{}, persistence.ErrNotFound
		}
		return persistence.Booking{}, r.mapper.MapError(err)
	}
	return booking, nil
}

// ListBookings returns bookings matching filter ordered by date, start hour and ID.
func (r *BookingRepository) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.RoomID != "" {
		conditions = append(conditions, "room_id = ?")
		args = append(args, filter.RoomID)
	}
	if filter.PersonID != "" {
		conditions = append(conditions, "person_id = ?")
		args = append(args, filter.PersonID)
	}
	if !filter.From.IsZero() {
		conditions = append(conditions, "booking_date >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, "booking_date <= ?")
		args = append(args, filter.To.String())
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY booking_date ASC, start_hour ASC, id ASC`

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return bookings, nil
}

// DeleteBooking removes a booking; its slot rows go with it.
func (r *BookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(ctx, tx, `DELETE FROM booking_slots WHERE booking_id = ?`, id); err != nil {
			return r.mapper.MapError(err)
		}
		result, err := r.helper.ExecTx(ctx, tx, `DELETE FROM bookings WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

func scanBooking(row rowScanner) (persistence.Booking, error) {
	var (
		booking   persistence.Booking
		date      string
		createdAt string
	)
	if err := row.Scan(
		&booking.ID,
		&booking.RoomID,
		&booking.PersonID,
		&date,
		&booking.StartHour,
		&booking.DurationHours,
		&booking.CancelTokenHash,
		&createdAt,
	); err != nil {
		return persistence.Booking{}, err
	}

	var err error
	if booking.Date, err = timegrid.ParseDate(date); err != nil {
		return persistence.Booking{}, fmt.Errorf("failed to parse booking_date: %w", err)
	}
	if booking.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

func nullableText(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
