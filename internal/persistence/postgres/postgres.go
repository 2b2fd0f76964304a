// Package postgres implements the booking store on PostgreSQL using pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/roombooking/internal/persistence"
	"github.com/example/roombooking/internal/timegrid"
)

//go:embed schema.sql
var schema string

// Store implements the room, person and booking repositories on one pool.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses databaseURL, sizes the pool and verifies connectivity.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return errors.New("db not configured")
	}
	return s.pool.Ping(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// mapError translates pgx and PostgreSQL errors to persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case "booking_slots_pkey", "bookings_room_start_key":
			return fmt.Errorf("%w: %v", persistence.ErrSlotTaken, err)
		}
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case "23503":
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case "23514", "23502":
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

// CreateRoom inserts a room.
func (s *Store) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (id, name, capacity, open_hour, close_hour, color, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, room.ID, room.Name, room.Capacity, room.OpenHour, room.CloseHour, room.Color, room.Description,
		room.CreatedAt.UTC(), room.UpdatedAt.UTC())
	return mapError(err)
}

// UpdateRoom replaces the mutable fields of a room.
func (s *Store) UpdateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms
		SET name = $2, capacity = $3, open_hour = $4, close_hour = $5, color = $6, description = $7, updated_at = $8
		WHERE id = $1
	`, room.ID, room.Name, room.Capacity, room.OpenHour, room.CloseHour, room.Color, room.Description, room.UpdatedAt.UTC())
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const roomColumns = `id, name, capacity, open_hour, close_hour, color, description, created_at, updated_at`

// GetRoom fetches a room by ID.
func (s *Store) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	room, err := scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id))
	if err != nil {
		return persistence.Room{}, mapError(err)
	}
	return room, nil
}

// ListRooms returns every room ordered by name.
func (s *Store) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, mapError(err)
		}
		rooms = append(rooms, room)
	}
	if rows.Err() != nil {
		return nil, mapError(rows.Err())
	}
	return rooms, nil
}

func scanRoom(row pgx.Row) (persistence.Room, error) {
	var room persistence.Room
	err := row.Scan(&room.ID, &room.Name, &room.Capacity, &room.OpenHour, &room.CloseHour,
		&room.Color, &room.Description, &room.CreatedAt, &room.UpdatedAt)
	return room, err
}

// CreatePerson inserts a person; emails are unique ignoring case.
func (s *Store) CreatePerson(ctx context.Context, person persistence.Person) error {
	if person.ID == "" || strings.TrimSpace(person.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO people (id, name, email, created_at) VALUES ($1, $2, $3, $4)
	`, person.ID, person.Name, strings.ToLower(strings.TrimSpace(person.Email)), person.CreatedAt.UTC())
	return mapError(err)
}

// GetPerson fetches a person by ID.
func (s *Store) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	var p persistence.Person
	err := s.pool.QueryRow(ctx, `SELECT id, name, email, created_at FROM people WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if err != nil {
		return persistence.Person{}, mapError(err)
	}
	return p, nil
}

// GetPersonByEmail fetches a person by email, ignoring case.
func (s *Store) GetPersonByEmail(ctx context.Context, email string) (persistence.Person, error) {
	var p persistence.Person
	err := s.pool.QueryRow(ctx, `SELECT id, name, email, created_at FROM people WHERE lower(email) = lower($1)`,
		strings.TrimSpace(email)).Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt)
	if err != nil {
		return persistence.Person{}, mapError(err)
	}
	return p, nil
}

// CreateBooking inserts the booking and one slot row per covered hour in a
// single transaction.
func (s *Store) CreateBooking(ctx context.Context, booking persistence.Booking) error {
	if booking.ID == "" || booking.Date.IsZero() || booking.DurationHours <= 0 {
		return persistence.ErrConstraintViolation
	}
	day := booking.Date.At(0, time.UTC)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Concurrent inserts for one room and day queue here until commit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`,
		booking.RoomID+"|"+booking.Date.String()); err != nil {
		return mapError(err)
	}

	if booking.PersonID != "" {
		var other string
		err := tx.QueryRow(ctx, `
			SELECT id FROM bookings
			WHERE room_id = $1 AND person_id = $2 AND booking_date = $3 AND id <> $4
			  AND start_hour <= $5 AND start_hour + duration_hours >= $6
			LIMIT 1
		`, booking.RoomID, booking.PersonID, day, booking.ID,
			booking.StartHour+booking.DurationHours, booking.StartHour).Scan(&other)
		switch {
		case err == nil:
			return fmt.Errorf("%w: booking %s", persistence.ErrAdjacentBooking, other)
		case !errors.Is(err, pgx.ErrNoRows):
			return mapError(err)
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO bookings (id, room_id, person_id, booking_date, start_hour, duration_hours, cancel_token_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`, booking.ID, booking.RoomID, booking.PersonID, day, booking.StartHour, booking.DurationHours,
		booking.CancelTokenHash, booking.CreatedAt.UTC()); err != nil {
		return mapError(err)
	}

	batch := &pgx.Batch{}
	for _, hour := range timegrid.CoveredHours(booking.StartHour, booking.DurationHours) {
		batch.Queue(`INSERT INTO booking_slots (room_id, booking_date, hour, booking_id) VALUES ($1, $2, $3, $4)`,
			booking.RoomID, day, hour, booking.ID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return mapError(err)
	}

	return mapError(tx.Commit(ctx))
}

const bookingColumns = `id, room_id, person_id, booking_date, start_hour, duration_hours, COALESCE(cancel_token_hash, ''), created_at`

// GetBooking fetches a booking by ID.
func (s *Store) GetBooking(ctx context.Context, id string) (persistence.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return persistence.Booking{}, mapError(err)
	}
	return b, nil
}

// ListBookings returns bookings matching filter ordered by date and start hour.
func (s *Store) ListBookings(ctx context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	query, args := bookingQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var bookings []persistence.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, mapError(err)
		}
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, mapError(rows.Err())
	}
	return bookings, nil
}

func bookingQuery(filter persistence.BookingFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if filter.RoomID != "" {
		add("room_id = $%d", filter.RoomID)
	}
	if filter.PersonID != "" {
		add("person_id = $%d", filter.PersonID)
	}
	if !filter.From.IsZero() {
		add("booking_date >= $%d", filter.From.At(0, time.UTC))
	}
	if !filter.To.IsZero() {
		add("booking_date <= $%d", filter.To.At(0, time.UTC))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	return query + ` ORDER BY booking_date ASC, start_hour ASC, id ASC`, args
}

// DeleteBooking removes a booking and, by cascade, its slot rows.
func (s *Store) DeleteBooking(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanBooking(row pgx.Row) (persistence.Booking, error) {
	var (
		b   persistence.Booking
		day time.Time
	)
	if err := row.Scan(&b.ID, &b.RoomID, &b.PersonID, &day, &b.StartHour, &b.DurationHours,
		&b.CancelTokenHash, &b.CreatedAt); err != nil {
		return persistence.Booking{}, err
	}
	b.Date = timegrid.DateOf(day, time.UTC)
	return b, nil
}
