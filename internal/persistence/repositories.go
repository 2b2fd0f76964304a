package persistence

import (
	"context"

	"github.com/example/roombooking/internal/timegrid"
)

// RoomRepository exposes catalog operations for rooms.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) error
	UpdateRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// PersonRepository stores the people who book rooms. Emails are unique
// regardless of case.
type PersonRepository interface {
	CreatePerson(ctx context.Context, person Person) error
	GetPerson(ctx context.Context, id string) (Person, error)
	GetPersonByEmail(ctx context.Context, email string) (Person, error)
}

// BookingFilter narrows booking queries. Zero values leave a field unconstrained;
// From and To are inclusive.
type BookingFilter struct {
	RoomID   string
	PersonID string
	From     timegrid.Date
	To       timegrid.Date
}

// BookingRepository stores bookings. CreateBooking returns ErrSlotTaken when
// any covered hour of the room is already held on that date.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}
