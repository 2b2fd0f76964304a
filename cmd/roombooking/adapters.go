package main

import (
	"context"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/persistence"
)

// bookingStore is the full repository surface a storage backend provides.
type bookingStore interface {
	persistence.RoomRepository
	persistence.PersonRepository
	persistence.BookingRepository
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

type roomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func newRoomRepositoryAdapter(repo persistence.RoomRepository) *roomRepositoryAdapter {
	return &roomRepositoryAdapter{repo: repo}
}

func (a *roomRepositoryAdapter) CreateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.CreateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *roomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *roomRepositoryAdapter) UpdateRoom(ctx context.Context, room application.Room) (application.Room, error) {
	if err := a.repo.UpdateRoom(ctx, toPersistenceRoom(room)); err != nil {
		return application.Room{}, err
	}
	return a.GetRoom(ctx, room.ID)
}

func (a *roomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	models, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	rooms := make([]application.Room, 0, len(models))
	for _, model := range models {
		rooms = append(rooms, toApplicationRoom(model))
	}
	return rooms, nil
}

// bookingStoreAdapter serves application.BookingStore from the three
// persistence repositories.
type bookingStoreAdapter struct {
	*roomRepositoryAdapter
	people   persistence.PersonRepository
	bookings persistence.BookingRepository
}

var _ application.BookingStore = (*bookingStoreAdapter)(nil)

func newBookingStoreAdapter(rooms persistence.RoomRepository, people persistence.PersonRepository, bookings persistence.BookingRepository) *bookingStoreAdapter {
	return &bookingStoreAdapter{
		roomRepositoryAdapter: newRoomRepositoryAdapter(rooms),
		people:                people,
		bookings:              bookings,
	}
}

func (a *bookingStoreAdapter) FindPersonByEmail(ctx context.Context, email string) (application.Person, error) {
	stored, err := a.people.GetPersonByEmail(ctx, email)
	if err != nil {
		return application.Person{}, err
	}
	return toApplicationPerson(stored), nil
}

func (a *bookingStoreAdapter) GetPerson(ctx context.Context, id string) (application.Person, error) {
	stored, err := a.people.GetPerson(ctx, id)
	if err != nil {
		return application.Person{}, err
	}
	return toApplicationPerson(stored), nil
}

func (a *bookingStoreAdapter) CreatePerson(ctx context.Context, person application.Person) (application.Person, error) {
	if err := a.people.CreatePerson(ctx, toPersistencePerson(person)); err != nil {
		return application.Person{}, err
	}
	return a.GetPerson(ctx, person.ID)
}

func (a *bookingStoreAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.bookings.CreateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	return a.GetBooking(ctx, booking.ID)
}

func (a *bookingStoreAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.bookings.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingStoreAdapter) ListBookings(ctx context.Context, query application.BookingQuery) ([]application.Booking, error) {
	models, err := a.bookings.ListBookings(ctx, persistence.BookingFilter{
		RoomID:   query.RoomID,
		PersonID: query.PersonID,
		From:     query.From,
		To:       query.To,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

func (a *bookingStoreAdapter) DeleteBooking(ctx context.Context, id string) error {
	return a.bookings.DeleteBooking(ctx, id)
}

func toApplicationRoom(model persistence.Room) application.Room {
	return application.Room{
		ID:          model.ID,
		Name:        model.Name,
		Capacity:    model.Capacity,
		OpenHour:    model.OpenHour,
		CloseHour:   model.CloseHour,
		Color:       model.Color,
		Description: cloneString(model.Description),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:          room.ID,
		Name:        room.Name,
		Capacity:    room.Capacity,
		OpenHour:    room.OpenHour,
		CloseHour:   room.CloseHour,
		Color:       room.Color,
		Description: cloneString(room.Description),
		CreatedAt:   room.CreatedAt,
		UpdatedAt:   room.UpdatedAt,
	}
}

func toApplicationPerson(model persistence.Person) application.Person {
	return application.Person{ID: model.ID, Name: model.Name, Email: model.Email, CreatedAt: model.CreatedAt}
}

func toPersistencePerson(person application.Person) persistence.Person {
	return persistence.Person{ID: person.ID, Name: person.Name, Email: person.Email, CreatedAt: person.CreatedAt}
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:              model.ID,
		RoomID:          model.RoomID,
		PersonID:        model.PersonID,
		Date:            model.Date,
		StartHour:       model.StartHour,
		Duration:        model.DurationHours,
		CancelTokenHash: model.CancelTokenHash,
		CreatedAt:       model.CreatedAt,
	}
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:              booking.ID,
		RoomID:          booking.RoomID,
		PersonID:        booking.PersonID,
		Date:            booking.Date,
		StartHour:       booking.StartHour,
		DurationHours:   booking.Duration,
		CancelTokenHash: booking.CancelTokenHash,
		CreatedAt:       booking.CreatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
