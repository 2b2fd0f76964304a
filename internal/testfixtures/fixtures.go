package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/persistence"
	"github.com/example/roombooking/internal/scheduler"
	"github.com/example/roombooking/internal/timegrid"
)

var (
	roomCounter    uint64
	personCounter  uint64
	bookingCounter uint64
)

// referenceTime is a Monday morning before any room opens.
var referenceTime = time.Date(2030, time.June, 3, 8, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar day of ReferenceTime.
func ReferenceDate() timegrid.Date {
	return timegrid.DateOf(referenceTime, time.UTC)
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic room record.
type RoomFixture struct {
	ID          string
	Name        string
	Capacity    int
	OpenHour    int
	CloseHour   int
	Color       string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a room open 9 to 17 with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        fmt.Sprintf("room-%03d", idx),
		Name:      fmt.Sprintf("Room %03d", idx),
		Capacity:  4,
		OpenHour:  9,
		CloseHour: 17,
		Color:     application.DefaultRoomColor,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) { f.ID = id }
}

func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) { f.Name = name }
}

func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) { f.Capacity = capacity }
}

// WithRoomHours sets the operating window [open, close).
func WithRoomHours(open, close int) RoomOption {
	return func(f *RoomFixture) {
		f.OpenHour = open
		f.CloseHour = close
	}
}

func WithRoomColor(color string) RoomOption {
	return func(f *RoomFixture) { f.Color = color }
}

func WithRoomDescription(description string) RoomOption {
	return func(f *RoomFixture) {
		value := description
		f.Description = &value
	}
}

// Application converts the fixture into the service layer room.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:          f.ID,
		Name:        f.Name,
		Capacity:    f.Capacity,
		OpenHour:    f.OpenHour,
		CloseHour:   f.CloseHour,
		Color:       f.Color,
		Description: copyStringPtr(f.Description),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Persistence converts the fixture into the stored room record.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:          f.ID,
		Name:        f.Name,
		Capacity:    f.Capacity,
		OpenHour:    f.OpenHour,
		CloseHour:   f.CloseHour,
		Color:       f.Color,
		Description: copyStringPtr(f.Description),
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Input converts the fixture into room service input.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		Name:        f.Name,
		Capacity:    f.Capacity,
		OpenHour:    f.OpenHour,
		CloseHour:   f.CloseHour,
		Color:       f.Color,
		Description: copyStringPtr(f.Description),
	}
}

// ---------------------------- Person fixtures ----------------------------

// PersonFixture represents a deterministic person record.
type PersonFixture struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// PersonOption configures the generated person fixture.
type PersonOption func(*PersonFixture)

// NewPersonFixture returns a person with a berkeley.edu address.
func NewPersonFixture(opts ...PersonOption) PersonFixture {
	idx := atomic.AddUint64(&personCounter, 1)
	fixture := PersonFixture{
		ID:        fmt.Sprintf("person-%03d", idx),
		Name:      fmt.Sprintf("Person %03d", idx),
		Email:     fmt.Sprintf("person%03d@berkeley.edu", idx),
		CreatedAt: referenceTime.Add(-time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithPersonID(id string) PersonOption {
	return func(f *PersonFixture) { f.ID = id }
}

func WithPersonName(name string) PersonOption {
	return func(f *PersonFixture) { f.Name = name }
}

func WithPersonEmail(email string) PersonOption {
	return func(f *PersonFixture) { f.Email = email }
}

func (f PersonFixture) Application() application.Person {
	return application.Person{ID: f.ID, Name: f.Name, Email: f.Email, CreatedAt: f.CreatedAt}
}

func (f PersonFixture) Persistence() persistence.Person {
	return persistence.Person{ID: f.ID, Name: f.Name, Email: f.Email, CreatedAt: f.CreatedAt}
}

// --------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic booking record.
type BookingFixture struct {
	ID              string
	RoomID          string
	PersonID        string
	Date            timegrid.Date
	StartHour       int
	Duration        int
	CancelTokenHash string
	CreatedAt       time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a one hour 10:00 booking on ReferenceDate.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		ID:        fmt.Sprintf("booking-%03d", idx),
		RoomID:    "room-001",
		PersonID:  "person-001",
		Date:      ReferenceDate(),
		StartHour: 10,
		Duration:  1,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) { f.ID = id }
}

func WithBookingRoom(roomID string) BookingOption {
	return func(f *BookingFixture) { f.RoomID = roomID }
}

func WithBookingPerson(personID string) BookingOption {
	return func(f *BookingFixture) { f.PersonID = personID }
}

func WithBookingDate(date timegrid.Date) BookingOption {
	return func(f *BookingFixture) { f.Date = date }
}

// WithBookingHours sets the start hour and duration in hours.
func WithBookingHours(start, duration int) BookingOption {
	return func(f *BookingFixture) {
		f.StartHour = start
		f.Duration = duration
	}
}

func WithBookingCancelTokenHash(hash string) BookingOption {
	return func(f *BookingFixture) { f.CancelTokenHash = hash }
}

func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:              f.ID,
		RoomID:          f.RoomID,
		PersonID:        f.PersonID,
		Date:            f.Date,
		StartHour:       f.StartHour,
		Duration:        f.Duration,
		CancelTokenHash: f.CancelTokenHash,
		CreatedAt:       f.CreatedAt,
	}
}

func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:              f.ID,
		RoomID:          f.RoomID,
		PersonID:        f.PersonID,
		Date:            f.Date,
		StartHour:       f.StartHour,
		DurationHours:   f.Duration,
		CancelTokenHash: f.CancelTokenHash,
		CreatedAt:       f.CreatedAt,
	}
}

// Scheduler converts the fixture into the conflict validator's booking.
func (f BookingFixture) Scheduler() scheduler.Booking {
	return scheduler.Booking{
		ID:        f.ID,
		RoomID:    f.RoomID,
		PersonID:  f.PersonID,
		Date:      f.Date,
		StartHour: f.StartHour,
		Duration:  f.Duration,
	}
}

func copyStringPtr(src *string) *string {
	if src == nil {
		return nil
	}
	value := *src
	return &value
}
