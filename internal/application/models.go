package application

import (
	"time"

	"github.com/example/roombooking/internal/selection"
	"github.com/example/roombooking/internal/timegrid"
)

// Principal represents the caller invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// Room is a bookable space with daily operating hours in the business timezone.
type Room struct {
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

// RoomInput captures caller provided room fields.
type RoomInput struct {
	Name        string
	Capacity    int
	OpenHour    int
	CloseHour   int
	Color       string
	Description *string
}

// CreateRoomParams wraps the data required to create a room.
type CreateRoomParams struct {
	Principal Principal
	Input     RoomInput
}

// UpdateRoomParams wraps the data required to update an existing room.
type UpdateRoomParams struct {
	Principal Principal
	RoomID    string
	Input     RoomInput
}

// Person is someone who books rooms, identified by email.
type Person struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Booking is a confirmed reservation of consecutive hours.
type Booking struct {
	ID              string
	RoomID          string
	PersonID        string
	Date            timegrid.Date
	StartHour       int
	Duration        int
	CancelTokenHash string
	CreatedAt       time.Time
}

// EndHour returns the exclusive end hour.
func (b Booking) EndHour() int {
	return b.StartHour + b.Duration
}

// BookingQuery narrows booking listings. From and To are inclusive; zero
// values leave a bound open.
type BookingQuery struct {
	RoomID   string
	PersonID string
	From     timegrid.Date
	To       timegrid.Date
}

// BookingRequest is the form submitted to create a booking. StartTime is a
// slot key such as "10:00:00".
type BookingRequest struct {
	RoomID    string
	Date      timegrid.Date
	StartTime string
	Duration  int
	Name      string
	Email     string
}

// BookingConfirmation is returned after a booking is stored. CancelToken is
// only available here.
type BookingConfirmation struct {
	Booking     Booking
	Room        Room
	Person      Person
	CancelToken string
}

// Notification events.
const (
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
)

// Notification is a message for the Notifier. Event and BookingID let
// event-stream notifiers key and label the message.
type Notification struct {
	To        string
	Subject   string
	Body      string
	Event     string
	BookingID string
}

// AvailabilityQuery selects the room, day and duration to check.
type AvailabilityQuery struct {
	RoomID   string
	Date     timegrid.Date
	Duration int
}

// Availability lists the legal start slots for a room, day and duration.
type Availability struct {
	RoomID    string
	Date      timegrid.Date
	Duration  int
	OpenHour  int
	CloseHour int
	Starts    []string
	Slots     []timegrid.Slot
}

// BookingDetail joins a booking with the names shown in calendars.
type BookingDetail struct {
	Booking
	RoomName   string
	RoomColor  string
	PersonName string
}

// WeekSchedule is the Monday to Friday calendar for every room.
type WeekSchedule struct {
	Days      []timegrid.Date
	OpenHour  int
	CloseHour int
	Rooms     []Room
	Entries   []BookingDetail
}

// SubmitRequest carries the contact fields entered alongside a drag selection.
type SubmitRequest struct {
	Name  string
	Email string
}

// SessionView is a snapshot of an interactive selection session.
type SessionView struct {
	ID         string
	RoomID     string
	Phase      selection.Phase
	Anchor     *selection.Cell
	Cursor     *selection.Cell
	Pending    *selection.Selection
	Submitting bool
}
