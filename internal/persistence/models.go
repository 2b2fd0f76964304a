package persistence

import (
	"time"

	"github.com/example/roombooking/internal/timegrid"
)

// Room represents a bookable room catalog entry.
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

// Person represents someone who has made at least one booking.
type Person struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Booking represents a confirmed reservation of consecutive hours.
type Booking struct {
	ID              string
	RoomID          string
	PersonID        string
	Date            timegrid.Date
	StartHour       int
	DurationHours   int
	CancelTokenHash string
	CreatedAt       time.Time
}
