package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/roombooking/internal/timegrid"
)

var (
	// ErrOverlapOrAdjacent is returned when a person already holds a booking in the
	// same room and date that overlaps or touches the candidate.
	ErrOverlapOrAdjacent = errors.New("scheduler: overlapping or adjacent booking")
	// ErrInPast is returned when the candidate starts before the reference time.
	ErrInPast = errors.New("scheduler: booking starts in the past")
	// ErrMalformedBooking is returned when a booking has an impossible shape.
	ErrMalformedBooking = errors.New("scheduler: malformed booking")
)

// Booking is the shape of a reservation the validator reasons about.
type Booking struct {
	ID        string
	RoomID    string
	PersonID  string
	Date      timegrid.Date
	StartHour int
	Duration  int
}

// EndHour returns the exclusive end hour.
func (b Booking) EndHour() int {
	return b.StartHour + b.Duration
}

// Check reports ErrMalformedBooking for durations below one hour or hours
// outside the day.
func (b Booking) Check() error {
	if b.Duration < 1 || b.StartHour < 0 || b.StartHour > 23 || b.EndHour() > 24 {
		return fmt.Errorf("%w: id=%q start=%d duration=%d", ErrMalformedBooking, b.ID, b.StartHour, b.Duration)
	}
	return nil
}

// ConflictType describes the type of conflict detected between bookings.
type ConflictType string

const (
	// ConflictTypePerson indicates the same person overlaps or abuts another booking in the room.
	ConflictTypePerson ConflictType = "person"
	// ConflictTypeRoom indicates an hour of the room is already occupied.
	ConflictTypeRoom ConflictType = "room"
)

// Conflict details a booking relation that callers can present to users.
type Conflict struct {
	WithBookingID string
	Type          ConflictType
	Hour          int
}

// ConflictError carries the rejection reason for a candidate booking.
type ConflictError struct {
	Reason        error
	WithBookingID string
}

func (e *ConflictError) Error() string {
	if e.WithBookingID == "" {
		return e.Reason.Error()
	}
	return fmt.Sprintf("%v (booking %s)", e.Reason, e.WithBookingID)
}

func (e *ConflictError) Unwrap() error {
	return e.Reason
}

// DetectConflicts lists every conflict of the candidate against existing
// bookings on the same room and date. Person conflicts include touching
// endpoints; room conflicts report each shared hour.
func DetectConflicts(existing []Booking, candidate Booking) []Conflict {
	var conflicts []Conflict
	start, end := candidate.StartHour, candidate.EndHour()

	for _, b := range existing {
		if b.ID != "" && b.ID == candidate.ID {
			continue
		}
		if b.RoomID != candidate.RoomID || b.Date != candidate.Date {
			continue
		}

		if b.PersonID == candidate.PersonID && touchesOrOverlaps(start, end, b.StartHour, b.EndHour()) {
			conflicts = append(conflicts, Conflict{WithBookingID: b.ID, Type: ConflictTypePerson, Hour: b.StartHour})
		}

		for h := max(start, b.StartHour); h < min(end, b.EndHour()); h++ {
			conflicts = append(conflicts, Conflict{WithBookingID: b.ID, Type: ConflictTypeRoom, Hour: h})
		}
	}

	return conflicts
}

// Validate decides whether candidate may be created given the existing
// bookings and the current instant. Person conflicts are reported before the
// past-start check. Room occupancy is left to the store's uniqueness rule.
func Validate(candidate Booking, existing []Booking, now time.Time, loc *time.Location) error {
	if err := candidate.Check(); err != nil {
		return err
	}

	for _, c := range DetectConflicts(existing, candidate) {
		if c.Type == ConflictTypePerson {
			return &ConflictError{Reason: ErrOverlapOrAdjacent, WithBookingID: c.WithBookingID}
		}
	}

	if candidate.Date.At(candidate.StartHour, loc).Before(now) {
		return &ConflictError{Reason: ErrInPast}
	}

	return nil
}

func touchesOrOverlaps(start, end, otherStart, otherEnd int) bool {
	overlap := start < otherEnd && end > otherStart
	return overlap || start == otherEnd || end == otherStart
}
