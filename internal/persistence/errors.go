package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate is returned when a uniqueness rule other than slot occupancy is violated.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrSlotTaken is returned when a booking would occupy an hour already held in the room.
	ErrSlotTaken = errors.New("persistence: slot already taken")
	// ErrAdjacentBooking is returned when the person already holds an overlapping
	// or touching booking in the same room on the same date.
	ErrAdjacentBooking = errors.New("persistence: person already holds an adjacent booking")
	// ErrConstraintViolation is returned when a record fails a check constraint.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a record references a missing parent.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
