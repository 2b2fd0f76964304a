package application

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/roombooking/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a uniqueness rule rejects a create.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrSlotTaken is returned when another booking already holds an hour of the room.
	ErrSlotTaken = errors.New("application: slot already taken")
	// ErrStoreUnavailable wraps transport and backend failures of the booking store.
	ErrStoreUnavailable = errors.New("application: booking store unavailable")
	// ErrInvalidEmailDomain is returned when an email is malformed or outside the allowed domain.
	ErrInvalidEmailDomain = errors.New("application: invalid email domain")
	// ErrSubmissionInProgress is returned when a session submits while a previous submit is outstanding.
	ErrSubmissionInProgress = errors.New("application: submission in progress")
	// ErrNoPendingSelection is returned when a session submits without a finished selection.
	ErrNoPendingSelection = errors.New("application: no pending selection")
	// ErrInvalidCancelToken is returned when a cancellation token does not match the booking.
	ErrInvalidCancelToken = errors.New("application: invalid cancel token")
)

// Error codes reported to clients.
const (
	CodeValidationIncomplete = "VALIDATION_INCOMPLETE"
	CodeInvalidEmailDomain   = "INVALID_EMAIL_DOMAIN"
	CodeOverlapOrAdjacent    = "OVERLAP_OR_ADJACENT"
	CodeInPast               = "IN_PAST"
	CodeSlotTaken            = "SLOT_TAKEN"
	CodeStoreError           = "STORE_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeSubmissionInProgress = "SUBMISSION_IN_PROGRESS"
	CodeNoPendingSelection   = "NO_PENDING_SELECTION"
	CodeInvalidCancelToken   = "INVALID_CANCEL_TOKEN"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeUnexpected           = "UNEXPECTED"
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// firstInvalid returns the message of the first field, by name, that was
// filled in but rejected. It is empty when any field is merely missing.
func (v *ValidationError) firstInvalid() string {
	if v == nil || len(v.FieldErrors) == 0 {
		return ""
	}
	fields := make([]string, 0, len(v.FieldErrors))
	for field, msg := range v.FieldErrors {
		if strings.HasSuffix(msg, "required") {
			return ""
		}
		fields = append(fields, field)
	}
	sort.Strings(fields)
	msg := v.FieldErrors[fields[0]]
	if msg == "" {
		return ""
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}

// EmailDomainError reports an email that does not belong to the allowed domain.
type EmailDomainError struct {
	Email  string
	Domain string
}

func (e *EmailDomainError) Error() string {
	return "email " + e.Email + " is not an @" + e.Domain + " address"
}

func (e *EmailDomainError) Unwrap() error {
	return ErrInvalidEmailDomain
}

// ErrorCode maps err to the stable code clients branch on.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		return CodeValidationIncomplete
	case errors.Is(err, ErrInvalidEmailDomain):
		return CodeInvalidEmailDomain
	case errors.Is(err, scheduler.ErrOverlapOrAdjacent):
		return CodeOverlapOrAdjacent
	case errors.Is(err, scheduler.ErrInPast):
		return CodeInPast
	case errors.Is(err, ErrSlotTaken):
		return CodeSlotTaken
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreError
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrSubmissionInProgress):
		return CodeSubmissionInProgress
	case errors.Is(err, ErrNoPendingSelection):
		return CodeNoPendingSelection
	case errors.Is(err, ErrInvalidCancelToken):
		return CodeInvalidCancelToken
	case errors.Is(err, ErrUnauthorized):
		return CodeUnauthorized
	}
	return CodeUnexpected
}

// UserMessage returns the sentence shown to the person booking.
func UserMessage(err error) string {
	switch ErrorCode(err) {
	case "":
		return ""
	case CodeValidationIncomplete:
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			if msg := vErr.firstInvalid(); msg != "" {
				return msg
			}
		}
		return "Please fill in all required fields."
	case CodeInvalidEmailDomain:
		var dErr *EmailDomainError
		if errors.As(err, &dErr) && dErr.Domain != "" {
			return "Please use " + article(dErr.Domain) + " " + dErr.Domain + " email address (someone@" + dErr.Domain + ")"
		}
		return "Please use a valid email address."
	case CodeOverlapOrAdjacent:
		return "You already have a booking in this room next to or overlapping this time. Please leave at least one hour between your bookings."
	case CodeInPast:
		return "That time has already passed. Please choose a later time."
	case CodeSlotTaken:
		return "That time is already booked for the selected date."
	case CodeStoreError:
		return "Failed to save booking. Please try again."
	case CodeNotFound:
		return "The requested item could not be found."
	case CodeAlreadyExists:
		return "An item with these details already exists."
	case CodeSubmissionInProgress:
		return "Your booking is already being submitted."
	case CodeNoPendingSelection:
		return "Select a time range before booking."
	case CodeInvalidCancelToken:
		return "The cancellation link is not valid for this booking."
	case CodeUnauthorized:
		return "You are not allowed to do that."
	}
	return "Error creating booking. Please try again."
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiouAEIOU", rune(word[0])) {
		return "an"
	}
	return "a"
}
