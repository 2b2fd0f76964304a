package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/roombooking/internal/scheduler"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected consistent message for populated error, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}
}

func TestErrorCodeAndUserMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{name: "nil", err: nil, wantCode: "", wantMessage: ""},
		{
			name:        "validation",
			err:         &ValidationError{FieldErrors: map[string]string{"name": "required"}},
			wantCode:    CodeValidationIncomplete,
			wantMessage: "Please fill in all required fields.",
		},
		{
			name: "validation with a missing and an invalid field",
			err: &ValidationError{FieldErrors: map[string]string{
				"duration": "duration must be between 1 and 3 hours",
				"name":     "name is required",
			}},
			wantCode:    CodeValidationIncomplete,
			wantMessage: "Please fill in all required fields.",
		},
		{
			name: "validation of a filled in field",
			err: &ValidationError{FieldErrors: map[string]string{
				"start_time": "booking must fall between 09:00:00 and 17:00:00",
			}},
			wantCode:    CodeValidationIncomplete,
			wantMessage: "Booking must fall between 09:00:00 and 17:00:00.",
		},
		{
			name: "validation reports fields in name order",
			err: &ValidationError{FieldErrors: map[string]string{
				"start_time": "start time must be a whole hour such as 09:00:00",
				"duration":   "duration must be between 1 and 3 hours",
			}},
			wantCode:    CodeValidationIncomplete,
			wantMessage: "Duration must be between 1 and 3 hours.",
		},
		{
			name:        "email domain",
			err:         &EmailDomainError{Email: "ada@gmail.com", Domain: "berkeley.edu"},
			wantCode:    CodeInvalidEmailDomain,
			wantMessage: "Please use a berkeley.edu email address (someone@berkeley.edu)",
		},
		{
			name:        "email domain starting with a vowel",
			err:         &EmailDomainError{Email: "ada@gmail.com", Domain: "example.org"},
			wantCode:    CodeInvalidEmailDomain,
			wantMessage: "Please use an example.org email address (someone@example.org)",
		},
		{
			name:        "overlap",
			err:         &scheduler.ConflictError{Reason: scheduler.ErrOverlapOrAdjacent, WithBookingID: "b1"},
			wantCode:    CodeOverlapOrAdjacent,
			wantMessage: "You already have a booking in this room next to or overlapping this time. Please leave at least one hour between your bookings.",
		},
		{
			name:        "in past",
			err:         &scheduler.ConflictError{Reason: scheduler.ErrInPast},
			wantCode:    CodeInPast,
			wantMessage: "That time has already passed. Please choose a later time.",
		},
		{
			name:        "slot taken",
			err:         fmt.Errorf("%w: hour 10:00:00", ErrSlotTaken),
			wantCode:    CodeSlotTaken,
			wantMessage: "That time is already booked for the selected date.",
		},
		{
			name:        "store",
			err:         fmt.Errorf("%w: connection refused", ErrStoreUnavailable),
			wantCode:    CodeStoreError,
			wantMessage: "Failed to save booking. Please try again.",
		},
		{name: "not found", err: ErrNotFound, wantCode: CodeNotFound, wantMessage: "The requested item could not be found."},
		{name: "in flight", err: ErrSubmissionInProgress, wantCode: CodeSubmissionInProgress, wantMessage: "Your booking is already being submitted."},
		{name: "no selection", err: ErrNoPendingSelection, wantCode: CodeNoPendingSelection, wantMessage: "Select a time range before booking."},
		{name: "cancel token", err: ErrInvalidCancelToken, wantCode: CodeInvalidCancelToken, wantMessage: "The cancellation link is not valid for this booking."},
		{
			name:        "malformed stored booking",
			err:         fmt.Errorf("%w: id=\"b1\"", scheduler.ErrMalformedBooking),
			wantCode:    CodeUnexpected,
			wantMessage: "Error creating booking. Please try again.",
		},
		{
			name:        "anything else",
			err:         errors.New("boom"),
			wantCode:    CodeUnexpected,
			wantMessage: "Error creating booking. Please try again.",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := ErrorCode(tc.err); got != tc.wantCode {
				t.Fatalf("ErrorCode() = %q, want %q", got, tc.wantCode)
			}
			if got := UserMessage(tc.err); got != tc.wantMessage {
				t.Fatalf("UserMessage() = %q, want %q", got, tc.wantMessage)
			}
		})
	}
}
