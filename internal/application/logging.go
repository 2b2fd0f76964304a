package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/roombooking/internal/logging"
	"github.com/example/roombooking/internal/scheduler"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.Default()
}

func serviceLogger(ctx context.Context, base *slog.Logger, serviceName, operation string, attrs ...any) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = slog.Default()
	}

	pairs := []any{"service", serviceName}
	if operation != "" {
		pairs = append(pairs, "operation", operation)
	}
	if len(attrs) > 0 {
		pairs = append(pairs, attrs...)
	}
	return logger.With(pairs...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_error"
	case errors.Is(err, ErrInvalidEmailDomain):
		return "invalid_email_domain"
	case errors.Is(err, ErrSubmissionInProgress):
		return "submission_in_progress"
	case errors.Is(err, ErrNoPendingSelection):
		return "no_pending_selection"
	case errors.Is(err, ErrInvalidCancelToken):
		return "invalid_cancel_token"
	case errors.Is(err, scheduler.ErrOverlapOrAdjacent):
		return "overlap_or_adjacent"
	case errors.Is(err, scheduler.ErrInPast):
		return "in_past"
	case errors.Is(err, scheduler.ErrMalformedBooking):
		return "malformed_booking"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
