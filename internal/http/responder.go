package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/scheduler"
)

var (
	errBadRequestBody   = errors.New("The request body is not valid JSON.")
	errInvalidRoomID    = errors.New("A room id is required.")
	errInvalidBookingID = errors.New("A booking id is required.")
	errInvalidSessionID = errors.New("A session id is required.")
	errMissingAdminKey  = errors.New("An admin token is required.")
	errInvalidDate      = errors.New("Dates must use the YYYY-MM-DD format.")
	errInvalidDuration  = errors.New("Duration must be a whole number of hours.")
	errInvalidEventType = errors.New("Unknown selection event type.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError writes the error code and user facing message for err.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	if errors.Is(err, scheduler.ErrMalformedBooking) {
		r.loggerFor(ctx).ErrorContext(ctx, "stored booking is malformed", "error", err)
	}

	code := application.ErrorCode(err)
	resp := errorResponse{ErrorCode: code, Message: application.UserMessage(err)}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) && vErr.HasErrors() {
		resp.Errors = vErr.FieldErrors
	}

	r.writeJSON(ctx, w, statusForCode(code), resp)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func statusForCode(code string) int {
	switch code {
	case application.CodeValidationIncomplete,
		application.CodeInvalidEmailDomain,
		application.CodeInPast:
		return http.StatusUnprocessableEntity
	case application.CodeOverlapOrAdjacent,
		application.CodeSlotTaken,
		application.CodeAlreadyExists,
		application.CodeSubmissionInProgress,
		application.CodeNoPendingSelection:
		return http.StatusConflict
	case application.CodeStoreError:
		return http.StatusServiceUnavailable
	case application.CodeNotFound:
		return http.StatusNotFound
	case application.CodeUnauthorized, application.CodeInvalidCancelToken:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is not valid."
	case http.StatusUnauthorized:
		return "Authentication is required."
	case http.StatusForbidden:
		return "You are not allowed to do that."
	case http.StatusNotFound:
		return "The requested item could not be found."
	case http.StatusConflict:
		return "The request conflicts with the current state of the resource."
	case http.StatusUnprocessableEntity:
		return "Please check the highlighted fields."
	default:
		return "Something went wrong on our side."
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
