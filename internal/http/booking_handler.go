package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/timegrid"
)

type bookingService interface {
	Availability(ctx context.Context, query application.AvailabilityQuery) (application.Availability, error)
	CreateBooking(ctx context.Context, req application.BookingRequest) (application.BookingConfirmation, error)
	CancelBooking(ctx context.Context, bookingID, token string) error
	ListBookings(ctx context.Context, query application.BookingQuery) ([]application.Booking, error)
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// Availability serves GET /rooms/{id}/availability?date=&duration=.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID, ok := RoomIDFromContext(r.Context())
	if !ok || strings.TrimSpace(roomID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRoomID)
		return
	}

	q := r.URL.Query()
	date, err := timegrid.ParseDate(q.Get("date"))
	if err != nil {
		h.log(r.Context(), "Availability", "room_id", roomID, "error_kind", "bad_request").WarnContext(r.Context(), "invalid date", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	duration := 1
	if raw := strings.TrimSpace(q.Get("duration")); raw != "" {
		duration, err = strconv.Atoi(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDuration)
			return
		}
	}

	availability, err := h.service.Availability(r.Context(), application.AvailabilityQuery{
		RoomID:   roomID,
		Date:     date,
		Duration: duration,
	})
	if err != nil {
		h.log(r.Context(), "Availability", "room_id", roomID).ErrorContext(r.Context(), "availability failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toAvailabilityDTO(availability))
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	input, err := req.toInput()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", input.RoomID)
	confirmation, err := h.service.CreateBooking(r.Context(), input)
	if err != nil {
		logger.WarnContext(r.Context(), "booking rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", confirmation.Booking.ID).InfoContext(r.Context(), "booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toConfirmationDTO(confirmation))
}

// Cancel serves DELETE /bookings/{id}?token=.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID, ok := BookingIDFromContext(r.Context())
	if !ok || strings.TrimSpace(bookingID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidBookingID)
		return
	}

	logger := h.log(r.Context(), "Cancel", "booking_id", bookingID)
	if err := h.service.CancelBooking(r.Context(), bookingID, r.URL.Query().Get("token")); err != nil {
		logger.WarnContext(r.Context(), "booking cancellation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	query := application.BookingQuery{
		RoomID:   strings.TrimSpace(q.Get("room_id")),
		PersonID: strings.TrimSpace(q.Get("person_id")),
	}
	for _, bound := range []struct {
		key  string
		dest *timegrid.Date
	}{{"from", &query.From}, {"to", &query.To}} {
		raw := strings.TrimSpace(q.Get(bound.key))
		if raw == "" {
			continue
		}
		date, err := timegrid.ParseDate(raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
		*bound.dest = date
	}

	logger := h.log(r.Context(), "List", "room_id", query.RoomID)
	bookings, err := h.service.ListBookings(r.Context(), query)
	if err != nil {
		logger.ErrorContext(r.Context(), "booking list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("result_count", len(bookings)).InfoContext(r.Context(), "bookings listed")
	out := make([]bookingDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingDTO(b))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listBookingsResponse{Bookings: out})
}

type bookingRequest struct {
	RoomID    string `json:"room_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	Duration  int    `json:"duration"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// toInput leaves an empty date zero so the service reports it with the other
// missing fields.
func (r bookingRequest) toInput() (application.BookingRequest, error) {
	input := application.BookingRequest{
		RoomID:    strings.TrimSpace(r.RoomID),
		StartTime: strings.TrimSpace(r.StartTime),
		Duration:  r.Duration,
		Name:      strings.TrimSpace(r.Name),
		Email:     strings.TrimSpace(r.Email),
	}
	if strings.TrimSpace(r.Date) != "" {
		date, err := timegrid.ParseDate(r.Date)
		if err != nil {
			return application.BookingRequest{}, err
		}
		input.Date = date
	}
	return input, nil
}

type bookingDTO struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	PersonID  string `json:"person_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Duration  int    `json:"duration"`
	Label     string `json:"label"`
	CreatedAt string `json:"created_at"`
}

func toBookingDTO(b application.Booking) bookingDTO {
	return bookingDTO{
		ID:        b.ID,
		RoomID:    b.RoomID,
		PersonID:  b.PersonID,
		Date:      b.Date.String(),
		StartTime: timegrid.HoursToLabel(b.StartHour),
		EndTime:   timegrid.HoursToLabel(b.EndHour()),
		Duration:  b.Duration,
		Label:     timegrid.SlotLabel(b.StartHour) + " - " + timegrid.SlotLabel(b.EndHour()),
		CreatedAt: b.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

type listBookingsResponse struct {
	Bookings []bookingDTO `json:"bookings"`
}

type personDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type confirmationDTO struct {
	Booking     bookingDTO `json:"booking"`
	Room        roomDTO    `json:"room"`
	Person      personDTO  `json:"person"`
	CancelToken string     `json:"cancel_token"`
}

func toConfirmationDTO(c application.BookingConfirmation) confirmationDTO {
	return confirmationDTO{
		Booking:     toBookingDTO(c.Booking),
		Room:        toRoomDTO(c.Room),
		Person:      personDTO{ID: c.Person.ID, Name: c.Person.Name, Email: c.Person.Email},
		CancelToken: c.CancelToken,
	}
}

type slotDTO struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Occupied bool   `json:"occupied"`
}

type availabilityDTO struct {
	RoomID    string    `json:"room_id"`
	Date      string    `json:"date"`
	Duration  int       `json:"duration"`
	OpenHour  int       `json:"open_hour"`
	CloseHour int       `json:"close_hour"`
	Starts    []string  `json:"starts"`
	Slots     []slotDTO `json:"slots"`
}

func toAvailabilityDTO(a application.Availability) availabilityDTO {
	slots := make([]slotDTO, 0, len(a.Slots))
	for _, s := range a.Slots {
		slots = append(slots, slotDTO{Key: s.Key, Label: s.Label, Occupied: s.Occupied})
	}
	starts := a.Starts
	if starts == nil {
		starts = []string{}
	}
	return availabilityDTO{
		RoomID:    a.RoomID,
		Date:      a.Date.String(),
		Duration:  a.Duration,
		OpenHour:  a.OpenHour,
		CloseHour: a.CloseHour,
		Starts:    starts,
		Slots:     slots,
	}
}
