package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/roombooking/internal/application"
	"github.com/example/roombooking/internal/selection"
	"github.com/example/roombooking/internal/timegrid"
)

type sessionService interface {
	Create(ctx context.Context, roomID string) application.SessionView
	Get(id string) (application.SessionView, error)
	Close(ctx context.Context, id string) error
	HandleEvent(ctx context.Context, id string, ev selection.Event) (application.SessionView, error)
	Submit(ctx context.Context, id string, req application.SubmitRequest) (application.BookingConfirmation, error)
}

// SessionHandler drives interactive drag selection sessions.
type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session request", "error", err)
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	view := h.service.Create(r.Context(), strings.TrimSpace(req.RoomID))
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{Session: toSessionDTO(view)})
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(view)})
}

func (h *SessionHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	if err := h.service.Close(r.Context(), id); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Event serves POST /sessions/{id}/events.
func (h *SessionHandler) Event(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req sessionEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Event", "session_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode session event", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	ev, err := req.toEvent()
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	view, err := h.service.HandleEvent(r.Context(), id, ev)
	if err != nil {
		h.log(r.Context(), "Event", "session_id", id).WarnContext(r.Context(), "session event failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: toSessionDTO(view)})
}

// Submit serves POST /sessions/{id}/submit.
func (h *SessionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Submit", "session_id", id)
	confirmation, err := h.service.Submit(r.Context(), id, application.SubmitRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "session submit failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", confirmation.Booking.ID).InfoContext(r.Context(), "session booking created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toConfirmationDTO(confirmation))
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	id, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidSessionID)
		return "", false
	}
	return id, true
}

type createSessionRequest struct {
	RoomID string `json:"room_id"`
}

type submitRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// sessionEventRequest is one gesture event. Type is press, move, release,
// select_room or clear. Press and move carry date and hour.
type sessionEventRequest struct {
	Type   string `json:"type"`
	Date   string `json:"date"`
	Hour   int    `json:"hour"`
	RoomID string `json:"room_id"`
}

func (r sessionEventRequest) toEvent() (selection.Event, error) {
	cell := func() (selection.Cell, error) {
		if strings.TrimSpace(r.Date) == "" {
			return selection.Cell{Hour: r.Hour}, nil
		}
		date, err := timegrid.ParseDate(r.Date)
		if err != nil {
			return selection.Cell{}, errInvalidDate
		}
		return selection.Cell{Date: date, Hour: r.Hour}, nil
	}

	switch strings.ToLower(strings.TrimSpace(r.Type)) {
	case "press":
		c, err := cell()
		return selection.Press(c), err
	case "move":
		c, err := cell()
		return selection.Move(c), err
	case "release":
		return selection.Release(), nil
	case "select_room":
		return selection.SelectRoom(strings.TrimSpace(r.RoomID)), nil
	case "clear":
		return selection.Clear(), nil
	}
	return selection.Event{}, errInvalidEventType
}

type cellDTO struct {
	Date string `json:"date"`
	Hour int    `json:"hour"`
}

type pendingDTO struct {
	RoomID    string `json:"room_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Duration  int    `json:"duration"`
	Label     string `json:"label"`
}

type sessionDTO struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"room_id,omitempty"`
	Phase      string      `json:"phase"`
	Anchor     *cellDTO    `json:"anchor,omitempty"`
	Cursor     *cellDTO    `json:"cursor,omitempty"`
	Pending    *pendingDTO `json:"pending,omitempty"`
	Submitting bool        `json:"submitting"`
}

type sessionResponse struct {
	Session sessionDTO `json:"session"`
}

func toCellDTO(c *selection.Cell) *cellDTO {
	if c == nil {
		return nil
	}
	return &cellDTO{Date: c.Date.String(), Hour: c.Hour}
}

func toSessionDTO(v application.SessionView) sessionDTO {
	dto := sessionDTO{
		ID:         v.ID,
		RoomID:     v.RoomID,
		Phase:      v.Phase.String(),
		Anchor:     toCellDTO(v.Anchor),
		Cursor:     toCellDTO(v.Cursor),
		Submitting: v.Submitting,
	}
	if p := v.Pending; p != nil {
		dto.Pending = &pendingDTO{
			RoomID:    p.RoomID,
			Date:      p.Date.String(),
			StartTime: timegrid.HoursToLabel(p.StartHour),
			EndTime:   timegrid.HoursToLabel(p.EndHour),
			Duration:  p.Duration,
			Label:     timegrid.SlotLabel(p.StartHour) + " - " + timegrid.SlotLabel(p.EndHour),
		}
	}
	return dto
}
