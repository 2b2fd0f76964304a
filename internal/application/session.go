package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/roombooking/internal/selection"
	"github.com/example/roombooking/internal/timegrid"
)

// Session is one interactive booking session: a drag gesture, the pending
// selection it produced and whether a submit is in flight.
type Session struct {
	id string

	mu         sync.Mutex
	state      selection.State
	pending    *selection.Selection
	submitting bool
	lastSeen   time.Time
}

func (s *Session) viewLocked() SessionView {
	view := SessionView{
		ID:         s.id,
		RoomID:     s.state.RoomID,
		Phase:      s.state.Phase,
		Submitting: s.submitting,
	}
	if s.state.Phase == selection.Dragging {
		anchor, cursor := s.state.Anchor, s.state.Cursor
		view.Anchor = &anchor
		view.Cursor = &cursor
	}
	if s.pending != nil {
		pending := *s.pending
		view.Pending = &pending
	}
	return view
}

// SessionRegistry tracks interactive sessions in memory and expires idle ones.
type SessionRegistry struct {
	bookings    *BookingService
	idGenerator func() string
	now         func() time.Time
	idleTTL     time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionRegistry constructs a registry that books through bookings.
func NewSessionRegistry(bookings *BookingService, idGenerator func() string, now func() time.Time, idleTTL time.Duration, logger *slog.Logger) *SessionRegistry {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &SessionRegistry{
		bookings:    bookings,
		idGenerator: idGenerator,
		now:         now,
		idleTTL:     idleTTL,
		logger:      defaultLogger(logger),
		sessions:    make(map[string]*Session),
	}
}

func (r *SessionRegistry) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, r.logger, "SessionRegistry", operation, attrs...)
}

// Create opens a session, optionally with a room already selected.
func (r *SessionRegistry) Create(ctx context.Context, roomID string) SessionView {
	session := &Session{id: r.idGenerator(), lastSeen: r.now()}
	session.state.RoomID = roomID

	r.mu.Lock()
	r.sessions[session.id] = session
	r.mu.Unlock()

	r.loggerWith(ctx, "Create", "session_id", session.id, "room_id", roomID).InfoContext(ctx, "session opened")

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.viewLocked()
}

// Get returns a snapshot of the session.
func (r *SessionRegistry) Get(id string) (SessionView, error) {
	session, err := r.lookup(id)
	if err != nil {
		return SessionView{}, err
	}
	session.mu.Lock()
	defer session.mu.Unlock()
	return session.viewLocked(), nil
}

// Close discards the session and anything pending in it.
func (r *SessionRegistry) Close(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	r.loggerWith(ctx, "Close", "session_id", id).InfoContext(ctx, "session closed")
	return nil
}

// HandleEvent feeds one gesture event to the session's selection machine.
// Press and move events are evaluated against the live board of the active
// room for the event's date.
func (r *SessionRegistry) HandleEvent(ctx context.Context, id string, ev selection.Event) (SessionView, error) {
	session, err := r.lookup(id)
	if err != nil {
		return SessionView{}, err
	}

	session.mu.Lock()
	roomID := session.state.RoomID
	session.mu.Unlock()

	var board selection.Board
	if (ev.Kind == selection.EventPress || ev.Kind == selection.EventMove) && roomID != "" {
		if ev.Cell.Date.IsZero() {
			vErr := &ValidationError{}
			vErr.add("date", "date is required")
			return SessionView{}, vErr
		}
		board, err = r.bookings.Board(ctx, roomID, ev.Cell.Date)
		if err != nil {
			return SessionView{}, err
		}
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	// The room may have changed while the board was loading.
	if session.state.RoomID != roomID && (ev.Kind == selection.EventPress || ev.Kind == selection.EventMove) {
		return session.viewLocked(), nil
	}

	next, out := selection.Step(board, session.state, ev)
	session.state = next
	session.lastSeen = r.now()
	if out.ClearPending {
		session.pending = nil
	}
	if out.Selection != nil {
		sel := *out.Selection
		session.pending = &sel
		r.loggerWith(ctx, "HandleEvent", "session_id", id, "room_id", sel.RoomID).
			DebugContext(ctx, "selection finalized",
				"date", sel.Date.String(),
				"start_hour", sel.StartHour,
				"duration", sel.Duration,
			)
	}
	return session.viewLocked(), nil
}

// Submit books the pending selection for the given contact. A session submits
// one booking at a time. The pending selection survives a failed submit so the
// caller can retry or adjust it.
func (r *SessionRegistry) Submit(ctx context.Context, id string, req SubmitRequest) (BookingConfirmation, error) {
	session, err := r.lookup(id)
	if err != nil {
		return BookingConfirmation{}, err
	}

	session.mu.Lock()
	if session.submitting {
		session.mu.Unlock()
		return BookingConfirmation{}, ErrSubmissionInProgress
	}
	if session.pending == nil {
		session.mu.Unlock()
		return BookingConfirmation{}, ErrNoPendingSelection
	}
	pending := *session.pending
	session.submitting = true
	session.lastSeen = r.now()
	session.mu.Unlock()

	confirmation, err := r.bookings.CreateBooking(ctx, BookingRequest{
		RoomID:    pending.RoomID,
		Date:      pending.Date,
		StartTime: timegrid.HoursToLabel(pending.StartHour),
		Duration:  pending.Duration,
		Name:      req.Name,
		Email:     req.Email,
	})

	session.mu.Lock()
	defer session.mu.Unlock()
	session.submitting = false
	session.lastSeen = r.now()
	if err != nil {
		return BookingConfirmation{}, err
	}
	if session.pending != nil && *session.pending == pending {
		session.pending = nil
	}
	return confirmation, nil
}

// Sweep removes sessions idle for longer than the registry TTL and reports how
// many were removed. Sessions with a submit in flight are kept.
func (r *SessionRegistry) Sweep(ctx context.Context) int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		session.mu.Lock()
		idle := session.lastSeen.Before(cutoff) && !session.submitting
		session.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.loggerWith(ctx, "Sweep").InfoContext(ctx, "expired idle sessions", "removed", removed)
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *SessionRegistry) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Len reports the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *SessionRegistry) lookup(id string) (*Session, error) {
	if r == nil {
		return nil, fmt.Errorf("SessionRegistry is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return session, nil
}
