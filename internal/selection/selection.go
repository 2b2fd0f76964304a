// Package selection implements the press, drag and release gesture that picks a
// contiguous hour range in a room's day column.
//
// The machine is pure: Step takes the current State and an Event and returns
// the next State plus any Output. Board supplies the read-only facts about the
// grid (operating hours, occupancy, past cells) at the time of the event.
package selection

import "github.com/example/roombooking/internal/timegrid"

// DefaultMaxDuration is the longest range, in hours, a drag may cover.
const DefaultMaxDuration = 3

// Cell addresses one hour of one day in the grid.
type Cell struct {
	Date timegrid.Date
	Hour int
}

// Board describes the grid for the room currently selected.
type Board struct {
	OpenHour    int
	CloseHour   int
	MaxDuration int
	Occupied    func(Cell) bool
	Past        func(Cell) bool
}

func (b Board) maxDuration() int {
	if b.MaxDuration <= 0 {
		return DefaultMaxDuration
	}
	return b.MaxDuration
}

func (b Board) inHours(hour int) bool {
	return hour >= b.OpenHour && hour < b.CloseHour
}

func (b Board) blocked(c Cell) bool {
	if !b.inHours(c.Hour) {
		return true
	}
	if b.Occupied != nil && b.Occupied(c) {
		return true
	}
	return b.Past != nil && b.Past(c)
}

// Phase is the coarse state of the gesture.
type Phase int

const (
	// Idle means no drag is in progress.
	Idle Phase = iota
	// Dragging means a press started a range that has not been released yet.
	Dragging
)

// String returns "idle" or "dragging".
func (p Phase) String() string {
	if p == Dragging {
		return "dragging"
	}
	return "idle"
}

// State is the full machine state. Anchor and Cursor are meaningful only while
// dragging.
type State struct {
	Phase  Phase
	RoomID string
	Anchor Cell
	Cursor Cell
}

// EventKind enumerates the inputs the machine reacts to.
type EventKind int

const (
	EventPress EventKind = iota + 1
	EventMove
	EventRelease
	EventSelectRoom
	EventClear
)

// Event is a single input to Step.
type Event struct {
	Kind   EventKind
	Cell   Cell
	RoomID string
}

// Press starts a drag at c.
func Press(c Cell) Event { return Event{Kind: EventPress, Cell: c} }

// Move extends the drag to c.
func Move(c Cell) Event { return Event{Kind: EventMove, Cell: c} }

// Release ends the drag and emits the selected range.
func Release() Event { return Event{Kind: EventRelease} }

// SelectRoom switches to room id, dropping any drag and pending selection.
func SelectRoom(id string) Event { return Event{Kind: EventSelectRoom, RoomID: id} }

// Clear drops any drag and pending selection.
func Clear() Event { return Event{Kind: EventClear} }

// Selection is the range produced when a drag is released. EndHour is exclusive.
type Selection struct {
	RoomID    string
	Date      timegrid.Date
	StartHour int
	EndHour   int
	Duration  int
}

// Output reports side effects the caller should apply.
type Output struct {
	// Selection is set when a drag was released.
	Selection *Selection
	// ClearPending asks the caller to drop any pending selection.
	ClearPending bool
}

// Step applies ev to s.
func Step(board Board, s State, ev Event) (State, Output) {
	switch ev.Kind {
	case EventSelectRoom:
		return State{Phase: Idle, RoomID: ev.RoomID}, Output{ClearPending: true}
	case EventClear:
		return State{Phase: Idle, RoomID: s.RoomID}, Output{ClearPending: true}
	case EventPress:
		return press(board, s, ev.Cell)
	case EventMove:
		return move(board, s, ev.Cell), Output{}
	case EventRelease:
		return release(s)
	}
	return s, Output{}
}

// press restarts the gesture even when a previous release was never delivered.
func press(board Board, s State, c Cell) (State, Output) {
	if s.RoomID == "" || board.blocked(c) {
		return s, Output{}
	}
	return State{Phase: Dragging, RoomID: s.RoomID, Anchor: c, Cursor: c}, Output{ClearPending: true}
}

func move(board Board, s State, c Cell) State {
	if s.Phase != Dragging || c.Date != s.Anchor.Date {
		return s
	}

	reach := board.maxDuration() - 1
	target := clamp(c.Hour, s.Anchor.Hour-reach, s.Anchor.Hour+reach)
	target = clamp(target, board.OpenHour, board.CloseHour-1)

	step := 1
	if target < s.Cursor.Hour {
		step = -1
	}
	cursor := s.Cursor.Hour
	for cursor != target {
		next := Cell{Date: s.Anchor.Date, Hour: cursor + step}
		if board.blocked(next) {
			break
		}
		cursor = next.Hour
	}

	s.Cursor = Cell{Date: s.Anchor.Date, Hour: cursor}
	return s
}

func release(s State) (State, Output) {
	if s.Phase != Dragging {
		return s, Output{}
	}
	lo, hi := s.Anchor.Hour, s.Cursor.Hour
	if lo > hi {
		lo, hi = hi, lo
	}
	sel := &Selection{
		RoomID:    s.RoomID,
		Date:      s.Anchor.Date,
		StartHour: lo,
		EndHour:   hi + 1,
		Duration:  hi - lo + 1,
	}
	return State{Phase: Idle, RoomID: s.RoomID}, Output{Selection: sel}
}

// Covers reports whether a cell lies inside the anchor..cursor range of an
// active drag.
func (s State) Covers(c Cell) bool {
	if s.Phase != Dragging || c.Date != s.Anchor.Date {
		return false
	}
	lo, hi := s.Anchor.Hour, s.Cursor.Hour
	if lo > hi {
		lo, hi = hi, lo
	}
	return c.Hour >= lo && c.Hour <= hi
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Controller wraps Step with mutable state for callers that hold one gesture.
// It is not safe for concurrent use.
type Controller struct {
	state State
}

// NewController returns an idle controller with no room selected.
func NewController() *Controller {
	return &Controller{}
}

// Handle applies ev against board and returns the output.
func (c *Controller) Handle(board Board, ev Event) Output {
	next, out := Step(board, c.state, ev)
	c.state = next
	return out
}

// State returns the current machine state.
func (c *Controller) State() State {
	return c.state
}
