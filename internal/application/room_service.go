package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/example/roombooking/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the service.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room Room) (Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	UpdateRoom(ctx context.Context, room Room) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
}

// DefaultRoomColor is used when a room is saved without a color.
const DefaultRoomColor = "#4285f4"

var roomColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// RoomService maintains the room catalog. Changes require an administrator.
type RoomService struct {
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, idGenerator func() string, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, idGenerator, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *RoomService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// CreateRoom validates input and persists a new room for administrators.
func (s *RoomService) CreateRoom(ctx context.Context, params CreateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateRoom",
		"principal_id", params.Principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	room = Room{
		ID:          s.idGenerator(),
		Name:        strings.TrimSpace(params.Input.Name),
		Capacity:    params.Input.Capacity,
		OpenHour:    params.Input.OpenHour,
		CloseHour:   params.Input.CloseHour,
		Color:       normalizeColor(params.Input.Color),
		Description: normalizeOptionalString(params.Input.Description),
		CreatedAt:   s.now(),
	}
	room.UpdatedAt = room.CreatedAt

	if s.rooms == nil {
		return
	}

	var persisted Room
	persisted, err = s.rooms.CreateRoom(ctx, room)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	room = persisted
	return
}

// UpdateRoom validates input and updates an existing room for administrators.
func (s *RoomService) UpdateRoom(ctx context.Context, params UpdateRoomParams) (room Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateRoom",
		"principal_id", params.Principal.UserID,
		"room_id", params.RoomID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update room", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("room_id", room.ID).InfoContext(ctx, "room updated")
	}()

	var existing Room
	existing, err = s.rooms.GetRoom(ctx, params.RoomID)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	vErr := validateRoomInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Name = strings.TrimSpace(params.Input.Name)
	updated.Capacity = params.Input.Capacity
	updated.OpenHour = params.Input.OpenHour
	updated.CloseHour = params.Input.CloseHour
	updated.Color = normalizeColor(params.Input.Color)
	updated.Description = normalizeOptionalString(params.Input.Description)
	updated.UpdatedAt = s.now()

	room, err = s.rooms.UpdateRoom(ctx, updated)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	return
}

// ListRooms returns the catalog of rooms ordered by name.
func (s *RoomService) ListRooms(ctx context.Context, principal Principal) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListRooms",
		"principal_id", principal.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).InfoContext(ctx, "rooms listed")
	}()

	var raw []Room
	raw, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}

	rooms = make([]Room, len(raw))
	copy(rooms, raw)

	sort.Slice(rooms, func(i, j int) bool {
		if strings.EqualFold(rooms[i].Name, rooms[j].Name) {
			return rooms[i].ID < rooms[j].ID
		}
		return strings.ToLower(rooms[i].Name) < strings.ToLower(rooms[j].Name)
	})

	return
}

// DefaultRooms is the starter catalog loaded by SeedRooms.
func DefaultRooms() []RoomInput {
	describe := func(s string) *string { return &s }
	return []RoomInput{
		{Name: "Hearst Huddle Room", Capacity: 4, OpenHour: 9, CloseHour: 17, Color: "#4285f4", Description: describe("Cozy meeting room with whiteboard and video conferencing.")},
		{Name: "Coach Corner", Capacity: 4, OpenHour: 9, CloseHour: 17, Color: "#34a853", Description: describe("Private corner space ideal for coaching sessions.")},
		{Name: "Founders Conference Room", Capacity: 8, OpenHour: 9, CloseHour: 17, Color: "#ea4335", Description: describe("Executive conference room with large display and premium amenities.")},
		{Name: "Common Area Table", Capacity: 8, OpenHour: 9, CloseHour: 17, Color: "#fbbc04", Description: describe("Open collaborative workspace near kitchen facilities.")},
	}
}

// SeedRooms creates inputs when the catalog is empty and reports how many
// rooms were added. A catalog with any room is left alone.
func (s *RoomService) SeedRooms(ctx context.Context, principal Principal, inputs []RoomInput) (int, error) {
	existing, err := s.ListRooms(ctx, principal)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, input := range inputs {
		if _, err := s.CreateRoom(ctx, CreateRoomParams{Principal: principal, Input: input}); err != nil {
			return i, fmt.Errorf("seed room %q: %w", input.Name, err)
		}
	}
	return len(inputs), nil
}

func validateRoomInput(input RoomInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	if input.OpenHour < 0 || input.OpenHour > 23 {
		vErr.add("open_hour", "open hour must be between 0 and 23")
	}
	if input.CloseHour <= input.OpenHour || input.CloseHour > 24 {
		vErr.add("close_hour", "close hour must be after the open hour and no later than 24")
	}
	if color := strings.TrimSpace(input.Color); color != "" && !roomColorPattern.MatchString(color) {
		vErr.add("color", "color must look like #4285f4")
	}

	return vErr
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("room", "room violates a storage constraint")
		return vErr
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

func normalizeColor(color string) string {
	color = strings.ToLower(strings.TrimSpace(color))
	if color == "" {
		return DefaultRoomColor
	}
	return color
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
