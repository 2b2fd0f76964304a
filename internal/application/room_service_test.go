package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/roombooking/internal/persistence"
)

type roomRepoStub struct {
	createErr error
	created   Room

	getRoom Room
	getErr  error

	updateErr error
	updated   Room

	list    []Room
	listErr error
}

func (r *roomRepoStub) CreateRoom(ctx context.Context, room Room) (Room, error) {
	if r.createErr != nil {
		return Room{}, r.createErr
	}
	r.created = room
	return room, nil
}

func (r *roomRepoStub) GetRoom(ctx context.Context, id string) (Room, error) {
	if r.getErr != nil {
		return Room{}, r.getErr
	}
	if r.getRoom.ID == "" {
		return Room{}, ErrNotFound
	}
	return r.getRoom, nil
}

func (r *roomRepoStub) UpdateRoom(ctx context.Context, room Room) (Room, error) {
	if r.updateErr != nil {
		return Room{}, r.updateErr
	}
	r.updated = room
	return room, nil
}

func (r *roomRepoStub) ListRooms(ctx context.Context) ([]Room, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	if len(r.list) == 0 {
		return nil, nil
	}
	out := make([]Room, len(r.list))
	copy(out, r.list)
	return out, nil
}

func validRoomInput() RoomInput {
	return RoomInput{Name: "Coach Corner", Capacity: 4, OpenHour: 9, CloseHour: 17, Color: "#34a853"}
}

func TestRoomService_CreateRoom(t *testing.T) {
	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := NewRoomService(nil, nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: Principal{IsAdmin: false},
			Input:     validRoomInput(),
		})

		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required attributes", func(t *testing.T) {
		svc := NewRoomService(nil, nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: Principal{IsAdmin: true},
			Input: RoomInput{
				Name:      "   ",
				Capacity:  0,
				OpenHour:  25,
				CloseHour: 8,
				Color:     "blue",
			},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}

		for _, field := range []string{"name", "capacity", "open_hour", "close_hour", "color"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s validation error, got %v", field, vErr.FieldErrors)
			}
		}
		if got := ErrorCode(err); got != CodeValidationIncomplete {
			t.Fatalf("expected %s, got %s", CodeValidationIncomplete, got)
		}
	})

	t.Run("persists rooms for administrators", func(t *testing.T) {
		repo := &roomRepoStub{}
		now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)
		description := "  Two armchairs  "
		svc := NewRoomService(repo, func() string { return "room-1" }, func() time.Time { return now })

		input := validRoomInput()
		input.Name = "  Coach Corner  "
		input.Color = ""
		input.Description = &description
		created, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: Principal{IsAdmin: true},
			Input:     input,
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if repo.created.ID != "room-1" {
			t.Fatalf("expected repository to receive generated ID, got %q", repo.created.ID)
		}
		if repo.created.Name != "Coach Corner" {
			t.Fatalf("expected name to be trimmed, got %q", repo.created.Name)
		}
		if repo.created.OpenHour != 9 || repo.created.CloseHour != 17 {
			t.Fatalf("expected operating hours 9-17, got %d-%d", repo.created.OpenHour, repo.created.CloseHour)
		}
		if repo.created.Color != DefaultRoomColor {
			t.Fatalf("expected default color, got %q", repo.created.Color)
		}
		if repo.created.Description == nil || *repo.created.Description != "Two armchairs" {
			t.Fatalf("expected description to be trimmed, got %v", repo.created.Description)
		}
		if !repo.created.CreatedAt.Equal(now) || !repo.created.UpdatedAt.Equal(now) {
			t.Fatalf("expected timestamps to use injected clock, got created=%v updated=%v", repo.created.CreatedAt, repo.created.UpdatedAt)
		}

		if created.ID != "room-1" {
			t.Fatalf("expected returned room to include generated ID, got %q", created.ID)
		}
	})

	t.Run("maps repository errors to sentinel failures", func(t *testing.T) {
		repo := &roomRepoStub{createErr: persistence.ErrDuplicate}
		svc := NewRoomService(repo, nil, nil)

		_, err := svc.CreateRoom(context.Background(), CreateRoomParams{
			Principal: Principal{IsAdmin: true},
			Input:     validRoomInput(),
		})

		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestRoomService_UpdateRoom(t *testing.T) {
	t.Run("requires administrator privileges", func(t *testing.T) {
		svc := NewRoomService(nil, nil, nil)

		_, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
			Principal: Principal{IsAdmin: false},
			RoomID:    "room-1",
			Input:     validRoomInput(),
		})

		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates operating hours", func(t *testing.T) {
		repo := &roomRepoStub{getRoom: Room{ID: "room-1", Name: "Coach Corner", Capacity: 4, OpenHour: 9, CloseHour: 17}}
		svc := NewRoomService(repo, nil, nil)

		input := validRoomInput()
		input.OpenHour = 12
		input.CloseHour = 12
		_, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
			Principal: Principal{IsAdmin: true},
			RoomID:    "room-1",
			Input:     input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["close_hour"]; !ok {
			t.Fatalf("expected close_hour validation error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("propagates ErrNotFound when the room is missing", func(t *testing.T) {
		repo := &roomRepoStub{getErr: persistence.ErrNotFound}
		svc := NewRoomService(repo, nil, nil)

		_, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
			Principal: Principal{IsAdmin: true},
			RoomID:    "missing",
			Input:     validRoomInput(),
		})

		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("persists updated attributes for administrators", func(t *testing.T) {
		existing := Room{ID: "room-1", Name: "Coach Corner", Capacity: 4, OpenHour: 9, CloseHour: 17, Color: "#34a853", CreatedAt: time.Now(), UpdatedAt: time.Now()}
		repo := &roomRepoStub{getRoom: existing}
		now := time.Date(2024, time.March, 15, 9, 0, 0, 0, time.UTC)
		svc := NewRoomService(repo, nil, func() time.Time { return now })

		updated, err := svc.UpdateRoom(context.Background(), UpdateRoomParams{
			Principal: Principal{IsAdmin: true},
			RoomID:    "room-1",
			Input: RoomInput{
				Name:      "  Founders Conference Room ",
				Capacity:  12,
				OpenHour:  8,
				CloseHour: 20,
				Color:     "#EA4335",
			},
		})
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}

		if repo.updated.Name != "Founders Conference Room" {
			t.Fatalf("expected name to be trimmed, got %q", repo.updated.Name)
		}
		if repo.updated.Capacity != 12 || repo.updated.OpenHour != 8 || repo.updated.CloseHour != 20 {
			t.Fatalf("expected attributes to be updated, got %+v", repo.updated)
		}
		if repo.updated.Color != "#ea4335" {
			t.Fatalf("expected color to be lower-cased, got %q", repo.updated.Color)
		}
		if !repo.updated.UpdatedAt.Equal(now) {
			t.Fatalf("expected updated timestamp to use injected clock, got %v", repo.updated.UpdatedAt)
		}
		if repo.updated.CreatedAt != existing.CreatedAt {
			t.Fatalf("expected created timestamp to remain unchanged")
		}

		if updated.ID != existing.ID {
			t.Fatalf("expected returned room to include ID, got %q", updated.ID)
		}
	})
}

func TestRoomService_ListRooms(t *testing.T) {
	t.Run("returns rooms in deterministic order", func(t *testing.T) {
		repo := &roomRepoStub{list: []Room{
			{ID: "room-2", Name: "Hearst Huddle Room", Capacity: 10},
			{ID: "room-3", Name: "coach corner", Capacity: 8},
			{ID: "room-1", Name: "Coach Corner", Capacity: 6},
		}}
		svc := NewRoomService(repo, nil, nil)

		got, err := svc.ListRooms(context.Background(), Principal{})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(got) != 3 {
			t.Fatalf("expected three rooms, got %d", len(got))
		}

		if got[0].ID != "room-1" || got[1].ID != "room-3" || got[2].ID != "room-2" {
			t.Fatalf("expected case-insensitive ordering, got %+v", got)
		}
	})

	t.Run("reports store failures", func(t *testing.T) {
		repo := &roomRepoStub{listErr: errors.New("connection refused")}
		svc := NewRoomService(repo, nil, nil)

		if _, err := svc.ListRooms(context.Background(), Principal{}); !errors.Is(err, ErrStoreUnavailable) {
			t.Fatalf("expected ErrStoreUnavailable, got %v", err)
		}
	})
}

func TestMapRoomRepoError(t *testing.T) {
	unexpected := errors.New("boom")

	tests := map[string]struct {
		err      error
		expected error
	}{
		"nil":                   {err: nil, expected: nil},
		"application not found": {err: ErrNotFound, expected: ErrNotFound},
		"persistence not found": {err: persistence.ErrNotFound, expected: ErrNotFound},
		"duplicate":             {err: persistence.ErrDuplicate, expected: ErrAlreadyExists},
		"constraint":            {err: persistence.ErrConstraintViolation, expected: &ValidationError{}},
		"unexpected":            {err: unexpected, expected: ErrStoreUnavailable},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			result := mapRoomRepoError(tc.err)

			switch expected := tc.expected.(type) {
			case nil:
				if result != nil {
					t.Fatalf("expected nil, got %v", result)
				}
			case *ValidationError:
				vErr, ok := result.(*ValidationError)
				if !ok {
					t.Fatalf("expected ValidationError, got %T", result)
				}
				if msg, ok := vErr.FieldErrors["room"]; !ok || msg == "" {
					t.Fatalf("expected room validation message, got %v", vErr.FieldErrors)
				}
			default:
				if !errors.Is(result, expected) {
					t.Fatalf("expected %v, got %v", expected, result)
				}
			}
		})
	}
}

type catalogStub struct {
	roomRepoStub
}

func (c *catalogStub) CreateRoom(ctx context.Context, room Room) (Room, error) {
	c.list = append(c.list, room)
	return room, nil
}

func TestRoomService_SeedRooms(t *testing.T) {
	admin := Principal{UserID: "admin", IsAdmin: true}
	ids := 0
	repo := &catalogStub{}
	svc := NewRoomService(repo, func() string { ids++; return "room-" + string(rune('0'+ids)) }, nil)

	added, err := svc.SeedRooms(context.Background(), admin, DefaultRooms())
	if err != nil {
		t.Fatalf("SeedRooms returned error: %v", err)
	}
	if added != 4 || len(repo.list) != 4 {
		t.Fatalf("expected 4 seeded rooms, added %d stored %d", added, len(repo.list))
	}
	if repo.list[1].Name != "Coach Corner" || repo.list[1].Color != "#34a853" || repo.list[1].CloseHour != 17 {
		t.Fatalf("unexpected seeded room %+v", repo.list[1])
	}

	added, err = svc.SeedRooms(context.Background(), admin, DefaultRooms())
	if err != nil || added != 0 || len(repo.list) != 4 {
		t.Fatalf("second seed should be a no-op, added %d err %v", added, err)
	}

	if _, err := NewRoomService(&catalogStub{}, nil, nil).SeedRooms(context.Background(), Principal{}, DefaultRooms()); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for non-admin seeding, got %v", err)
	}
}
