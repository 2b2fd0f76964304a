package application

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/example/roombooking/internal/persistence"
	"github.com/example/roombooking/internal/timegrid"
)

// memoryStore is an in-memory BookingStore that enforces the same
// uniqueness rules as the SQL stores.
type memoryStore struct {
	mu       sync.Mutex
	rooms    map[string]Room
	people   map[string]Person
	bookings map[string]Booking

	// hooks for failure injection
	listErr         error
	createBookErr   error
	createPersonErr error
	beforeCreate    func()
	createPersonHit int
}

func newMemoryStore(rooms ...Room) *memoryStore {
	s := &memoryStore{
		rooms:    make(map[string]Room),
		people:   make(map[string]Person),
		bookings: make(map[string]Booking),
	}
	for _, r := range rooms {
		s.rooms[r.ID] = r
	}
	return s
}

func (s *memoryStore) ListRooms(ctx context.Context) ([]Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memoryStore) GetRoom(ctx context.Context, id string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return r, nil
}

func (s *memoryStore) ListBookings(ctx context.Context, q BookingQuery) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Booking
	for _, b := range s.bookings {
		if q.RoomID != "" && b.RoomID != q.RoomID {
			continue
		}
		if q.PersonID != "" && b.PersonID != q.PersonID {
			continue
		}
		if !q.From.IsZero() && b.Date.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && q.To.Before(b.Date) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartHour < out[j].StartHour
	})
	return out, nil
}

func (s *memoryStore) FindPersonByEmail(ctx context.Context, email string) (Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.people {
		if strings.EqualFold(p.Email, email) {
			return p, nil
		}
	}
	return Person{}, persistence.ErrNotFound
}

func (s *memoryStore) GetPerson(ctx context.Context, id string) (Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return Person{}, persistence.ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) CreatePerson(ctx context.Context, person Person) (Person, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createPersonHit++
	if s.createPersonErr != nil {
		return Person{}, s.createPersonErr
	}
	for _, p := range s.people {
		if strings.EqualFold(p.Email, person.Email) {
			return Person{}, persistence.ErrDuplicate
		}
	}
	s.people[person.ID] = person
	return person, nil
}

func (s *memoryStore) addPerson(p Person) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.people[p.ID] = p
}

func (s *memoryStore) addBooking(b Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[b.ID] = b
}

func (s *memoryStore) CreateBooking(ctx context.Context, booking Booking) (Booking, error) {
	if s.beforeCreate != nil {
		s.beforeCreate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createBookErr != nil {
		return Booking{}, s.createBookErr
	}
	held := timegrid.NewSlotSet()
	for _, b := range s.bookings {
		if b.RoomID == booking.RoomID && b.Date == booking.Date {
			held.Add(b.StartHour, b.Duration)
		}
	}
	for _, h := range timegrid.CoveredHours(booking.StartHour, booking.Duration) {
		if held.Contains(h) {
			return Booking{}, persistence.ErrSlotTaken
		}
	}
	s.bookings[booking.ID] = booking
	return booking, nil
}

func (s *memoryStore) GetBooking(ctx context.Context, id string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return Booking{}, persistence.ErrNotFound
	}
	return b, nil
}

func (s *memoryStore) DeleteBooking(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *recordingNotifier) Notify(ctx context.Context, notification Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification)
	return n.err
}

func (n *recordingNotifier) messages() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}
