package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/example/roombooking/internal/persistence"
	"github.com/example/roombooking/internal/scheduler"
	"github.com/example/roombooking/internal/selection"
	"github.com/example/roombooking/internal/timegrid"
)

// BookingStore is the persistence collaborator for rooms, people and bookings.
type BookingStore interface {
	ListRooms(ctx context.Context) ([]Room, error)
	GetRoom(ctx context.Context, id string) (Room, error)
	ListBookings(ctx context.Context, query BookingQuery) ([]Booking, error)
	FindPersonByEmail(ctx context.Context, email string) (Person, error)
	GetPerson(ctx context.Context, id string) (Person, error)
	CreatePerson(ctx context.Context, person Person) (Person, error)
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	DeleteBooking(ctx context.Context, id string) error
}

// Notifier delivers booking notifications. Failures never undo a booking.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// BookingPolicy holds the business rules shared by every booking path.
type BookingPolicy struct {
	Location    *time.Location
	EmailDomain string
	MaxDuration int
}

const (
	defaultNotifyTimeout = 10 * time.Second
	reportOpenHour       = 9
	reportCloseHour      = 22
)

var emailPattern = regexp.MustCompile(`^[a-z0-9._-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

// BookingServiceDeps captures the collaborators of a BookingService.
type BookingServiceDeps struct {
	Store          BookingStore
	Notifier       Notifier
	Occupancy      OccupancyCache
	Policy         BookingPolicy
	TokenParams    *Argon2idParams
	IDGenerator    func() string
	TokenGenerator func() string
	Now            func() time.Time
	NotifyTimeout  time.Duration
	Logger         *slog.Logger
}

// BookingService validates, stores and announces bookings and answers
// availability questions.
type BookingService struct {
	store          BookingStore
	notifier       Notifier
	occupancy      OccupancyCache
	policy         BookingPolicy
	tokenParams    Argon2idParams
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	notifyTimeout  time.Duration
	logger         *slog.Logger

	// serializes check-then-insert per room and date
	bookingLocks  keyedMutex
	notifications sync.WaitGroup
}

// NewBookingService constructs a booking service, filling unset dependencies
// with defaults.
func NewBookingService(deps BookingServiceDeps) *BookingService {
	svc := &BookingService{
		store:          deps.Store,
		notifier:       deps.Notifier,
		occupancy:      deps.Occupancy,
		policy:         deps.Policy,
		tokenParams:    DefaultArgon2idParams,
		idGenerator:    deps.IDGenerator,
		tokenGenerator: deps.TokenGenerator,
		now:            deps.Now,
		notifyTimeout:  deps.NotifyTimeout,
		logger:         defaultLogger(deps.Logger),
	}
	if deps.TokenParams != nil {
		svc.tokenParams = *deps.TokenParams
	}
	if svc.occupancy == nil {
		svc.occupancy = noopOccupancyCache{}
	}
	if svc.policy.Location == nil {
		svc.policy.Location = time.UTC
	}
	if svc.policy.MaxDuration <= 0 {
		svc.policy.MaxDuration = selection.DefaultMaxDuration
	}
	if svc.idGenerator == nil {
		svc.idGenerator = func() string { return "" }
	}
	if svc.tokenGenerator == nil {
		svc.tokenGenerator = svc.idGenerator
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.notifyTimeout <= 0 {
		svc.notifyTimeout = defaultNotifyTimeout
	}
	return svc
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Policy returns the rules the service enforces.
func (s *BookingService) Policy() BookingPolicy {
	return s.policy
}

// Wait blocks until dispatched notifications have finished.
func (s *BookingService) Wait() {
	s.notifications.Wait()
}

// Today returns the current calendar day in the business timezone.
func (s *BookingService) Today() timegrid.Date {
	return timegrid.DateOf(s.now(), s.policy.Location)
}

// OccupiedSlots returns the hours of roomID already held on date. Results are
// served from the occupancy cache when present. A read that raced with a
// booking change is returned but not cached.
func (s *BookingService) OccupiedSlots(ctx context.Context, roomID string, date timegrid.Date) (timegrid.SlotSet, error) {
	if slots, ok := s.occupancy.Get(ctx, roomID, date); ok {
		return slots, nil
	}

	generation := s.occupancy.Generation(ctx, roomID, date)
	bookings, err := s.store.ListBookings(ctx, BookingQuery{RoomID: roomID, From: date, To: date})
	if err != nil {
		return nil, mapBookingRepoError(err)
	}

	slots, err := scheduler.OccupiedSlots(toSchedulerBookings(bookings))
	if err != nil {
		s.loggerWith(ctx, "OccupiedSlots", "room_id", roomID, "date", date.String()).
			ErrorContext(ctx, "stored booking is malformed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}

	s.occupancy.Store(ctx, roomID, date, generation, slots)
	return slots, nil
}

// Availability lists the start slots a booking of the requested duration may
// use. Starts that have already passed are left out.
func (s *BookingService) Availability(ctx context.Context, query AvailabilityQuery) (result Availability, err error) {
	logger := s.loggerWith(ctx, "Availability",
		"room_id", query.RoomID,
		"date", query.Date.String(),
		"duration", query.Duration,
	)
	defer func() {
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, ErrStoreUnavailable) || ErrorKind(err) == "unexpected" || errors.Is(err, scheduler.ErrMalformedBooking) {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "failed to compute availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(result.Starts)).DebugContext(ctx, "availability computed")
	}()

	vErr := &ValidationError{}
	if strings.TrimSpace(query.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}
	if query.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	vErr.merge(s.validateDuration(query.Duration))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var room Room
	room, err = s.store.GetRoom(ctx, query.RoomID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	var occupied timegrid.SlotSet
	occupied, err = s.OccupiedSlots(ctx, room.ID, query.Date)
	if err != nil {
		return
	}

	now := s.now()
	starts := make([]string, 0)
	for _, key := range scheduler.ComputeAvailableStarts(room.OpenHour, room.CloseHour, query.Duration, occupied) {
		hour, _ := timegrid.ParseSlotKey(key)
		if query.Date.At(hour, s.policy.Location).Before(now) {
			continue
		}
		starts = append(starts, key)
	}

	result = Availability{
		RoomID:    room.ID,
		Date:      query.Date,
		Duration:  query.Duration,
		OpenHour:  room.OpenHour,
		CloseHour: room.CloseHour,
		Starts:    starts,
		Slots:     timegrid.Day(room.OpenHour, room.CloseHour, occupied),
	}
	return
}

// Board describes roomID on date for the drag selection machine.
func (s *BookingService) Board(ctx context.Context, roomID string, date timegrid.Date) (selection.Board, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return selection.Board{}, mapBookingRepoError(err)
	}
	occupied, err := s.OccupiedSlots(ctx, room.ID, date)
	if err != nil {
		return selection.Board{}, err
	}

	now := s.now()
	loc := s.policy.Location
	return selection.Board{
		OpenHour:    room.OpenHour,
		CloseHour:   room.CloseHour,
		MaxDuration: s.policy.MaxDuration,
		Occupied: func(c selection.Cell) bool {
			return c.Date == date && occupied.Contains(c.Hour)
		},
		Past: func(c selection.Cell) bool {
			return c.Date.At(c.Hour, loc).Before(now)
		},
	}, nil
}

// CreateBooking validates req against live store state, stores the booking and
// dispatches a confirmation. The person is resolved by email and created when
// absent.
func (s *BookingService) CreateBooking(ctx context.Context, req BookingRequest) (confirmation BookingConfirmation, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateBooking",
		"room_id", req.RoomID,
		"date", req.Date.String(),
		"start_time", req.StartTime,
		"duration", req.Duration,
	)
	defer func() {
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, ErrStoreUnavailable) || ErrorKind(err) == "unexpected" || errors.Is(err, scheduler.ErrMalformedBooking) {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "failed to create booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", confirmation.Booking.ID, "person_id", confirmation.Person.ID).
			InfoContext(ctx, "booking created")
	}()

	var (
		startHour int
		email     string
	)
	startHour, email, err = s.validateRequest(req)
	if err != nil {
		return
	}
	name := strings.TrimSpace(req.Name)

	var room Room
	room, err = s.store.GetRoom(ctx, req.RoomID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if startHour < room.OpenHour || startHour+req.Duration > room.CloseHour {
		vErr := &ValidationError{}
		vErr.add("start_time", fmt.Sprintf("booking must fall between %s and %s",
			timegrid.SlotLabel(room.OpenHour), timegrid.SlotLabel(room.CloseHour)))
		err = vErr
		return
	}

	unlock, lockErr := s.bookingLocks.Lock(ctx, OccupancyKey(room.ID, req.Date))
	if lockErr != nil {
		err = fmt.Errorf("%w: %v", ErrStoreUnavailable, lockErr)
		return
	}
	defer unlock()

	person, known, lookupErr := s.findPerson(ctx, email)
	if lookupErr != nil {
		err = lookupErr
		return
	}

	var existing []Booking
	existing, err = s.store.ListBookings(ctx, BookingQuery{RoomID: room.ID, From: req.Date, To: req.Date})
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	candidate := scheduler.Booking{
		RoomID:    room.ID,
		PersonID:  person.ID,
		Date:      req.Date,
		StartHour: startHour,
		Duration:  req.Duration,
	}
	existingForCheck := toSchedulerBookings(existing)
	if err = scheduler.Validate(candidate, existingForCheck, s.now(), s.policy.Location); err != nil {
		return
	}
	for _, c := range scheduler.DetectConflicts(existingForCheck, candidate) {
		if c.Type == scheduler.ConflictTypeRoom {
			s.occupancy.Invalidate(ctx, room.ID, req.Date)
			err = fmt.Errorf("%w: hour %s held by booking %s", ErrSlotTaken, timegrid.HoursToLabel(c.Hour), c.WithBookingID)
			return
		}
	}

	if !known {
		person, err = s.getOrCreatePerson(ctx, name, email)
		if err != nil {
			return
		}
	}

	token := s.tokenGenerator()
	var tokenHash string
	tokenHash, err = HashCancelToken(token, s.tokenParams)
	if err != nil {
		err = fmt.Errorf("hash cancel token: %w", err)
		return
	}

	booking := Booking{
		ID:              s.idGenerator(),
		RoomID:          room.ID,
		PersonID:        person.ID,
		Date:            req.Date,
		StartHour:       startHour,
		Duration:        req.Duration,
		CancelTokenHash: tokenHash,
		CreatedAt:       s.now(),
	}

	var stored Booking
	stored, err = s.store.CreateBooking(ctx, booking)
	if err != nil {
		err = mapBookingRepoError(err)
		if errors.Is(err, ErrSlotTaken) {
			s.occupancy.Invalidate(ctx, room.ID, req.Date)
		}
		return
	}
	s.occupancy.Invalidate(ctx, room.ID, req.Date)

	confirmation = BookingConfirmation{Booking: stored, Room: room, Person: person, CancelToken: token}
	s.dispatch(ctx, confirmationNotification(confirmation, s.policy.Location))
	return
}

// CancelBooking deletes a booking when token matches the one issued at creation.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, token string) (err error) {
	logger := s.loggerWith(ctx, "CancelBooking", "booking_id", bookingID)
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	var booking Booking
	booking, err = s.store.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if err = VerifyCancelToken(booking.CancelTokenHash, token); err != nil {
		return
	}

	if err = s.store.DeleteBooking(ctx, booking.ID); err != nil {
		err = mapBookingRepoError(err)
		return
	}
	s.occupancy.Invalidate(ctx, booking.RoomID, booking.Date)

	room, roomErr := s.store.GetRoom(ctx, booking.RoomID)
	person, personErr := s.store.GetPerson(ctx, booking.PersonID)
	if roomErr != nil || personErr != nil {
		logger.WarnContext(ctx, "skipping cancellation notice", "room_error", roomErr, "person_error", personErr)
		return
	}
	s.dispatch(ctx, cancellationNotification(booking, room, person, s.policy.Location))
	return
}

// ListBookings returns bookings matching query.
func (s *BookingService) ListBookings(ctx context.Context, query BookingQuery) ([]Booking, error) {
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		vErr := &ValidationError{}
		vErr.add("to", "end date must not be before start date")
		return nil, vErr
	}
	bookings, err := s.store.ListBookings(ctx, query)
	if err != nil {
		return nil, mapBookingRepoError(err)
	}
	return bookings, nil
}

// WeekSchedule returns every booking from Monday to Friday of the week holding
// day, joined with room and person names.
func (s *BookingService) WeekSchedule(ctx context.Context, day timegrid.Date) (week WeekSchedule, err error) {
	if day.IsZero() {
		day = s.Today()
	}
	monday := day.StartOfWeek()

	logger := s.loggerWith(ctx, "WeekSchedule", "week", monday.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build week schedule", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	week = WeekSchedule{OpenHour: reportOpenHour, CloseHour: reportCloseHour}
	for i := 0; i < 5; i++ {
		week.Days = append(week.Days, monday.AddDays(i))
	}

	week.Rooms, err = s.store.ListRooms(ctx)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	rooms := make(map[string]Room, len(week.Rooms))
	for _, room := range week.Rooms {
		rooms[room.ID] = room
	}

	var bookings []Booking
	bookings, err = s.store.ListBookings(ctx, BookingQuery{From: week.Days[0], To: week.Days[len(week.Days)-1]})
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}

	people := make(map[string]Person)
	for _, b := range bookings {
		if err = (scheduler.Booking{ID: b.ID, StartHour: b.StartHour, Duration: b.Duration}).Check(); err != nil {
			return
		}
		person, ok := people[b.PersonID]
		if !ok {
			person, err = s.store.GetPerson(ctx, b.PersonID)
			if err != nil {
				err = mapBookingRepoError(err)
				return
			}
			people[b.PersonID] = person
		}
		room := rooms[b.RoomID]
		week.Entries = append(week.Entries, BookingDetail{
			Booking:    b,
			RoomName:   room.Name,
			RoomColor:  room.Color,
			PersonName: person.Name,
		})
	}
	return
}

func (s *BookingService) validateRequest(req BookingRequest) (int, string, error) {
	vErr := &ValidationError{}
	if strings.TrimSpace(req.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(req.Email) == "" {
		vErr.add("email", "email is required")
	}
	if strings.TrimSpace(req.RoomID) == "" {
		vErr.add("room_id", "room is required")
	}
	if req.Date.IsZero() {
		vErr.add("date", "date is required")
	}

	startHour := -1
	if strings.TrimSpace(req.StartTime) == "" {
		vErr.add("start_time", "start time is required")
	} else if hour, err := timegrid.ParseSlotKey(req.StartTime); err != nil {
		vErr.add("start_time", "start time must be a whole hour such as 09:00:00")
	} else {
		startHour = hour
	}
	vErr.merge(s.validateDuration(req.Duration))

	if vErr.HasErrors() {
		return 0, "", vErr
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.checkEmail(email); err != nil {
		return 0, "", err
	}
	return startHour, email, nil
}

func (s *BookingService) validateDuration(duration int) *ValidationError {
	vErr := &ValidationError{}
	switch {
	case duration == 0:
		vErr.add("duration", "duration is required")
	case duration < 1 || duration > s.policy.MaxDuration:
		vErr.add("duration", fmt.Sprintf("duration must be between 1 and %d hours", s.policy.MaxDuration))
	}
	return vErr
}

func (s *BookingService) checkEmail(email string) error {
	if !emailPattern.MatchString(email) || strings.Contains(email, "..") {
		return &EmailDomainError{Email: email, Domain: s.policy.EmailDomain}
	}
	if s.policy.EmailDomain != "" && !strings.HasSuffix(email, "@"+strings.ToLower(s.policy.EmailDomain)) {
		return &EmailDomainError{Email: email, Domain: s.policy.EmailDomain}
	}
	return nil
}

func (s *BookingService) findPerson(ctx context.Context, email string) (Person, bool, error) {
	person, err := s.store.FindPersonByEmail(ctx, email)
	if err == nil {
		return person, true, nil
	}
	if mapped := mapBookingRepoError(err); !errors.Is(mapped, ErrNotFound) {
		return Person{}, false, mapped
	}
	return Person{}, false, nil
}

// getOrCreatePerson creates the person and, when another writer created the
// same email first, re-reads the winner.
func (s *BookingService) getOrCreatePerson(ctx context.Context, name, email string) (Person, error) {
	created, err := s.store.CreatePerson(ctx, Person{
		ID:        s.idGenerator(),
		Name:      name,
		Email:     email,
		CreatedAt: s.now(),
	})
	if err == nil {
		return created, nil
	}

	if mapped := mapBookingRepoError(err); !errors.Is(mapped, ErrAlreadyExists) {
		return Person{}, mapped
	}

	existing, err := s.store.FindPersonByEmail(ctx, email)
	if err != nil {
		return Person{}, mapBookingRepoError(err)
	}
	return existing, nil
}

func (s *BookingService) dispatch(ctx context.Context, notification Notification) {
	if s.notifier == nil {
		return
	}
	logger := s.loggerWith(ctx, "Notify", "to", notification.To)
	base := context.WithoutCancel(ctx)

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		notifyCtx, cancel := context.WithTimeout(base, s.notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(notifyCtx, notification); err != nil {
			logger.WarnContext(notifyCtx, "failed to send notification", "error", err)
			return
		}
		logger.DebugContext(notifyCtx, "notification sent")
	}()
}

func confirmationNotification(c BookingConfirmation, loc *time.Location) Notification {
	start := c.Booking.Date.At(c.Booking.StartHour, loc)
	hours := "hour"
	if c.Booking.Duration > 1 {
		hours = "hours"
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", c.Person.Name)
	fmt.Fprintf(&body, "Your booking for %s is confirmed.\n\n", c.Room.Name)
	fmt.Fprintf(&body, "Date: %s\n", start.Format("Monday, January 2, 2006"))
	fmt.Fprintf(&body, "Time: %s - %s (%d %s)\n",
		timegrid.SlotLabel(c.Booking.StartHour), timegrid.SlotLabel(c.Booking.EndHour()), c.Booking.Duration, hours)
	fmt.Fprintf(&body, "Booking ID: %s\n", c.Booking.ID)
	if c.CancelToken != "" {
		fmt.Fprintf(&body, "Cancellation code: %s\n", c.CancelToken)
	}

	return Notification{
		To:        c.Person.Email,
		Subject:   fmt.Sprintf("Room booking confirmed: %s on %s", c.Room.Name, start.Format("Jan 2, 2006")),
		Body:      body.String(),
		Event:     EventBookingConfirmed,
		BookingID: c.Booking.ID,
	}
}

func cancellationNotification(b Booking, room Room, person Person, loc *time.Location) Notification {
	start := b.Date.At(b.StartHour, loc)

	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", person.Name)
	fmt.Fprintf(&body, "Your booking for %s on %s, %s - %s, has been cancelled.\n",
		room.Name, start.Format("Monday, January 2, 2006"),
		timegrid.SlotLabel(b.StartHour), timegrid.SlotLabel(b.EndHour()))

	return Notification{
		To:        person.Email,
		Subject:   fmt.Sprintf("Room booking cancelled: %s on %s", room.Name, start.Format("Jan 2, 2006")),
		Body:      body.String(),
		Event:     EventBookingCancelled,
		BookingID: b.ID,
	}
}

func toSchedulerBookings(bookings []Booking) []scheduler.Booking {
	out := make([]scheduler.Booking, len(bookings))
	for i, b := range bookings {
		out[i] = scheduler.Booking{
			ID:        b.ID,
			RoomID:    b.RoomID,
			PersonID:  b.PersonID,
			Date:      b.Date,
			StartHour: b.StartHour,
			Duration:  b.Duration,
		}
	}
	return out
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrSlotTaken), errors.Is(err, persistence.ErrSlotTaken):
		return ErrSlotTaken
	case errors.Is(err, persistence.ErrAdjacentBooking):
		return &scheduler.ConflictError{Reason: scheduler.ErrOverlapOrAdjacent}
	case errors.Is(err, ErrAlreadyExists), errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		vErr := &ValidationError{}
		vErr.add("booking", "booking violates a storage constraint")
		return vErr
	case errors.Is(err, ErrStoreUnavailable):
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
