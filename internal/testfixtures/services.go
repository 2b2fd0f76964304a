package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/roombooking/internal/application"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// FastArgon2idParams keep cancel token hashing cheap in tests.
var FastArgon2idParams = application.Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

// RoomServiceDeps captures dependencies for constructing a room service.
type RoomServiceDeps struct {
	Rooms       application.RoomRepository
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewRoomService builds a room service using the supplied dependencies.
func (f *ServiceFactory) NewRoomService(deps RoomServiceDeps) *application.RoomService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	return application.NewRoomServiceWithLogger(
		deps.Rooms,
		idGen,
		now,
		deps.Logger,
	)
}

// NewBookingService builds a booking service. Unset identifiers, clock and
// token parameters come from the factory; the policy defaults to UTC,
// berkeley.edu and a three hour cap.
func (f *ServiceFactory) NewBookingService(deps application.BookingServiceDeps) *application.BookingService {
	if deps.IDGenerator == nil {
		deps.IDGenerator = f.IDGenerator.NextFunc()
	}
	if deps.Now == nil {
		deps.Now = f.Clock.NowFunc()
	}
	if deps.TokenParams == nil {
		params := FastArgon2idParams
		deps.TokenParams = &params
	}
	if deps.Policy.Location == nil {
		deps.Policy.Location = time.UTC
	}
	if deps.Policy.EmailDomain == "" {
		deps.Policy.EmailDomain = "berkeley.edu"
	}
	if deps.Policy.MaxDuration == 0 {
		deps.Policy.MaxDuration = 3
	}
	return application.NewBookingService(deps)
}

// NewSessionRegistry builds a session registry over bookings with the
// factory's identifiers and clock.
func (f *ServiceFactory) NewSessionRegistry(bookings *application.BookingService, idleTTL time.Duration, logger *slog.Logger) *application.SessionRegistry {
	return application.NewSessionRegistry(bookings, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), idleTTL, logger)
}
