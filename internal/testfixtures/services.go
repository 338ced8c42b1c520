package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/calendar"
	"github.com/example/session-scheduler/internal/lifecycle"
	"github.com/example/session-scheduler/internal/timezone"
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

// BookingServiceDeps captures dependencies for constructing a booking service.
type BookingServiceDeps struct {
	Sessions    application.SessionStore
	Converter   *timezone.Converter
	Publisher   application.Publisher
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewBookingService builds a booking service using the supplied dependencies
// combined with the factory defaults.
func (f *ServiceFactory) NewBookingService(deps BookingServiceDeps) *application.BookingService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	converter := deps.Converter
	if converter == nil {
		converter = timezone.NewConverter(deps.Logger)
	}
	return application.NewBookingServiceWithLogger(
		deps.Sessions,
		converter,
		deps.Publisher,
		idGen,
		now,
		deps.Logger,
	)
}

// MeetingServiceDeps captures dependencies for constructing a meeting service.
type MeetingServiceDeps struct {
	Sessions  application.SessionStore
	EarlyJoin time.Duration
	Publisher application.Publisher
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewMeetingService builds a meeting service whose lifecycle manager shares the factory clock.
func (f *ServiceFactory) NewMeetingService(deps MeetingServiceDeps) *application.MeetingService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	earlyJoin := deps.EarlyJoin
	if earlyJoin <= 0 {
		earlyJoin = lifecycle.DefaultEarlyJoin
	}
	return application.NewMeetingServiceWithLogger(
		deps.Sessions,
		lifecycle.NewManager(now, earlyJoin),
		deps.Publisher,
		now,
		deps.Logger,
	)
}

// CalendarServiceDeps captures dependencies for constructing a calendar service.
type CalendarServiceDeps struct {
	Sessions  application.SessionStore
	Directory application.UserDirectory
	Now       func() time.Time
	Logger    *slog.Logger
}

// NewCalendarService builds a calendar service using the supplied dependencies.
func (f *ServiceFactory) NewCalendarService(deps CalendarServiceDeps) *application.CalendarService {
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	var resolver calendar.DisplayNameResolver = deps.Directory
	return application.NewCalendarServiceWithLogger(
		deps.Sessions,
		calendar.NewProjector(timezone.NewConverter(deps.Logger), resolver),
		now,
		deps.Logger,
	)
}
