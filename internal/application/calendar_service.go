package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/session-scheduler/internal/calendar"
	"github.com/example/session-scheduler/internal/domain"
)

// CalendarService renders stored sessions into calendar views.
type CalendarService struct {
	sessions  SessionStore
	projector *calendar.Projector
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewCalendarService wires dependencies for calendar reads.
func NewCalendarService(sessions SessionStore, projector *calendar.Projector, now func() time.Time) *CalendarService {
	return NewCalendarServiceWithLogger(sessions, projector, now, nil)
}

// NewCalendarServiceWithLogger constructs a CalendarService with a specified logger.
func NewCalendarServiceWithLogger(sessions SessionStore, projector *calendar.Projector, now func() time.Time, logger *slog.Logger) *CalendarService {
	if now == nil {
		now = time.Now
	}
	if projector == nil {
		projector = calendar.NewProjector(nil, nil)
	}
	return &CalendarService{
		sessions:  sessions,
		projector: projector,
		now:       now,
		logger:    defaultLogger(logger),
		tracer:    newTracer(),
	}
}

// Project returns one session as a calendar event in zone. Only the host and
// participants may read it.
func (s *CalendarService) Project(ctx context.Context, sessionID, actorID, zone string) (domain.CalendarEvent, error) {
	if s == nil {
		return domain.CalendarEvent{}, fmt.Errorf("CalendarService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "calendar", "project", "session_id", sessionID)

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapStoreError(err)
		logOutcome(ctx, logger, err, "project session")
		return domain.CalendarEvent{}, err
	}
	if !session.Involves(actorID) {
		logOutcome(ctx, logger, ErrUnauthorized, "project session")
		return domain.CalendarEvent{}, ErrUnauthorized
	}
	return s.projector.Project(ctx, session, zone), nil
}

// ListCalendar projects every session involving identity that intersects
// [from,to). Zero bounds are open. Cancelled sessions are included so clients
// can render them struck through.
func (s *CalendarService) ListCalendar(ctx context.Context, identity, zone string, from, to time.Time) (events []domain.CalendarEvent, err error) {
	if s == nil {
		return nil, fmt.Errorf("CalendarService is nil")
	}

	ctx, span := startSpan(ctx, s.tracer, "CalendarService.ListCalendar", attribute.String("calendar.zone", zone))
	logger := serviceLogger(ctx, s.logger, "calendar", "list", "identity", identity)
	defer func() {
		endSpan(span, err)
		if err != nil {
			logOutcome(ctx, logger, err, "list calendar")
		}
	}()

	if domain.NormalizeIdentity(identity) == "" {
		return nil, ErrUnauthorized
	}
	if !from.IsZero() && !to.IsZero() && !to.After(from) {
		vErr := &ValidationError{}
		vErr.add("to", "to must be after from")
		return nil, vErr
	}

	sessions, err := s.sessions.ListSessionsInvolving(ctx, identity)
	if err != nil {
		return nil, mapStoreError(err)
	}

	events = make([]domain.CalendarEvent, 0, len(sessions))
	for _, event := range s.projector.ProjectAll(ctx, sessions, zone) {
		if calendar.Window(event, from, to) {
			events = append(events, event)
		}
	}
	logger.DebugContext(ctx, "calendar listed", "events", len(events))
	return events, nil
}

// ExportICS writes every session involving identity as an iCalendar document.
func (s *CalendarService) ExportICS(ctx context.Context, w io.Writer, identity, zone string) error {
	events, err := s.ListCalendar(ctx, identity, zone, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	opts := calendar.ICSOptions{
		Name:     "Sessions for " + domain.NormalizeIdentity(identity),
		Timezone: zone,
		Stamp:    s.now(),
	}
	if len(events) > 0 {
		opts.Timezone = events[0].Timezone
	}
	if err := calendar.WriteICS(w, events, opts); err != nil {
		logger := serviceLogger(ctx, s.logger, "calendar", "export_ics", "identity", identity)
		logger.ErrorContext(ctx, "ics export failed", "error", err)
		return err
	}
	return nil
}
