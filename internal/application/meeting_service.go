package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/lifecycle"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/realtime"
)

// MeetingService runs meeting lifecycle actions against stored sessions.
type MeetingService struct {
	sessions  SessionStore
	lifecycle *lifecycle.Manager
	publisher Publisher
	now       func() time.Time
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewMeetingService wires dependencies for meeting operations.
func NewMeetingService(sessions SessionStore, manager *lifecycle.Manager, publisher Publisher, now func() time.Time) *MeetingService {
	return NewMeetingServiceWithLogger(sessions, manager, publisher, now, nil)
}

// NewMeetingServiceWithLogger constructs a MeetingService with a specified logger.
func NewMeetingServiceWithLogger(sessions SessionStore, manager *lifecycle.Manager, publisher Publisher, now func() time.Time, logger *slog.Logger) *MeetingService {
	if now == nil {
		now = time.Now
	}
	if manager == nil {
		manager = lifecycle.NewManager(now, lifecycle.DefaultEarlyJoin)
	}
	return &MeetingService{
		sessions:  sessions,
		lifecycle: manager,
		publisher: publisherOrNop(publisher),
		now:       now,
		logger:    defaultLogger(logger),
		tracer:    newTracer(),
	}
}

// StartMeeting moves the session to live on behalf of its host.
func (s *MeetingService) StartMeeting(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	return s.transition(ctx, lifecycle.ActionStart, sessionID, actorID)
}

// EndMeeting moves a live session to ended on behalf of its host.
func (s *MeetingService) EndMeeting(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	return s.transition(ctx, lifecycle.ActionEnd, sessionID, actorID)
}

// GetJoinStatus reports whether actorID may join the session at now. A zero
// now uses the service clock.
func (s *MeetingService) GetJoinStatus(ctx context.Context, sessionID, actorID string, now time.Time) (lifecycle.JoinStatus, error) {
	if s == nil {
		return lifecycle.JoinStatus{}, fmt.Errorf("MeetingService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "meeting", "join_status", "session_id", sessionID, "actor_id", actorID)

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapStoreError(err)
		logOutcome(ctx, logger, err, "join status")
		return lifecycle.JoinStatus{}, err
	}
	if !session.Involves(actorID) {
		logOutcome(ctx, logger, ErrUnauthorized, "join status")
		return lifecycle.JoinStatus{}, ErrUnauthorized
	}
	if now.IsZero() {
		now = s.now()
	}
	status := s.lifecycle.JoinStatus(session, actorID, now)
	logger.DebugContext(ctx, "join status", "status", status.Status, "can_join", status.CanJoin)
	return status, nil
}

func (s *MeetingService) transition(ctx context.Context, action, sessionID, actorID string) (session domain.Session, err error) {
	if s == nil {
		return domain.Session{}, fmt.Errorf("MeetingService is nil")
	}

	ctx, span := startSpan(ctx, s.tracer, "MeetingService."+action,
		attribute.String("session.id", sessionID),
	)
	logger := serviceLogger(ctx, s.logger, "meeting", action, "session_id", sessionID, "actor_id", actorID)
	defer func() {
		endSpan(span, err)
		logOutcome(ctx, logger, err, "meeting "+action, "meeting_status", session.MeetingStatus)
	}()

	current, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err)
	}
	switch current.Status {
	case domain.StatusCancelled:
		return domain.Session{}, &domain.InvalidTransitionError{Action: action, From: current.MeetingStatus, Reason: "session is cancelled"}
	case domain.StatusNoShow:
		return domain.Session{}, &domain.InvalidTransitionError{Action: action, From: current.MeetingStatus, Reason: "session was marked as a no-show"}
	}

	var next domain.Session
	var eventType realtime.EventType
	switch action {
	case lifecycle.ActionStart:
		next, err = s.lifecycle.StartMeeting(current, actorID)
		eventType = realtime.EventMeetingStarted
	case lifecycle.ActionEnd:
		next, err = s.lifecycle.EndMeeting(current, actorID)
		eventType = realtime.EventMeetingEnded
	default:
		return domain.Session{}, fmt.Errorf("unknown meeting action %q", action)
	}
	if err != nil {
		return domain.Session{}, err
	}

	expected := current.MeetingStatus
	if expected == "" {
		expected = domain.MeetingNotStarted
	}
	updated, err := s.sessions.UpdateMeetingStatus(ctx, sessionID, MeetingUpdate{Expected: expected, Session: next})
	if err != nil {
		if errors.Is(err, persistence.ErrStaleState) {
			return domain.Session{}, &domain.InvalidTransitionError{Action: action, From: expected, Reason: "meeting state changed concurrently"}
		}
		return domain.Session{}, mapStoreError(err)
	}

	s.publisher.Publish(ctx, realtime.SessionEvent(eventType, updated, s.now().UTC()))
	return updated, nil
}
