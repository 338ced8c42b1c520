package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/lifecycle"
)

var (
	testStart = time.Date(2025, time.August, 2, 5, 30, 0, 0, time.UTC)
	errBoom   = errors.New("boom")
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type bookingServiceStub struct {
	proposeParams application.ProposeBookingParams
	proposeResult application.BookingResult
	proposeErr    error

	cancelID    string
	cancelActor string
	cancelErr   error

	availabilityParams application.AvailabilityParams
	slots              []domain.TimeSlot
	availabilityErr    error
}

func (s *bookingServiceStub) ProposeBooking(ctx context.Context, params application.ProposeBookingParams) (application.BookingResult, error) {
	s.proposeParams = params
	return s.proposeResult, s.proposeErr
}

func (s *bookingServiceStub) CancelSession(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	s.cancelID, s.cancelActor = sessionID, actorID
	if s.cancelErr != nil {
		return domain.Session{}, s.cancelErr
	}
	session := sampleSession(sessionID)
	session.Status = domain.StatusCancelled
	return session, nil
}

func (s *bookingServiceStub) FindAvailability(ctx context.Context, params application.AvailabilityParams) ([]domain.TimeSlot, error) {
	s.availabilityParams = params
	return s.slots, s.availabilityErr
}

type meetingServiceStub struct {
	action  string
	actor   string
	at      time.Time
	session domain.Session
	status  lifecycle.JoinStatus
	err     error
}

func (s *meetingServiceStub) StartMeeting(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	s.action, s.actor = "start", actorID
	return s.session, s.err
}

func (s *meetingServiceStub) EndMeeting(ctx context.Context, sessionID, actorID string) (domain.Session, error) {
	s.action, s.actor = "end", actorID
	return s.session, s.err
}

func (s *meetingServiceStub) GetJoinStatus(ctx context.Context, sessionID, actorID string, now time.Time) (lifecycle.JoinStatus, error) {
	s.action, s.actor, s.at = "join", actorID, now
	return s.status, s.err
}

type calendarServiceStub struct {
	zone     string
	from, to time.Time
	event    domain.CalendarEvent
	events   []domain.CalendarEvent
	ics      string
	err      error
}

func (s *calendarServiceStub) Project(ctx context.Context, sessionID, actorID, zone string) (domain.CalendarEvent, error) {
	s.zone = zone
	return s.event, s.err
}

func (s *calendarServiceStub) ListCalendar(ctx context.Context, identity, zone string, from, to time.Time) ([]domain.CalendarEvent, error) {
	s.zone, s.from, s.to = zone, from, to
	return s.events, s.err
}

func (s *calendarServiceStub) ExportICS(ctx context.Context, w io.Writer, identity, zone string) error {
	s.zone = zone
	if s.err != nil {
		return s.err
	}
	_, err := io.WriteString(w, s.ics)
	return err
}

func sampleSession(id string) domain.Session {
	return domain.Session{
		ID:              id,
		HostID:          "host-1",
		Participants:    []domain.Participant{{UserID: "learner-1", Role: domain.RoleLearner}},
		StartUTC:        testStart,
		EndUTC:          testStart.Add(40 * time.Minute),
		DurationMinutes: 40,
		Timezone:        "America/New_York",
		Recurrence:      domain.RecurrenceNone,
		Status:          domain.StatusScheduled,
		MeetingStatus:   domain.MeetingNotStarted,
	}
}

func newTestRouter(t *testing.T, cfg RouterConfig) http.Handler {
	t.Helper()
	if cfg.Logger == nil {
		cfg.Logger = discardLogger()
	}
	router, err := NewRouter(cfg)
	if err != nil {
		t.Fatalf("NewRouter returned error: %v", err)
	}
	return router
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if _, ok := headers[HeaderActorID]; !ok {
		req.Header.Set(HeaderActorID, "host-1")
	}
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v (raw %q)", err, rec.Body.String())
	}
	return body
}
