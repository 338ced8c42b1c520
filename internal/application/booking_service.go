package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/realtime"
	"github.com/example/session-scheduler/internal/recurrence"
	"github.com/example/session-scheduler/internal/scheduler"
	"github.com/example/session-scheduler/internal/timezone"
)

// ProposeBookingParams describes a booking request as entered by the host.
type ProposeBookingParams struct {
	HostID          string
	HostEmail       string
	Title           string
	Skill           string
	Start           timezone.WallClock
	Timezone        string
	DurationMinutes int
	Participants    []domain.Participant
	// Recurrence is a cadence keyword (none, daily, weekly, monthly) or RRULE text.
	Recurrence string
	// Count is the number of occurrences; zero uses the RRULE COUNT or the service default.
	Count int
}

// BookingResult reports the sessions created for a proposal. RejectedReason is
// set whenever the proposal was refused, alongside the returned error.
type BookingResult struct {
	Accepted       []domain.Session
	RejectedReason string
	SeriesID       string
	RRule          string
}

// AvailabilityParams describes a free-slot search for one local day.
type AvailabilityParams struct {
	ActorID         string
	Year            int
	Month           int
	Day             int
	Timezone        string
	DurationMinutes int
	StepMinutes     int
	Participants    []string
}

// BookingService validates proposals, expands recurrences and rejects
// conflicting bookings before persisting them.
type BookingService struct {
	sessions     SessionStore
	converter    *timezone.Converter
	publisher    Publisher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
	tracer       trace.Tracer
	defaultCount int
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(sessions SessionStore, converter *timezone.Converter, publisher Publisher, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(sessions, converter, publisher, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a BookingService with a specified logger.
func NewBookingServiceWithLogger(sessions SessionStore, converter *timezone.Converter, publisher Publisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	logger = defaultLogger(logger)
	if converter == nil {
		converter = timezone.NewConverter(logger)
	}
	return &BookingService{
		sessions:     sessions,
		converter:    converter,
		publisher:    publisherOrNop(publisher),
		idGenerator:  idGenerator,
		now:          now,
		logger:       logger,
		tracer:       newTracer(),
		defaultCount: recurrence.DefaultCount,
	}
}

// SetDefaultCount overrides the occurrence count used when a recurring
// proposal does not name one. Values outside 1..MaxCount are ignored.
func (s *BookingService) SetDefaultCount(count int) {
	if s == nil || count < 1 || count > recurrence.MaxCount {
		return
	}
	s.defaultCount = count
}

// ProposeBooking converts the wall clock to UTC, expands the recurrence and
// persists every occurrence only when none of them conflicts.
func (s *BookingService) ProposeBooking(ctx context.Context, params ProposeBookingParams) (result BookingResult, err error) {
	if s == nil {
		return BookingResult{}, fmt.Errorf("BookingService is nil")
	}

	ctx, span := startSpan(ctx, s.tracer, "BookingService.ProposeBooking",
		attribute.String("booking.timezone", params.Timezone),
		attribute.String("booking.recurrence", params.Recurrence),
	)
	logger := serviceLogger(ctx, s.logger, "booking", "propose", "host_id", params.HostID)
	defer func() {
		if err != nil {
			result.RejectedReason = err.Error()
		}
		endSpan(span, err)
		logOutcome(ctx, logger, err, "booking proposal",
			"accepted", len(result.Accepted),
			"series_id", result.SeriesID,
		)
	}()

	host := domain.NormalizeIdentity(params.HostID)
	if host == "" {
		host = domain.NormalizeEmail(params.HostEmail)
	}
	if host == "" {
		return BookingResult{}, ErrUnauthorized
	}

	rule, ruleCount, err := s.validateProposal(params)
	if err != nil {
		return BookingResult{}, err
	}

	zone := s.converter.NormalizeZone(ctx, params.Timezone)
	start, err := s.converter.ToUTC(ctx, params.Start, zone)
	if err != nil {
		return BookingResult{}, err
	}
	now := s.now().UTC()
	if start.Before(now) {
		return BookingResult{}, &domain.PastTimeError{StartUTC: start, Now: now}
	}
	end := start.Add(time.Duration(params.DurationMinutes) * time.Minute)

	count := params.Count
	if count == 0 {
		count = ruleCount
	}
	if count == 0 {
		count = s.defaultCount
	}
	occurrences, err := recurrence.NewEngine(s.converter.Location(ctx, zone)).Expand(start, end, rule, count)
	if err != nil {
		vErr := &ValidationError{}
		vErr.add("recurrence", err.Error())
		return BookingResult{}, vErr
	}
	span.SetAttributes(attribute.Int("booking.occurrences", len(occurrences)))

	template := domain.Session{
		HostID:          strings.TrimSpace(params.HostID),
		HostEmail:       domain.NormalizeEmail(params.HostEmail),
		Title:           strings.TrimSpace(params.Title),
		Skill:           strings.TrimSpace(params.Skill),
		Participants:    normalizeParticipants(params.Participants),
		DurationMinutes: params.DurationMinutes,
		Timezone:        zone,
		Recurrence:      rule,
		Status:          domain.StatusScheduled,
		MeetingStatus:   domain.MeetingNotStarted,
	}
	identities := template.Identities()

	existing, err := s.sessionsInvolving(ctx, identities)
	if err != nil {
		return BookingResult{}, err
	}
	if err := scheduler.CheckOccurrences(occurrences, identities, existing); err != nil {
		return BookingResult{}, err
	}

	if len(occurrences) > 1 {
		result.SeriesID = s.idGenerator()
	}
	candidates := make([]domain.Session, 0, len(occurrences))
	for _, occ := range occurrences {
		session := template.Clone()
		session.ID = s.idGenerator()
		session.SeriesID = result.SeriesID
		session.StartUTC = occ.Start
		session.EndUTC = occ.End
		session.CreatedAt = now
		session.UpdatedAt = now
		candidates = append(candidates, session)
	}

	var accepted []domain.Session
	if len(candidates) == 1 {
		created, createErr := s.sessions.CreateSession(ctx, candidates[0])
		if createErr != nil {
			return BookingResult{}, mapStoreError(createErr)
		}
		accepted = []domain.Session{created}
	} else {
		accepted, err = s.sessions.CreateSessions(ctx, candidates)
		if err != nil {
			return BookingResult{SeriesID: result.SeriesID}, mapStoreError(err)
		}
	}
	result.Accepted = accepted

	if rule != domain.RecurrenceNone {
		if text, rErr := recurrence.RRule(rule, occurrences[0].Start.In(s.converter.Location(ctx, zone)), len(occurrences)); rErr == nil {
			result.RRule = text
		}
	}

	for _, session := range accepted {
		s.publisher.Publish(ctx, realtime.SessionEvent(realtime.EventSessionCreated, session, now))
	}
	return result, nil
}

// CancelSession marks a session cancelled on behalf of its host. Live and
// finished meetings cannot be cancelled.
func (s *BookingService) CancelSession(ctx context.Context, sessionID, actorID string) (session domain.Session, err error) {
	if s == nil {
		return domain.Session{}, fmt.Errorf("BookingService is nil")
	}

	ctx, span := startSpan(ctx, s.tracer, "BookingService.CancelSession", attribute.String("session.id", sessionID))
	logger := serviceLogger(ctx, s.logger, "booking", "cancel", "session_id", sessionID, "actor_id", actorID)
	defer func() {
		endSpan(span, err)
		logOutcome(ctx, logger, err, "session cancel")
	}()

	current, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return domain.Session{}, mapStoreError(err)
	}
	if !current.IsHost(actorID) {
		return domain.Session{}, ErrUnauthorized
	}
	if reason := cancelBlocker(current); reason != "" {
		return domain.Session{}, &domain.InvalidTransitionError{Action: "cancel", From: current.MeetingStatus, Reason: reason}
	}

	now := s.now().UTC()
	cancelled, err := s.sessions.CancelSession(ctx, sessionID, now)
	if err != nil {
		if errors.Is(err, persistence.ErrStaleState) {
			return domain.Session{}, &domain.InvalidTransitionError{Action: "cancel", From: current.MeetingStatus, Reason: "session was changed concurrently"}
		}
		return domain.Session{}, mapStoreError(err)
	}

	s.publisher.Publish(ctx, realtime.SessionEvent(realtime.EventSessionDeleted, cancelled, now))
	return cancelled, nil
}

// FindAvailability lists candidate windows on one local day for the actor and
// the named participants.
func (s *BookingService) FindAvailability(ctx context.Context, params AvailabilityParams) (slots []domain.TimeSlot, err error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}

	ctx, span := startSpan(ctx, s.tracer, "BookingService.FindAvailability")
	logger := serviceLogger(ctx, s.logger, "booking", "availability", "actor_id", params.ActorID)
	defer func() {
		endSpan(span, err)
		logOutcome(ctx, logger, err, "availability search", "slots", len(slots))
	}()

	actor := domain.NormalizeIdentity(params.ActorID)
	if actor == "" {
		return nil, ErrUnauthorized
	}

	vErr := &ValidationError{}
	if params.DurationMinutes <= 0 {
		vErr.add("duration", "duration must be positive")
	}
	if params.StepMinutes < 0 {
		vErr.add("step", "step must not be negative")
	}
	day := time.Date(params.Year, time.Month(params.Month), params.Day, 0, 0, 0, 0, time.UTC)
	if params.Month < 1 || params.Month > 12 || params.Day < 1 || day.Day() != params.Day {
		vErr.add("date", "date is not a calendar date")
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	zone := s.converter.NormalizeZone(ctx, params.Timezone)
	loc := s.converter.Location(ctx, zone)
	from := time.Date(params.Year, time.Month(params.Month), params.Day, 0, 0, 0, 0, loc)
	to := from.AddDate(0, 0, 1)

	identities := uniqueIdentities(append([]string{actor}, params.Participants...))
	existing, err := s.sessionsInvolving(ctx, identities)
	if err != nil {
		return nil, err
	}

	slots, err = scheduler.FreeSlots(scheduler.SlotQuery{
		From:       from.UTC(),
		To:         to.UTC(),
		Duration:   time.Duration(params.DurationMinutes) * time.Minute,
		Step:       time.Duration(params.StepMinutes) * time.Minute,
		Timezone:   zone,
		Identities: identities,
		NotBefore:  s.now().UTC(),
	}, existing)
	if errors.Is(err, scheduler.ErrInvalidSlotWindow) {
		vErr.add("duration", "duration does not fit in the day")
		return nil, vErr
	}
	return slots, err
}

func (s *BookingService) validateProposal(params ProposeBookingParams) (domain.RecurrenceRule, int, error) {
	vErr := &ValidationError{}
	if params.DurationMinutes <= 0 {
		vErr.add("duration_minutes", "duration must be positive")
	}
	if len(params.Participants) == 0 {
		vErr.add("participants", "at least one participant is required")
	}
	for i, p := range params.Participants {
		field := fmt.Sprintf("participants[%d]", i)
		if p.Identity() == "" {
			vErr.add(field, "participant needs a user id or email")
			continue
		}
		if !p.Role.Valid() {
			vErr.add(field, fmt.Sprintf("unknown role %q", p.Role))
		}
	}
	if params.Count < 0 || params.Count > recurrence.MaxCount {
		vErr.add("count", fmt.Sprintf("count must be between 1 and %d", recurrence.MaxCount))
	}

	rule, ruleCount, err := recurrence.ParseRule(params.Recurrence)
	switch {
	case err != nil:
		vErr.add("recurrence", err.Error())
	case ruleCount > recurrence.MaxCount:
		vErr.add("recurrence", fmt.Sprintf("COUNT must be at most %d", recurrence.MaxCount))
	}
	if vErr.HasErrors() {
		return "", 0, vErr
	}
	return rule, ruleCount, nil
}

// sessionsInvolving gathers the stored sessions of every identity, deduplicated by ID.
func (s *BookingService) sessionsInvolving(ctx context.Context, identities []string) ([]domain.Session, error) {
	return collectSessions(ctx, s.sessions, identities)
}

func collectSessions(ctx context.Context, store SessionStore, identities []string) ([]domain.Session, error) {
	seen := make(map[string]struct{})
	var out []domain.Session
	for _, identity := range identities {
		sessions, err := store.ListSessionsInvolving(ctx, identity)
		if err != nil {
			return nil, mapStoreError(err)
		}
		for _, session := range sessions {
			if _, ok := seen[session.ID]; ok {
				continue
			}
			seen[session.ID] = struct{}{}
			out = append(out, session)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartUTC.Before(out[j].StartUTC)
	})
	return out, nil
}

func cancelBlocker(session domain.Session) string {
	switch {
	case session.Status == domain.StatusCancelled:
		return "session is already cancelled"
	case session.MeetingStatus == domain.MeetingLive:
		return "meeting is live"
	case session.MeetingStatus == domain.MeetingEnded, session.Status == domain.StatusCompleted:
		return "meeting has ended"
	}
	return ""
}

func normalizeParticipants(in []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, 0, len(in))
	for _, p := range in {
		out = append(out, domain.Participant{
			UserID: strings.TrimSpace(p.UserID),
			Email:  domain.NormalizeEmail(p.Email),
			Role:   p.Role,
		})
	}
	return out
}

func uniqueIdentities(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		id := domain.NormalizeIdentity(v)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
