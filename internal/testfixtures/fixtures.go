package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/persistence"
)

var (
	userCounter    uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic directory user.
type UserFixture struct {
	ID          string
	Email       string
	DisplayName string
	TimeZone    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := UserFixture{
		ID:          id,
		Email:       fmt.Sprintf("%s@example.com", id),
		DisplayName: fmt.Sprintf("User %03d", idx),
		TimeZone:    "UTC",
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserDisplayName overrides the generated display name.
func WithUserDisplayName(name string) UserOption {
	return func(f *UserFixture) {
		f.DisplayName = name
	}
}

// WithUserTimeZone sets the user's preferred display zone.
func WithUserTimeZone(zone string) UserOption {
	return func(f *UserFixture) {
		f.TimeZone = zone
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:          f.ID,
		Email:       f.Email,
		DisplayName: f.DisplayName,
		TimeZone:    f.TimeZone,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// ---------------------------- Session fixtures ----------------------------

// SessionFixture represents a deterministic booked session.
type SessionFixture struct {
	ID              string
	SeriesID        string
	HostID          string
	HostEmail       string
	Title           string
	Skill           string
	Participants    []domain.Participant
	StartUTC        time.Time
	DurationMinutes int
	Timezone        string
	Recurrence      domain.RecurrenceRule
	Status          domain.Status
	MeetingStatus   domain.MeetingStatus
	ActualStartUTC  *time.Time
	ActualEndUTC    *time.Time
	CreatedAt       time.Time
}

// SessionOption configures the generated session fixture.
type SessionOption func(*SessionFixture)

// NewSessionFixture returns a 30 minute scheduled session one day after the
// reference time, hosted by host-1 with learner-1 attending.
func NewSessionFixture(opts ...SessionOption) SessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	fixture := SessionFixture{
		ID:              fmt.Sprintf("session-%03d", idx),
		HostID:          "host-1",
		Title:           fmt.Sprintf("Session %03d", idx),
		Participants:    []domain.Participant{{UserID: "learner-1", Role: domain.RoleLearner}},
		StartUTC:        referenceTime.Add(24 * time.Hour),
		DurationMinutes: 30,
		Timezone:        "UTC",
		Recurrence:      domain.RecurrenceNone,
		Status:          domain.StatusScheduled,
		MeetingStatus:   domain.MeetingNotStarted,
		CreatedAt:       referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.ID = id
	}
}

// WithSeriesID links the session to a recurring series.
func WithSeriesID(id string) SessionOption {
	return func(f *SessionFixture) {
		f.SeriesID = id
	}
}

// WithHost overrides the host user ID.
func WithHost(hostID string) SessionOption {
	return func(f *SessionFixture) {
		f.HostID = hostID
	}
}

// WithParticipants replaces the participant list.
func WithParticipants(participants ...domain.Participant) SessionOption {
	return func(f *SessionFixture) {
		f.Participants = append([]domain.Participant(nil), participants...)
	}
}

// WithLearners replaces the participants with learners identified by user ID.
func WithLearners(userIDs ...string) SessionOption {
	return func(f *SessionFixture) {
		f.Participants = f.Participants[:0:0]
		for _, id := range userIDs {
			f.Participants = append(f.Participants, domain.Participant{UserID: id, Role: domain.RoleLearner})
		}
	}
}

// WithWindow sets the start instant and the duration in minutes.
func WithWindow(start time.Time, minutes int) SessionOption {
	return func(f *SessionFixture) {
		f.StartUTC = start.UTC()
		f.DurationMinutes = minutes
	}
}

// WithTimezone sets the zone the session was booked in.
func WithTimezone(zone string) SessionOption {
	return func(f *SessionFixture) {
		f.Timezone = zone
	}
}

// WithSkill sets the skill label.
func WithSkill(skill string) SessionOption {
	return func(f *SessionFixture) {
		f.Skill = skill
	}
}

// WithStatus sets the booking status.
func WithStatus(status domain.Status) SessionOption {
	return func(f *SessionFixture) {
		f.Status = status
	}
}

// WithMeetingStatus sets the meeting lifecycle status.
func WithMeetingStatus(status domain.MeetingStatus) SessionOption {
	return func(f *SessionFixture) {
		f.MeetingStatus = status
	}
}

// WithActualStart records when the meeting started.
func WithActualStart(t time.Time) SessionOption {
	return func(f *SessionFixture) {
		value := t.UTC()
		f.ActualStartUTC = &value
	}
}

// EndUTC is the scheduled end of the session.
func (f SessionFixture) EndUTC() time.Time {
	return f.StartUTC.Add(time.Duration(f.DurationMinutes) * time.Minute)
}

// Domain returns the fixture as a domain.Session.
func (f SessionFixture) Domain() domain.Session {
	return domain.Session{
		ID:              f.ID,
		SeriesID:        f.SeriesID,
		HostID:          f.HostID,
		HostEmail:       f.HostEmail,
		Title:           f.Title,
		Skill:           f.Skill,
		Participants:    append([]domain.Participant(nil), f.Participants...),
		StartUTC:        f.StartUTC,
		EndUTC:          f.EndUTC(),
		DurationMinutes: f.DurationMinutes,
		Timezone:        f.Timezone,
		Recurrence:      f.Recurrence,
		Status:          f.Status,
		MeetingStatus:   f.MeetingStatus,
		ActualStartUTC:  copyTimePtr(f.ActualStartUTC),
		ActualEndUTC:    copyTimePtr(f.ActualEndUTC),
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.CreatedAt,
	}
}

// Record returns the fixture as a persistence.SessionRecord.
func (f SessionFixture) Record() persistence.SessionRecord {
	session := f.Domain()
	participants := make([]persistence.ParticipantRecord, 0, len(session.Participants))
	for _, p := range session.Participants {
		participants = append(participants, persistence.ParticipantRecord{
			Identity: p.Identity(),
			UserID:   p.UserID,
			Email:    p.Email,
			Role:     string(p.Role),
		})
	}
	return persistence.SessionRecord{
		ID:              session.ID,
		SeriesID:        session.SeriesID,
		HostID:          session.HostID,
		HostEmail:       session.HostEmail,
		HostIdentity:    session.HostIdentity(),
		Title:           session.Title,
		Skill:           session.Skill,
		StartUTC:        session.StartUTC,
		EndUTC:          session.EndUTC,
		DurationMinutes: session.DurationMinutes,
		Timezone:        session.Timezone,
		Recurrence:      string(session.Recurrence),
		Status:          string(session.Status),
		MeetingStatus:   string(session.MeetingStatus),
		ActualStartUTC:  session.ActualStartUTC,
		ActualEndUTC:    session.ActualEndUTC,
		Participants:    participants,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	value := *t
	return &value
}
