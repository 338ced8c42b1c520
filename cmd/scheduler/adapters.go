package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/logging"
	"github.com/example/session-scheduler/internal/persistence"
)

// sessionStoreAdapter exposes a persistence.SessionRepository as the
// application.SessionStore consumed by the services and the sweeper.
type sessionStoreAdapter struct {
	repo persistence.SessionRepository
	now  func() time.Time
}

func newSessionStoreAdapter(repo persistence.SessionRepository, now func() time.Time) *sessionStoreAdapter {
	if now == nil {
		now = time.Now
	}
	return &sessionStoreAdapter{repo: repo, now: now}
}

func (a *sessionStoreAdapter) ListSessionsInvolving(ctx context.Context, identity string) ([]domain.Session, error) {
	records, err := a.repo.ListSessions(ctx, persistence.SessionFilter{Identity: domain.NormalizeIdentity(identity)})
	if err != nil {
		return nil, err
	}
	return toDomainSessions(records), nil
}

func (a *sessionStoreAdapter) CreateSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	created, err := a.CreateSessions(ctx, []domain.Session{session})
	if err != nil {
		return domain.Session{}, err
	}
	return created[0], nil
}

func (a *sessionStoreAdapter) CreateSessions(ctx context.Context, sessions []domain.Session) ([]domain.Session, error) {
	stamp := a.now().UTC()
	records := make([]persistence.SessionRecord, 0, len(sessions))
	for _, session := range sessions {
		if session.CreatedAt.IsZero() {
			session.CreatedAt = stamp
		}
		if session.UpdatedAt.IsZero() {
			session.UpdatedAt = session.CreatedAt
		}
		records = append(records, toSessionRecord(session))
	}
	if err := a.repo.CreateSessions(ctx, records); err != nil {
		return nil, err
	}
	return toDomainSessions(records), nil
}

func (a *sessionStoreAdapter) GetSession(ctx context.Context, id string) (domain.Session, error) {
	record, err := a.repo.GetSession(ctx, id)
	if err != nil {
		return domain.Session{}, err
	}
	return toDomainSession(record), nil
}

func (a *sessionStoreAdapter) UpdateMeetingStatus(ctx context.Context, id string, update application.MeetingUpdate) (domain.Session, error) {
	next := update.Session
	record, err := a.repo.UpdateMeeting(ctx, id, persistence.MeetingUpdate{
		ExpectedMeetingStatus: string(update.Expected),
		MeetingStatus:         string(next.MeetingStatus),
		Status:                string(next.Status),
		ActualStartUTC:        next.ActualStartUTC,
		ActualEndUTC:          next.ActualEndUTC,
		HostJoinedAtUTC:       next.HostJoinedAtUTC,
		UpdatedAt:             a.now().UTC(),
	})
	if err != nil {
		return domain.Session{}, err
	}
	return toDomainSession(record), nil
}

func (a *sessionStoreAdapter) CancelSession(ctx context.Context, id string, at time.Time) (domain.Session, error) {
	record, err := a.repo.CancelSession(ctx, id, at)
	if err != nil {
		return domain.Session{}, err
	}
	return toDomainSession(record), nil
}

func (a *sessionStoreAdapter) ListSessionsBetween(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	from, to = from.UTC(), to.UTC()
	records, err := a.repo.ListSessions(ctx, persistence.SessionFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	return toDomainSessions(records), nil
}

func (a *sessionStoreAdapter) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (domain.Session, error) {
	record, err := a.repo.UpdateStatus(ctx, id, string(from), string(to), at)
	if err != nil {
		return domain.Session{}, err
	}
	return toDomainSession(record), nil
}

func (a *sessionStoreAdapter) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	return a.repo.MarkReminderSent(ctx, id, at)
}

// userDirectoryAdapter resolves display names from the user table by ID, then email.
type userDirectoryAdapter struct {
	repo   persistence.UserRepository
	logger *slog.Logger
}

func newUserDirectoryAdapter(repo persistence.UserRepository, logger *slog.Logger) *userDirectoryAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &userDirectoryAdapter{repo: repo, logger: logger}
}

func (a *userDirectoryAdapter) ResolveDisplayName(ctx context.Context, idOrEmail string) string {
	key := strings.TrimSpace(idOrEmail)
	if key == "" {
		return ""
	}

	var (
		user persistence.User
		err  error
	)
	if strings.Contains(key, "@") {
		user, err = a.repo.GetUserByEmail(ctx, key)
	} else {
		user, err = a.repo.GetUser(ctx, key)
	}
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			logging.FromContextOr(ctx, a.logger).WarnContext(ctx, "display name lookup failed", "identity", key, "error", err)
		}
		return ""
	}
	return strings.TrimSpace(user.DisplayName)
}

func toSessionRecord(session domain.Session) persistence.SessionRecord {
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
		StartUTC:        session.StartUTC.UTC(),
		EndUTC:          session.EndUTC.UTC(),
		DurationMinutes: session.DurationMinutes,
		Timezone:        session.Timezone,
		Recurrence:      string(session.Recurrence),
		Status:          string(session.Status),
		MeetingStatus:   string(session.MeetingStatus),
		ActualStartUTC:  cloneTime(session.ActualStartUTC),
		ActualEndUTC:    cloneTime(session.ActualEndUTC),
		HostJoinedAtUTC: cloneTime(session.HostJoinedAtUTC),
		Participants:    participants,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func toDomainSession(record persistence.SessionRecord) domain.Session {
	participants := make([]domain.Participant, 0, len(record.Participants))
	for _, p := range record.Participants {
		participants = append(participants, domain.Participant{UserID: p.UserID, Email: p.Email, Role: domain.Role(p.Role)})
	}
	return domain.Session{
		ID:              record.ID,
		SeriesID:        record.SeriesID,
		HostID:          record.HostID,
		HostEmail:       record.HostEmail,
		Title:           record.Title,
		Skill:           record.Skill,
		Participants:    participants,
		StartUTC:        record.StartUTC.UTC(),
		EndUTC:          record.EndUTC.UTC(),
		DurationMinutes: record.DurationMinutes,
		Timezone:        record.Timezone,
		Recurrence:      domain.RecurrenceRule(record.Recurrence),
		Status:          domain.Status(record.Status),
		MeetingStatus:   domain.MeetingStatus(record.MeetingStatus),
		ActualStartUTC:  cloneTime(record.ActualStartUTC),
		ActualEndUTC:    cloneTime(record.ActualEndUTC),
		HostJoinedAtUTC: cloneTime(record.HostJoinedAtUTC),
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

func toDomainSessions(records []persistence.SessionRecord) []domain.Session {
	out := make([]domain.Session, 0, len(records))
	for _, record := range records {
		out = append(out, toDomainSession(record))
	}
	return out
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := value.UTC()
	return &copied
}
