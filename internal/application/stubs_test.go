package application

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/realtime"
)

type sessionStoreStub struct {
	sessions  []domain.Session
	created   []domain.Session
	updated   []MeetingUpdate
	err       error
	createErr error
	updateErr error
	listCalls []string
}

func (s *sessionStoreStub) ListSessionsInvolving(ctx context.Context, identity string) ([]domain.Session, error) {
	s.listCalls = append(s.listCalls, identity)
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.Session
	for _, session := range s.sessions {
		if session.Involves(identity) {
			out = append(out, session.Clone())
		}
	}
	return out, nil
}

func (s *sessionStoreStub) CreateSession(ctx context.Context, session domain.Session) (domain.Session, error) {
	created, err := s.CreateSessions(ctx, []domain.Session{session})
	if err != nil {
		return domain.Session{}, err
	}
	return created[0], nil
}

func (s *sessionStoreStub) CreateSessions(ctx context.Context, sessions []domain.Session) ([]domain.Session, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	for _, session := range sessions {
		s.created = append(s.created, session.Clone())
		s.sessions = append(s.sessions, session.Clone())
	}
	return sessions, nil
}

func (s *sessionStoreStub) GetSession(ctx context.Context, id string) (domain.Session, error) {
	if s.err != nil {
		return domain.Session{}, s.err
	}
	for _, session := range s.sessions {
		if session.ID == id {
			return session.Clone(), nil
		}
	}
	return domain.Session{}, persistence.ErrNotFound
}

func (s *sessionStoreStub) UpdateMeetingStatus(ctx context.Context, id string, update MeetingUpdate) (domain.Session, error) {
	if s.updateErr != nil {
		return domain.Session{}, s.updateErr
	}
	s.updated = append(s.updated, update)
	for i, session := range s.sessions {
		if session.ID != id {
			continue
		}
		if session.MeetingStatus != update.Expected {
			return domain.Session{}, persistence.ErrStaleState
		}
		s.sessions[i] = update.Session.Clone()
		return update.Session, nil
	}
	return domain.Session{}, persistence.ErrNotFound
}

func (s *sessionStoreStub) CancelSession(ctx context.Context, id string, at time.Time) (domain.Session, error) {
	if s.updateErr != nil {
		return domain.Session{}, s.updateErr
	}
	for i, session := range s.sessions {
		if session.ID == id {
			s.sessions[i].Status = domain.StatusCancelled
			s.sessions[i].UpdatedAt = at
			return s.sessions[i].Clone(), nil
		}
	}
	return domain.Session{}, persistence.ErrNotFound
}

func (s *sessionStoreStub) ListSessionsBetween(ctx context.Context, from, to time.Time) ([]domain.Session, error) {
	return nil, nil
}

func (s *sessionStoreStub) UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (domain.Session, error) {
	return domain.Session{}, nil
}

func (s *sessionStoreStub) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	return nil
}

type publisherStub struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *publisherStub) Publish(ctx context.Context, event realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *publisherStub) types() []realtime.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]realtime.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}

type directoryStub map[string]string

func (d directoryStub) ResolveDisplayName(ctx context.Context, idOrEmail string) string {
	return d[idOrEmail]
}

func sequentialIDs(prefix string) func() string {
	var n int
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
