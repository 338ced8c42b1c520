package application

import (
	"context"
	"time"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/realtime"
)

// SessionStore captures the persistence interactions needed by the services.
type SessionStore interface {
	ListSessionsInvolving(ctx context.Context, identity string) ([]domain.Session, error)
	CreateSession(ctx context.Context, session domain.Session) (domain.Session, error)
	// CreateSessions stores the batch atomically, failing when any session
	// overlaps a stored one for a shared identity.
	CreateSessions(ctx context.Context, sessions []domain.Session) ([]domain.Session, error)
	GetSession(ctx context.Context, id string) (domain.Session, error)
	UpdateMeetingStatus(ctx context.Context, id string, update MeetingUpdate) (domain.Session, error)
	CancelSession(ctx context.Context, id string, at time.Time) (domain.Session, error)
	ListSessionsBetween(ctx context.Context, from, to time.Time) ([]domain.Session, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.Status, at time.Time) (domain.Session, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}

// MeetingUpdate carries the result of a lifecycle transition. The store applies
// it only while the stored meeting status still equals Expected.
type MeetingUpdate struct {
	Expected domain.MeetingStatus
	Session  domain.Session
}

// UserDirectory resolves identities to display names. An empty result means unknown.
type UserDirectory interface {
	ResolveDisplayName(ctx context.Context, idOrEmail string) string
}

// Publisher delivers realtime events. Implementations must not block.
type Publisher interface {
	Publish(ctx context.Context, event realtime.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, realtime.Event) {}

func publisherOrNop(p Publisher) Publisher {
	if p == nil {
		return nopPublisher{}
	}
	return p
}
