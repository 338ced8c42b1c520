package persistence

import (
	"context"
	"time"
)

// UserRepository stores the directory users that display names and home
// zones are resolved from.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// SessionRepository stores booked sessions and their participants.
type SessionRepository interface {
	// CreateSessions inserts the batch atomically. It fails with an *OverlapError
	// when any record overlaps a stored, non-cancelled session sharing an identity.
	CreateSessions(ctx context.Context, sessions []SessionRecord) error
	GetSession(ctx context.Context, id string) (SessionRecord, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]SessionRecord, error)
	UpdateMeeting(ctx context.Context, id string, update MeetingUpdate) (SessionRecord, error)
	// UpdateStatus moves the booking status from one value to another, failing
	// with ErrStaleState when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id, from, to string, at time.Time) (SessionRecord, error)
	CancelSession(ctx context.Context, id string, at time.Time) (SessionRecord, error)
	// MarkReminderSent stamps the reminder time once; a second call returns ErrStaleState.
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
}
