package realtime

import (
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

// SessionPayload is the wire form of a session carried by events.
type SessionPayload struct {
	ID             string     `json:"id"`
	SeriesID       string     `json:"series_id,omitempty"`
	HostID         string     `json:"host_id"`
	Title          string     `json:"title,omitempty"`
	StartUTC       time.Time  `json:"start_utc"`
	EndUTC         time.Time  `json:"end_utc"`
	Timezone       string     `json:"timezone"`
	Status         string     `json:"status"`
	MeetingStatus  string     `json:"meeting_status"`
	ActualStartUTC *time.Time `json:"actual_start_utc,omitempty"`
	ActualEndUTC   *time.Time `json:"actual_end_utc,omitempty"`
}

// NewSessionPayload copies the fields clients render from a session.
func NewSessionPayload(session domain.Session) SessionPayload {
	return SessionPayload{
		ID:             session.ID,
		SeriesID:       session.SeriesID,
		HostID:         session.HostIdentity(),
		Title:          session.Title,
		StartUTC:       session.StartUTC.UTC(),
		EndUTC:         session.EndUTC.UTC(),
		Timezone:       session.Timezone,
		Status:         string(session.Status),
		MeetingStatus:  string(session.MeetingStatus),
		ActualStartUTC: session.ActualStartUTC,
		ActualEndUTC:   session.ActualEndUTC,
	}
}

// SessionEvent builds an event addressed to everyone involved in session.
func SessionEvent(eventType EventType, session domain.Session, at time.Time) Event {
	return Event{
		Type:       eventType,
		SessionID:  session.ID,
		Audience:   session.Identities(),
		Payload:    NewSessionPayload(session),
		OccurredAt: at,
	}
}
