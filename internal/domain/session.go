package domain

import (
	"strings"
	"time"
)

// Role tags a participant's part in a session.
type Role string

const (
	RoleLearner  Role = "learner"
	RoleMentor   Role = "mentor"
	RoleObserver Role = "observer"
)

// Valid reports whether the role is one of the known tags.
func (r Role) Valid() bool {
	switch r {
	case RoleLearner, RoleMentor, RoleObserver:
		return true
	}
	return false
}

// RecurrenceRule selects the cadence used to repeat a booking.
type RecurrenceRule string

const (
	RecurrenceNone    RecurrenceRule = "none"
	RecurrenceDaily   RecurrenceRule = "daily"
	RecurrenceWeekly  RecurrenceRule = "weekly"
	RecurrenceMonthly RecurrenceRule = "monthly"
)

// Valid reports whether the rule is supported.
func (r RecurrenceRule) Valid() bool {
	switch r {
	case RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly:
		return true
	}
	return false
}

// Status is the booking-level state of a session.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no-show"
)

// MeetingStatus is the run-time lifecycle of a session, independent of Status.
type MeetingStatus string

const (
	MeetingNotStarted MeetingStatus = "not-started"
	MeetingLive       MeetingStatus = "live"
	MeetingEnded      MeetingStatus = "ended"
)

// rank orders meeting states so callers can reject regressions.
func (m MeetingStatus) rank() int {
	switch m {
	case MeetingNotStarted, "":
		return 0
	case MeetingLive:
		return 1
	case MeetingEnded:
		return 2
	}
	return -1
}

// Precedes reports whether next is a forward move from m.
func (m MeetingStatus) Precedes(next MeetingStatus) bool {
	return m.rank() >= 0 && next.rank() > m.rank()
}

// Participant references an invitee either by resolved user ID or by a bare
// email placeholder.
type Participant struct {
	UserID string
	Email  string
	Role   Role
}

// Identity returns the identifier used for conflict checks and display lookups.
func (p Participant) Identity() string {
	if id := NormalizeIdentity(p.UserID); id != "" {
		return id
	}
	return NormalizeEmail(p.Email)
}

// Session is a booked time-boxed activity.
type Session struct {
	ID              string
	SeriesID        string
	HostID          string
	HostEmail       string
	Title           string
	Skill           string
	Participants    []Participant
	StartUTC        time.Time
	EndUTC          time.Time
	DurationMinutes int
	Timezone        string
	Recurrence      RecurrenceRule
	Status          Status
	MeetingStatus   MeetingStatus
	ActualStartUTC  *time.Time
	ActualEndUTC    *time.Time
	HostJoinedAtUTC *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HostIdentity returns the host's user ID, or the host email when the host is unresolved.
func (s Session) HostIdentity() string {
	if id := NormalizeIdentity(s.HostID); id != "" {
		return id
	}
	return NormalizeEmail(s.HostEmail)
}

// Identities returns the set of identities involved in the session, host included.
func (s Session) Identities() []string {
	out := make([]string, 0, len(s.Participants)+1)
	seen := make(map[string]struct{}, len(s.Participants)+1)
	add := func(identity string) {
		if identity == "" {
			return
		}
		if _, ok := seen[identity]; ok {
			return
		}
		seen[identity] = struct{}{}
		out = append(out, identity)
	}
	add(s.HostIdentity())
	for _, p := range s.Participants {
		add(p.Identity())
	}
	return out
}

// IsHost reports whether actorID identifies the session host.
func (s Session) IsHost(actorID string) bool {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return false
	}
	return NormalizeIdentity(actorID) == s.HostIdentity()
}

// Involves reports whether identity is the host or one of the participants.
func (s Session) Involves(identity string) bool {
	needle := NormalizeIdentity(identity)
	if needle == "" {
		return false
	}
	for _, id := range s.Identities() {
		if id == needle {
			return true
		}
	}
	return false
}

// Duration returns the scheduled length, preferring DurationMinutes when set.
func (s Session) Duration() time.Duration {
	if s.DurationMinutes > 0 {
		return time.Duration(s.DurationMinutes) * time.Minute
	}
	return s.EndUTC.Sub(s.StartUTC)
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	if s.Participants != nil {
		out.Participants = append([]Participant(nil), s.Participants...)
	}
	out.ActualStartUTC = cloneTime(s.ActualStartUTC)
	out.ActualEndUTC = cloneTime(s.ActualEndUTC)
	out.HostJoinedAtUTC = cloneTime(s.HostJoinedAtUTC)
	return out
}

// TimeSlot is an ephemeral availability window.
type TimeSlot struct {
	StartUTC  time.Time
	EndUTC    time.Time
	Timezone  string
	Available bool
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeIdentity trims an identity and lowercases it when it looks like an email.
func NormalizeIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if strings.Contains(identity, "@") {
		return strings.ToLower(identity)
	}
	return identity
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
