package persistence

import "time"

// User is a directory entry used to resolve display names.
type User struct {
	ID          string
	Email       string
	DisplayName string
	TimeZone    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ParticipantRecord is one invitee row of a session.
type ParticipantRecord struct {
	// Identity is the normalized user ID, or the lowercased email when unresolved.
	Identity string
	UserID   string
	Email    string
	Role     string
}

// SessionRecord is the stored form of a booked session.
type SessionRecord struct {
	ID              string
	SeriesID        string
	HostID          string
	HostEmail       string
	HostIdentity    string
	Title           string
	Skill           string
	StartUTC        time.Time
	EndUTC          time.Time
	DurationMinutes int
	Timezone        string
	Recurrence      string
	Status          string
	MeetingStatus   string
	ActualStartUTC  *time.Time
	ActualEndUTC    *time.Time
	HostJoinedAtUTC *time.Time
	ReminderSentAt  *time.Time
	Participants    []ParticipantRecord
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identities returns the host identity followed by participant identities.
func (r SessionRecord) Identities() []string {
	out := make([]string, 0, len(r.Participants)+1)
	seen := make(map[string]struct{}, len(r.Participants)+1)
	for _, id := range append([]string{r.HostIdentity}, participantIdentities(r.Participants)...) {
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

func participantIdentities(participants []ParticipantRecord) []string {
	out := make([]string, 0, len(participants))
	for _, p := range participants {
		out = append(out, p.Identity)
	}
	return out
}

// MeetingUpdate is a compare-and-swap write of the meeting lifecycle columns.
// The update applies only while the stored meeting status equals ExpectedMeetingStatus.
type MeetingUpdate struct {
	ExpectedMeetingStatus string
	MeetingStatus         string
	Status                string
	ActualStartUTC        *time.Time
	ActualEndUTC          *time.Time
	HostJoinedAtUTC       *time.Time
	UpdatedAt             time.Time
}

// SessionFilter narrows session queries. From and To select sessions whose
// window overlaps [From, To).
type SessionFilter struct {
	Identity string
	From     *time.Time
	To       *time.Time
	Statuses []string
}
