package domain

import "time"

// Attendee is a participant label resolved for display.
type Attendee struct {
	Identity    string
	DisplayName string
	Role        Role
	IsHost      bool
}

// EventMetadata carries the session fields the lifecycle manager and clients need
// alongside a projected event. Absent timestamps are nil.
type EventMetadata struct {
	SessionID       string
	SeriesID        string
	HostID          string
	HostName        string
	Skill           string
	Status          Status
	MeetingStatus   MeetingStatus
	ActualStartUTC  *time.Time
	ActualEndUTC    *time.Time
	HostJoinedAtUTC *time.Time
	Attendees       []Attendee
}

// CalendarEvent is a read-only projection of a Session into a display timezone.
type CalendarEvent struct {
	Title    string
	Start    time.Time
	End      time.Time
	Timezone string
	Metadata EventMetadata
}
