package http

import (
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

type participantDTO struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

func (p participantDTO) toDomain() domain.Participant {
	return domain.Participant{UserID: p.UserID, Email: p.Email, Role: domain.Role(p.Role)}
}

type sessionDTO struct {
	ID              string           `json:"id"`
	SeriesID        string           `json:"series_id,omitempty"`
	HostID          string           `json:"host_id"`
	HostEmail       string           `json:"host_email,omitempty"`
	Title           string           `json:"title,omitempty"`
	Skill           string           `json:"skill,omitempty"`
	Participants    []participantDTO `json:"participants"`
	StartUTC        time.Time        `json:"start_utc"`
	EndUTC          time.Time        `json:"end_utc"`
	DurationMinutes int              `json:"duration_minutes"`
	Timezone        string           `json:"timezone"`
	Recurrence      string           `json:"recurrence"`
	Status          string           `json:"status"`
	MeetingStatus   string           `json:"meeting_status"`
	ActualStartUTC  *time.Time       `json:"actual_start_utc,omitempty"`
	ActualEndUTC    *time.Time       `json:"actual_end_utc,omitempty"`
	HostJoinedAtUTC *time.Time       `json:"host_joined_at_utc,omitempty"`
}

func toSessionDTO(session domain.Session) sessionDTO {
	participants := make([]participantDTO, 0, len(session.Participants))
	for _, p := range session.Participants {
		participants = append(participants, participantDTO{UserID: p.UserID, Email: p.Email, Role: string(p.Role)})
	}
	return sessionDTO{
		ID:              session.ID,
		SeriesID:        session.SeriesID,
		HostID:          session.HostID,
		HostEmail:       session.HostEmail,
		Title:           session.Title,
		Skill:           session.Skill,
		Participants:    participants,
		StartUTC:        session.StartUTC.UTC(),
		EndUTC:          session.EndUTC.UTC(),
		DurationMinutes: session.DurationMinutes,
		Timezone:        session.Timezone,
		Recurrence:      string(session.Recurrence),
		Status:          string(session.Status),
		MeetingStatus:   string(session.MeetingStatus),
		ActualStartUTC:  session.ActualStartUTC,
		ActualEndUTC:    session.ActualEndUTC,
		HostJoinedAtUTC: session.HostJoinedAtUTC,
	}
}

func toSessionDTOs(sessions []domain.Session) []sessionDTO {
	out := make([]sessionDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionDTO(s))
	}
	return out
}

type attendeeDTO struct {
	Identity    string `json:"identity"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	IsHost      bool   `json:"is_host,omitempty"`
}

type eventMetadataDTO struct {
	SessionID       string        `json:"session_id"`
	SeriesID        string        `json:"series_id,omitempty"`
	HostID          string        `json:"host_id"`
	HostName        string        `json:"host_name"`
	Skill           string        `json:"skill,omitempty"`
	Status          string        `json:"status"`
	MeetingStatus   string        `json:"meeting_status"`
	ActualStartUTC  *time.Time    `json:"actual_start_utc,omitempty"`
	ActualEndUTC    *time.Time    `json:"actual_end_utc,omitempty"`
	HostJoinedAtUTC *time.Time    `json:"host_joined_at_utc,omitempty"`
	Attendees       []attendeeDTO `json:"attendees"`
}

// calendarEventDTO carries start and end as RFC 3339 with the display zone's offset.
type calendarEventDTO struct {
	Title    string           `json:"title"`
	Start    string           `json:"start"`
	End      string           `json:"end"`
	Timezone string           `json:"timezone"`
	Metadata eventMetadataDTO `json:"metadata"`
}

func toCalendarEventDTO(event domain.CalendarEvent) calendarEventDTO {
	attendees := make([]attendeeDTO, 0, len(event.Metadata.Attendees))
	for _, a := range event.Metadata.Attendees {
		attendees = append(attendees, attendeeDTO{
			Identity:    a.Identity,
			DisplayName: a.DisplayName,
			Role:        string(a.Role),
			IsHost:      a.IsHost,
		})
	}
	meta := event.Metadata
	return calendarEventDTO{
		Title:    event.Title,
		Start:    event.Start.Format(time.RFC3339),
		End:      event.End.Format(time.RFC3339),
		Timezone: event.Timezone,
		Metadata: eventMetadataDTO{
			SessionID:       meta.SessionID,
			SeriesID:        meta.SeriesID,
			HostID:          meta.HostID,
			HostName:        meta.HostName,
			Skill:           meta.Skill,
			Status:          string(meta.Status),
			MeetingStatus:   string(meta.MeetingStatus),
			ActualStartUTC:  meta.ActualStartUTC,
			ActualEndUTC:    meta.ActualEndUTC,
			HostJoinedAtUTC: meta.HostJoinedAtUTC,
			Attendees:       attendees,
		},
	}
}

type timeSlotDTO struct {
	StartUTC  time.Time `json:"start_utc"`
	EndUTC    time.Time `json:"end_utc"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
	Timezone  string    `json:"timezone"`
	Available bool      `json:"available"`
}

func toTimeSlotDTO(slot domain.TimeSlot) timeSlotDTO {
	start, end := slot.StartUTC, slot.EndUTC
	if loc, err := time.LoadLocation(slot.Timezone); err == nil {
		start, end = start.In(loc), end.In(loc)
	}
	return timeSlotDTO{
		StartUTC:  slot.StartUTC.UTC(),
		EndUTC:    slot.EndUTC.UTC(),
		Start:     start.Format(time.RFC3339),
		End:       end.Format(time.RFC3339),
		Timezone:  slot.Timezone,
		Available: slot.Available,
	}
}
