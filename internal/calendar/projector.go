package calendar

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/timezone"
)

// DisplayNameResolver looks up a human readable label for a user ID or email.
// Implementations return "" when nothing is known.
type DisplayNameResolver interface {
	ResolveDisplayName(ctx context.Context, idOrEmail string) string
}

// Projector renders sessions into a display timezone. It never caches, so
// callers re-project whenever the zone or the session changes.
type Projector struct {
	converter *timezone.Converter
	resolver  DisplayNameResolver
}

// NewProjector wires a Projector. resolver may be nil, in which case raw
// identities are used as labels.
func NewProjector(converter *timezone.Converter, resolver DisplayNameResolver) *Projector {
	if converter == nil {
		converter = timezone.NewConverter(nil)
	}
	return &Projector{converter: converter, resolver: resolver}
}

// Project maps a session into a CalendarEvent localized to displayZone.
func (p *Projector) Project(ctx context.Context, session domain.Session, displayZone string) domain.CalendarEvent {
	zone := p.converter.NormalizeZone(ctx, displayZone)

	hostIdentity := session.HostIdentity()
	hostName := p.displayName(ctx, hostIdentity)

	attendees := make([]domain.Attendee, 0, len(session.Participants)+1)
	attendees = append(attendees, domain.Attendee{
		Identity:    hostIdentity,
		DisplayName: hostName,
		IsHost:      true,
	})
	for _, participant := range session.Participants {
		identity := participant.Identity()
		if identity == "" || identity == hostIdentity {
			continue
		}
		attendees = append(attendees, domain.Attendee{
			Identity:    identity,
			DisplayName: p.displayName(ctx, identity),
			Role:        participant.Role,
		})
	}

	clone := session.Clone()
	return domain.CalendarEvent{
		Title:    eventTitle(session, hostName),
		Start:    p.converter.FromUTC(ctx, session.StartUTC, zone),
		End:      p.converter.FromUTC(ctx, session.EndUTC, zone),
		Timezone: zone,
		Metadata: domain.EventMetadata{
			SessionID:       session.ID,
			SeriesID:        session.SeriesID,
			HostID:          hostIdentity,
			HostName:        hostName,
			Skill:           session.Skill,
			Status:          session.Status,
			MeetingStatus:   meetingStatus(session.MeetingStatus),
			ActualStartUTC:  clone.ActualStartUTC,
			ActualEndUTC:    clone.ActualEndUTC,
			HostJoinedAtUTC: clone.HostJoinedAtUTC,
			Attendees:       attendees,
		},
	}
}

// ProjectAll projects each session and orders the events by start then ID.
func (p *Projector) ProjectAll(ctx context.Context, sessions []domain.Session, displayZone string) []domain.CalendarEvent {
	events := make([]domain.CalendarEvent, 0, len(sessions))
	for _, session := range sessions {
		events = append(events, p.Project(ctx, session, displayZone))
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Start.Equal(events[j].Start) {
			return events[i].Start.Before(events[j].Start)
		}
		return events[i].Metadata.SessionID < events[j].Metadata.SessionID
	})
	return events
}

func (p *Projector) displayName(ctx context.Context, identity string) string {
	if identity == "" {
		return ""
	}
	if p.resolver != nil {
		if name := strings.TrimSpace(p.resolver.ResolveDisplayName(ctx, identity)); name != "" {
			return name
		}
	}
	return identity
}

func eventTitle(session domain.Session, hostName string) string {
	if title := strings.TrimSpace(session.Title); title != "" {
		return title
	}
	if session.Skill != "" {
		return session.Skill + " with " + hostName
	}
	return "Session with " + hostName
}

func meetingStatus(status domain.MeetingStatus) domain.MeetingStatus {
	if status == "" {
		return domain.MeetingNotStarted
	}
	return status
}

// Window reports whether the event intersects [from,to). Zero bounds are open.
func Window(event domain.CalendarEvent, from, to time.Time) bool {
	if !from.IsZero() && !event.End.After(from) {
		return false
	}
	if !to.IsZero() && !event.Start.Before(to) {
		return false
	}
	return true
}
