package calendar

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/session-scheduler/internal/domain"
)

const defaultProductID = "-//session-scheduler//calendar//EN"

// ICSOptions configures calendar export.
type ICSOptions struct {
	ProductID string
	Name      string
	Timezone  string
	Stamp     time.Time
}

// WriteICS serializes events as an iCalendar document with one VEVENT per
// event. Instants are written in UTC.
func WriteICS(w io.Writer, events []domain.CalendarEvent, opts ICSOptions) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	productID := opts.ProductID
	if productID == "" {
		productID = defaultProductID
	}
	cal.SetProductId(productID)
	if opts.Name != "" {
		cal.SetXWRCalName(opts.Name)
	}
	if opts.Timezone != "" {
		cal.SetXWRTimezone(opts.Timezone)
	}
	stamp := opts.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, event := range events {
		meta := event.Metadata
		vevent := cal.AddEvent(meta.SessionID)
		vevent.SetDtStampTime(stamp.UTC())
		vevent.SetStartAt(event.Start.UTC())
		vevent.SetEndAt(event.End.UTC())
		vevent.SetSummary(event.Title)
		if meta.Skill != "" {
			vevent.SetDescription(fmt.Sprintf("Skill: %s", meta.Skill))
		}
		vevent.SetProperty(ical.ComponentPropertyStatus, icsStatus(meta.Status))

		for _, attendee := range meta.Attendees {
			if attendee.IsHost {
				vevent.SetProperty(ical.ComponentPropertyOrganizer, calAddress(attendee.Identity), ical.WithCN(attendee.DisplayName))
				continue
			}
			vevent.AddProperty(ical.ComponentPropertyAttendee, calAddress(attendee.Identity), ical.WithCN(attendee.DisplayName))
		}

		vevent.SetProperty(ical.ComponentProperty("X-MEETING-STATUS"), string(meta.MeetingStatus))
		if meta.SeriesID != "" {
			vevent.SetProperty(ical.ComponentProperty("X-SERIES-ID"), meta.SeriesID)
		}
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("serialize calendar: %w", err)
	}
	return nil
}

func icsStatus(status domain.Status) string {
	switch status {
	case domain.StatusCancelled:
		return "CANCELLED"
	case domain.StatusNoShow:
		return "TENTATIVE"
	default:
		return "CONFIRMED"
	}
}

func calAddress(identity string) string {
	if strings.Contains(identity, "@") {
		return "mailto:" + identity
	}
	return "urn:x-user:" + identity
}
