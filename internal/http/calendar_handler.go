package http

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

type calendarService interface {
	Project(ctx context.Context, sessionID, actorID, zone string) (domain.CalendarEvent, error)
	ListCalendar(ctx context.Context, identity, zone string, from, to time.Time) ([]domain.CalendarEvent, error)
	ExportICS(ctx context.Context, w io.Writer, identity, zone string) error
}

// CalendarHandler serves projected calendar views of sessions.
type CalendarHandler struct {
	service     calendarService
	responder   responder
	logger      *slog.Logger
	defaultZone string
}

func NewCalendarHandler(service calendarService, defaultZone string, logger *slog.Logger) *CalendarHandler {
	if strings.TrimSpace(defaultZone) == "" {
		defaultZone = "UTC"
	}
	return &CalendarHandler{
		service:     service,
		responder:   newResponder(logger),
		logger:      defaultLogger(logger),
		defaultZone: defaultZone,
	}
}

// Event handles GET /sessions/{id}/event?tz=.
func (h *CalendarHandler) Event(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := sessionIDParam(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgInvalidSessionID)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	event, err := h.service.Project(r.Context(), sessionID, actor, zoneParam(r, h.defaultZone))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toCalendarEventDTO(event))
}

// List handles GET /calendar?tz=&from=&to= with RFC 3339 bounds.
func (h *CalendarHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	from, ok := timeParam(r, "from")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgInvalidQuery, "from")
		return
	}
	to, ok := timeParam(r, "to")
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgInvalidQuery, "to")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	events, err := h.service.ListCalendar(r.Context(), actor, zoneParam(r, h.defaultZone), from, to)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]calendarEventDTO, 0, len(events))
	for _, event := range events {
		out = append(out, toCalendarEventDTO(event))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendarResponse{Events: out})
}

// ICS handles GET /calendar.ics?tz= and returns an iCalendar feed of the
// actor's sessions.
func (h *CalendarHandler) ICS(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	var buf bytes.Buffer
	if err := h.service.ExportICS(r.Context(), &buf, actor, zoneParam(r, h.defaultZone)); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sessions.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		handlerLogger(r.Context(), h.logger, "GET /calendar.ics", "export").WarnContext(r.Context(), "failed to write calendar feed", "error", err)
	}
}

type calendarResponse struct {
	Events []calendarEventDTO `json:"events"`
}

func timeParam(r *http.Request, name string) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
