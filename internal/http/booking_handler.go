package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/timezone"
)

type bookingService interface {
	ProposeBooking(ctx context.Context, params application.ProposeBookingParams) (application.BookingResult, error)
	CancelSession(ctx context.Context, sessionID, actorID string) (domain.Session, error)
	FindAvailability(ctx context.Context, params application.AvailabilityParams) ([]domain.TimeSlot, error)
}

// BookingHandler serves booking proposals, cancellations and availability searches.
type BookingHandler struct {
	service     bookingService
	responder   responder
	logger      *slog.Logger
	defaultZone string
}

// NewBookingHandler builds a handler. defaultZone applies when a request names no timezone.
func NewBookingHandler(service bookingService, defaultZone string, logger *slog.Logger) *BookingHandler {
	if strings.TrimSpace(defaultZone) == "" {
		defaultZone = "UTC"
	}
	return &BookingHandler{
		service:     service,
		responder:   newResponder(logger),
		logger:      defaultLogger(logger),
		defaultZone: defaultZone,
	}
}

// Propose handles POST /bookings.
func (h *BookingHandler) Propose(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgBadRequest)
		return
	}

	actor, _ := ActorFromContext(r.Context())
	params := req.toParams(actor, h.defaultZone)
	logger := handlerLogger(r.Context(), h.logger, "POST /bookings", "propose", "timezone", params.Timezone)

	result, err := h.service.ProposeBooking(r.Context(), params)
	if err != nil {
		logger.DebugContext(r.Context(), "proposal refused", "reason", result.RejectedReason)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingResponse{
		Sessions: toSessionDTOs(result.Accepted),
		SeriesID: result.SeriesID,
		RRule:    result.RRule,
	})
}

// Cancel handles DELETE /sessions/{id}.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
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
	session, err := h.service.CancelSession(r.Context(), sessionID, actor)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// Availability handles GET /availability?date=YYYY-MM-DD&tz=&duration=&step=&participants=a,b.
func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(query.Get("date")))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgInvalidQuery, "date")
		return
	}
	duration, ok := intParam(query.Get("duration"), 0)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgInvalidQuery, "duration")
		return
	}
	step, ok := intParam(query.Get("step"), 0)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgInvalidQuery, "step")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	slots, err := h.service.FindAvailability(r.Context(), application.AvailabilityParams{
		ActorID:         actor,
		Year:            day.Year(),
		Month:           int(day.Month()),
		Day:             day.Day(),
		Timezone:        zoneParam(r, h.defaultZone),
		DurationMinutes: duration,
		StepMinutes:     step,
		Participants:    splitList(query.Get("participants")),
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]timeSlotDTO, 0, len(slots))
	for _, slot := range slots {
		out = append(out, toTimeSlotDTO(slot))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{Slots: out})
}

type wallClockDTO struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Day    int    `json:"day"`
	Hour   int    `json:"hour"`
	Minute int    `json:"minute"`
	AMPM   string `json:"ampm"`
}

type bookingRequest struct {
	HostEmail       string           `json:"host_email"`
	Title           string           `json:"title"`
	Skill           string           `json:"skill"`
	Start           wallClockDTO     `json:"start"`
	Timezone        string           `json:"timezone"`
	DurationMinutes int              `json:"duration_minutes"`
	Participants    []participantDTO `json:"participants"`
	Recurrence      string           `json:"recurrence"`
	Count           int              `json:"count"`
}

func (req bookingRequest) toParams(hostID, defaultZone string) application.ProposeBookingParams {
	participants := make([]domain.Participant, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, p.toDomain())
	}
	zone := strings.TrimSpace(req.Timezone)
	if zone == "" {
		zone = defaultZone
	}
	return application.ProposeBookingParams{
		HostID:    hostID,
		HostEmail: strings.TrimSpace(req.HostEmail),
		Title:     strings.TrimSpace(req.Title),
		Skill:     strings.TrimSpace(req.Skill),
		Start: timezone.WallClock{
			Year:   req.Start.Year,
			Month:  req.Start.Month,
			Day:    req.Start.Day,
			Hour12: req.Start.Hour,
			Minute: req.Start.Minute,
			AMPM:   req.Start.AMPM,
		},
		Timezone:        zone,
		DurationMinutes: req.DurationMinutes,
		Participants:    participants,
		Recurrence:      strings.TrimSpace(req.Recurrence),
		Count:           req.Count,
	}
}

type bookingResponse struct {
	Sessions []sessionDTO `json:"sessions"`
	SeriesID string       `json:"series_id,omitempty"`
	RRule    string       `json:"rrule,omitempty"`
}

type availabilityResponse struct {
	Slots []timeSlotDTO `json:"slots"`
}

func sessionIDParam(r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	return id, id != ""
}

// zoneParam reads the tz query parameter, falling back to fallback.
func zoneParam(r *http.Request, fallback string) string {
	if zone := strings.TrimSpace(r.URL.Query().Get("tz")); zone != "" {
		return zone
	}
	return fallback
}

func intParam(raw string, fallback int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
