package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/lifecycle"
)

type meetingService interface {
	StartMeeting(ctx context.Context, sessionID, actorID string) (domain.Session, error)
	EndMeeting(ctx context.Context, sessionID, actorID string) (domain.Session, error)
	GetJoinStatus(ctx context.Context, sessionID, actorID string, now time.Time) (lifecycle.JoinStatus, error)
}

// MeetingHandler serves the meeting lifecycle endpoints.
type MeetingHandler struct {
	service   meetingService
	responder responder
}

func NewMeetingHandler(service meetingService, logger *slog.Logger) *MeetingHandler {
	return &MeetingHandler{service: service, responder: newResponder(logger)}
}

// Start handles POST /sessions/{id}/start.
func (h *MeetingHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id, actor string) (domain.Session, error) {
		return h.service.StartMeeting(ctx, id, actor)
	})
}

// End handles POST /sessions/{id}/end.
func (h *MeetingHandler) End(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, id, actor string) (domain.Session, error) {
		return h.service.EndMeeting(ctx, id, actor)
	})
}

func (h *MeetingHandler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, actor string) (domain.Session, error)) {
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
	session, err := apply(r.Context(), sessionID, actor)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toSessionDTO(session))
}

// JoinStatus handles GET /sessions/{id}/join-status. An optional at query
// parameter (RFC 3339) evaluates eligibility at another instant.
func (h *MeetingHandler) JoinStatus(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	sessionID, ok := sessionIDParam(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgInvalidSessionID)
		return
	}

	var at time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeBadRequest, msgInvalidQuery, "at")
			return
		}
		at = parsed
	}

	actor, _ := ActorFromContext(r.Context())
	status, err := h.service.GetJoinStatus(r.Context(), sessionID, actor, at)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, joinStatusDTO{
		CanJoin:          status.CanJoin,
		Status:           string(status.Status),
		Message:          status.Message,
		ButtonText:       status.ButtonText,
		MinutesUntilOpen: status.MinutesUntilOpen,
		IsHost:           status.IsHost,
	})
}

type joinStatusDTO struct {
	CanJoin          bool   `json:"can_join"`
	Status           string `json:"status"`
	Message          string `json:"message"`
	ButtonText       string `json:"button_text"`
	MinutesUntilOpen int    `json:"minutes_until_open"`
	IsHost           bool   `json:"is_host"`
}
