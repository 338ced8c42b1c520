package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/session-scheduler/internal/realtime"
)

// DefaultHeartbeat is the interval between SSE keep-alive comments.
const DefaultHeartbeat = 25 * time.Second

type eventSubscriber interface {
	Subscribe(identity string) *realtime.Subscription
}

// EventsHandler streams the actor's realtime session events as server-sent events.
type EventsHandler struct {
	hub       eventSubscriber
	responder responder
	logger    *slog.Logger
	heartbeat time.Duration
}

// NewEventsHandler wires the stream. A non-positive heartbeat uses
// DefaultHeartbeat.
func NewEventsHandler(hub eventSubscriber, heartbeat time.Duration, logger *slog.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return &EventsHandler{
		hub:       hub,
		responder: newResponder(logger),
		logger:    defaultLogger(logger),
		heartbeat: heartbeat,
	}
}

// Stream handles GET /events.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.hub == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, codeInternal, msgStreaming)
		return
	}

	ctx := r.Context()
	actor, _ := ActorFromContext(ctx)
	logger := handlerLogger(ctx, h.logger, "GET /events", "stream")

	// Streams outlive the server write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		logger.DebugContext(ctx, "write deadline not adjustable", "error", err)
	}

	sub := h.hub.Subscribe(actor)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger.InfoContext(ctx, "event stream opened")
	defer logger.InfoContext(ctx, "event stream closed")

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-sub.Events():
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				logger.ErrorContext(ctx, "failed to encode event", "event_type", string(ev.Type), "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
