package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/message/catalog"
)

// RouterConfig wires handlers into the API. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	Bookings *BookingHandler
	Meetings *MeetingHandler
	Calendar *CalendarHandler
	Events   *EventsHandler
	// Health reports readiness for GET /healthz; nil always reports healthy.
	Health     func(ctx context.Context) error
	Logger     *slog.Logger
	Catalog    catalog.Catalog
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) (http.Handler, error) {
	logger := defaultLogger(cfg.Logger)
	cat := cfg.Catalog
	if cat == nil {
		built, err := newCatalog()
		if err != nil {
			return nil, err
		}
		cat = built
	}
	responder := newResponder(logger)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(Localize(cat))
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusNotFound, codeNotFound, msgNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(req.Context()); err != nil {
				responder.loggerFor(req.Context()).WarnContext(req.Context(), "health check failed", "error", err)
				responder.writeJSON(req.Context(), w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		responder.writeJSON(req.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireActor(logger))

		if cfg.Bookings != nil {
			r.Post("/bookings", cfg.Bookings.Propose)
			r.Get("/availability", cfg.Bookings.Availability)
			r.Delete("/sessions/{id}", cfg.Bookings.Cancel)
		}
		if cfg.Meetings != nil {
			r.Post("/sessions/{id}/start", cfg.Meetings.Start)
			r.Post("/sessions/{id}/end", cfg.Meetings.End)
			r.Get("/sessions/{id}/join-status", cfg.Meetings.JoinStatus)
		}
		if cfg.Calendar != nil {
			r.Get("/sessions/{id}/event", cfg.Calendar.Event)
			r.Get("/calendar", cfg.Calendar.List)
			r.Get("/calendar.ics", cfg.Calendar.ICS)
		}
		if cfg.Events != nil {
			r.Get("/events", cfg.Events.Stream)
		}
	})

	return r, nil
}
