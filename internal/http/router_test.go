package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/realtime"
)

func TestRouter_Health(t *testing.T) {
	t.Parallel()

	var healthErr error
	router := newTestRouter(t, RouterConfig{Health: func(context.Context) error { return healthErr }})

	rec := doRequest(t, router, http.MethodGet, "/healthz", "", map[string]string{HeaderActorID: ""})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 without an actor, got %d", rec.Code)
	}
	if rec.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("expected a generated request id")
	}

	healthErr = errBoom
	if rec := doRequest(t, router, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRouter_Middleware(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, RouterConfig{Bookings: NewBookingHandler(&bookingServiceStub{}, "UTC", nil)})

	t.Run("actor required", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodDelete, "/sessions/s1", "", map[string]string{HeaderActorID: ""})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if body := decodeError(t, rec); body.ErrorCode != codeActorRequired {
			t.Fatalf("unexpected error code %q", body.ErrorCode)
		}
	})

	t.Run("inbound request id is echoed", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/healthz", "", map[string]string{HeaderRequestID: "abc-123"})
		if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
			t.Fatalf("expected echoed request id, got %q", got)
		}
	})

	t.Run("unknown route is localized", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/nope?lang=ja", "", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		if body := decodeError(t, rec); body.Message != "指定されたリソースが見つかりません。" {
			t.Fatalf("unexpected message %q", body.Message)
		}
	})

	t.Run("unsupported language falls back to English", func(t *testing.T) {
		rec := doRequest(t, router, http.MethodGet, "/nope", "", map[string]string{"Accept-Language": "fr-FR"})
		if body := decodeError(t, rec); body.Message != msgNotFound {
			t.Fatalf("unexpected message %q", body.Message)
		}
	})

	t.Run("panics become 500", func(t *testing.T) {
		panicking := newTestRouter(t, RouterConfig{Middleware: []func(http.Handler) http.Handler{
			func(http.Handler) http.Handler {
				return http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
			},
		}})
		rec := doRequest(t, panicking, http.MethodGet, "/healthz", "", nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestEventsHandler_Stream(t *testing.T) {
	t.Parallel()

	hub := realtime.NewHub(discardLogger(), 4)
	router := newTestRouter(t, RouterConfig{Events: NewEventsHandler(hub, time.Hour, nil)})
	server := httptest.NewServer(router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set(HeaderActorID, "learner-1")
	resp, err := server.Client().Do(req)
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	for hub.Subscribers() == 0 {
		if ctx.Err() != nil {
			t.Fatalf("subscription never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	session := sampleSession("s1")
	hub.Publish(ctx, realtime.Event{Type: realtime.EventSessionCreated, SessionID: "other", Audience: []string{"someone-else"}})
	hub.Publish(ctx, realtime.SessionEvent(realtime.EventSessionCreated, session, testStart))

	reader := bufio.NewReader(resp.Body)
	var eventLine, dataLine string
	for dataLine == "" {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		switch {
		case strings.HasPrefix(line, "event: "):
			eventLine = strings.TrimSpace(strings.TrimPrefix(line, "event: "))
		case strings.HasPrefix(line, "data: "):
			dataLine = strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		}
	}

	if eventLine != string(realtime.EventSessionCreated) {
		t.Fatalf("unexpected event name %q", eventLine)
	}
	var ev struct {
		Type      string `json:"type"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal([]byte(dataLine), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.SessionID != "s1" {
		t.Fatalf("expected the addressed event only, got %+v", ev)
	}
}
