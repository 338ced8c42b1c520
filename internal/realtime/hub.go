// Package realtime fans session events out to in-process subscribers.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

// EventType names a realtime notification.
type EventType string

const (
	EventSessionCreated       EventType = "session.created"
	EventSessionDeleted       EventType = "session.deleted"
	EventMeetingStarted       EventType = "meeting.started"
	EventMeetingEnded         EventType = "meeting.ended"
	EventSessionStartingSoon  EventType = "session.starting_soon"
	EventSessionStatusChanged EventType = "session.status_changed"
)

// Event is a notification about one session. Audience lists the identities
// that should receive it; an empty audience reaches every subscriber.
type Event struct {
	Type       EventType `json:"type"`
	SessionID  string    `json:"session_id"`
	Audience   []string  `json:"-"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Hub is an in-process publisher. Publish never blocks: a subscriber whose
// queue is full misses the event.
type Hub struct {
	logger *slog.Logger
	buffer int
	now    func() time.Time

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription

	dropped atomic.Uint64
}

// NewHub constructs a hub. A non-positive buffer uses DefaultBuffer.
func NewHub(logger *slog.Logger, buffer int) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		logger: logger.With("component", "realtime"),
		buffer: buffer,
		now:    time.Now,
		subs:   make(map[uint64]*Subscription),
	}
}

// Subscription receives events addressed to one identity.
type Subscription struct {
	id       uint64
	identity string
	events   chan Event
	hub      *Hub
	once     sync.Once
}

// Events returns the delivery channel. It is closed by Close.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Identity returns the normalized identity the subscription listens for.
func (s *Subscription) Identity() string {
	return s.identity
}

// Close detaches the subscription from the hub.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.id)
		s.hub.mu.Unlock()
		close(s.events)
	})
}

// Subscribe registers a listener for identity.
func (h *Hub) Subscribe(identity string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:       h.nextID,
		identity: domain.NormalizeIdentity(identity),
		events:   make(chan Event, h.buffer),
		hub:      h,
	}
	h.subs[sub.id] = sub
	return sub
}

// Publish delivers ev to every matching subscriber without blocking.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = h.now().UTC()
	}
	audience := make(map[string]struct{}, len(ev.Audience))
	for _, identity := range ev.Audience {
		if normalized := domain.NormalizeIdentity(identity); normalized != "" {
			audience[normalized] = struct{}{}
		}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, sub := range h.subs {
		if len(audience) > 0 {
			if _, ok := audience[sub.identity]; !ok {
				continue
			}
		}
		select {
		case sub.events <- ev:
			delivered++
		default:
			h.dropped.Add(1)
			h.logger.WarnContext(ctx, "subscriber queue full, dropping event",
				"event_type", string(ev.Type),
				"session_id", ev.SessionID,
				"identity", sub.identity,
			)
		}
	}
	h.logger.DebugContext(ctx, "event published",
		"event_type", string(ev.Type),
		"session_id", ev.SessionID,
		"delivered", delivered,
	)
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a queue was full.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}
