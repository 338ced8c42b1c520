// Package http exposes the session scheduler over a JSON API.
//
// Every route except GET /healthz requires the X-Actor-ID header naming the
// acting identity (user ID or email). Responses are localized in English or
// Japanese from the lang query parameter or Accept-Language.
//
//   - POST /bookings: proposes a booking. Body is bookingRequest with the start
//     as a 12-hour wall clock in the named timezone. Returns 201 with the created
//     sessions, 409 on a conflict and 422 on invalid input.
//   - DELETE /sessions/{id}: cancels a session (host only).
//   - POST /sessions/{id}/start, POST /sessions/{id}/end: meeting lifecycle.
//   - GET /sessions/{id}/join-status?at=: join eligibility for the actor.
//   - GET /sessions/{id}/event?tz=: the session projected into a display zone.
//   - GET /calendar?tz=&from=&to=: the actor's projected sessions.
//   - GET /calendar.ics?tz=: the actor's sessions as an iCalendar feed.
//   - GET /availability?date=&tz=&duration=&step=&participants=: free slots.
//   - GET /events: server-sent realtime events addressed to the actor.
//
// Request/response DTOs live in dto.go and alongside their handlers.
package http
