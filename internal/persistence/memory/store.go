// Package memory provides a map-backed implementation of the persistence
// repositories for tests and single-process deployments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/session-scheduler/internal/persistence"
)

// Store keeps users and sessions in memory behind a single lock.
type Store struct {
	mu       sync.RWMutex
	users    map[string]persistence.User
	sessions map[string]persistence.SessionRecord
	order    []string
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:    make(map[string]persistence.User),
		sessions: make(map[string]persistence.SessionRecord),
	}
}

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(context.Context) error {
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// Close releases nothing.
func (s *Store) Close() error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user.
func (s *Store) CreateUser(_ context.Context, user persistence.User) error {
	if user.ID == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return persistence.ErrDuplicate
	}
	if err := s.ensureUniqueEmailLocked(user.ID, user.Email); err != nil {
		return err
	}

	user.Email = normalizeEmail(user.Email)
	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(_ context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by case-insensitive email.
func (s *Store) GetUserByEmail(_ context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := normalizeEmail(email)
	for _, user := range s.users {
		if user.Email == needle {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (s *Store) ensureUniqueEmailLocked(id, email string) error {
	needle := normalizeEmail(email)
	for otherID, user := range s.users {
		if otherID != id && user.Email == needle {
			return persistence.ErrDuplicate
		}
	}
	return nil
}

// --- SessionRepository implementation ---

// CreateSessions inserts the batch atomically with the same overlap guard as the SQLite store.
func (s *Store) CreateSessions(_ context.Context, sessions []persistence.SessionRecord) error {
	for _, record := range sessions {
		if record.ID == "" || record.HostIdentity == "" || !record.StartUTC.Before(record.EndUTC) {
			return persistence.ErrConstraintViolation
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make([]persistence.SessionRecord, 0, len(sessions))
	for i, record := range sessions {
		if _, ok := s.sessions[record.ID]; ok {
			return persistence.ErrDuplicate
		}
		if err := overlapError(i, record, s.sortedLocked(), staged); err != nil {
			return err
		}
		staged = append(staged, withDefaults(cloneSession(record)))
	}

	for _, record := range staged {
		s.sessions[record.ID] = record
		s.order = append(s.order, record.ID)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(_ context.Context, id string) (persistence.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.sessions[id]
	if !ok {
		return persistence.SessionRecord{}, persistence.ErrNotFound
	}
	return cloneSession(record), nil
}

// ListSessions returns sessions matching filter ordered by start then ID.
func (s *Store) ListSessions(_ context.Context, filter persistence.SessionFilter) ([]persistence.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []persistence.SessionRecord
	for _, record := range s.sortedLocked() {
		if matchesFilter(record, filter) {
			out = append(out, cloneSession(record))
		}
	}
	return out, nil
}

// UpdateMeeting applies a compare-and-swap update of the meeting fields.
func (s *Store) UpdateMeeting(_ context.Context, id string, update persistence.MeetingUpdate) (persistence.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.sessions[id]
	if !ok {
		return persistence.SessionRecord{}, persistence.ErrNotFound
	}
	expected := update.ExpectedMeetingStatus
	if expected == "" {
		expected = "not-started"
	}
	if record.MeetingStatus != expected {
		return persistence.SessionRecord{}, persistence.ErrStaleState
	}

	record.MeetingStatus = update.MeetingStatus
	if update.Status != "" {
		record.Status = update.Status
	}
	record.ActualStartUTC = cloneTime(update.ActualStartUTC)
	record.ActualEndUTC = cloneTime(update.ActualEndUTC)
	record.HostJoinedAtUTC = cloneTime(update.HostJoinedAtUTC)
	record.UpdatedAt = update.UpdatedAt
	s.sessions[id] = record
	return cloneSession(record), nil
}

// UpdateStatus moves the booking status from one value to another.
func (s *Store) UpdateStatus(_ context.Context, id, from, to string, at time.Time) (persistence.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.sessions[id]
	if !ok {
		return persistence.SessionRecord{}, persistence.ErrNotFound
	}
	if record.Status != from {
		return persistence.SessionRecord{}, persistence.ErrStaleState
	}
	record.Status = to
	record.UpdatedAt = at
	s.sessions[id] = record
	return cloneSession(record), nil
}

// CancelSession marks a session cancelled.
func (s *Store) CancelSession(_ context.Context, id string, at time.Time) (persistence.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.sessions[id]
	if !ok {
		return persistence.SessionRecord{}, persistence.ErrNotFound
	}
	if record.Status == "cancelled" {
		return persistence.SessionRecord{}, persistence.ErrStaleState
	}
	record.Status = "cancelled"
	record.UpdatedAt = at
	s.sessions[id] = record
	return cloneSession(record), nil
}

// MarkReminderSent stamps the reminder time once.
func (s *Store) MarkReminderSent(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.sessions[id]
	if !ok {
		return persistence.ErrNotFound
	}
	if record.ReminderSentAt != nil {
		return persistence.ErrStaleState
	}
	record.ReminderSentAt = &at
	s.sessions[id] = record
	return nil
}

func (s *Store) sortedLocked() []persistence.SessionRecord {
	out := make([]persistence.SessionRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartUTC.Equal(out[j].StartUTC) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartUTC.Before(out[j].StartUTC)
	})
	return out
}

// --- Helpers ---

func overlapError(index int, record persistence.SessionRecord, groups ...[]persistence.SessionRecord) error {
	identities := record.Identities()
	for _, group := range groups {
		for _, existing := range group {
			if existing.Status == "cancelled" {
				continue
			}
			if !record.StartUTC.Before(existing.EndUTC) || !record.EndUTC.After(existing.StartUTC) {
				continue
			}
			if shared := sharedIdentity(identities, existing.Identities()); shared != "" {
				return &persistence.OverlapError{Index: index, ExistingSessionID: existing.ID, Identity: shared}
			}
		}
	}
	return nil
}

func matchesFilter(record persistence.SessionRecord, filter persistence.SessionFilter) bool {
	if filter.From != nil && !record.EndUTC.After(*filter.From) {
		return false
	}
	if filter.To != nil && !record.StartUTC.Before(*filter.To) {
		return false
	}
	if len(filter.Statuses) > 0 && !contains(filter.Statuses, record.Status) {
		return false
	}
	if identity := strings.TrimSpace(filter.Identity); identity != "" && !contains(record.Identities(), identity) {
		return false
	}
	return true
}

func withDefaults(record persistence.SessionRecord) persistence.SessionRecord {
	if record.Timezone == "" {
		record.Timezone = "UTC"
	}
	if record.Recurrence == "" {
		record.Recurrence = "none"
	}
	if record.Status == "" {
		record.Status = "scheduled"
	}
	if record.MeetingStatus == "" {
		record.MeetingStatus = "not-started"
	}
	participants := record.Participants[:0]
	seen := map[string]struct{}{record.HostIdentity: {}}
	for _, p := range record.Participants {
		if _, ok := seen[p.Identity]; ok || p.Identity == "" {
			continue
		}
		seen[p.Identity] = struct{}{}
		participants = append(participants, p)
	}
	record.Participants = participants
	return record
}

func cloneSession(record persistence.SessionRecord) persistence.SessionRecord {
	out := record
	if record.Participants != nil {
		out.Participants = append([]persistence.ParticipantRecord(nil), record.Participants...)
	}
	out.ActualStartUTC = cloneTime(record.ActualStartUTC)
	out.ActualEndUTC = cloneTime(record.ActualEndUTC)
	out.HostJoinedAtUTC = cloneTime(record.HostJoinedAtUTC)
	out.ReminderSentAt = cloneTime(record.ReminderSentAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func sharedIdentity(candidate, existing []string) string {
	for _, id := range candidate {
		if contains(existing, id) {
			return id
		}
	}
	return ""
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var (
	_ persistence.SessionRepository = (*Store)(nil)
	_ persistence.UserRepository    = (*Store)(nil)
)
