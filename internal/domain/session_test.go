package domain

import (
	"testing"
	"time"
)

func TestSession_Identities(t *testing.T) {
	t.Parallel()

	session := Session{
		HostID: "host-1",
		Participants: []Participant{
			{UserID: "user-2", Role: RoleLearner},
			{Email: " Guest@Example.com ", Role: RoleObserver},
			{UserID: "host-1", Role: RoleMentor},
			{Role: RoleObserver},
		},
	}

	got := session.Identities()
	want := []string{"host-1", "user-2", "guest@example.com"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	if !session.Involves("GUEST@example.com") {
		t.Fatalf("expected email match to be case-insensitive")
	}
	if session.Involves("") {
		t.Fatalf("empty identity must not match")
	}
}

func TestSession_HostIdentityFallsBackToEmail(t *testing.T) {
	t.Parallel()

	session := Session{HostEmail: "Host@Example.com"}
	if got := session.HostIdentity(); got != "host@example.com" {
		t.Fatalf("unexpected host identity %q", got)
	}
	if !session.IsHost("host@example.com") {
		t.Fatalf("expected email host to be recognised")
	}
	if session.IsHost("someone-else") {
		t.Fatalf("unexpected host match")
	}
}

func TestSession_Duration(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.August, 2, 5, 30, 0, 0, time.UTC)
	s := Session{StartUTC: start, EndUTC: start.Add(40 * time.Minute)}
	if s.Duration() != 40*time.Minute {
		t.Fatalf("expected window duration, got %s", s.Duration())
	}
	s.DurationMinutes = 30
	if s.Duration() != 30*time.Minute {
		t.Fatalf("expected explicit duration, got %s", s.Duration())
	}
}

func TestSession_CloneDetachesPointers(t *testing.T) {
	t.Parallel()

	started := time.Date(2025, time.August, 2, 5, 31, 0, 0, time.UTC)
	original := Session{
		ActualStartUTC: &started,
		Participants:   []Participant{{UserID: "a"}},
	}
	clone := original.Clone()
	*clone.ActualStartUTC = started.Add(time.Hour)
	clone.Participants[0].UserID = "b"

	if !original.ActualStartUTC.Equal(started) {
		t.Fatalf("clone mutated original timestamp")
	}
	if original.Participants[0].UserID != "a" {
		t.Fatalf("clone mutated original participants")
	}
}

func TestMeetingStatus_Precedes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, to MeetingStatus
		want     bool
	}{
		{MeetingNotStarted, MeetingLive, true},
		{MeetingLive, MeetingEnded, true},
		{MeetingNotStarted, MeetingEnded, true},
		{MeetingLive, MeetingNotStarted, false},
		{MeetingEnded, MeetingLive, false},
		{MeetingEnded, MeetingEnded, false},
	}
	for _, tc := range cases {
		if got := tc.from.Precedes(tc.to); got != tc.want {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}
