package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/lifecycle"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/realtime"
)

var meetingStart = time.Date(2025, time.August, 2, 5, 30, 0, 0, time.UTC)

func newMeetingServiceForTest(store *sessionStoreStub, publisher *publisherStub, now time.Time) *MeetingService {
	clock := fixedClock(now)
	if publisher == nil {
		publisher = &publisherStub{}
	}
	return NewMeetingService(store, lifecycle.NewManager(clock, lifecycle.DefaultEarlyJoin), publisher, clock)
}

func TestMeetingService_StartAndEnd(t *testing.T) {
	t.Parallel()

	store := &sessionStoreStub{sessions: []domain.Session{storedSession("s1", meetingStart, 40, "host-1", "learner-1")}}
	publisher := &publisherStub{}
	svc := newMeetingServiceForTest(store, publisher, meetingStart.Add(-10*time.Minute))

	started, err := svc.StartMeeting(context.Background(), "s1", "host-1")
	if err != nil {
		t.Fatalf("StartMeeting returned error: %v", err)
	}
	if started.MeetingStatus != domain.MeetingLive || started.Status != domain.StatusInProgress {
		t.Fatalf("unexpected state after start %s/%s", started.MeetingStatus, started.Status)
	}
	if started.ActualStartUTC == nil || started.HostJoinedAtUTC == nil {
		t.Fatalf("expected start timestamps to be recorded")
	}
	if len(store.updated) != 1 || store.updated[0].Expected != domain.MeetingNotStarted {
		t.Fatalf("expected compare-and-swap from not-started, got %+v", store.updated)
	}

	ended, err := svc.EndMeeting(context.Background(), "s1", "host-1")
	if err != nil {
		t.Fatalf("EndMeeting returned error: %v", err)
	}
	if ended.MeetingStatus != domain.MeetingEnded || ended.Status != domain.StatusCompleted || ended.ActualEndUTC == nil {
		t.Fatalf("unexpected state after end %+v", ended)
	}

	got := publisher.types()
	if len(got) != 2 || got[0] != realtime.EventMeetingStarted || got[1] != realtime.EventMeetingEnded {
		t.Fatalf("unexpected events %v", got)
	}
}

func TestMeetingService_StartMeeting_Rejections(t *testing.T) {
	t.Parallel()

	now := meetingStart.Add(-time.Minute)

	t.Run("double start keeps the first start time", func(t *testing.T) {
		t.Parallel()
		store := &sessionStoreStub{sessions: []domain.Session{storedSession("s1", meetingStart, 40, "host-1")}}
		svc := newMeetingServiceForTest(store, nil, now)

		first, err := svc.StartMeeting(context.Background(), "s1", "host-1")
		if err != nil {
			t.Fatalf("first start failed: %v", err)
		}
		_, err = svc.StartMeeting(context.Background(), "s1", "host-1")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		stored, _ := store.GetSession(context.Background(), "s1")
		if !stored.ActualStartUTC.Equal(*first.ActualStartUTC) {
			t.Fatalf("actual start changed after rejected start")
		}
	})

	t.Run("participant cannot start", func(t *testing.T) {
		t.Parallel()
		store := &sessionStoreStub{sessions: []domain.Session{storedSession("s1", meetingStart, 40, "host-1", "learner-1")}}
		svc := newMeetingServiceForTest(store, nil, now)

		_, err := svc.StartMeeting(context.Background(), "s1", "learner-1")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		if len(store.updated) != 0 {
			t.Fatalf("rejected start must not write")
		}
	})

	t.Run("cancelled session", func(t *testing.T) {
		t.Parallel()
		cancelled := storedSession("s1", meetingStart, 40, "host-1")
		cancelled.Status = domain.StatusCancelled
		svc := newMeetingServiceForTest(&sessionStoreStub{sessions: []domain.Session{cancelled}}, nil, now)

		_, err := svc.StartMeeting(context.Background(), "s1", "host-1")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
	})

	t.Run("no-show session", func(t *testing.T) {
		t.Parallel()
		missed := storedSession("s1", meetingStart, 40, "host-1")
		missed.Status = domain.StatusNoShow
		store := &sessionStoreStub{sessions: []domain.Session{missed}}
		svc := newMeetingServiceForTest(store, nil, meetingStart.Add(20*time.Minute))

		_, err := svc.StartMeeting(context.Background(), "s1", "host-1")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		if len(store.updated) != 0 {
			t.Fatalf("no-show session must not go live")
		}
	})

	t.Run("concurrent start", func(t *testing.T) {
		t.Parallel()
		store := &sessionStoreStub{
			sessions:  []domain.Session{storedSession("s1", meetingStart, 40, "host-1")},
			updateErr: persistence.ErrStaleState,
		}
		svc := newMeetingServiceForTest(store, nil, now)

		_, err := svc.StartMeeting(context.Background(), "s1", "host-1")
		var transition *domain.InvalidTransitionError
		if !errors.As(err, &transition) {
			t.Fatalf("expected InvalidTransitionError for lost race, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()
		svc := newMeetingServiceForTest(&sessionStoreStub{}, nil, now)
		if _, err := svc.StartMeeting(context.Background(), "missing", "host-1"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestMeetingService_EndMeeting_RequiresLiveMeeting(t *testing.T) {
	t.Parallel()

	store := &sessionStoreStub{sessions: []domain.Session{storedSession("s1", meetingStart, 40, "host-1")}}
	svc := newMeetingServiceForTest(store, nil, meetingStart)

	_, err := svc.EndMeeting(context.Background(), "s1", "host-1")
	var transition *domain.InvalidTransitionError
	if !errors.As(err, &transition) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if transition.From != domain.MeetingNotStarted {
		t.Fatalf("expected transition from not-started, got %s", transition.From)
	}
}

func TestMeetingService_GetJoinStatus(t *testing.T) {
	t.Parallel()

	store := &sessionStoreStub{sessions: []domain.Session{storedSession("s1", meetingStart, 40, "host-1", "learner-1")}}
	svc := newMeetingServiceForTest(store, nil, meetingStart)

	cases := []struct {
		name    string
		actor   string
		now     time.Time
		canJoin bool
		state   lifecycle.JoinState
	}{
		{"host thirty minutes early", "host-1", meetingStart.Add(-30 * time.Minute), true, lifecycle.JoinWaiting},
		{"participant ten minutes early", "learner-1", meetingStart.Add(-10 * time.Minute), false, lifecycle.JoinWaiting},
		{"participant inside window", "learner-1", meetingStart.Add(-4 * time.Minute), true, lifecycle.JoinReady},
		{"participant after end", "learner-1", meetingStart.Add(41 * time.Minute), false, lifecycle.JoinEnded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, err := svc.GetJoinStatus(context.Background(), "s1", tc.actor, tc.now)
			if err != nil {
				t.Fatalf("GetJoinStatus returned error: %v", err)
			}
			if status.CanJoin != tc.canJoin || status.Status != tc.state {
				t.Fatalf("expected %v/%s, got %v/%s", tc.canJoin, tc.state, status.CanJoin, status.Status)
			}
		})
	}

	if _, err := svc.GetJoinStatus(context.Background(), "s1", "stranger", time.Time{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outsiders, got %v", err)
	}
}
