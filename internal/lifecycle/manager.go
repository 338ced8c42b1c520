package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

// DefaultEarlyJoin is how long before the scheduled start non-host
// participants may join.
const DefaultEarlyJoin = 5 * time.Minute

const (
	ActionStart = "start"
	ActionEnd   = "end"
)

// Manager governs the not-started, live, ended meeting lifecycle.
type Manager struct {
	now       func() time.Time
	earlyJoin time.Duration
}

// NewManager constructs a Manager. A nil now uses time.Now and a non-positive
// earlyJoin uses DefaultEarlyJoin.
func NewManager(now func() time.Time, earlyJoin time.Duration) *Manager {
	if now == nil {
		now = time.Now
	}
	if earlyJoin <= 0 {
		earlyJoin = DefaultEarlyJoin
	}
	return &Manager{now: now, earlyJoin: earlyJoin}
}

// StartMeeting moves a not-started meeting to live on behalf of the host.
// The returned session carries the new state; on error the input is returned
// unchanged.
func (m *Manager) StartMeeting(session domain.Session, actorID string) (domain.Session, error) {
	current := meetingStatus(session)
	if !session.IsHost(actorID) {
		return session, &domain.InvalidTransitionError{Action: ActionStart, From: current, Reason: "only the host can start the meeting"}
	}
	if current != domain.MeetingNotStarted {
		return session, &domain.InvalidTransitionError{Action: ActionStart, From: current, Reason: "meeting has already started"}
	}

	now := m.now().UTC()
	updated := session.Clone()
	updated.MeetingStatus = domain.MeetingLive
	updated.ActualStartUTC = &now
	if updated.HostJoinedAtUTC == nil {
		joined := now
		updated.HostJoinedAtUTC = &joined
	}
	if updated.Status == domain.StatusScheduled || updated.Status == "" {
		updated.Status = domain.StatusInProgress
	}
	updated.UpdatedAt = now
	return updated, nil
}

// EndMeeting moves a live meeting to ended on behalf of the host.
func (m *Manager) EndMeeting(session domain.Session, actorID string) (domain.Session, error) {
	current := meetingStatus(session)
	if !session.IsHost(actorID) {
		return session, &domain.InvalidTransitionError{Action: ActionEnd, From: current, Reason: "only the host can end the meeting"}
	}
	if current != domain.MeetingLive {
		return session, &domain.InvalidTransitionError{Action: ActionEnd, From: current, Reason: "meeting is not live"}
	}
	if session.ActualStartUTC == nil {
		return session, &domain.InvalidTransitionError{Action: ActionEnd, From: current, Reason: "meeting has no recorded start"}
	}

	now := m.now().UTC()
	if now.Before(*session.ActualStartUTC) {
		now = *session.ActualStartUTC
	}
	updated := session.Clone()
	updated.MeetingStatus = domain.MeetingEnded
	updated.ActualEndUTC = &now
	if updated.Status == domain.StatusInProgress || updated.Status == domain.StatusScheduled || updated.Status == "" {
		updated.Status = domain.StatusCompleted
	}
	updated.UpdatedAt = now
	return updated, nil
}

// JoinState is the display state reported by JoinStatus.
type JoinState string

const (
	JoinWaiting JoinState = "waiting"
	JoinReady   JoinState = "ready"
	JoinEnded   JoinState = "ended"
)

// Button labels returned by JoinStatus.
const (
	ButtonStart = "Start Meeting"
	ButtonJoin  = "Join Meeting"
	ButtonEnded = "Meeting Ended"
)

// JoinStatus answers whether an actor may join a meeting at a given instant.
type JoinStatus struct {
	CanJoin          bool
	Status           JoinState
	Message          string
	ButtonText       string
	MinutesUntilOpen int
	IsHost           bool
}

// JoinStatus reports join eligibility without mutating the session.
//
// The host may join any time up to the meeting end. Other participants may
// join from earlyJoin before the scheduled start until the meeting end. The
// meeting end is the recorded actual end, or the scheduled start plus the
// session duration.
func (m *Manager) JoinStatus(session domain.Session, actorID string, now time.Time) JoinStatus {
	now = now.UTC()
	isHost := session.IsHost(actorID)
	start := session.StartUTC.UTC()
	earlyJoin := start.Add(-m.earlyJoin)
	meetingEnd := MeetingEnd(session)

	ended := meetingStatus(session) == domain.MeetingEnded || now.After(meetingEnd)
	if ended {
		return JoinStatus{
			Status:     JoinEnded,
			Message:    "This meeting has ended.",
			ButtonText: ButtonEnded,
			IsHost:     isHost,
		}
	}

	if isHost {
		status := JoinStatus{CanJoin: true, Status: JoinReady, ButtonText: ButtonStart, IsHost: true, Message: "You can start the meeting."}
		if meetingStatus(session) == domain.MeetingLive {
			status.Message = "The meeting is live."
		} else if now.Before(earlyJoin) {
			status.Status = JoinWaiting
			status.MinutesUntilOpen = minutesUntil(now, start)
			status.Message = fmt.Sprintf("Starts in %d minutes. You can start early.", status.MinutesUntilOpen)
		}
		return status
	}

	if now.Before(earlyJoin) {
		minutes := minutesUntil(now, earlyJoin)
		return JoinStatus{
			Status:           JoinWaiting,
			Message:          fmt.Sprintf("You can join in %d minutes.", minutes),
			ButtonText:       ButtonJoin,
			MinutesUntilOpen: minutes,
		}
	}

	return JoinStatus{
		CanJoin:    true,
		Status:     JoinReady,
		Message:    "The meeting is open.",
		ButtonText: ButtonJoin,
	}
}

// MeetingEnd returns the recorded end, or the scheduled start plus duration.
func MeetingEnd(session domain.Session) time.Time {
	if session.ActualEndUTC != nil {
		return session.ActualEndUTC.UTC()
	}
	return session.StartUTC.UTC().Add(session.Duration())
}

func meetingStatus(session domain.Session) domain.MeetingStatus {
	if session.MeetingStatus == "" {
		return domain.MeetingNotStarted
	}
	return session.MeetingStatus
}

func minutesUntil(now, target time.Time) int {
	return int(math.Ceil(target.Sub(now).Minutes()))
}
