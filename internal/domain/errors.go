package domain

import (
	"fmt"
	"time"
)

// InvalidTimeError reports wall-clock input that cannot be resolved to an instant.
type InvalidTimeError struct {
	Field  string
	Reason string
}

func (e *InvalidTimeError) Error() string {
	if e.Field == "" {
		return "invalid time: " + e.Reason
	}
	return fmt.Sprintf("invalid time: %s %s", e.Field, e.Reason)
}

// PastTimeError reports a candidate start that precedes the proposal time.
type PastTimeError struct {
	StartUTC time.Time
	Now      time.Time
}

func (e *PastTimeError) Error() string {
	return fmt.Sprintf("start %s is before now %s", e.StartUTC.Format(time.RFC3339), e.Now.Format(time.RFC3339))
}

// ConflictError reports that an occurrence of a booking overlaps an existing
// session sharing a participant. The whole batch is rejected.
type ConflictError struct {
	OccurrenceIndex int
	SessionID       string
	Identity        string
	StartUTC        time.Time
	EndUTC          time.Time
}

func (e *ConflictError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("occurrence %d conflicts with an existing booking", e.OccurrenceIndex+1)
	}
	return fmt.Sprintf("occurrence %d conflicts with session %s for %s", e.OccurrenceIndex+1, e.SessionID, e.Identity)
}

// InvalidTransitionError reports a lifecycle action that the actor or the current
// meeting state does not permit.
type InvalidTransitionError struct {
	Action string
	From   MeetingStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s meeting in state %s: %s", e.Action, e.From, e.Reason)
}
