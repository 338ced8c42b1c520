package scheduler

import (
	"errors"
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

// ErrInvalidSlotWindow indicates the slot search parameters cannot produce slots.
var ErrInvalidSlotWindow = errors.New("scheduler: invalid slot window")

// SlotQuery describes a search for candidate windows within a day.
type SlotQuery struct {
	From       time.Time
	To         time.Time
	Duration   time.Duration
	Step       time.Duration
	Timezone   string
	Identities []string
	NotBefore  time.Time
}

// FreeSlots walks [From,To) in Step increments and marks every Duration-long
// window as available unless it overlaps a session involving one of the
// identities or starts before NotBefore.
func FreeSlots(q SlotQuery, existing []domain.Session) ([]domain.TimeSlot, error) {
	if q.Duration <= 0 || !q.To.After(q.From) {
		return nil, ErrInvalidSlotWindow
	}
	if q.Step <= 0 {
		q.Step = q.Duration
	}

	var slots []domain.TimeSlot
	for start := q.From.UTC(); !start.Add(q.Duration).After(q.To); start = start.Add(q.Step) {
		end := start.Add(q.Duration)
		available := !HasConflict(start, end, q.Identities, existing)
		if !q.NotBefore.IsZero() && start.Before(q.NotBefore) {
			available = false
		}
		slots = append(slots, domain.TimeSlot{
			StartUTC:  start,
			EndUTC:    end,
			Timezone:  q.Timezone,
			Available: available,
		})
	}
	return slots, nil
}
