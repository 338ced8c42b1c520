package recurrence

import (
	"errors"
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

// DefaultCount is the number of occurrences produced when the caller does not
// specify one.
const DefaultCount = 5

// MaxCount bounds a single expansion.
const MaxCount = 52

// Occurrence is one concrete instance of a recurring booking.
type Occurrence struct {
	Index int
	Start time.Time
	End   time.Time
}

// Engine expands recurrence rules into occurrences. Calendar arithmetic is
// performed in the engine's location so a weekly 9:00 session stays at 9:00
// local time across daylight-saving changes.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that steps days and months in loc.
// If loc is nil, UTC is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{location: loc}
}

// ErrInvalidRule indicates the recurrence rule is not supported.
var ErrInvalidRule = errors.New("recurrence: invalid rule")

// ErrInvalidDuration indicates the first occurrence does not end after it starts.
var ErrInvalidDuration = errors.New("recurrence: occurrence end must be after start")

// Expand returns count occurrences of the first window following rule.
//
// The first element always equals the input pair. Daily adds i days, weekly
// 7*i days and monthly i calendar months to the start; every end is the
// stepped start plus the first window's length. Monthly steps use
// time.AddDate normalization, so Jan 31 plus one month lands in early March.
// A none rule yields a single occurrence regardless of count. All returned
// instants are UTC.
func (e *Engine) Expand(firstStart, firstEnd time.Time, rule domain.RecurrenceRule, count int) ([]Occurrence, error) {
	if !firstEnd.After(firstStart) {
		return nil, ErrInvalidDuration
	}
	if rule == "" {
		rule = domain.RecurrenceNone
	}
	if !rule.Valid() {
		return nil, ErrInvalidRule
	}

	if count <= 0 {
		count = DefaultCount
	}
	if count > MaxCount {
		count = MaxCount
	}
	if rule == domain.RecurrenceNone {
		count = 1
	}

	loc := e.location
	if loc == nil {
		loc = time.UTC
	}
	start := firstStart.In(loc)
	length := firstEnd.Sub(firstStart)

	occurrences := make([]Occurrence, 0, count)
	for i := 0; i < count; i++ {
		years, months, days := step(rule, i)
		at := start.AddDate(years, months, days).UTC()
		occurrences = append(occurrences, Occurrence{
			Index: i,
			Start: at,
			End:   at.Add(length),
		})
	}
	return occurrences, nil
}

func step(rule domain.RecurrenceRule, i int) (years, months, days int) {
	switch rule {
	case domain.RecurrenceDaily:
		return 0, 0, i
	case domain.RecurrenceWeekly:
		return 0, 0, 7 * i
	case domain.RecurrenceMonthly:
		return 0, i, 0
	default:
		return 0, 0, 0
	}
}
