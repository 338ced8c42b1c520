package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/session-scheduler/internal/domain"
)

// ErrUnsupportedRule indicates an RRULE that cannot be represented by the
// booking cadences.
var ErrUnsupportedRule = errors.New("recurrence: unsupported RRULE")

// ParseRule accepts either a cadence keyword (none, daily, weekly, monthly) or
// RFC 5545 RRULE text such as "FREQ=WEEKLY;COUNT=4". The returned count is
// zero when the input does not specify one.
func ParseRule(input string) (domain.RecurrenceRule, int, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return domain.RecurrenceNone, 0, nil
	}

	if keyword := domain.RecurrenceRule(strings.ToLower(trimmed)); keyword.Valid() {
		return keyword, 0, nil
	}

	text := trimmed
	if len(text) > len("RRULE:") && strings.EqualFold(text[:len("RRULE:")], "RRULE:") {
		text = text[len("RRULE:"):]
	}

	opt, err := rrule.StrToROption(text)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrUnsupportedRule, err)
	}
	if opt.Interval > 1 {
		return "", 0, fmt.Errorf("%w: INTERVAL=%d", ErrUnsupportedRule, opt.Interval)
	}
	if !opt.Until.IsZero() {
		return "", 0, fmt.Errorf("%w: UNTIL is not supported, use COUNT", ErrUnsupportedRule)
	}
	if part := byPart(opt); part != "" {
		return "", 0, fmt.Errorf("%w: %s is not supported", ErrUnsupportedRule, part)
	}

	var rule domain.RecurrenceRule
	switch opt.Freq {
	case rrule.DAILY:
		rule = domain.RecurrenceDaily
	case rrule.WEEKLY:
		rule = domain.RecurrenceWeekly
	case rrule.MONTHLY:
		rule = domain.RecurrenceMonthly
	default:
		return "", 0, fmt.Errorf("%w: FREQ=%v", ErrUnsupportedRule, opt.Freq)
	}
	return rule, opt.Count, nil
}

// byPart names the first BY* part present in opt. The booking cadences repeat
// the first occurrence as is, so any filter or expansion would be lost.
func byPart(opt *rrule.ROption) string {
	switch {
	case len(opt.Byweekday) > 0:
		return "BYDAY"
	case len(opt.Bymonthday) > 0:
		return "BYMONTHDAY"
	case len(opt.Bymonth) > 0:
		return "BYMONTH"
	case len(opt.Byyearday) > 0:
		return "BYYEARDAY"
	case len(opt.Byweekno) > 0:
		return "BYWEEKNO"
	case len(opt.Byhour) > 0:
		return "BYHOUR"
	case len(opt.Byminute) > 0:
		return "BYMINUTE"
	case len(opt.Bysecond) > 0:
		return "BYSECOND"
	case len(opt.Bysetpos) > 0:
		return "BYSETPOS"
	case len(opt.Byeaster) > 0:
		return "BYEASTER"
	}
	return ""
}

// RRule renders the cadence as an RFC 5545 RRULE value (without DTSTART) for
// calendar export. A none rule renders as the empty string.
func RRule(rule domain.RecurrenceRule, dtstart time.Time, count int) (string, error) {
	var freq rrule.Frequency
	switch rule {
	case domain.RecurrenceNone, "":
		return "", nil
	case domain.RecurrenceDaily:
		freq = rrule.DAILY
	case domain.RecurrenceWeekly:
		freq = rrule.WEEKLY
	case domain.RecurrenceMonthly:
		freq = rrule.MONTHLY
	default:
		return "", ErrInvalidRule
	}
	if count <= 0 {
		count = DefaultCount
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Count:   count,
		Dtstart: dtstart.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("build rrule: %w", err)
	}
	return r.OrigOptions.RRuleString(), nil
}
