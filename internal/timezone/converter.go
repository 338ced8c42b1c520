package timezone

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/session-scheduler/internal/domain"
	"github.com/example/session-scheduler/internal/logging"
)

// Fallback is the zone used whenever an input cannot be resolved.
const Fallback = "UTC"

var abbreviations = map[string]string{
	"EST": "America/New_York",
	"EDT": "America/New_York",
	"CST": "America/Chicago",
	"CDT": "America/Chicago",
	"MST": "America/Denver",
	"MDT": "America/Denver",
	"PST": "America/Los_Angeles",
	"PDT": "America/Los_Angeles",
	"GMT": "UTC",
	"UTC": "UTC",
	"Z":   "UTC",
}

// Meridiem values accepted by WallClock.
const (
	AM = "AM"
	PM = "PM"
)

// WallClock is a 12-hour local date and time as entered by a user.
type WallClock struct {
	Year   int
	Month  int
	Day    int
	Hour12 int
	Minute int
	AMPM   string
}

// Hour24 converts the 12-hour reading to a 0-23 hour.
func (w WallClock) Hour24() int {
	h := w.Hour12 % 12
	if strings.EqualFold(w.AMPM, PM) {
		h += 12
	}
	return h
}

func (w WallClock) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d %s", w.Year, w.Month, w.Day, w.Hour12, w.Minute, strings.ToUpper(w.AMPM))
}

// Validate reports the first malformed field as an InvalidTimeError.
func (w WallClock) Validate() error {
	if w.Hour12 < 1 || w.Hour12 > 12 {
		return &domain.InvalidTimeError{Field: "hour", Reason: fmt.Sprintf("%d is outside 1-12", w.Hour12)}
	}
	if w.Minute < 0 || w.Minute > 59 {
		return &domain.InvalidTimeError{Field: "minute", Reason: fmt.Sprintf("%d is outside 0-59", w.Minute)}
	}
	if !strings.EqualFold(w.AMPM, AM) && !strings.EqualFold(w.AMPM, PM) {
		return &domain.InvalidTimeError{Field: "ampm", Reason: fmt.Sprintf("%q is not AM or PM", w.AMPM)}
	}
	if w.Month < 1 || w.Month > 12 {
		return &domain.InvalidTimeError{Field: "month", Reason: fmt.Sprintf("%d is outside 1-12", w.Month)}
	}
	date := time.Date(w.Year, time.Month(w.Month), w.Day, 0, 0, 0, 0, time.UTC)
	if w.Day < 1 || date.Day() != w.Day || int(date.Month()) != w.Month {
		return &domain.InvalidTimeError{Field: "day", Reason: fmt.Sprintf("%04d-%02d-%02d is not a calendar date", w.Year, w.Month, w.Day)}
	}
	return nil
}

// Converter resolves zone names and converts between wall clocks and UTC instants.
// It caches loaded locations and is safe for concurrent use.
type Converter struct {
	logger *slog.Logger

	mu        sync.RWMutex
	locations map[string]*time.Location
}

// NewConverter constructs a Converter that reports fallbacks to logger.
func NewConverter(logger *slog.Logger) *Converter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{
		logger:    logger,
		locations: make(map[string]*time.Location),
	}
}

// NormalizeZone maps abbreviations to IANA names and validates the result
// against the zone database. Unknown input resolves to UTC.
func (c *Converter) NormalizeZone(ctx context.Context, input string) string {
	name, _ := c.resolve(ctx, input)
	return name
}

// Location returns the *time.Location for a normalized zone.
func (c *Converter) Location(ctx context.Context, zone string) *time.Location {
	_, loc := c.resolve(ctx, zone)
	return loc
}

// ToUTC interprets the wall clock as local time in zone and returns the UTC instant.
func (c *Converter) ToUTC(ctx context.Context, wall WallClock, zone string) (time.Time, error) {
	if err := wall.Validate(); err != nil {
		return time.Time{}, err
	}

	name, loc := c.resolve(ctx, zone)
	local := time.Date(wall.Year, time.Month(wall.Month), wall.Day, wall.Hour24(), wall.Minute, 0, 0, loc)
	instant := local.UTC()

	back := ToWallClock(instant, loc)
	if back != normalizeMeridiem(wall) {
		c.loggerFor(ctx).WarnContext(ctx, "wall clock round trip mismatch",
			"zone", name,
			"input", wall.String(),
			"round_trip", back.String(),
			"utc", instant.Format(time.RFC3339),
		)
	}
	return instant, nil
}

// FromUTC returns instant expressed in zone.
func (c *Converter) FromUTC(ctx context.Context, instant time.Time, zone string) time.Time {
	return instant.In(c.Location(ctx, zone))
}

// ToWallClock renders an instant as a 12-hour wall clock in loc.
func ToWallClock(instant time.Time, loc *time.Location) WallClock {
	if loc == nil {
		loc = time.UTC
	}
	local := instant.In(loc)
	hour12 := local.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}
	meridiem := AM
	if local.Hour() >= 12 {
		meridiem = PM
	}
	return WallClock{
		Year:   local.Year(),
		Month:  int(local.Month()),
		Day:    local.Day(),
		Hour12: hour12,
		Minute: local.Minute(),
		AMPM:   meridiem,
	}
}

func normalizeMeridiem(w WallClock) WallClock {
	w.AMPM = strings.ToUpper(w.AMPM)
	return w
}

func (c *Converter) resolve(ctx context.Context, input string) (string, *time.Location) {
	trimmed := strings.TrimSpace(input)
	candidate := trimmed
	if mapped, ok := abbreviations[strings.ToUpper(trimmed)]; ok {
		candidate = mapped
	}

	if candidate == "" || strings.EqualFold(candidate, "local") {
		c.warnFallback(ctx, input, nil)
		return Fallback, time.UTC
	}
	if candidate == Fallback {
		return Fallback, time.UTC
	}

	if loc, ok := c.cached(candidate); ok {
		return candidate, loc
	}

	loc, err := time.LoadLocation(candidate)
	if err != nil {
		c.warnFallback(ctx, input, err)
		return Fallback, time.UTC
	}

	c.mu.Lock()
	c.locations[candidate] = loc
	c.mu.Unlock()
	return candidate, loc
}

func (c *Converter) cached(name string) (*time.Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, ok := c.locations[name]
	return loc, ok
}

func (c *Converter) warnFallback(ctx context.Context, input string, err error) {
	attrs := []any{"input", input, "fallback", Fallback}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	c.loggerFor(ctx).WarnContext(ctx, "unrecognized timezone, using fallback", attrs...)
}

func (c *Converter) loggerFor(ctx context.Context) *slog.Logger {
	return logging.FromContextOr(ctx, c.logger).With("component", "timezone")
}
