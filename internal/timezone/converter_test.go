package timezone

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

func newTestConverter() (*Converter, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewConverter(logger), &buf
}

func TestConverter_ToUTC_ConvertsUsingZoneRulesForTheDate(t *testing.T) {
	t.Parallel()

	conv, _ := newTestConverter()
	ctx := context.Background()

	cases := []struct {
		name string
		wall WallClock
		zone string
		want time.Time
	}{
		{
			name: "summer daylight time in New York",
			wall: WallClock{Year: 2025, Month: 8, Day: 2, Hour12: 1, Minute: 30, AMPM: "AM"},
			zone: "America/New_York",
			want: time.Date(2025, time.August, 2, 5, 30, 0, 0, time.UTC),
		},
		{
			name: "winter standard time in New York",
			wall: WallClock{Year: 2025, Month: 1, Day: 15, Hour12: 9, Minute: 0, AMPM: "AM"},
			zone: "EST",
			want: time.Date(2025, time.January, 15, 14, 0, 0, 0, time.UTC),
		},
		{
			name: "lower case meridiem and abbreviation",
			wall: WallClock{Year: 2025, Month: 7, Day: 1, Hour12: 3, Minute: 15, AMPM: "pm"},
			zone: "pst",
			want: time.Date(2025, time.July, 1, 22, 15, 0, 0, time.UTC),
		},
		{
			name: "fixed offset zone",
			wall: WallClock{Year: 2025, Month: 3, Day: 14, Hour12: 12, Minute: 45, AMPM: "PM"},
			zone: "Asia/Tokyo",
			want: time.Date(2025, time.March, 14, 3, 45, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := conv.ToUTC(ctx, tc.wall, tc.zone)
			if err != nil {
				t.Fatalf("ToUTC returned error: %v", err)
			}
			if !got.Equal(tc.want) {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
			if got.Location() != time.UTC {
				t.Fatalf("expected UTC location, got %s", got.Location())
			}
		})
	}
}

func TestConverter_ToUTC_MidnightAndNoon(t *testing.T) {
	t.Parallel()

	conv, _ := newTestConverter()
	ctx := context.Background()

	for _, zone := range []string{"UTC", "America/New_York", "Asia/Kolkata", "Australia/Sydney", "Europe/London"} {
		loc := conv.Location(ctx, zone)

		midnight, err := conv.ToUTC(ctx, WallClock{Year: 2025, Month: 6, Day: 10, Hour12: 12, Minute: 0, AMPM: AM}, zone)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", zone, err)
		}
		if h := midnight.In(loc).Hour(); h != 0 {
			t.Fatalf("%s: 12 AM should be hour 0, got %d", zone, h)
		}

		noon, err := conv.ToUTC(ctx, WallClock{Year: 2025, Month: 6, Day: 10, Hour12: 12, Minute: 0, AMPM: PM}, zone)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", zone, err)
		}
		if h := noon.In(loc).Hour(); h != 12 {
			t.Fatalf("%s: 12 PM should be hour 12, got %d", zone, h)
		}
	}
}

func TestConverter_ToUTC_RoundTrip(t *testing.T) {
	t.Parallel()

	conv, logs := newTestConverter()
	ctx := context.Background()

	for _, zone := range []string{"Asia/Tokyo", "America/New_York", "UTC"} {
		loc := conv.Location(ctx, zone)
		for _, meridiem := range []string{AM, PM} {
			for hour := 1; hour <= 12; hour++ {
				for minute := 0; minute < 60; minute += 7 {
					wall := WallClock{Year: 2025, Month: 7, Day: 20, Hour12: hour, Minute: minute, AMPM: meridiem}
					instant, err := conv.ToUTC(ctx, wall, zone)
					if err != nil {
						t.Fatalf("%s %s: unexpected error: %v", zone, wall, err)
					}
					if back := ToWallClock(instant, loc); back != wall {
						t.Fatalf("%s: expected %s, got %s", zone, wall, back)
					}
				}
			}
		}
	}

	if strings.Contains(logs.String(), "round trip mismatch") {
		t.Fatalf("unexpected mismatch warning: %s", logs.String())
	}
}

func TestConverter_ToUTC_LogsDaylightGapWithoutFailing(t *testing.T) {
	t.Parallel()

	conv, logs := newTestConverter()
	wall := WallClock{Year: 2025, Month: 3, Day: 9, Hour12: 2, Minute: 30, AMPM: AM}

	if _, err := conv.ToUTC(context.Background(), wall, "America/New_York"); err != nil {
		t.Fatalf("expected gap input to be accepted, got %v", err)
	}
	if !strings.Contains(logs.String(), "round trip mismatch") {
		t.Fatalf("expected mismatch warning, got %q", logs.String())
	}
}

func TestConverter_ToUTC_RejectsMalformedInput(t *testing.T) {
	t.Parallel()

	conv, _ := newTestConverter()
	base := WallClock{Year: 2025, Month: 8, Day: 2, Hour12: 1, Minute: 30, AMPM: AM}

	cases := map[string]struct {
		mutate func(*WallClock)
		field  string
	}{
		"hour zero":        {func(w *WallClock) { w.Hour12 = 0 }, "hour"},
		"hour thirteen":    {func(w *WallClock) { w.Hour12 = 13 }, "hour"},
		"negative minute":  {func(w *WallClock) { w.Minute = -1 }, "minute"},
		"minute sixty":     {func(w *WallClock) { w.Minute = 60 }, "minute"},
		"unknown meridiem": {func(w *WallClock) { w.AMPM = "XM" }, "ampm"},
		"month overflow":   {func(w *WallClock) { w.Month = 13 }, "month"},
		"february 30":      {func(w *WallClock) { w.Month = 2; w.Day = 30 }, "day"},
		"day zero":         {func(w *WallClock) { w.Day = 0 }, "day"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			wall := base
			tc.mutate(&wall)
			_, err := conv.ToUTC(context.Background(), wall, "America/New_York")
			var invalid *domain.InvalidTimeError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidTimeError, got %v", err)
			}
			if invalid.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, invalid.Field)
			}
		})
	}
}

func TestConverter_NormalizeZone(t *testing.T) {
	t.Parallel()

	conv, logs := newTestConverter()
	ctx := context.Background()

	cases := map[string]string{
		"EST":                 "America/New_York",
		" cst ":               "America/Chicago",
		"MST":                 "America/Denver",
		"pst":                 "America/Los_Angeles",
		"GMT":                 "UTC",
		"UTC":                 "UTC",
		"Europe/Paris":        "Europe/Paris",
		"America/Sao_Paulo":   "America/Sao_Paulo",
		"Mars/Olympus_Mons":   "UTC",
		"":                    "UTC",
		"Local":               "UTC",
		"definitely not zone": "UTC",
	}
	for input, want := range cases {
		if got := conv.NormalizeZone(ctx, input); got != want {
			t.Errorf("NormalizeZone(%q): expected %q, got %q", input, want, got)
		}
	}

	if !strings.Contains(logs.String(), "unrecognized timezone") {
		t.Fatalf("expected fallback warning to be logged")
	}
}

func TestConverter_FromUTC(t *testing.T) {
	t.Parallel()

	conv, _ := newTestConverter()
	instant := time.Date(2025, time.August, 2, 5, 30, 0, 0, time.UTC)

	local := conv.FromUTC(context.Background(), instant, "America/New_York")
	if local.Hour() != 1 || local.Minute() != 30 {
		t.Fatalf("expected 01:30 local, got %s", local)
	}
	if !local.Equal(instant) {
		t.Fatalf("FromUTC must preserve the instant")
	}

	fallback := conv.FromUTC(context.Background(), instant, "Nowhere/City")
	if fallback.Location() != time.UTC {
		t.Fatalf("expected UTC fallback, got %s", fallback.Location())
	}
}
