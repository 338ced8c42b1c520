package testfixtures

import (
	"testing"
	"time"
)

func TestClock(t *testing.T) {
	t.Parallel()

	t.Run("defaults to reference time", func(t *testing.T) {
		t.Parallel()
		if got := NewClock(time.Time{}).Now(); !got.Equal(ReferenceTime()) {
			t.Fatalf("expected ReferenceTime, got %v", got)
		}
	})

	t.Run("advance and set", func(t *testing.T) {
		t.Parallel()
		start := time.Date(2024, time.March, 14, 9, 26, 0, 0, time.UTC)
		clock := NewClock(start)

		if got := clock.Advance(90 * time.Minute); !got.Equal(start.Add(90 * time.Minute)) {
			t.Fatalf("Advance returned %v", got)
		}
		tokyo := time.FixedZone("JST", 9*60*60)
		clock.Set(time.Date(2024, time.March, 15, 9, 0, 0, 0, tokyo))
		if got := clock.Now(); got.Location() != time.UTC || got.Hour() != 0 {
			t.Fatalf("expected the clock to hold UTC, got %v", got)
		}
	})

	t.Run("NowFunc follows the clock", func(t *testing.T) {
		t.Parallel()
		clock := NewClock(ReferenceTime())
		nowFn := clock.NowFunc()
		clock.Advance(time.Minute)
		if got := nowFn(); !got.Equal(ReferenceTime().Add(time.Minute)) {
			t.Fatalf("expected NowFunc to observe Advance, got %v", got)
		}
	})

	t.Run("relative to a session start", func(t *testing.T) {
		t.Parallel()
		session := NewSessionFixture(WithWindow(time.Date(2025, time.August, 2, 5, 30, 0, 0, time.UTC), 40))
		clock := NewClock(time.Time{})
		got := clock.RelativeTo(session, -5*time.Minute)
		if want := time.Date(2025, time.August, 2, 5, 25, 0, 0, time.UTC); !got.Equal(want) || !clock.Now().Equal(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
	})
}
