package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/example/session-scheduler/internal/domain"
)

func TestEngine_Expand(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.August, 2, 5, 30, 0, 0, time.UTC)
	end := start.Add(40 * time.Minute)
	engine := NewEngine(nil)

	t.Run("weekly adds seven days per occurrence", func(t *testing.T) {
		t.Parallel()

		got, err := engine.Expand(start, end, domain.RecurrenceWeekly, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 occurrences, got %d", len(got))
		}
		for i, occ := range got {
			want := start.AddDate(0, 0, 7*i)
			if !occ.Start.Equal(want) {
				t.Fatalf("occurrence %d: expected start %s, got %s", i, want, occ.Start)
			}
			if occ.End.Sub(occ.Start) != 40*time.Minute {
				t.Fatalf("occurrence %d: unexpected duration %s", i, occ.End.Sub(occ.Start))
			}
			if occ.Index != i {
				t.Fatalf("occurrence %d: unexpected index %d", i, occ.Index)
			}
		}
	})

	t.Run("first occurrence equals input", func(t *testing.T) {
		t.Parallel()

		got, err := engine.Expand(start, end, domain.RecurrenceDaily, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got[0].Start.Equal(start) || !got[0].End.Equal(end) {
			t.Fatalf("expected first occurrence to equal input, got %+v", got[0])
		}
		if !got[2].Start.Equal(start.AddDate(0, 0, 2)) {
			t.Fatalf("expected daily step, got %s", got[2].Start)
		}
	})

	t.Run("none yields a single occurrence", func(t *testing.T) {
		t.Parallel()

		got, err := engine.Expand(start, end, domain.RecurrenceNone, 5)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 {
			t.Fatalf("expected 1 occurrence, got %d", len(got))
		}
	})

	t.Run("non-positive count uses default", func(t *testing.T) {
		t.Parallel()

		got, err := engine.Expand(start, end, domain.RecurrenceDaily, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != DefaultCount {
			t.Fatalf("expected %d occurrences, got %d", DefaultCount, len(got))
		}
	})

	t.Run("monthly rolls past short months", func(t *testing.T) {
		t.Parallel()

		jan31 := time.Date(2025, time.January, 31, 15, 0, 0, 0, time.UTC)
		got, err := engine.Expand(jan31, jan31.Add(time.Hour), domain.RecurrenceMonthly, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if want := time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC); !got[1].Start.Equal(want) {
			t.Fatalf("expected %s, got %s", want, got[1].Start)
		}
		if want := time.Date(2025, time.March, 31, 15, 0, 0, 0, time.UTC); !got[2].Start.Equal(want) {
			t.Fatalf("expected %s, got %s", want, got[2].Start)
		}
	})

	t.Run("rejects inverted window and unknown rule", func(t *testing.T) {
		t.Parallel()

		if _, err := engine.Expand(end, start, domain.RecurrenceDaily, 2); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("expected ErrInvalidDuration, got %v", err)
		}
		if _, err := engine.Expand(start, end, domain.RecurrenceRule("yearly"), 2); !errors.Is(err, ErrInvalidRule) {
			t.Fatalf("expected ErrInvalidRule, got %v", err)
		}
	})
}

func TestEngine_Expand_KeepsLocalTimeAcrossDaylightSaving(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load zone: %v", err)
	}
	start := time.Date(2025, time.October, 27, 9, 0, 0, 0, ny)

	got, err := NewEngine(ny).Expand(start, start.Add(time.Hour), domain.RecurrenceWeekly, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := got[1].Start.In(ny)
	if second.Hour() != 9 {
		t.Fatalf("expected 09:00 local after DST ends, got %s", second)
	}
	if got[1].Start.Sub(got[0].Start) != 7*24*time.Hour+time.Hour {
		t.Fatalf("expected the UTC gap to absorb the offset change, got %s", got[1].Start.Sub(got[0].Start))
	}
	if got[1].Start.Location() != time.UTC {
		t.Fatalf("expected UTC output")
	}
}

func TestEngine_Expand_EndInSpringForwardGap(t *testing.T) {
	t.Parallel()

	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("failed to load zone: %v", err)
	}
	start := time.Date(2026, time.March, 1, 1, 50, 0, 0, ny)

	got, err := NewEngine(ny).Expand(start, start.Add(40*time.Minute), domain.RecurrenceWeekly, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, occ := range got {
		if occ.End.Sub(occ.Start) != 40*time.Minute {
			t.Fatalf("occurrence %d: expected 40m, got %s (%s - %s)", i, occ.End.Sub(occ.Start), occ.Start, occ.End)
		}
	}
	if want := time.Date(2026, time.March, 8, 6, 50, 0, 0, time.UTC); !got[1].Start.Equal(want) {
		t.Fatalf("expected second start %s, got %s", want, got[1].Start)
	}
	if want := time.Date(2026, time.March, 8, 7, 30, 0, 0, time.UTC); !got[1].End.Equal(want) {
		t.Fatalf("expected second end %s, got %s", want, got[1].End)
	}
}

func BenchmarkEngineExpand(b *testing.B) {
	engine := NewEngine(nil)
	start := time.Date(2025, time.May, 6, 9, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		occurrences, err := engine.Expand(start, end, domain.RecurrenceWeekly, MaxCount)
		if err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
		if len(occurrences) == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}
