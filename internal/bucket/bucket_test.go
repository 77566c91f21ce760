package bucket

import (
	"testing"
	"time"

	"sorso/internal/core"
)

func TestDayStarts(t *testing.T) {
	ref := time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		count int
		want  int
	}{
		{"seven days", 7, 7},
		{"one day", 1, 1},
		{"zero count", 0, 0},
		{"negative count", -3, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			starts := DayStarts(ref, tt.count, time.UTC)
			if len(starts) != tt.want {
				t.Fatalf("DayStarts() returned %d starts, want %d", len(starts), tt.want)
			}
		})
	}

	starts := DayStarts(ref, 7, time.UTC)
	last := starts[len(starts)-1]
	if !last.Equal(time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("last start = %v, want midnight of reference day", last)
	}
	for i := 1; i < len(starts); i++ {
		if got := starts[i].Sub(starts[i-1]); got != 24*time.Hour {
			t.Errorf("gap between day %d and %d = %v, want 24h", i-1, i, got)
		}
		if !starts[i].After(starts[i-1]) {
			t.Errorf("starts not ascending at %d", i)
		}
	}
}

func TestDayStarts_DSTTransition(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}

	// 2025-03-09 is the US spring-forward day (23 hours long)
	ref := time.Date(2025, 3, 10, 12, 0, 0, 0, loc)
	starts := DayStarts(ref, 3, loc)
	if len(starts) != 3 {
		t.Fatalf("got %d starts, want 3", len(starts))
	}
	seen := map[string]bool{}
	for _, s := range starts {
		key := s.Format("2006-01-02")
		if seen[key] {
			t.Fatalf("duplicate bucket for day %s", key)
		}
		seen[key] = true
		if s.Hour() != 0 {
			t.Errorf("day start %v not at local midnight", s)
		}
	}
	if got := starts[2].Sub(starts[1]); got != 23*time.Hour {
		t.Errorf("spring-forward day length = %v, want 23h", got)
	}
}

func TestWeekStarts_Alignment(t *testing.T) {
	// 2025-03-14 is a Friday; the Monday-aligned week starts 2025-03-10
	ref := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	starts := WeekStarts(ref, 4, time.UTC, time.Monday)
	if len(starts) != 4 {
		t.Fatalf("got %d starts, want 4", len(starts))
	}
	if !starts[3].Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("current week start = %v, want 2025-03-10", starts[3])
	}
	for i, s := range starts {
		if s.Weekday() != time.Monday {
			t.Errorf("start %d falls on %v, want Monday", i, s.Weekday())
		}
	}
	if !starts[0].Equal(time.Date(2025, 2, 17, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("earliest week start = %v, want 2025-02-17", starts[0])
	}

	// Sunday-first calendars align differently
	sun := WeekStarts(ref, 1, time.UTC, time.Sunday)
	if !sun[0].Equal(time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Sunday-aligned week start = %v, want 2025-03-09", sun[0])
	}
}

func TestMonthStarts_VariableWidth(t *testing.T) {
	ref := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	starts := MonthStarts(ref, 4, time.UTC)
	want := []time.Time{
		time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	if len(starts) != len(want) {
		t.Fatalf("got %d starts, want %d", len(starts), len(want))
	}
	for i := range want {
		if !starts[i].Equal(want[i]) {
			t.Errorf("start %d = %v, want %v", i, starts[i], want[i])
		}
	}
	// February 2025 has 28 days
	if got := NextMonthStart(starts[2], time.UTC).Sub(starts[2]); got != 28*24*time.Hour {
		t.Errorf("February width = %v, want 672h", got)
	}
}

func entry(ts time.Time, amount int, reverted bool) core.IntakeEntry {
	e := core.NewIntakeEntry(ts, amount, "")
	e.IsReverted = reverted
	return e
}

func TestAssignAndSum(t *testing.T) {
	ref := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	starts := DayStarts(ref, 3, time.UTC) // Mar 12, 13, 14
	next := func(s time.Time) time.Time { return NextDayStart(s, time.UTC) }

	entries := []core.IntakeEntry{
		entry(time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC), 200, false),
		entry(time.Date(2025, 3, 12, 20, 0, 0, 0, time.UTC), 300, false),
		entry(time.Date(2025, 3, 14, 1, 0, 0, 0, time.UTC), 150, false),
		entry(time.Date(2025, 3, 14, 2, 0, 0, 0, time.UTC), 999, true),                // reverted, excluded
		entry(time.Date(2025, 3, 11, 23, 59, 59, 0, time.UTC), 500, false), // before range
	}

	buckets := AssignAndSum(entries, starts, next)
	if len(buckets) != 3 {
		t.Fatalf("got %d buckets, want 3", len(buckets))
	}
	wantTotals := []int{500, 0, 150}
	for i, b := range buckets {
		if b.TotalML != wantTotals[i] {
			t.Errorf("bucket %d total = %d, want %d", i, b.TotalML, wantTotals[i])
		}
	}

	// Contiguity: each bucket ends where the next begins
	for i := 1; i < len(buckets); i++ {
		if !buckets[i-1].End.Equal(buckets[i].Start) {
			t.Errorf("gap between bucket %d and %d", i-1, i)
		}
	}
}

func TestAssignAndSum_BoundaryBelongsToBucket(t *testing.T) {
	ref := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	starts := DayStarts(ref, 2, time.UTC) // Mar 13, 14
	next := func(s time.Time) time.Time { return NextDayStart(s, time.UTC) }

	// Exactly at the second bucket's start instant
	atBoundary := entry(starts[1], 250, false)
	buckets := AssignAndSum([]core.IntakeEntry{atBoundary}, starts, next)

	if buckets[0].TotalML != 0 {
		t.Errorf("previous bucket total = %d, want 0", buckets[0].TotalML)
	}
	if buckets[1].TotalML != 250 {
		t.Errorf("boundary bucket total = %d, want 250", buckets[1].TotalML)
	}
}

func TestAssignAndSum_EmptyInputs(t *testing.T) {
	if got := AssignAndSum(nil, nil, nil); got != nil {
		t.Errorf("no starts should produce no buckets, got %v", got)
	}

	ref := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	starts := DayStarts(ref, 7, time.UTC)
	next := func(s time.Time) time.Time { return NextDayStart(s, time.UTC) }
	buckets := AssignAndSum(nil, starts, next)
	if len(buckets) != 7 {
		t.Fatalf("got %d buckets, want complete series of 7", len(buckets))
	}
	for i, b := range buckets {
		if b.TotalML != 0 {
			t.Errorf("bucket %d total = %d, want 0", i, b.TotalML)
		}
	}
}

func TestStartOfWeek_OnFirstDay(t *testing.T) {
	monday := time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC)
	got := StartOfWeek(monday, time.UTC, time.Monday)
	if !got.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("StartOfWeek on a Monday = %v, want same day's midnight", got)
	}
}
