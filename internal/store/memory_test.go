package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"sorso/internal/core"
)

func TestMemory_Append(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	id, err := m.Append(ctx, core.NewIntakeEntry(now, 250, "bottle"))
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if id == "" {
		t.Fatal("expected an id")
	}

	all, err := m.Query(ctx, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(all) != 1 || all[0].ID != id || all[0].AmountML != 250 {
		t.Fatalf("unexpected log contents: %+v", all)
	}
}

func TestMemory_Append_InvalidAmount(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()

	for _, amount := range []int{0, -5} {
		_, err := m.Append(ctx, core.NewIntakeEntry(now, amount, ""))
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Errorf("Append(%d) error = %v, want ErrInvalidAmount", amount, err)
		}
	}

	// The log must be untouched after rejections
	all, _ := m.Query(ctx, nil)
	if len(all) != 0 {
		t.Fatalf("log should be empty after rejected appends, has %d entries", len(all))
	}
}

func TestMemory_RevertLatest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

	first, _ := m.Append(ctx, core.NewIntakeEntry(base, 100, ""))
	second, _ := m.Append(ctx, core.NewIntakeEntry(base.Add(time.Hour), 200, ""))
	_ = first

	e, ok, err := m.RevertLatest(ctx, core.TimeRange{})
	if err != nil || !ok {
		t.Fatalf("RevertLatest() = %v, %v, %v", e, ok, err)
	}
	if e.ID != second {
		t.Errorf("reverted id = %s, want latest-timestamped %s", e.ID, second)
	}
	if !e.IsReverted {
		t.Error("returned entry should carry the reverted flag")
	}

	// Reverted entries stay in the raw log
	all, _ := m.Query(ctx, nil)
	if len(all) != 2 {
		t.Fatalf("log length = %d, want 2 (soft revert keeps entries)", len(all))
	}
	if !all[1].IsReverted {
		t.Error("second entry should be flagged reverted in the log")
	}

	// Second call reverts the remaining entry, third finds nothing
	if _, ok, _ := m.RevertLatest(ctx, core.TimeRange{}); !ok {
		t.Fatal("expected second revert to succeed")
	}
	if _, ok, _ := m.RevertLatest(ctx, core.TimeRange{}); ok {
		t.Fatal("expected no eligible entry after all reverted")
	}
}

func TestMemory_RevertLatest_TieBreaksByInsertion(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ts := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

	_, _ = m.Append(ctx, core.NewIntakeEntry(ts, 100, ""))
	last, _ := m.Append(ctx, core.NewIntakeEntry(ts, 200, ""))

	e, ok, _ := m.RevertLatest(ctx, core.TimeRange{})
	if !ok || e.ID != last {
		t.Errorf("tie should revert latest-inserted %s, got %s", last, e.ID)
	}
}

func TestMemory_RevertLatest_ScopedRange(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	yesterday := time.Date(2025, 3, 13, 22, 0, 0, 0, time.UTC)
	today := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

	_, _ = m.Append(ctx, core.NewIntakeEntry(yesterday, 100, ""))
	todayID, _ := m.Append(ctx, core.NewIntakeEntry(today, 200, ""))

	within := core.TimeRange{
		From: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	e, ok, _ := m.RevertLatest(ctx, within)
	if !ok || e.ID != todayID {
		t.Fatalf("expected today's entry reverted, got %v ok=%v", e.ID, ok)
	}

	// Only yesterday's entry remains active, which is outside scope
	if _, ok, _ := m.RevertLatest(ctx, within); ok {
		t.Fatal("no entry within scope should be left to revert")
	}
}

func TestMemory_Query_Predicate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	base := time.Date(2025, 3, 14, 8, 0, 0, 0, time.UTC)

	_, _ = m.Append(ctx, core.NewIntakeEntry(base, 100, ""))
	_, _ = m.Append(ctx, core.NewIntakeEntry(base.Add(time.Hour), 200, ""))
	_, _, _ = m.RevertLatest(ctx, core.TimeRange{})

	active, err := m.Query(ctx, func(e core.IntakeEntry) bool { return !e.IsReverted })
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(active) != 1 || active[0].AmountML != 100 {
		t.Fatalf("active query = %+v, want only the 100ml entry", active)
	}

	// The snapshot is a copy; mutating it must not touch the log
	active[0].AmountML = 9999
	again, _ := m.Query(ctx, func(e core.IntakeEntry) bool { return !e.IsReverted })
	if again[0].AmountML != 100 {
		t.Error("query result aliases internal storage")
	}
}
