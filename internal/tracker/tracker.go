// Package tracker is the aggregation facade: a read model over the entry
// store composed with the calendar bucketing engine, plus the two mutating
// operations (add, undo) and the day-rollover trigger.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"sorso/internal/bucket"
	"sorso/internal/core"
	"sorso/internal/presets"
	"sorso/internal/store"
)

// RevertScope selects which entries an undo may touch.
type RevertScope string

const (
	ScopeToday RevertScope = "today"
	ScopeAll   RevertScope = "all"
)

// Publisher is the optional outbound sync hook. Publish failures never fail
// the local operation.
type Publisher interface {
	PublishIntakeSync(ctx context.Context, id string, amountML int) error
	PublishIntakeRevert(ctx context.Context, id string) error
}

// Tracker composes the entry store, preset registry and user settings into
// the views the presentation layer reads. It is safe for concurrent use;
// mutation is serialized by the store, tracker-local state by t.mu.
type Tracker struct {
	store   store.Store
	presets *presets.Registry

	mu        sync.Mutex
	settings  core.UserSettings
	loc       *time.Location
	reminders []core.HydrationReminder
	observers []func()

	firstDay  time.Weekday
	publisher Publisher
	now       func() time.Time
}

type Option func(*Tracker)

// WithClock injects the time source, for tests and replay.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithPublisher wires outbound sync publishing.
func WithPublisher(p Publisher) Option {
	return func(t *Tracker) { t.publisher = p }
}

// WithFirstDayOfWeek overrides the Monday default for week alignment.
func WithFirstDayOfWeek(d time.Weekday) Option {
	return func(t *Tracker) { t.firstDay = d }
}

func New(s store.Store, reg *presets.Registry, settings core.UserSettings, opts ...Option) (*Tracker, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("validate settings: %w", err)
	}
	t := &Tracker{
		store:    s,
		presets:  reg,
		settings: settings,
		loc:      settings.Location(),
		firstDay: time.Monday,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Add records a drink taken now. The entry becomes visible to every
// subsequent query before the sync message is published.
func (t *Tracker) Add(ctx context.Context, amountML int, source string) (core.IntakeEntry, error) {
	e := core.NewIntakeEntry(t.now(), amountML, source)
	id, err := t.store.Append(ctx, e)
	if err != nil {
		return core.IntakeEntry{}, fmt.Errorf("append entry: %w", err)
	}
	e.ID = id

	if t.publisher != nil {
		if err := t.publisher.PublishIntakeSync(ctx, string(e.ID), e.AmountML); err != nil {
			slog.ErrorContext(ctx, "Failed to publish intake sync message",
				"id", e.ID, "error", err)
			// Entry is saved locally; sync catches up later.
		}
	}
	return e, nil
}

// UndoLast soft-reverts the most recent active entry in scope. Returns nil
// when nothing is eligible.
func (t *Tracker) UndoLast(ctx context.Context, scope RevertScope) (*core.IntakeEntry, error) {
	var within core.TimeRange
	if scope == ScopeToday {
		within = t.todayRange()
	}
	e, ok, err := t.store.RevertLatest(ctx, within)
	if err != nil {
		return nil, fmt.Errorf("revert latest entry: %w", err)
	}
	if !ok {
		return nil, nil
	}

	if t.publisher != nil {
		if err := t.publisher.PublishIntakeRevert(ctx, string(e.ID)); err != nil {
			slog.ErrorContext(ctx, "Failed to publish intake revert message",
				"id", e.ID, "error", err)
		}
	}
	return &e, nil
}

// TodayEntries returns today's active entries, most recent first.
func (t *Tracker) TodayEntries(ctx context.Context) ([]core.IntakeEntry, error) {
	within := t.todayRange()
	entries, err := t.store.Query(ctx, func(e core.IntakeEntry) bool {
		return !e.IsReverted && within.Contains(e.Timestamp)
	})
	if err != nil {
		return nil, fmt.Errorf("query today entries: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// TodayTotalML sums today's active entries.
func (t *Tracker) TodayTotalML(ctx context.Context) (int, error) {
	entries, err := t.TodayEntries(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, e := range entries {
		total += e.AmountML
	}
	return total, nil
}

// Progress is today's total over the daily goal, clamped to [0, 1]. A zero
// goal yields 0.
func (t *Tracker) Progress(ctx context.Context) (float64, error) {
	total, err := t.TodayTotalML(ctx)
	if err != nil {
		return 0, err
	}
	goal := t.Settings().DailyGoalML
	if goal <= 0 {
		return 0, nil
	}
	p := float64(total) / float64(goal)
	if p > 1.0 {
		p = 1.0
	}
	return p, nil
}

// OverIntake reports whether today's total exceeds the warning threshold
// while warnings are enabled.
func (t *Tracker) OverIntake(ctx context.Context) (bool, error) {
	total, err := t.TodayTotalML(ctx)
	if err != nil {
		return false, err
	}
	s := t.Settings()
	return s.EnableWarning && s.OverIntakeWarningML > 0 && total > s.OverIntakeWarningML, nil
}

// QuickAddValues returns the first three preset amounts by order.
func (t *Tracker) QuickAddValues() []int {
	all := t.presets.Presets()
	if len(all) > 3 {
		all = all[:3]
	}
	out := make([]int, len(all))
	for i, p := range all {
		out[i] = p.AmountML
	}
	return out
}

// Presets exposes the full registry, order-sorted.
func (t *Tracker) Presets() []core.ButtonPreset {
	return t.presets.Presets()
}

// TotalsByDay returns exactly last daily totals ending with today. A
// non-positive count yields an empty series.
func (t *Tracker) TotalsByDay(ctx context.Context, last int) ([]core.PeriodTotal, error) {
	loc := t.location()
	starts := bucket.DayStarts(t.now(), last, loc)
	return t.totals(ctx, starts, func(s time.Time) time.Time {
		return bucket.NextDayStart(s, loc)
	})
}

// TotalsByWeek returns exactly last weekly totals, aligned to week
// boundaries, ending with the current week.
func (t *Tracker) TotalsByWeek(ctx context.Context, last int) ([]core.PeriodTotal, error) {
	loc := t.location()
	starts := bucket.WeekStarts(t.now(), last, loc, t.firstDay)
	return t.totals(ctx, starts, func(s time.Time) time.Time {
		return bucket.NextWeekStart(s, loc)
	})
}

// TotalsByMonth returns exactly last monthly totals ending with the current
// month.
func (t *Tracker) TotalsByMonth(ctx context.Context, last int) ([]core.PeriodTotal, error) {
	loc := t.location()
	starts := bucket.MonthStarts(t.now(), last, loc)
	return t.totals(ctx, starts, func(s time.Time) time.Time {
		return bucket.NextMonthStart(s, loc)
	})
}

func (t *Tracker) totals(ctx context.Context, starts []time.Time, next func(time.Time) time.Time) ([]core.PeriodTotal, error) {
	if len(starts) == 0 {
		return []core.PeriodTotal{}, nil
	}
	entries, err := t.store.Query(ctx, func(e core.IntakeEntry) bool { return !e.IsReverted })
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	buckets := bucket.AssignAndSum(entries, starts, next)
	out := make([]core.PeriodTotal, len(buckets))
	for i, b := range buckets {
		out[i] = core.PeriodTotal{PeriodStart: b.Start, TotalML: b.TotalML}
	}
	return out, nil
}

// OnDayRollover is invoked by the external scheduler once the local
// calendar date advances. Nothing is cached here, so the only effect is
// notifying observers that rendered "today" views are stale. Safe to call
// more than once per boundary.
func (t *Tracker) OnDayRollover() {
	t.mu.Lock()
	obs := append([]func(){}, t.observers...)
	t.mu.Unlock()

	slog.Info("Day rollover", "observers", len(obs))
	for _, fn := range obs {
		fn()
	}
}

// Observe registers a callback fired on every day rollover.
func (t *Tracker) Observe(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, fn)
}

// Settings returns the current user settings.
func (t *Tracker) Settings() core.UserSettings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

// UpdateSettings swaps the user configuration, re-resolving the timezone.
func (t *Tracker) UpdateSettings(s core.UserSettings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.settings = s
	t.loc = s.Location()
	return nil
}

// Reminders returns the stored reminder records unmodified; the core does
// not interpret them.
func (t *Tracker) Reminders() []core.HydrationReminder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]core.HydrationReminder(nil), t.reminders...)
}

// SetReminders replaces the reminder records after shape validation.
func (t *Tracker) SetReminders(rs []core.HydrationReminder) error {
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("validate reminder %s: %w", r.ID, err)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reminders = append([]core.HydrationReminder(nil), rs...)
	return nil
}

// Location exposes the resolved timezone for the rollover scheduler.
func (t *Tracker) Location() *time.Location {
	return t.location()
}

func (t *Tracker) location() *time.Location {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loc
}

func (t *Tracker) todayRange() core.TimeRange {
	loc := t.location()
	start := bucket.StartOfDay(t.now(), loc)
	return core.TimeRange{From: start, To: bucket.NextDayStart(start, loc)}
}
