// Package scheduler owns the wall-clock side of the day rollover: it
// computes the next local midnight and invokes the tracker's trigger. The
// tracker itself never owns timers.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Epsilon added past midnight before firing, so the new local date is
// unambiguously in effect.
const epsilon = time.Second

// NextRollover returns the first local-midnight instant strictly after now
// in loc. On spring-forward days where midnight does not exist, the first
// valid instant of the day is used.
func NextRollover(now time.Time, loc *time.Location) time.Time {
	y, m, d := now.In(loc).Date()
	next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(y, m, d+2, 0, 0, 0, 0, loc)
	}
	return next
}

// Rollover fires a callback once per local calendar-day boundary. The
// target instant is recomputed after every firing, so location or clock
// adjustments take effect on the next boundary.
type Rollover struct {
	loc  func() *time.Location
	fire func()
	now  func() time.Time
}

// NewRollover builds a runner. loc is re-read before every arm so settings
// changes to the timezone are honored; fire must be idempotent per
// boundary, which the tracker's OnDayRollover is.
func NewRollover(loc func() *time.Location, fire func()) *Rollover {
	return &Rollover{loc: loc, fire: fire, now: time.Now}
}

// Run blocks until ctx is cancelled, firing at each local midnight plus a
// small epsilon.
func (r *Rollover) Run(ctx context.Context) error {
	for {
		now := r.now()
		next := NextRollover(now, r.loc())
		wait := next.Add(epsilon).Sub(now)
		slog.Info("Rollover armed", "next", next, "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			r.fire()
		}
	}
}
