// Package bucket partitions time into calendar-aligned day, week and month
// intervals and sums intake entries into them.
//
// All functions are pure and parameterized by an explicit *time.Location; the
// engine never consults the system clock or system zone itself. Boundaries
// are computed by rebuilding wall-clock dates with time.Date, so DST
// transitions shorten or lengthen a bucket instead of duplicating or
// skipping one.
package bucket

import (
	"sort"
	"time"

	"sorso/internal/core"
)

// StartOfDay returns local midnight of t's calendar day in loc. On days
// where midnight does not exist (spring-forward), the normalized first
// valid instant of the day is returned.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// StartOfWeek returns the start of t's week, where weeks begin on firstDay.
func StartOfWeek(t time.Time, loc *time.Location, firstDay time.Weekday) time.Time {
	y, m, d := t.In(loc).Date()
	back := (int(time.Date(y, m, d, 0, 0, 0, 0, loc).Weekday()) - int(firstDay) + 7) % 7
	return time.Date(y, m, d-back, 0, 0, 0, 0, loc)
}

// StartOfMonth returns the first instant of t's calendar month.
func StartOfMonth(t time.Time, loc *time.Location) time.Time {
	y, m, _ := t.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}

// NextDayStart returns the start of the day after the day containing start.
func NextDayStart(start time.Time, loc *time.Location) time.Time {
	y, m, d := start.In(loc).Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// NextWeekStart returns the start seven calendar days after start.
func NextWeekStart(start time.Time, loc *time.Location) time.Time {
	y, m, d := start.In(loc).Date()
	return time.Date(y, m, d+7, 0, 0, 0, 0, loc)
}

// NextMonthStart returns the first instant of the month after start's month.
func NextMonthStart(start time.Time, loc *time.Location) time.Time {
	y, m, _ := start.In(loc).Date()
	return time.Date(y, m+1, 1, 0, 0, 0, 0, loc)
}

// DayStarts returns count day-start instants ascending, ending with the day
// containing ref. count <= 0 yields an empty result.
func DayStarts(ref time.Time, count int, loc *time.Location) []time.Time {
	if count <= 0 {
		return nil
	}
	y, m, d := ref.In(loc).Date()
	starts := make([]time.Time, 0, count)
	for i := count - 1; i >= 0; i-- {
		starts = append(starts, time.Date(y, m, d-i, 0, 0, 0, 0, loc))
	}
	return starts
}

// WeekStarts returns count week-start instants ascending, aligned to weeks
// beginning on firstDay and ending with the week containing ref.
func WeekStarts(ref time.Time, count int, loc *time.Location, firstDay time.Weekday) []time.Time {
	if count <= 0 {
		return nil
	}
	anchor := StartOfWeek(ref, loc, firstDay)
	y, m, d := anchor.In(loc).Date()
	starts := make([]time.Time, 0, count)
	for i := count - 1; i >= 0; i-- {
		starts = append(starts, time.Date(y, m, d-7*i, 0, 0, 0, 0, loc))
	}
	return starts
}

// MonthStarts returns count month-start instants ascending, ending with the
// month containing ref.
func MonthStarts(ref time.Time, count int, loc *time.Location) []time.Time {
	if count <= 0 {
		return nil
	}
	y, m, _ := ref.In(loc).Date()
	starts := make([]time.Time, 0, count)
	for i := count - 1; i >= 0; i-- {
		starts = append(starts, time.Date(y, m-time.Month(i), 1, 0, 0, 0, 0, loc))
	}
	return starts
}

// AssignAndSum distributes entries over the buckets anchored at starts and
// returns one TimeBucket per start, in order, including zero-total buckets.
// next computes a bucket's end from its start; the last bucket ends at
// next(last start). Reverted entries, entries before the first start and
// entries at or past the last end are excluded. An entry timestamped exactly
// at a start belongs to that bucket.
func AssignAndSum(entries []core.IntakeEntry, starts []time.Time, next func(time.Time) time.Time) []core.TimeBucket {
	if len(starts) == 0 {
		return nil
	}
	buckets := make([]core.TimeBucket, len(starts))
	for i, s := range starts {
		end := next(s)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		buckets[i] = core.TimeBucket{Start: s, End: end}
	}
	for _, e := range entries {
		if e.IsReverted {
			continue
		}
		ts := e.Timestamp
		if ts.Before(starts[0]) {
			continue
		}
		// Last start that is not after ts.
		idx := sort.Search(len(starts), func(i int) bool { return starts[i].After(ts) }) - 1
		if idx < 0 || !ts.Before(buckets[idx].End) {
			continue
		}
		buckets[idx].TotalML += e.AmountML
	}
	return buckets
}
