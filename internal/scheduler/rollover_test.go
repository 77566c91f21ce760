package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNextRollover(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "midday",
			now:  time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC),
			want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "just before midnight",
			now:  time.Date(2025, 3, 14, 23, 59, 59, 0, time.UTC),
			want: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly at midnight rolls to next day",
			now:  time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextRollover(tt.now, time.UTC)
			if !got.Equal(tt.want) {
				t.Errorf("NextRollover(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestNextRollover_DST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone database unavailable: %v", err)
	}

	// Evening before the 2025 spring-forward day; midnight still exists
	now := time.Date(2025, 3, 8, 22, 0, 0, 0, loc)
	next := NextRollover(now, loc)
	if next.Day() != 9 || next.Hour() != 0 {
		t.Errorf("NextRollover across DST eve = %v, want Mar 9 local midnight", next)
	}
	// The following boundary lands on a 23-hour day
	after := NextRollover(next, loc)
	if got := after.Sub(next); got != 23*time.Hour {
		t.Errorf("spring-forward day length = %v, want 23h", got)
	}
}

func TestRollover_Run_FiresAndRecomputes(t *testing.T) {
	fired := make(chan struct{}, 2)
	r := NewRollover(func() *time.Location { return time.UTC }, func() {
		fired <- struct{}{}
	})

	// Clock sits just before midnight so the first wait is tiny
	base := time.Date(2025, 3, 14, 23, 59, 59, int(999*time.Millisecond), time.UTC)
	r.now = func() time.Time { return base }

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatal("rollover did not fire before timeout")
	}

	cancel()
	if err := <-done; err == nil {
		t.Error("Run should return the context error on cancellation")
	}
}
