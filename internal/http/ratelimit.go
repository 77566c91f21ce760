package http

import (
	"sync"
	"time"
)

const (
	requestsPerWindow = 60
	windowLength      = time.Minute
	staleAfter        = 10 * time.Minute
	sweepEvery        = 5 * time.Minute
)

// rateLimiter allows up to requestsPerWindow requests per client IP per
// windowLength, with a fixed window that restarts on the first request
// after it expires.
type rateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	done    chan struct{}
	once    sync.Once
}

type window struct {
	startedAt time.Time
	count     int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		windows: make(map[string]*window),
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.startedAt) > windowLength {
		rl.windows[ip] = &window{startedAt: now, count: 1}
		return true
	}
	w.count++
	return w.count <= requestsPerWindow
}

// sweepLoop drops windows idle long enough that they can only restart.
func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-staleAfter)
			rl.mu.Lock()
			for ip, w := range rl.windows {
				if w.startedAt.Before(cutoff) {
					delete(rl.windows, ip)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

// stop terminates the sweep goroutine. Safe to call more than once.
func (rl *rateLimiter) stop() {
	rl.once.Do(func() { close(rl.done) })
}
