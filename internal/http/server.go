// Package http exposes the tracker's in-process API over a JSON HTTP
// surface. Rendering is left to clients; this layer only serializes the
// facade's read model.
package http

import (
	"net/http"

	"sorso/internal/tracker"
)

type Server struct {
	http.Server
	tracker     *tracker.Tracker
	rateLimiter *rateLimiter
}

func NewServer(addr string, t *tracker.Tracker) *Server {
	s := &Server{
		tracker:     t,
		rateLimiter: newRateLimiter(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/intake", s.withRateLimit(s.handleCreateIntake))
	mux.HandleFunc("/intake/undo", s.withRateLimit(s.handleUndo))
	mux.HandleFunc("/today", s.withRateLimit(s.handleToday))
	mux.HandleFunc("/stats/daily", s.withRateLimit(s.handleStatsDaily))
	mux.HandleFunc("/stats/weekly", s.withRateLimit(s.handleStatsWeekly))
	mux.HandleFunc("/stats/monthly", s.withRateLimit(s.handleStatsMonthly))
	mux.HandleFunc("/presets", s.withRateLimit(s.handlePresets))
	mux.HandleFunc("/quick-add", s.withRateLimit(s.handleQuickAdd))
	mux.HandleFunc("/reminders", s.withRateLimit(s.handleReminders))
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleHealth)

	s.Addr = addr
	s.Handler = mux
	return s
}

// Stop releases server-owned background resources.
func (s *Server) Stop() {
	s.rateLimiter.stop()
}

func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.rateLimiter.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
