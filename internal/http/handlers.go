package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"sorso/internal/core"
	"sorso/internal/tracker"
)

type entryResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	AmountML  int       `json:"amount_ml"`
	Source    string    `json:"source,omitempty"`
}

func toEntryResponse(e core.IntakeEntry) entryResponse {
	return entryResponse{
		ID:        string(e.ID),
		Timestamp: e.Timestamp,
		AmountML:  e.AmountML,
		Source:    e.Source,
	}
}

type periodResponse struct {
	PeriodStart time.Time `json:"period_start"`
	TotalML     int       `json:"total_ml"`
}

func (s *Server) handleCreateIntake(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		AmountML int    `json:"amount_ml"`
		Source   string `json:"source"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.tracker.Add(r.Context(), req.AmountML, req.Source)
	if err != nil {
		if errors.Is(err, core.ErrInvalidAmount) {
			writeError(w, http.StatusUnprocessableEntity, "amount must be positive")
			return
		}
		slog.ErrorContext(r.Context(), "Failed to record intake",
			"error", err, "amount_ml", req.AmountML)
		writeError(w, http.StatusInternalServerError, "failed to record intake")
		return
	}

	writeJSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	scope := tracker.ScopeToday
	if v := r.URL.Query().Get("scope"); v != "" {
		switch tracker.RevertScope(v) {
		case tracker.ScopeToday, tracker.ScopeAll:
			scope = tracker.RevertScope(v)
		default:
			writeError(w, http.StatusBadRequest, "scope must be 'today' or 'all'")
			return
		}
	}

	entry, err := s.tracker.UndoLast(r.Context(), scope)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to undo intake", "error", err, "scope", scope)
		writeError(w, http.StatusInternalServerError, "failed to undo")
		return
	}
	if entry == nil {
		// Nothing eligible; a no-op, not an error
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, toEntryResponse(*entry))
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	entries, err := s.tracker.TodayEntries(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to read today entries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read today view")
		return
	}
	progress, err := s.tracker.Progress(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute progress")
		return
	}
	over, err := s.tracker.OverIntake(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute warning state")
		return
	}

	total := 0
	out := make([]entryResponse, len(entries))
	for i, e := range entries {
		total += e.AmountML
		out[i] = toEntryResponse(e)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries":     out,
		"total_ml":    total,
		"progress":    progress,
		"goal_ml":     s.tracker.Settings().DailyGoalML,
		"over_intake": over,
	})
}

func (s *Server) handleStatsDaily(w http.ResponseWriter, r *http.Request) {
	s.handleStats(w, r, 7, s.tracker.TotalsByDay)
}

func (s *Server) handleStatsWeekly(w http.ResponseWriter, r *http.Request) {
	s.handleStats(w, r, 4, s.tracker.TotalsByWeek)
}

func (s *Server) handleStatsMonthly(w http.ResponseWriter, r *http.Request) {
	s.handleStats(w, r, 6, s.tracker.TotalsByMonth)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, def int,
	totals func(ctx context.Context, last int) ([]core.PeriodTotal, error)) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	last := parseLast(r, def)
	series, err := totals(r.Context(), last)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to compute totals", "error", err, "last", last)
		writeError(w, http.StatusInternalServerError, "failed to compute totals")
		return
	}

	out := make([]periodResponse, len(series))
	for i, p := range series {
		out[i] = periodResponse{PeriodStart: p.PeriodStart, TotalML: p.TotalML}
	}
	writeJSON(w, http.StatusOK, map[string]any{"periods": out})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type presetResponse struct {
		ID        string `json:"id"`
		Title     string `json:"title"`
		AmountML  int    `json:"amount_ml"`
		Order     int    `json:"order"`
		IsDefault bool   `json:"is_default"`
	}
	all := s.tracker.Presets()
	out := make([]presetResponse, len(all))
	for i, p := range all {
		out[i] = presetResponse{ID: p.ID, Title: p.Title, AmountML: p.AmountML, Order: p.Order, IsDefault: p.IsDefault}
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": out})
}

func (s *Server) handleQuickAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"amounts_ml": s.tracker.QuickAddValues()})
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	type reminderResponse struct {
		ID                      string `json:"id"`
		StartMinute             int    `json:"start_minute"`
		EndMinute               int    `json:"end_minute"`
		IntervalMinutes         int    `json:"interval_minutes"`
		MinIntakeByCheckpointML int    `json:"min_intake_by_checkpoint_ml,omitempty"`
		IsEnabled               bool   `json:"is_enabled"`
	}
	all := s.tracker.Reminders()
	out := make([]reminderResponse, len(all))
	for i, rem := range all {
		out[i] = reminderResponse{
			ID:                      rem.ID,
			StartMinute:             rem.StartMinute,
			EndMinute:               rem.EndMinute,
			IntervalMinutes:         rem.IntervalMinutes,
			MinIntakeByCheckpointML: rem.MinIntakeByCheckpointML,
			IsEnabled:               rem.IsEnabled,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": out})
}
