// Package storage persists the entry log, settings, presets and reminders
// in sqlite. The repository implements store.Store so it can back the
// tracker directly when the sqlite backend is selected.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"sorso/internal/core"
	"sorso/internal/store"
)

// SQLiteRepository serializes mutation with a mutex, matching the memory
// store's single-writer discipline, so concurrent handlers sharing one
// repository never interleave writes.
type SQLiteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

// Ensure the repository can back the tracker directly.
var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// One connection keeps the file locked by a single writer; the busy
	// timeout covers the migration connection and external readers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements store.Store.
func (r *SQLiteRepository) Append(ctx context.Context, e core.IntakeEntry) (core.EntryID, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = core.EntryID(uuid.NewString())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO intake_entries (id, ts, amount_ml, source, reverted, synced)
		 VALUES (?, ?, ?, ?, 0, 0)`,
		string(e.ID), e.Timestamp.UTC(), e.AmountML, e.Source)
	if err != nil {
		return "", fmt.Errorf("insert intake entry: %w", err)
	}

	slog.InfoContext(ctx, "Intake entry saved",
		"id", e.ID,
		"amount_ml", e.AmountML,
		"source", e.Source)

	return e.ID, nil
}

// RevertLatest implements store.Store. The select-and-flip is a single
// statement so two concurrent undos can never revert the same row.
// Insertion order ties are broken by rowid, which sqlite assigns in
// insert order.
func (r *SQLiteRepository) RevertLatest(ctx context.Context, within core.TimeRange) (core.IntakeEntry, bool, error) {
	sub := `SELECT id FROM intake_entries WHERE reverted = 0`
	args := []any{}
	if !within.From.IsZero() {
		sub += ` AND ts >= ?`
		args = append(args, within.From.UTC())
	}
	if !within.To.IsZero() {
		sub += ` AND ts < ?`
		args = append(args, within.To.UTC())
	}
	sub += ` ORDER BY ts DESC, rowid DESC LIMIT 1`
	query := `UPDATE intake_entries SET reverted = 1 WHERE id = (` + sub + `)
		 RETURNING id, ts, amount_ml, source`

	r.mu.Lock()
	defer r.mu.Unlock()

	var e core.IntakeEntry
	var id string
	var ts time.Time
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&id, &ts, &e.AmountML, &e.Source)
	if err == sql.ErrNoRows {
		return core.IntakeEntry{}, false, nil
	}
	if err != nil {
		return core.IntakeEntry{}, false, fmt.Errorf("revert latest active entry: %w", err)
	}

	e.ID = core.EntryID(id)
	e.Timestamp = ts
	e.IsReverted = true
	return e, true, nil
}

// Query implements store.Store. Predicate filtering happens in Go so the
// memory and sqlite backends behave identically.
func (r *SQLiteRepository) Query(ctx context.Context, keep func(core.IntakeEntry) bool) ([]core.IntakeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ts, amount_ml, source, reverted FROM intake_entries ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query intake entries: %w", err)
	}
	defer rows.Close()

	var out []core.IntakeEntry
	for rows.Next() {
		var e core.IntakeEntry
		var id string
		if err := rows.Scan(&id, &e.Timestamp, &e.AmountML, &e.Source, &e.IsReverted); err != nil {
			return nil, fmt.Errorf("scan intake entry: %w", err)
		}
		e.ID = core.EntryID(id)
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intake entries: %w", err)
	}
	return out, nil
}

// GetEntry fetches a single entry by id for the sync worker.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id core.EntryID) (core.IntakeEntry, error) {
	var e core.IntakeEntry
	var rawID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, ts, amount_ml, source, reverted FROM intake_entries WHERE id = ?`,
		string(id)).Scan(&rawID, &e.Timestamp, &e.AmountML, &e.Source, &e.IsReverted)
	if err != nil {
		return core.IntakeEntry{}, fmt.Errorf("get intake entry %s: %w", id, err)
	}
	e.ID = core.EntryID(rawID)
	return e, nil
}

// UnsyncedEntries returns up to limit entries not yet pushed to the export.
func (r *SQLiteRepository) UnsyncedEntries(ctx context.Context, limit int) ([]core.IntakeEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ts, amount_ml, source, reverted FROM intake_entries
		 WHERE synced = 0 ORDER BY rowid LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unsynced entries: %w", err)
	}
	defer rows.Close()

	var out []core.IntakeEntry
	for rows.Next() {
		var e core.IntakeEntry
		var id string
		if err := rows.Scan(&id, &e.Timestamp, &e.AmountML, &e.Source, &e.IsReverted); err != nil {
			return nil, fmt.Errorf("scan unsynced entry: %w", err)
		}
		e.ID = core.EntryID(id)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate unsynced entries: %w", err)
	}
	return out, nil
}

// MarkSynced flags an entry as pushed to the export.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id core.EntryID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.db.ExecContext(ctx,
		`UPDATE intake_entries SET synced = 1 WHERE id = ?`, string(id)); err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	return nil
}

// LoadSettings reads the single settings row, falling back to defaults when
// none has been saved yet.
func (r *SQLiteRepository) LoadSettings(ctx context.Context) (core.UserSettings, error) {
	var s core.UserSettings
	err := r.db.QueryRowContext(ctx,
		`SELECT daily_goal_ml, over_intake_warning_ml, enable_warning, reset_at_midnight, timezone_identifier
		 FROM user_settings WHERE id = 1`).
		Scan(&s.DailyGoalML, &s.OverIntakeWarningML, &s.EnableWarning, &s.ResetAtMidnight, &s.TimezoneIdentifier)
	if err == sql.ErrNoRows {
		return core.DefaultSettings(), nil
	}
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return s, nil
}

// SaveSettings upserts the single settings row.
func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.UserSettings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (id, daily_goal_ml, over_intake_warning_ml, enable_warning, reset_at_midnight, timezone_identifier)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   daily_goal_ml = excluded.daily_goal_ml,
		   over_intake_warning_ml = excluded.over_intake_warning_ml,
		   enable_warning = excluded.enable_warning,
		   reset_at_midnight = excluded.reset_at_midnight,
		   timezone_identifier = excluded.timezone_identifier`,
		s.DailyGoalML, s.OverIntakeWarningML, s.EnableWarning, s.ResetAtMidnight, s.TimezoneIdentifier)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// LoadPresets returns stored presets in insertion order; sorting by order
// is the registry's job.
func (r *SQLiteRepository) LoadPresets(ctx context.Context) ([]core.ButtonPreset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, amount_ml, sort_order, is_default FROM button_presets ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query presets: %w", err)
	}
	defer rows.Close()

	var out []core.ButtonPreset
	for rows.Next() {
		var p core.ButtonPreset
		if err := rows.Scan(&p.ID, &p.Title, &p.AmountML, &p.Order, &p.IsDefault); err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate presets: %w", err)
	}
	return out, nil
}

// SavePreset inserts or replaces one preset.
func (r *SQLiteRepository) SavePreset(ctx context.Context, p core.ButtonPreset) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO button_presets (id, title, amount_ml, sort_order, is_default)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.AmountML, p.Order, p.IsDefault)
	if err != nil {
		return fmt.Errorf("save preset: %w", err)
	}
	return nil
}

// LoadReminders returns stored reminder records.
func (r *SQLiteRepository) LoadReminders(ctx context.Context) ([]core.HydrationReminder, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, start_minute, end_minute, interval_minutes, min_intake_ml, enabled
		 FROM hydration_reminders ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer rows.Close()

	var out []core.HydrationReminder
	for rows.Next() {
		var rem core.HydrationReminder
		if err := rows.Scan(&rem.ID, &rem.StartMinute, &rem.EndMinute,
			&rem.IntervalMinutes, &rem.MinIntakeByCheckpointML, &rem.IsEnabled); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		out = append(out, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reminders: %w", err)
	}
	return out, nil
}

// SaveReminder inserts or replaces one reminder.
func (r *SQLiteRepository) SaveReminder(ctx context.Context, rem core.HydrationReminder) error {
	if err := rem.Validate(); err != nil {
		return err
	}
	if rem.ID == "" {
		rem.ID = uuid.NewString()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO hydration_reminders (id, start_minute, end_minute, interval_minutes, min_intake_ml, enabled)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rem.ID, rem.StartMinute, rem.EndMinute, rem.IntervalMinutes,
		rem.MinIntakeByCheckpointML, rem.IsEnabled)
	if err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}
	return nil
}
