package core

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type (
	// EntryID identifies a single intake entry. It is opaque to callers.
	EntryID string

	// IntakeEntry is one recorded drink. Timestamp and AmountML are fixed at
	// creation; IsReverted only ever transitions false to true.
	IntakeEntry struct {
		ID         EntryID
		Timestamp  time.Time
		AmountML   int
		Source     string
		IsReverted bool
	}

	// UserSettings is the injected user configuration read by the tracker.
	UserSettings struct {
		DailyGoalML         int
		OverIntakeWarningML int
		EnableWarning       bool
		ResetAtMidnight     bool
		TimezoneIdentifier  string // IANA identifier, empty means system zone
	}

	// ButtonPreset is a suggested quick-add amount.
	ButtonPreset struct {
		ID        string
		Title     string
		AmountML  int
		Order     int
		IsDefault bool
	}

	// HydrationReminder is stored and served as-is for the external reminder
	// scheduler. Start and end are minutes since local midnight.
	HydrationReminder struct {
		ID                      string
		StartMinute             int
		EndMinute               int
		IntervalMinutes         int
		MinIntakeByCheckpointML int // 0 means no checkpoint threshold
		IsEnabled               bool
	}

	// TimeBucket is a derived, calendar-aligned [Start, End) interval with the
	// total intake that falls inside it.
	TimeBucket struct {
		Start   time.Time
		End     time.Time
		TotalML int
	}

	// PeriodTotal is one row of a daily/weekly/monthly series.
	PeriodTotal struct {
		PeriodStart time.Time
		TotalML     int
	}

	// TimeRange is a half-open [From, To) interval. A zero bound is unbounded.
	TimeRange struct {
		From time.Time
		To   time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidPeriodCount = errors.New("invalid period count")
	ErrInvalidGoal        = errors.New("invalid daily goal")
	ErrInvalidThreshold   = errors.New("invalid warning threshold")
	ErrInvalidTimezone    = errors.New("invalid timezone identifier")
	ErrInvalidInterval    = errors.New("invalid reminder interval")
	ErrInvalidTimeOfDay   = errors.New("invalid time of day")
)

const minutesPerDay = 24 * 60

// NewIntakeEntry creates an active entry with a fresh id.
func NewIntakeEntry(ts time.Time, amountML int, source string) IntakeEntry {
	return IntakeEntry{
		ID:        EntryID(uuid.NewString()),
		Timestamp: ts,
		AmountML:  amountML,
		Source:    source,
	}
}

func (e IntakeEntry) Validate() error {
	if e.AmountML <= 0 {
		return ErrInvalidAmount
	}
	if e.Timestamp.IsZero() {
		return errors.New("timestamp cannot be zero")
	}
	return nil
}

// DefaultSettings returns the settings a fresh install starts with.
func DefaultSettings() UserSettings {
	return UserSettings{
		DailyGoalML:         2000,
		OverIntakeWarningML: 3000,
		EnableWarning:       true,
		ResetAtMidnight:     true,
		TimezoneIdentifier:  time.Local.String(),
	}
}

func (s UserSettings) Validate() error {
	if s.DailyGoalML < 0 {
		return ErrInvalidGoal
	}
	if s.OverIntakeWarningML < 0 {
		return ErrInvalidThreshold
	}
	if s.TimezoneIdentifier != "" {
		if _, err := time.LoadLocation(s.TimezoneIdentifier); err != nil {
			return ErrInvalidTimezone
		}
	}
	return nil
}

// Location resolves the configured timezone, falling back to the system zone
// when the identifier is empty or unknown.
func (s UserSettings) Location() *time.Location {
	if s.TimezoneIdentifier == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.TimezoneIdentifier)
	if err != nil {
		return time.Local
	}
	return loc
}

// DefaultPresets returns the three stock quick-add buttons.
func DefaultPresets() []ButtonPreset {
	return []ButtonPreset{
		{ID: uuid.NewString(), Title: "+100", AmountML: 100, Order: 0, IsDefault: true},
		{ID: uuid.NewString(), Title: "+150", AmountML: 150, Order: 1, IsDefault: true},
		{ID: uuid.NewString(), Title: "+200", AmountML: 200, Order: 2, IsDefault: true},
	}
}

func (p ButtonPreset) Validate() error {
	if p.AmountML <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (r HydrationReminder) Validate() error {
	if r.IntervalMinutes <= 0 {
		return ErrInvalidInterval
	}
	if r.StartMinute < 0 || r.StartMinute >= minutesPerDay {
		return ErrInvalidTimeOfDay
	}
	if r.EndMinute < 0 || r.EndMinute >= minutesPerDay {
		return ErrInvalidTimeOfDay
	}
	if r.MinIntakeByCheckpointML < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.From.IsZero() && t.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && !t.Before(r.To) {
		return false
	}
	return true
}
