package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"sorso/internal/core"
)

// Memory is the in-memory entry log. A single mutex serializes all
// mutation so concurrent appends cannot break the insertion-order
// tie-breaking RevertLatest relies on.
type Memory struct {
	mu      sync.Mutex
	entries []core.IntakeEntry
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, e core.IntakeEntry) (core.EntryID, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	if e.ID == "" {
		e.ID = core.EntryID(uuid.NewString())
	}
	e.IsReverted = false
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return e.ID, nil
}

func (m *Memory) RevertLatest(_ context.Context, within core.TimeRange) (core.IntakeEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	best := -1
	for i := len(m.entries) - 1; i >= 0; i-- {
		e := m.entries[i]
		if e.IsReverted || !within.Contains(e.Timestamp) {
			continue
		}
		// Scanning backwards, the first hit is the latest inserted; only a
		// strictly later timestamp displaces it.
		if best == -1 || e.Timestamp.After(m.entries[best].Timestamp) {
			best = i
		}
	}
	if best == -1 {
		return core.IntakeEntry{}, false, nil
	}
	m.entries[best].IsReverted = true
	return m.entries[best], true, nil
}

func (m *Memory) Query(_ context.Context, keep func(core.IntakeEntry) bool) ([]core.IntakeEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.IntakeEntry, 0, len(m.entries))
	for _, e := range m.entries {
		if keep == nil || keep(e) {
			out = append(out, e)
		}
	}
	return out, nil
}
