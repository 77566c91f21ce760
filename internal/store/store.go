// Package store defines the intake entry log and its in-memory
// implementation. The log is append-only: entries are never removed, undo
// flips the reverted flag and nothing else.
package store

import (
	"context"

	"sorso/internal/core"
)

// Store is the port the tracker consumes. Implemented by the in-memory
// store here and by the sqlite repository in internal/storage.
type Store interface {
	// Append validates and stores the entry after all existing entries,
	// assigning an id if the entry does not carry one.
	Append(ctx context.Context, e core.IntakeEntry) (core.EntryID, error)

	// RevertLatest marks the most recent active entry inside within as
	// reverted. Timestamp ties are broken by insertion order, latest
	// inserted wins. Returns ok=false when no entry is eligible; that is
	// a no-op, not an error.
	RevertLatest(ctx context.Context, within core.TimeRange) (core.IntakeEntry, bool, error)

	// Query returns entries in insertion order for which keep returns
	// true. A nil keep returns every entry, reverted ones included. The
	// result is a snapshot; callers may range over it repeatedly.
	Query(ctx context.Context, keep func(core.IntakeEntry) bool) ([]core.IntakeEntry, error)
}
