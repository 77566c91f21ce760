// Package export defines the outbound ports for pushing the intake log to
// an external sheet or report.
package export

import (
	"context"

	"sorso/internal/core"
)

type (
	// EntryAppender appends one intake entry to the export destination.
	EntryAppender interface {
		Append(ctx context.Context, e core.IntakeEntry) (rowRef string, err error)
	}

	// EntryReverter flags an already exported entry as reverted.
	EntryReverter interface {
		MarkReverted(ctx context.Context, id core.EntryID) error
	}
)
