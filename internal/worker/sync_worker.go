// Package worker consumes intake sync messages and pushes entries from the
// local database to the export destination.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rabbitmq/amqp091-go"

	"sorso/internal/amqp"
	"sorso/internal/core"
	"sorso/internal/export"
)

// Storage is the slice of the sqlite repository the worker needs.
type Storage interface {
	GetEntry(ctx context.Context, id core.EntryID) (core.IntakeEntry, error)
	UnsyncedEntries(ctx context.Context, limit int) ([]core.IntakeEntry, error)
	MarkSynced(ctx context.Context, id core.EntryID) error
}

// SyncWorker pushes intake entries to the export sheet as messages arrive.
type SyncWorker struct {
	storage   Storage
	appender  export.EntryAppender
	reverter  export.EntryReverter
	batchSize int
}

func NewSyncWorker(storage Storage, appender export.EntryAppender, reverter export.EntryReverter, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		appender:  appender,
		reverter:  reverter,
		batchSize: batchSize,
	}
}

// HandleMessage processes a single message from the sync queue.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.IntakeMessage) error {
	switch msg.Kind {
	case amqp.KindIntakeSync:
		return w.handleSync(ctx, msg)
	case amqp.KindIntakeRevert:
		return w.handleRevert(ctx, msg)
	default:
		return fmt.Errorf("unhandled message kind: %s", msg.Kind)
	}
}

func (w *SyncWorker) handleSync(ctx context.Context, msg *amqp.IntakeMessage) error {
	slog.InfoContext(ctx, "Processing intake sync message", "id", msg.ID)

	entry, err := w.storage.GetEntry(ctx, core.EntryID(msg.ID))
	if err != nil {
		return fmt.Errorf("get entry from storage: %w", err)
	}

	if w.appender == nil {
		slog.WarnContext(ctx, "No export appender configured, skipping", "id", msg.ID)
		return nil
	}

	if _, err := w.appender.Append(ctx, entry); err != nil {
		return fmt.Errorf("export entry: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, entry.ID); err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	return nil
}

func (w *SyncWorker) handleRevert(ctx context.Context, msg *amqp.IntakeMessage) error {
	slog.InfoContext(ctx, "Processing intake revert message", "id", msg.ID)

	if w.reverter == nil {
		slog.WarnContext(ctx, "No export reverter configured, skipping", "id", msg.ID)
		return nil
	}
	if err := w.reverter.MarkReverted(ctx, core.EntryID(msg.ID)); err != nil {
		return fmt.Errorf("mark entry reverted in export: %w", err)
	}
	return nil
}

// StartupSyncCheck pushes entries that were recorded while the worker was
// down. Runs in batches until the backlog is drained.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.appender == nil {
		return nil
	}
	for {
		pending, err := w.storage.UnsyncedEntries(ctx, w.batchSize)
		if err != nil {
			return fmt.Errorf("list unsynced entries: %w", err)
		}
		if len(pending) == 0 {
			return nil
		}
		slog.InfoContext(ctx, "Syncing backlog", "count", len(pending))
		for _, e := range pending {
			if _, err := w.appender.Append(ctx, e); err != nil {
				return fmt.Errorf("export backlog entry %s: %w", e.ID, err)
			}
			if err := w.storage.MarkSynced(ctx, e.ID); err != nil {
				return fmt.Errorf("mark backlog entry synced: %w", err)
			}
		}
	}
}

// Run consumes deliveries until the channel closes or ctx is cancelled.
// Failed messages are nacked with requeue so nothing is dropped.
func (w *SyncWorker) Run(ctx context.Context, deliveries <-chan amqp091.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			msg, err := amqp.IntakeMessageFromJSON(d.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Dropping malformed message", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			if err := w.HandleMessage(ctx, msg); err != nil {
				slog.ErrorContext(ctx, "Failed to process message",
					"kind", msg.Kind, "id", msg.ID, "error", err)
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}
