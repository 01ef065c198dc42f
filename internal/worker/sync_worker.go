// Package worker exports persisted ledger entries to the configured
// spreadsheet. Entries are announced over AMQP; a periodic sweep of
// pending entries covers messages the broker lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"contas/internal/amqp"
	"contas/internal/backend"
	"contas/internal/core"
	"contas/internal/sheets"
)

type SyncWorker struct {
	store     backend.LedgerStore
	writer    sheets.EntryWriter
	batchSize int
}

func NewSyncWorker(store backend.LedgerStore, writer sheets.EntryWriter, batchSize int) *SyncWorker {
	return &SyncWorker{
		store:     store,
		writer:    writer,
		batchSize: batchSize,
	}
}

// HandleSyncMessage exports the entry named by one AMQP message.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.EntrySyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message", "entry_id", msg.EntryID)

	entry, err := w.store.GetEntry(ctx, msg.EntryID)
	if err != nil {
		return fmt.Errorf("get entry from store: %w", err)
	}

	if err := w.exportEntry(ctx, entry); err != nil {
		return fmt.Errorf("export entry: %w", err)
	}
	return nil
}

// ProcessPendingEntries exports entries still marked pending. This is the
// backup path for lost AMQP messages.
func (w *SyncWorker) ProcessPendingEntries(ctx context.Context) error {
	pending, err := w.store.PendingSyncEntries(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending entries: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending entries", "count", len(pending))

	for _, entry := range pending {
		if err := w.exportEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry", "entry_id", entry.ID, "error", err)
			continue
		}
	}
	return nil
}

// StartupSyncCheck drains the pending backlog once at worker startup,
// recovering from missed messages or downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.store.PendingSyncEntries(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending entries for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending entries found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending entries on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, entry := range pending {
		if err := w.exportEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to export entry during startup",
				"entry_id", entry.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

func (w *SyncWorker) exportEntry(ctx context.Context, entry core.Entry) error {
	ref, err := w.writer.Append(ctx, entry)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, entry.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "entry_id", entry.ID, "error", markErr)
		}
		return fmt.Errorf("append to sheet: %w", err)
	}

	if err := w.store.MarkSynced(ctx, entry.ID); err != nil {
		// The export itself worked; log and move on.
		slog.ErrorContext(ctx, "Failed to mark as synced", "entry_id", entry.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported entry",
		"entry_id", entry.ID,
		"sheet_ref", ref,
		"description", entry.Description,
		"amount_cents", entry.Amount.Cents)

	return nil
}
