package worker

import (
	"context"
	"testing"

	"contas/internal/amqp"
	"contas/internal/core"
	sheetsmem "contas/internal/sheets/memory"
	"contas/internal/storage/memory"
)

func seedEntries(t *testing.T, store *memory.Store, n int) []core.Entry {
	t.Helper()
	drafts := make([]core.EntryDraft, 0, n)
	for i := 1; i <= n; i++ {
		drafts = append(drafts, core.EntryDraft{
			Date:             core.NewDate(2024, i, 10),
			Description:      "Rent",
			Amount:           core.Money{Cents: 150000},
			Type:             core.Expense,
			Target:           core.LinkedTarget{Kind: core.TargetAccount, ID: "acc-1"},
			InstallmentIndex: i,
			GroupID:          "def-1",
			RecurringID:      "def-1",
		})
	}
	created, err := store.CreateEntries(context.Background(), drafts)
	if err != nil {
		t.Fatalf("CreateEntries() error = %v", err)
	}
	return created
}

func TestSyncWorker_HandleSyncMessage(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := sheetsmem.NewWriter()
	w := NewSyncWorker(store, writer, 10)

	entries := seedEntries(t, store, 1)

	msg := amqp.NewEntrySyncMessage(entries[0].ID)
	if err := w.HandleSyncMessage(ctx, msg); err != nil {
		t.Fatalf("HandleSyncMessage() error = %v", err)
	}

	items := writer.Items()
	if len(items) != 1 {
		t.Fatalf("writer holds %d items, want 1", len(items))
	}
	if items[0].ID != entries[0].ID {
		t.Errorf("exported entry id = %q, want %q", items[0].ID, entries[0].ID)
	}

	pending, err := store.PendingSyncEntries(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncEntries() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d entries still pending after sync, want 0", len(pending))
	}
}

func TestSyncWorker_HandleSyncMessage_UnknownEntry(t *testing.T) {
	w := NewSyncWorker(memory.New(), sheetsmem.NewWriter(), 10)

	msg := amqp.NewEntrySyncMessage("missing")
	if err := w.HandleSyncMessage(context.Background(), msg); err == nil {
		t.Error("HandleSyncMessage() with unknown entry succeeded, want error")
	}
}

func TestSyncWorker_ProcessPendingEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := sheetsmem.NewWriter()
	w := NewSyncWorker(store, writer, 10)

	seedEntries(t, store, 3)

	if err := w.ProcessPendingEntries(ctx); err != nil {
		t.Fatalf("ProcessPendingEntries() error = %v", err)
	}
	if got := len(writer.Items()); got != 3 {
		t.Errorf("writer holds %d items, want 3", got)
	}

	// A second sweep finds nothing left to do.
	if err := w.ProcessPendingEntries(ctx); err != nil {
		t.Fatalf("second ProcessPendingEntries() error = %v", err)
	}
	if got := len(writer.Items()); got != 3 {
		t.Errorf("writer holds %d items after second sweep, want 3", got)
	}
}

func TestSyncWorker_FailedExportStaysOutOfPending(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := sheetsmem.NewWriter()
	w := NewSyncWorker(store, writer, 10)

	seedEntries(t, store, 1)
	writer.SetFailing(true)

	if err := w.ProcessPendingEntries(ctx); err != nil {
		t.Fatalf("ProcessPendingEntries() error = %v", err)
	}
	if got := len(writer.Items()); got != 0 {
		t.Errorf("writer holds %d items after failed export, want 0", got)
	}

	// The entry was marked errored, not left pending forever.
	pending, err := store.PendingSyncEntries(ctx, 10)
	if err != nil {
		t.Fatalf("PendingSyncEntries() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d entries still pending after failed export, want 0", len(pending))
	}
}

func TestSyncWorker_StartupSyncCheck(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	writer := sheetsmem.NewWriter()
	w := NewSyncWorker(store, writer, 2)

	// Startup check uses a larger batch than the regular sweep.
	seedEntries(t, store, 5)

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck() error = %v", err)
	}
	if got := len(writer.Items()); got != 5 {
		t.Errorf("writer holds %d items, want 5", got)
	}
}
