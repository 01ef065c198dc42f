package memory

import (
	"context"
	"testing"

	"contas/internal/core"
)

func TestWriter_Append(t *testing.T) {
	w := NewWriter()

	entry := core.Entry{
		ID: "entry-1",
		EntryDraft: core.EntryDraft{
			Date:        core.NewDate(2024, 2, 5),
			Description: "Notebook (1/3)",
			Amount:      core.Money{Cents: 10000},
			Type:        core.Expense,
			Target:      core.LinkedTarget{Kind: core.TargetCard, ID: "card-1"},
		},
	}

	ref, err := w.Append(context.Background(), entry)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref == "" {
		t.Error("Append() returned empty reference")
	}

	items := w.Items()
	if len(items) != 1 {
		t.Fatalf("Items() returned %d entries, want 1", len(items))
	}
	if items[0].ID != "entry-1" {
		t.Errorf("appended entry id = %q, want entry-1", items[0].ID)
	}
}

func TestWriter_SetFailing(t *testing.T) {
	w := NewWriter()
	w.SetFailing(true)

	if _, err := w.Append(context.Background(), core.Entry{ID: "entry-1"}); err == nil {
		t.Error("Append() on failing writer succeeded, want error")
	}
	if len(w.Items()) != 0 {
		t.Error("failing writer recorded an entry")
	}
}
