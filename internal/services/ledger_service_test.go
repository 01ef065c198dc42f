package services

import (
	"context"
	"errors"
	"testing"

	"contas/internal/backend"
	"contas/internal/core"
	"contas/internal/storage/memory"
)

func newTestService(t *testing.T) (*LedgerService, *memory.Store) {
	t.Helper()
	store := memory.New()
	return NewLedgerService(store, nil, DefaultBatchSize), store
}

func TestLedgerService_CreateInstallmentPurchase(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	card, err := svc.store.CreateCard(ctx, core.Card{Name: "Visa", StatementClosingDay: 5})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	plan := core.InstallmentPlan{
		PurchaseDate:         core.NewDate(2024, 1, 15),
		TotalInstallments:    3,
		AmountPerInstallment: core.Money{Cents: 10000},
		Description:          "Notebook",
		Type:                 core.Expense,
		Target:               core.LinkedTarget{Kind: core.TargetCard, ID: card.ID},
	}

	created, err := svc.CreateInstallmentPurchase(ctx, plan)
	if err != nil {
		t.Fatalf("CreateInstallmentPurchase() error = %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("created %d entries, want 3", len(created))
	}

	// The card was resolved from the target, so due dates follow its
	// statement cycle.
	if created[0].Date != core.NewDate(2024, 2, 5) {
		t.Errorf("first due date = %v, want 2024-02-05", created[0].Date)
	}
	if created[0].GroupID == "" {
		t.Error("group id was not assigned")
	}
	for _, e := range created[1:] {
		if e.GroupID != created[0].GroupID {
			t.Errorf("entry group id = %q, want %q", e.GroupID, created[0].GroupID)
		}
	}
}

func TestLedgerService_RetryDoesNotDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	plan := core.InstallmentPlan{
		PurchaseDate:         core.NewDate(2024, 1, 15),
		TotalInstallments:    3,
		AmountPerInstallment: core.Money{Cents: 10000},
		GroupID:              "retry-group",
		Description:          "Notebook",
		Type:                 core.Expense,
		Target:               core.LinkedTarget{Kind: core.TargetAccount, ID: "acc-1"},
	}

	first, err := svc.CreateInstallmentPurchase(ctx, plan)
	if err != nil {
		t.Fatalf("CreateInstallmentPurchase() error = %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("first call created %d entries, want 3", len(first))
	}

	second, err := svc.CreateInstallmentPurchase(ctx, plan)
	if err != nil {
		t.Fatalf("retried CreateInstallmentPurchase() error = %v", err)
	}
	if len(second) != 0 {
		t.Errorf("retry created %d entries, want 0", len(second))
	}

	entries, err := store.ListEntriesFrom(ctx, core.NewDate(2024, 1, 1))
	if err != nil {
		t.Fatalf("ListEntriesFrom() error = %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("store holds %d entries after retry, want 3", len(entries))
	}
}

func TestLedgerService_RecurringLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	def := core.RecurringDefinition{
		StartDate:        core.NewDate(2024, 1, 10),
		Frequency:        core.Monthly,
		TotalOccurrences: 10,
		Description:      "Rent",
		Amount:           core.Money{Cents: 150000},
		Type:             core.Expense,
		Target:           core.LinkedTarget{Kind: core.TargetAccount, ID: "acc-1"},
	}

	// First batch materializes 6 of 10.
	first, err := svc.CreateRecurringObligation(ctx, def)
	if err != nil {
		t.Fatalf("CreateRecurringObligation() error = %v", err)
	}
	if len(first) != 6 {
		t.Fatalf("first batch created %d entries, want 6", len(first))
	}

	defID := first[0].RecurringID
	stored, err := store.GetRecurringDefinition(ctx, defID)
	if err != nil {
		t.Fatalf("GetRecurringDefinition() error = %v", err)
	}
	if stored.OccurrencesMaterialized != 6 {
		t.Errorf("materialized = %d after first batch, want 6", stored.OccurrencesMaterialized)
	}

	// Second batch picks up at occurrence 7 and is capped at 10.
	second, err := svc.GenerateNextBatch(ctx, defID)
	if err != nil {
		t.Fatalf("GenerateNextBatch() error = %v", err)
	}
	if len(second) != 4 {
		t.Fatalf("second batch created %d entries, want 4", len(second))
	}
	if second[0].InstallmentIndex != 7 {
		t.Errorf("second batch starts at index %d, want 7", second[0].InstallmentIndex)
	}
	if second[0].Date != core.NewDate(2024, 7, 10) {
		t.Errorf("second batch starts on %v, want 2024-07-10", second[0].Date)
	}

	// A third call finds the series exhausted.
	third, err := svc.GenerateNextBatch(ctx, defID)
	if err != nil {
		t.Fatalf("GenerateNextBatch() on exhausted series error = %v", err)
	}
	if len(third) != 0 {
		t.Errorf("exhausted series produced %d entries, want 0", len(third))
	}
}

func TestLedgerService_ConcurrentCounterUpdate(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	def, err := store.CreateRecurringDefinition(ctx, core.RecurringDefinition{
		ID:          "def-race",
		StartDate:   core.NewDate(2024, 1, 10),
		Frequency:   core.Monthly,
		Description: "Rent",
		Amount:      core.Money{Cents: 150000},
		Type:        core.Expense,
		Target:      core.LinkedTarget{Kind: core.TargetAccount, ID: "acc-1"},
	})
	if err != nil {
		t.Fatalf("CreateRecurringDefinition() error = %v", err)
	}

	// Another generation pass advances the counter behind our back.
	if err := store.SetOccurrencesMaterialized(ctx, def.ID, 0, 6); err != nil {
		t.Fatalf("SetOccurrencesMaterialized() error = %v", err)
	}

	// Our stale read still says zero; the conditional write must refuse.
	err = svc.Registry().RecordMaterialized(ctx, def, 6)
	if !errors.Is(err, backend.ErrConcurrentModification) {
		t.Errorf("RecordMaterialized() error = %v, want ErrConcurrentModification", err)
	}

	stored, err := store.GetRecurringDefinition(ctx, def.ID)
	if err != nil {
		t.Fatalf("GetRecurringDefinition() error = %v", err)
	}
	if stored.OccurrencesMaterialized != 6 {
		t.Errorf("materialized = %d after refused write, want 6", stored.OccurrencesMaterialized)
	}
}

func TestSeriesRegistry_RemainingCapacity(t *testing.T) {
	registry := NewSeriesRegistry(memory.New())

	tests := []struct {
		name         string
		total        int
		materialized int
		want         int
		wantBounded  bool
	}{
		{name: "open-ended", total: 0, materialized: 99, want: 0, wantBounded: false},
		{name: "fresh bounded", total: 10, materialized: 0, want: 10, wantBounded: true},
		{name: "partially materialized", total: 10, materialized: 6, want: 4, wantBounded: true},
		{name: "exhausted", total: 10, materialized: 10, want: 0, wantBounded: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := core.RecurringDefinition{
				TotalOccurrences:        tt.total,
				OccurrencesMaterialized: tt.materialized,
			}
			got, bounded := registry.RemainingCapacity(def)
			if got != tt.want || bounded != tt.wantBounded {
				t.Errorf("RemainingCapacity() = (%d, %v), want (%d, %v)",
					got, bounded, tt.want, tt.wantBounded)
			}
		})
	}
}

func TestLedgerService_UpcomingCardProjections(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	card, err := store.CreateCard(ctx, core.Card{Name: "Visa", StatementClosingDay: 5, Limit: core.Money{Cents: 500000}})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}

	plan := core.InstallmentPlan{
		PurchaseDate:         core.NewDate(2024, 1, 15),
		TotalInstallments:    2,
		AmountPerInstallment: core.Money{Cents: 10000},
		Description:          "Notebook",
		Type:                 core.Expense,
		Target:               core.LinkedTarget{Kind: core.TargetCard, ID: card.ID},
	}
	if _, err := svc.CreateInstallmentPurchase(ctx, plan); err != nil {
		t.Fatalf("CreateInstallmentPurchase() error = %v", err)
	}

	projections, err := svc.UpcomingCardProjections(ctx, core.NewDate(2024, 1, 1))
	if err != nil {
		t.Fatalf("UpcomingCardProjections() error = %v", err)
	}
	if len(projections) != 1 {
		t.Fatalf("got %d projections, want 1", len(projections))
	}
	p := projections[0]
	if len(p.Lines) != 2 {
		t.Errorf("projection has %d lines, want 2", len(p.Lines))
	}
	if p.UpcomingTotal.Cents != 20000 {
		t.Errorf("upcoming total = %d, want 20000", p.UpcomingTotal.Cents)
	}
}
