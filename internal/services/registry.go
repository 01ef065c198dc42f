package services

import (
	"context"
	"fmt"

	"contas/internal/backend"
	"contas/internal/core"
)

// SeriesRegistry tracks how many occurrences of each recurring definition
// have been materialized. The counter only grows, and only through the
// conditional write below, so two generation passes racing on the same
// definition cannot both advance it.
type SeriesRegistry struct {
	store backend.LedgerStore
}

func NewSeriesRegistry(store backend.LedgerStore) *SeriesRegistry {
	return &SeriesRegistry{store: store}
}

// RecordMaterialized bumps the definition's materialized counter by count,
// using the counter value the caller read as the optimistic base. If
// another pass advanced it first, the store reports
// ErrConcurrentModification and the caller must re-fetch and retry.
func (r *SeriesRegistry) RecordMaterialized(ctx context.Context, def core.RecurringDefinition, count int) error {
	if count <= 0 {
		return nil
	}
	base := def.OccurrencesMaterialized
	if err := r.store.SetOccurrencesMaterialized(ctx, def.ID, base, base+count); err != nil {
		return fmt.Errorf("record %d materialized occurrences for %s: %w", count, def.ID, err)
	}
	return nil
}

// RemainingCapacity returns how many occurrences the definition can still
// generate. The second result is false for open-ended series, whose
// capacity is unlimited.
func (r *SeriesRegistry) RemainingCapacity(def core.RecurringDefinition) (int, bool) {
	if def.Unbounded() {
		return 0, false
	}
	remaining := def.TotalOccurrences - def.OccurrencesMaterialized
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
