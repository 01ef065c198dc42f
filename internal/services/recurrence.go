package services

import (
	"fmt"

	"contas/internal/core"
)

// DefaultBatchSize bounds how many occurrences a single generation pass
// materializes. Open-ended series are expanded incrementally rather than
// all at once.
const DefaultBatchSize = 6

// ExpandRecurrence materializes the next batch of occurrences for a
// recurring definition. Generation resumes from OccurrencesMaterialized,
// so indices and the month cadence continue where the last batch stopped.
// An exhausted series yields an empty slice, not an error.
func ExpandRecurrence(def core.RecurringDefinition, batchSize int) ([]core.EntryDraft, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	if def.ID == "" {
		return nil, fmt.Errorf("recurring definition has no id")
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", batchSize)
	}

	toGenerate := batchSize
	if !def.Unbounded() {
		remaining := def.TotalOccurrences - def.OccurrencesMaterialized
		if remaining <= 0 {
			return nil, nil
		}
		if remaining < toGenerate {
			toGenerate = remaining
		}
	}

	stride := def.Frequency.Months()
	drafts := make([]core.EntryDraft, 0, toGenerate)
	for k := 0; k < toGenerate; k++ {
		idx := def.OccurrencesMaterialized + k + 1
		raw := def.StartDate.AddMonths((idx - 1) * stride)

		due := raw
		if def.Card != nil {
			due = ResolveStatementDate(raw, def.Card.StatementClosingDay, 0)
		}

		drafts = append(drafts, core.EntryDraft{
			Date:             due,
			Description:      annotateOccurrence(def.Description, idx, def.TotalOccurrences),
			Category:         def.Category,
			Amount:           def.Amount,
			Type:             def.Type,
			Target:           def.Target,
			InstallmentIndex: idx,
			InstallmentTotal: def.TotalOccurrences,
			GroupID:          def.ID,
			RecurringID:      def.ID,
		})
	}
	return drafts, nil
}

func annotateOccurrence(description string, idx, total int) string {
	if total == 0 {
		return fmt.Sprintf("%s (%d/∞)", description, idx)
	}
	return fmt.Sprintf("%s (%d/%d)", description, idx, total)
}
