package services

import (
	"fmt"

	"contas/internal/core"
)

// ExpandInstallments turns an installment plan into one draft per
// installment, ordered by due date ascending. With a linked card, due dates
// follow the card's statement cycle; without one, they fall on the purchase
// day of each following month. The plan is validated up front, so a bad
// plan never produces a partial expansion.
func ExpandInstallments(plan core.InstallmentPlan) ([]core.EntryDraft, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if plan.GroupID == "" {
		return nil, fmt.Errorf("installment plan has no group id")
	}

	drafts := make([]core.EntryDraft, 0, plan.TotalInstallments)
	for i := 1; i <= plan.TotalInstallments; i++ {
		var due core.Date
		if plan.Card != nil {
			due = ResolveStatementDate(plan.PurchaseDate, plan.Card.StatementClosingDay, i-1)
		} else {
			due = plan.PurchaseDate.AddMonths(i - 1)
		}

		drafts = append(drafts, core.EntryDraft{
			Date:             due,
			Description:      fmt.Sprintf("%s (%d/%d)", plan.Description, i, plan.TotalInstallments),
			Category:         plan.Category,
			Amount:           plan.AmountPerInstallment,
			Type:             plan.Type,
			Target:           plan.Target,
			InstallmentIndex: i,
			InstallmentTotal: plan.TotalInstallments,
			GroupID:          plan.GroupID,
		})
	}
	return drafts, nil
}
