package services

import "contas/internal/core"

// ResolveStatementDate computes the statement a card transaction posts to.
// A transaction after the closing day belongs to the next statement; one on
// the closing day itself stays in the current cycle. installmentOffset
// advances the result by whole statements (i-1 for the i-th installment).
//
// Closing days that exceed the target month's length land on its last day,
// so a day-31 closing bills on Feb 29 in a leap year, not in March.
func ResolveStatementDate(txDate core.Date, closingDay, installmentOffset int) core.Date {
	months := installmentOffset
	if txDate.Day > closingDay {
		months++
	}
	return txDate.AddMonths(months).WithDayClamped(closingDay)
}
