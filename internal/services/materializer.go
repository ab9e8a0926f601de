package services

import (
	"strings"
	"unicode/utf8"

	"expensetracker/internal/core"
)

const recurringSuffix = " (Recurring)"

// Materialize turns the current occurrence of re into an expense dated on
// the due date being settled, not on the day it is processed.
func Materialize(re core.RecurringExpense) core.Expense {
	desc := re.Title
	if d := strings.TrimSpace(re.Description); d != "" {
		desc += ": " + d
	}
	return core.Expense{
		UserID:             re.UserID,
		CategoryID:         re.CategoryID,
		Category:           re.Category,
		Amount:             re.Amount,
		Description:        truncate(desc, 200-len(recurringSuffix)) + recurringSuffix,
		Date:               re.NextDueDate,
		RecurringExpenseID: re.ID,
	}
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
