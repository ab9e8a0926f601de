package http

import (
	"encoding/json"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

type createExpenseRequest struct {
	CategoryID  int64       `json:"category_id"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Date        string      `json:"date"`
}

type recurringRequest struct {
	CategoryID  int64       `json:"category_id"`
	Title       string      `json:"title"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Frequency   string      `json:"frequency"`
	StartDate   string      `json:"start_date"`
	EndDate     string      `json:"end_date"`
}

type processRequest struct {
	IDs []int64 `json:"ids"`
}

type expenseResponse struct {
	ID                 int64  `json:"id"`
	Date               string `json:"date"`
	Description        string `json:"description"`
	Amount             string `json:"amount"`
	AmountCents        int64  `json:"amount_cents"`
	CategoryID         int64  `json:"category_id"`
	Category           string `json:"category,omitempty"`
	RecurringExpenseID int64  `json:"recurring_expense_id,omitempty"`
}

func newExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:                 e.ID,
		Date:               e.Date.String(),
		Description:        e.Description,
		Amount:             e.Amount.String(),
		AmountCents:        e.Amount.Cents,
		CategoryID:         e.CategoryID,
		Category:           e.Category,
		RecurringExpenseID: e.RecurringExpenseID,
	}
}

func newExpenseList(items []core.Expense) []expenseResponse {
	out := make([]expenseResponse, 0, len(items))
	for _, e := range items {
		out = append(out, newExpenseResponse(e))
	}
	return out
}

type recurringResponse struct {
	ID                int64  `json:"id"`
	Title             string `json:"title"`
	Description       string `json:"description,omitempty"`
	CategoryID        int64  `json:"category_id"`
	Category          string `json:"category,omitempty"`
	Amount            string `json:"amount"`
	AmountCents       int64  `json:"amount_cents"`
	Frequency         string `json:"frequency"`
	StartDate         string `json:"start_date"`
	EndDate           string `json:"end_date,omitempty"`
	NextDueDate       string `json:"next_due_date"`
	Status            string `json:"status"`
	LastProcessedDate string `json:"last_processed_date,omitempty"`
	TotalProcessed    int64  `json:"total_processed"`
	DueState          string `json:"due_state"`
	DaysOverdue       int    `json:"days_overdue"`
	Eligible          bool   `json:"eligible"`
}

func newRecurringResponse(re core.RecurringExpense, today core.Date) recurringResponse {
	days := re.DaysOverdue(today)
	if days < 0 {
		days = 0
	}
	return recurringResponse{
		ID:                re.ID,
		Title:             re.Title,
		Description:       re.Description,
		CategoryID:        re.CategoryID,
		Category:          re.Category,
		Amount:            re.Amount.String(),
		AmountCents:       re.Amount.Cents,
		Frequency:         string(re.Frequency),
		StartDate:         re.StartDate.String(),
		EndDate:           re.EndDate.String(),
		NextDueDate:       re.NextDueDate.String(),
		Status:            string(re.Status),
		LastProcessedDate: re.LastProcessedDate.String(),
		TotalProcessed:    re.TotalProcessed,
		DueState:          string(re.DueState(today)),
		DaysOverdue:       days,
		Eligible:          re.IsEligible(today),
	}
}

func newRecurringList(items []core.RecurringExpense, today core.Date) []recurringResponse {
	out := make([]recurringResponse, 0, len(items))
	for _, re := range items {
		out = append(out, newRecurringResponse(re, today))
	}
	return out
}

type dueResponse struct {
	Date     string              `json:"date"`
	Count    int                 `json:"count"`
	Total    string              `json:"total"`
	Overdue  []recurringResponse `json:"overdue"`
	DueToday []recurringResponse `json:"due_today"`
}

func newDueResponse(b core.DueBuckets, today core.Date) dueResponse {
	var total core.Money
	for _, re := range b.All() {
		total = total.Add(re.Amount)
	}
	return dueResponse{
		Date:     today.String(),
		Count:    b.Len(),
		Total:    total.String(),
		Overdue:  newRecurringList(b.Overdue, today),
		DueToday: newRecurringList(b.DueToday, today),
	}
}

type processedItem struct {
	RecurringID int64           `json:"recurring_id"`
	Expense     expenseResponse `json:"expense"`
	NextDueDate string          `json:"next_due_date"`
	Status      string          `json:"status"`
}

type skippedItem struct {
	ID     int64  `json:"id"`
	Reason string `json:"reason"`
}

type processResponse struct {
	Processed []processedItem `json:"processed"`
	Skipped   []skippedItem   `json:"skipped"`
}

func newProcessedItem(res services.ProcessResult) processedItem {
	return processedItem{
		RecurringID: res.RecurringID,
		Expense:     newExpenseResponse(res.Expense),
		NextDueDate: res.NextDueDate.String(),
		Status:      string(res.Status),
	}
}

func newProcessResponse(b services.BatchResult) processResponse {
	out := processResponse{
		Processed: make([]processedItem, 0, len(b.Processed)),
		Skipped:   make([]skippedItem, 0, len(b.Skipped)),
	}
	for _, res := range b.Processed {
		out.Processed = append(out.Processed, newProcessedItem(res))
	}
	for _, s := range b.Skipped {
		out.Skipped = append(out.Skipped, skippedItem{ID: s.ID, Reason: s.Reason})
	}
	return out
}

type categoryAmount struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

type dashboardResponse struct {
	Total      string           `json:"total"`
	TotalCents int64            `json:"total_cents"`
	ByCategory []categoryAmount `json:"by_category"`
}

func newDashboardResponse(d core.Dashboard) dashboardResponse {
	out := dashboardResponse{
		Total:      d.Total.String(),
		TotalCents: d.Total.Cents,
		ByCategory: make([]categoryAmount, 0, len(d.ByCategory)),
	}
	for _, c := range d.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmount{Name: c.Name, Amount: c.Amount.String(), AmountCents: c.Amount.Cents})
	}
	return out
}

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
