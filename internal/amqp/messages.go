package amqp

import (
	"encoding/json"
	"time"

	"expensetracker/internal/core"

	"github.com/google/uuid"
)

// ExpenseCreatedEvent announces a newly stored expense. It carries enough
// data for consumers that do not share the database.
type ExpenseCreatedEvent struct {
	EventID            string    `json:"event_id"`
	ExpenseID          int64     `json:"expense_id"`
	UserID             int64     `json:"user_id"`
	CategoryID         int64     `json:"category_id"`
	AmountCents        int64     `json:"amount_cents"`
	Date               string    `json:"date"`
	RecurringExpenseID int64     `json:"recurring_expense_id,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

func NewExpenseCreatedEvent(e core.Expense) *ExpenseCreatedEvent {
	return &ExpenseCreatedEvent{
		EventID:            uuid.NewString(),
		ExpenseID:          e.ID,
		UserID:             e.UserID,
		CategoryID:         e.CategoryID,
		AmountCents:        e.Amount.Cents,
		Date:               e.Date.String(),
		RecurringExpenseID: e.RecurringExpenseID,
		Timestamp:          time.Now(),
	}
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseCreatedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedEventFromJSON creates an event from JSON bytes
func ExpenseCreatedEventFromJSON(data []byte) (*ExpenseCreatedEvent, error) {
	var msg ExpenseCreatedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
