package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
)

// EventPublisher publishes expense.created events. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, ev *amqp.ExpenseCreatedEvent) error
}

// ExpenseStore is the storage the expense service needs.
type ExpenseStore interface {
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	ListCategories(ctx context.Context) ([]core.Category, error)
	CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
	ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error)
	SearchExpenses(ctx context.Context, userID int64, term string) ([]core.Expense, error)
	Dashboard(ctx context.Context, userID int64) (core.Dashboard, error)
}

// ExpenseService orchestrates expense operations across SQLite and AMQP
type ExpenseService struct {
	storage ExpenseStore
	events  EventPublisher
}

// NewExpenseService creates the service. events may be nil when AMQP is
// not configured.
func NewExpenseService(storage ExpenseStore, events EventPublisher) *ExpenseService {
	return &ExpenseService{
		storage: storage,
		events:  events,
	}
}

// CreateExpense validates and saves an expense, then publishes an
// expense.created event. A failed publish never fails the request.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Description = strings.TrimSpace(e.Description)
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	if err := s.ensureCategory(ctx, e.CategoryID); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.storage.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	publishExpenseCreated(ctx, s.events, saved)
	return saved, nil
}

func (s *ExpenseService) ListExpenses(ctx context.Context, userID int64) ([]core.Expense, error) {
	return s.storage.ListExpenses(ctx, userID)
}

// Search matches query against description and category name. An empty
// query returns no rows.
func (s *ExpenseService) Search(ctx context.Context, userID int64, query string) ([]core.Expense, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	return s.storage.SearchExpenses(ctx, userID, query)
}

func (s *ExpenseService) Dashboard(ctx context.Context, userID int64) (core.Dashboard, error) {
	return s.storage.Dashboard(ctx, userID)
}

func (s *ExpenseService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.storage.ListCategories(ctx)
}

// ensureCategory turns an unknown category id into a validation error.
func (s *ExpenseService) ensureCategory(ctx context.Context, id int64) error {
	if _, err := s.storage.GetCategory(ctx, id); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: category %d does not exist", core.ErrMissingCategory, id)
		}
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

func publishExpenseCreated(ctx context.Context, events EventPublisher, e core.Expense) {
	if events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping expense event", "expense_id", e.ID)
		return
	}
	if err := events.PublishExpenseCreated(ctx, amqp.NewExpenseCreatedEvent(e)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"expense_id", e.ID, "error", err)
	}
}
