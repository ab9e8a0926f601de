package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

var (
	// ErrNotFound is returned when a record does not exist or belongs to
	// another user.
	ErrNotFound = storage.ErrNotFound

	// ErrNotEligible is returned when a recurring expense is inactive, not
	// yet due, or already processed for its current due date.
	ErrNotEligible = errors.New("recurring expense is not eligible for processing")
)

// RecurringStore is the storage the processor needs.
type RecurringStore interface {
	GetRecurringForUser(ctx context.Context, userID, id int64) (core.RecurringExpense, error)
	ListRecurringByIDs(ctx context.Context, userID int64, ids []int64) ([]core.RecurringExpense, error)
	ListEligibleForUser(ctx context.Context, userID int64, on core.Date) ([]core.RecurringExpense, error)
	WithTx(ctx context.Context, fn func(q *storage.Queries) error) error
}

// ProcessResult describes one materialized occurrence.
type ProcessResult struct {
	RecurringID int64
	Expense     core.Expense
	NextDueDate core.Date
	Status      core.Status
}

// Skipped is a requested id that was not processed.
type Skipped struct {
	ID     int64
	Reason string
}

// BatchResult is the outcome of ProcessSelected.
type BatchResult struct {
	Processed []ProcessResult
	Skipped   []Skipped
}

// RecurringProcessor materializes due recurring expenses into expenses.
type RecurringProcessor struct {
	store  RecurringStore
	events EventPublisher
}

// NewRecurringProcessor creates a new recurring expense processor. events
// may be nil.
func NewRecurringProcessor(store RecurringStore, events EventPublisher) *RecurringProcessor {
	return &RecurringProcessor{store: store, events: events}
}

// DueForUser returns the user's eligible items split into overdue and due today.
func (p *RecurringProcessor) DueForUser(ctx context.Context, userID int64, today core.Date) (core.DueBuckets, error) {
	items, err := p.store.ListEligibleForUser(ctx, userID, today)
	if err != nil {
		return core.DueBuckets{}, fmt.Errorf("load due expenses: %w", err)
	}
	return core.Classify(items, today), nil
}

// ProcessOne materializes a single recurring expense owned by userID.
func (p *RecurringProcessor) ProcessOne(ctx context.Context, userID, id int64, today core.Date) (ProcessResult, error) {
	re, err := p.store.GetRecurringForUser(ctx, userID, id)
	if err != nil {
		return ProcessResult{}, err
	}
	if !re.IsEligible(today) {
		return ProcessResult{}, fmt.Errorf("recurring expense %d: %w", id, ErrNotEligible)
	}

	var res ProcessResult
	err = p.store.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		res, err = materializeInTx(ctx, q, re)
		return err
	})
	if errors.Is(err, ErrNotEligible) {
		slog.InfoContext(ctx, "Recurring expense already processed by another request",
			"recurring_id", id,
			"due_date", re.NextDueDate.String())
		return ProcessResult{}, fmt.Errorf("recurring expense %d: %w", id, err)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Processing recurring expense failed, rolled back",
			"recurring_id", id,
			"user_id", userID,
			"error", err)
		return ProcessResult{}, fmt.Errorf("process recurring expense %d: %w", id, err)
	}

	p.announce(ctx, res)
	slog.InfoContext(ctx, "Processed recurring expense",
		"recurring_id", id,
		"expense_id", res.Expense.ID,
		"expense_date", res.Expense.Date.String(),
		"next_due_date", res.NextDueDate.String())
	return res, nil
}

// ProcessSelected materializes every eligible id owned by userID in one
// transaction. Unknown, foreign and ineligible ids are reported as skipped.
// Any storage failure rolls back the whole batch.
func (p *RecurringProcessor) ProcessSelected(ctx context.Context, userID int64, ids []int64, today core.Date) (BatchResult, error) {
	ids = uniqueIDs(ids)

	items, err := p.store.ListRecurringByIDs(ctx, userID, ids)
	if err != nil {
		return BatchResult{}, fmt.Errorf("load selected recurring expenses: %w", err)
	}
	byID := make(map[int64]core.RecurringExpense, len(items))
	for _, re := range items {
		byID[re.ID] = re
	}

	var result BatchResult
	var eligible []core.RecurringExpense
	for _, id := range ids {
		re, ok := byID[id]
		switch {
		case !ok:
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: "not found"})
		case !re.IsEligible(today):
			result.Skipped = append(result.Skipped, Skipped{ID: id, Reason: "not eligible"})
		default:
			eligible = append(eligible, re)
		}
	}
	if len(eligible) == 0 {
		return result, nil
	}

	var processed []ProcessResult
	var raced []Skipped
	err = p.store.WithTx(ctx, func(q *storage.Queries) error {
		processed, raced = processed[:0], raced[:0]
		for _, re := range eligible {
			res, err := materializeInTx(ctx, q, re)
			if errors.Is(err, ErrNotEligible) {
				raced = append(raced, Skipped{ID: re.ID, Reason: "not eligible"})
				continue
			}
			if err != nil {
				return fmt.Errorf("recurring expense %d: %w", re.ID, err)
			}
			processed = append(processed, res)
		}
		return nil
	})
	if err != nil {
		slog.ErrorContext(ctx, "Batch processing failed, rolled back",
			"user_id", userID,
			"requested", len(ids),
			"error", err)
		return BatchResult{}, fmt.Errorf("process selected: %w", err)
	}

	result.Processed = processed
	result.Skipped = append(result.Skipped, raced...)
	for _, res := range processed {
		p.announce(ctx, res)
	}

	slog.InfoContext(ctx, "Batch processing complete",
		"user_id", userID,
		"processed", len(result.Processed),
		"skipped", len(result.Skipped))
	return result, nil
}

// materializeInTx records re's current due date as processed, advances the
// schedule and inserts the expense for that date. The update is conditional
// on the row still being in the state re was read in; if it is not, the
// result is ErrNotEligible. Once the next due date passes the end date the
// record becomes inactive.
func materializeInTx(ctx context.Context, q *storage.Queries, re core.RecurringExpense) (ProcessResult, error) {
	if _, ok := GetDueDateAdvancer(re.Frequency); !ok {
		return ProcessResult{}, fmt.Errorf("%w: %q", core.ErrInvalidFrequency, re.Frequency)
	}

	next := CalculateNextDueDate(re.NextDueDate, re.Frequency)
	status := re.Status
	if !re.EndDate.IsZero() && next.After(re.EndDate) {
		status = core.StatusInactive
	}

	// claim the due date first so a concurrent request cannot insert a
	// second expense for it
	err := q.MarkRecurringProcessed(ctx, storage.MarkProcessedParams{
		ID:            re.ID,
		LastProcessed: re.NextDueDate,
		NextDue:       next,
		Status:        status,
	})
	if errors.Is(err, storage.ErrStaleRecurring) {
		return ProcessResult{}, fmt.Errorf("%w: %w", ErrNotEligible, err)
	}
	if err != nil {
		return ProcessResult{}, fmt.Errorf("advance due date: %w", err)
	}

	exp := Materialize(re)
	id, err := q.CreateExpense(ctx, exp)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("insert expense: %w", err)
	}
	exp.ID = id

	return ProcessResult{RecurringID: re.ID, Expense: exp, NextDueDate: next, Status: status}, nil
}

func (p *RecurringProcessor) announce(ctx context.Context, res ProcessResult) {
	publishExpenseCreated(ctx, p.events, res.Expense)
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
