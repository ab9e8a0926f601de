package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/storage"
)

// RecurringRepository is the storage the recurring expense CRUD needs.
type RecurringRepository interface {
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	CreateRecurring(ctx context.Context, re core.RecurringExpense) (core.RecurringExpense, error)
	GetRecurringForUser(ctx context.Context, userID, id int64) (core.RecurringExpense, error)
	ListRecurring(ctx context.Context, userID int64, includeInactive bool) ([]core.RecurringExpense, error)
	UpdateRecurring(ctx context.Context, arg storage.UpdateRecurringParams) error
	SetRecurringStatus(ctx context.Context, userID, id int64, status core.Status) error
}

// RecurringInput carries user-editable fields. StartDate is ignored on update.
type RecurringInput struct {
	CategoryID  int64
	Title       string
	Amount      core.Money
	Description string
	Frequency   core.Frequency
	StartDate   core.Date
	EndDate     core.Date
}

type RecurringService struct {
	store RecurringRepository
}

func NewRecurringService(store RecurringRepository) *RecurringService {
	return &RecurringService{store: store}
}

// Create stores a new active recurring expense whose first due date is its
// start date.
func (s *RecurringService) Create(ctx context.Context, userID int64, in RecurringInput) (core.RecurringExpense, error) {
	re := core.RecurringExpense{
		UserID:      userID,
		CategoryID:  in.CategoryID,
		Title:       strings.TrimSpace(in.Title),
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		Frequency:   in.Frequency,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		NextDueDate: core.SeedNextDueDate(in.StartDate),
		Status:      core.StatusActive,
	}
	if err := re.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	if err := s.ensureCategory(ctx, re.CategoryID); err != nil {
		return core.RecurringExpense{}, err
	}

	saved, err := s.store.CreateRecurring(ctx, re)
	if err != nil {
		return core.RecurringExpense{}, err
	}
	slog.InfoContext(ctx, "Recurring expense created",
		"id", saved.ID,
		"user_id", userID,
		"frequency", saved.Frequency,
		"next_due_date", saved.NextDueDate.String())
	return saved, nil
}

// Update changes category, amount, title, description, frequency and end
// date. The schedule position is left untouched.
func (s *RecurringService) Update(ctx context.Context, userID, id int64, in RecurringInput) (core.RecurringExpense, error) {
	current, err := s.store.GetRecurringForUser(ctx, userID, id)
	if err != nil {
		return core.RecurringExpense{}, err
	}

	next := current
	next.CategoryID = in.CategoryID
	next.Title = strings.TrimSpace(in.Title)
	next.Amount = in.Amount
	next.Description = strings.TrimSpace(in.Description)
	next.Frequency = in.Frequency
	next.EndDate = in.EndDate
	if err := next.Validate(); err != nil {
		return core.RecurringExpense{}, err
	}
	if err := s.ensureCategory(ctx, next.CategoryID); err != nil {
		return core.RecurringExpense{}, err
	}

	err = s.store.UpdateRecurring(ctx, storage.UpdateRecurringParams{
		ID:          id,
		UserID:      userID,
		CategoryID:  next.CategoryID,
		Title:       next.Title,
		Amount:      next.Amount,
		Description: next.Description,
		Frequency:   next.Frequency,
		EndDate:     next.EndDate,
	})
	if err != nil {
		return core.RecurringExpense{}, err
	}
	return s.store.GetRecurringForUser(ctx, userID, id)
}

// Deactivate soft-deletes the record. It stays in storage but never shows
// up in due or notification queries again.
func (s *RecurringService) Deactivate(ctx context.Context, userID, id int64) error {
	if err := s.store.SetRecurringStatus(ctx, userID, id, core.StatusInactive); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Recurring expense deactivated", "id", id, "user_id", userID)
	return nil
}

func (s *RecurringService) Get(ctx context.Context, userID, id int64) (core.RecurringExpense, error) {
	return s.store.GetRecurringForUser(ctx, userID, id)
}

func (s *RecurringService) List(ctx context.Context, userID int64, includeInactive bool) ([]core.RecurringExpense, error) {
	return s.store.ListRecurring(ctx, userID, includeInactive)
}

func (s *RecurringService) ensureCategory(ctx context.Context, id int64) error {
	if _, err := s.store.GetCategory(ctx, id); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: category %d does not exist", core.ErrMissingCategory, id)
		}
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
