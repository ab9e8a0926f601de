package services

import (
	"context"
	"testing"

	"expensetracker/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecurringService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	svc := NewRecurringService(fx.repo)

	created, err := svc.Create(ctx, fx.user.ID, RecurringInput{
		CategoryID: fx.category.ID,
		Title:      "  Rent  ",
		Amount:     core.Money{Cents: 50000},
		Frequency:  core.Monthly,
		StartDate:  core.NewDate(2024, 1, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rent", created.Title)
	assert.True(t, created.NextDueDate.Equal(created.StartDate), "first due date is the start date")
	assert.Equal(t, core.StatusActive, created.Status)

	updated, err := svc.Update(ctx, fx.user.ID, created.ID, RecurringInput{
		CategoryID:  fx.category.ID,
		Title:       "Rent flat 4B",
		Amount:      core.Money{Cents: 52000},
		Description: "new contract",
		Frequency:   core.Weekly,
		EndDate:     core.NewDate(2025, 1, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, "Rent flat 4B", updated.Title)
	assert.EqualValues(t, 52000, updated.Amount.Cents)
	assert.Equal(t, core.Weekly, updated.Frequency)
	assert.Equal(t, "2025-01-01", updated.EndDate.String())
	assert.True(t, updated.NextDueDate.Equal(created.NextDueDate), "update must not move the schedule")

	list, err := svc.List(ctx, fx.user.ID, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.Deactivate(ctx, fx.user.ID, created.ID))

	list, err = svc.List(ctx, fx.user.ID, false)
	require.NoError(t, err)
	assert.Empty(t, list)

	all, err := svc.List(ctx, fx.user.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 1, "soft-deleted rows are retained")
	assert.Equal(t, core.StatusInactive, all[0].Status)

	kept, err := svc.Get(ctx, fx.user.ID, created.ID)
	require.NoError(t, err)
	assert.False(t, kept.IsDue(core.NewDate(2030, 1, 1)))
}

func TestRecurringService_Validation(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	svc := NewRecurringService(fx.repo)

	base := RecurringInput{
		CategoryID: fx.category.ID,
		Title:      "Rent",
		Amount:     core.Money{Cents: 100},
		Frequency:  core.Monthly,
		StartDate:  core.NewDate(2024, 1, 1),
	}

	tests := []struct {
		name   string
		mutate func(*RecurringInput)
		want   error
	}{
		{"unknown category", func(in *RecurringInput) { in.CategoryID = 9999 }, core.ErrMissingCategory},
		{"bad frequency", func(in *RecurringInput) { in.Frequency = "hourly" }, core.ErrInvalidFrequency},
		{"end before start", func(in *RecurringInput) { in.EndDate = core.NewDate(2023, 1, 1) }, core.ErrEndBeforeStart},
		{"zero amount", func(in *RecurringInput) { in.Amount = core.Money{} }, core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := svc.Create(ctx, fx.user.ID, in)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, core.IsValidationError(err))
		})
	}

	_, err := svc.Update(ctx, fx.user.ID, 12345, base)
	assert.ErrorIs(t, err, ErrNotFound)

	err = svc.Deactivate(ctx, fx.user.ID+1, 12345)
	assert.ErrorIs(t, err, ErrNotFound)
}
