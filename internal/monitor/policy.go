package monitor

import (
	"context"

	"expensetracker/internal/core"
)

// Policy decides whether a user should be told about their due items and
// records that they were.
type Policy interface {
	AlreadyNotified(ctx context.Context, userID int64, items []core.RecurringExpense, today core.Date) (bool, error)
	ShouldSendOverdueReminder(ctx context.Context, userID int64, items []core.RecurringExpense, today core.Date) (bool, error)
	MarkNotified(ctx context.Context, items []core.RecurringExpense, today core.Date) error
	MarkOverdueReminded(ctx context.Context, items []core.RecurringExpense, today core.Date) error
}

// AlwaysNotify never suppresses a notification: every scan mails every user
// with eligible items.
type AlwaysNotify struct{}

func (AlwaysNotify) AlreadyNotified(context.Context, int64, []core.RecurringExpense, core.Date) (bool, error) {
	return false, nil
}

func (AlwaysNotify) ShouldSendOverdueReminder(context.Context, int64, []core.RecurringExpense, core.Date) (bool, error) {
	return true, nil
}

func (AlwaysNotify) MarkNotified(context.Context, []core.RecurringExpense, core.Date) error {
	return nil
}

func (AlwaysNotify) MarkOverdueReminded(context.Context, []core.RecurringExpense, core.Date) error {
	return nil
}

// MarkerStore persists the per-record notification markers.
type MarkerStore interface {
	MarkNotified(ctx context.Context, ids []int64, on core.Date) error
	MarkOverdueReminded(ctx context.Context, ids []int64, on core.Date) error
}

// DailyMarkerPolicy sends at most one due notification per user per day and
// repeats overdue reminders every reminderEvery days.
type DailyMarkerPolicy struct {
	store         MarkerStore
	reminderEvery int
}

// NewDailyMarkerPolicy returns a marker-backed policy. A reminder interval
// below one day is treated as one day.
func NewDailyMarkerPolicy(store MarkerStore, reminderEvery int) *DailyMarkerPolicy {
	if reminderEvery < 1 {
		reminderEvery = 1
	}
	return &DailyMarkerPolicy{store: store, reminderEvery: reminderEvery}
}

// AlreadyNotified is true only when every item was already part of a
// notification today, so a newly due item still triggers a fresh email.
func (p *DailyMarkerPolicy) AlreadyNotified(_ context.Context, _ int64, items []core.RecurringExpense, today core.Date) (bool, error) {
	if len(items) == 0 {
		return true, nil
	}
	for _, re := range items {
		if !re.LastNotifiedDate.Equal(today) {
			return false, nil
		}
	}
	return true, nil
}

func (p *DailyMarkerPolicy) ShouldSendOverdueReminder(_ context.Context, _ int64, items []core.RecurringExpense, today core.Date) (bool, error) {
	for _, re := range items {
		last := re.LastOverdueReminderDate
		if last.IsZero() || today.DaysSince(last) >= p.reminderEvery {
			return true, nil
		}
	}
	return false, nil
}

func (p *DailyMarkerPolicy) MarkNotified(ctx context.Context, items []core.RecurringExpense, today core.Date) error {
	return p.store.MarkNotified(ctx, ids(items), today)
}

func (p *DailyMarkerPolicy) MarkOverdueReminded(ctx context.Context, items []core.RecurringExpense, today core.Date) error {
	return p.store.MarkOverdueReminded(ctx, ids(items), today)
}

func ids(items []core.RecurringExpense) []int64 {
	out := make([]int64, len(items))
	for i, re := range items {
		out[i] = re.ID
	}
	return out
}
