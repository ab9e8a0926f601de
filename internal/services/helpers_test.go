package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	"expensetracker/internal/storage"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	repo     *storage.SQLiteRepository
	user     core.User
	category core.Category
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	user, err := repo.CreateUser(ctx, storage.CreateUserParams{Username: "ann", Email: "ann@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	cat, err := repo.EnsureCategory(ctx, "Housing")
	require.NoError(t, err)

	return fixture{repo: repo, user: user, category: cat}
}

func (f fixture) recurring(t *testing.T, title string, freq core.Frequency, next core.Date) core.RecurringExpense {
	t.Helper()
	re, err := f.repo.CreateRecurring(context.Background(), core.RecurringExpense{
		UserID:      f.user.ID,
		CategoryID:  f.category.ID,
		Title:       title,
		Amount:      core.Money{Cents: 1000},
		Frequency:   freq,
		StartDate:   next,
		NextDueDate: next,
		Status:      core.StatusActive,
	})
	require.NoError(t, err)
	return re
}

// recordingPublisher captures published events and can be made to fail.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.ExpenseCreatedEvent
	fail   bool
}

func (p *recordingPublisher) PublishExpenseCreated(ctx context.Context, ev *amqp.ExpenseCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
