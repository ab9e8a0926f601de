package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"expensetracker/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ProcessorTestSuite struct {
	suite.Suite
	fx        fixture
	ctx       context.Context
	events    *recordingPublisher
	processor *RecurringProcessor
	today     core.Date
}

func (s *ProcessorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.fx = newFixture(s.T())
	s.events = &recordingPublisher{}
	s.processor = NewRecurringProcessor(s.fx.repo, s.events)
	s.today = core.NewDate(2024, 2, 1)
}

func (s *ProcessorTestSuite) TestProcessOne_LeapYearScenario() {
	re := s.fx.recurring(s.T(), "Rent", core.Monthly, core.NewDate(2024, 1, 31))

	buckets, err := s.processor.DueForUser(s.ctx, s.fx.user.ID, s.today)
	require.NoError(s.T(), err)
	require.Len(s.T(), buckets.Overdue, 1)
	assert.Empty(s.T(), buckets.DueToday)

	res, err := s.processor.ProcessOne(s.ctx, s.fx.user.ID, re.ID, s.today)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), "2024-01-31", res.Expense.Date.String())
	assert.Equal(s.T(), "2024-02-29", res.NextDueDate.String())
	assert.Equal(s.T(), "Rent (Recurring)", res.Expense.Description)
	assert.NotZero(s.T(), res.Expense.ID)

	got, err := s.fx.repo.GetRecurringForUser(s.ctx, s.fx.user.ID, re.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2024-02-29", got.NextDueDate.String())
	assert.Equal(s.T(), "2024-01-31", got.LastProcessedDate.String())
	assert.EqualValues(s.T(), 1, got.TotalProcessed)

	expenses, err := s.fx.repo.ListExpenses(s.ctx, s.fx.user.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), expenses, 1)
	assert.Equal(s.T(), re.ID, expenses[0].RecurringExpenseID)

	assert.Equal(s.T(), 1, s.events.count())
}

func (s *ProcessorTestSuite) TestProcessOne_NotRepeatable() {
	re := s.fx.recurring(s.T(), "Gym", core.Weekly, s.today)

	_, err := s.processor.ProcessOne(s.ctx, s.fx.user.ID, re.ID, s.today)
	require.NoError(s.T(), err)

	_, err = s.processor.ProcessOne(s.ctx, s.fx.user.ID, re.ID, s.today)
	assert.ErrorIs(s.T(), err, ErrNotEligible)
}

func (s *ProcessorTestSuite) TestProcessOne_Errors() {
	re := s.fx.recurring(s.T(), "Rent", core.Monthly, s.today)
	future := s.fx.recurring(s.T(), "Later", core.Monthly, s.today.AddDays(3))

	_, err := s.processor.ProcessOne(s.ctx, s.fx.user.ID+1, re.ID, s.today)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	_, err = s.processor.ProcessOne(s.ctx, s.fx.user.ID, future.ID, s.today)
	assert.ErrorIs(s.T(), err, ErrNotEligible)

	require.NoError(s.T(), s.fx.repo.SetRecurringStatus(s.ctx, s.fx.user.ID, re.ID, core.StatusInactive))
	_, err = s.processor.ProcessOne(s.ctx, s.fx.user.ID, re.ID, s.today)
	assert.ErrorIs(s.T(), err, ErrNotEligible)

	assert.Zero(s.T(), s.events.count())
}

func (s *ProcessorTestSuite) TestProcessOne_ConcurrentRequestsCreateOneExpense() {
	re := s.fx.recurring(s.T(), "Rent", core.Monthly, core.NewDate(2024, 1, 31))

	const callers = 4
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.processor.ProcessOne(s.ctx, s.fx.user.ID, re.ID, s.today)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(s.T(), err, ErrNotEligible)
	}
	assert.Equal(s.T(), 1, succeeded)

	expenses, err := s.fx.repo.ListExpenses(s.ctx, s.fx.user.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), expenses, 1)

	got, err := s.fx.repo.GetRecurringForUser(s.ctx, s.fx.user.ID, re.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "2024-02-29", got.NextDueDate.String())
	assert.EqualValues(s.T(), 1, got.TotalProcessed)
	assert.Equal(s.T(), 1, s.events.count())
}

// afterListStore runs hook once the selected ids have been read.
type afterListStore struct {
	RecurringStore
	hook func()
}

func (s afterListStore) ListRecurringByIDs(ctx context.Context, userID int64, ids []int64) ([]core.RecurringExpense, error) {
	items, err := s.RecurringStore.ListRecurringByIDs(ctx, userID, ids)
	s.hook()
	return items, err
}

func (s *ProcessorTestSuite) TestProcessSelected_SkipsItemProcessedSinceRead() {
	a := s.fx.recurring(s.T(), "A", core.Monthly, s.today)
	b := s.fx.recurring(s.T(), "B", core.Monthly, s.today)

	store := afterListStore{RecurringStore: s.fx.repo, hook: func() {
		_, err := s.processor.ProcessOne(s.ctx, s.fx.user.ID, b.ID, s.today)
		require.NoError(s.T(), err)
	}}
	batch := NewRecurringProcessor(store, s.events)

	res, err := batch.ProcessSelected(s.ctx, s.fx.user.ID, []int64{a.ID, b.ID}, s.today)
	require.NoError(s.T(), err)
	require.Len(s.T(), res.Processed, 1)
	assert.Equal(s.T(), a.ID, res.Processed[0].RecurringID)
	assert.Equal(s.T(), []Skipped{{ID: b.ID, Reason: "not eligible"}}, res.Skipped)

	expenses, err := s.fx.repo.ListExpenses(s.ctx, s.fx.user.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), expenses, 2)

	got, err := s.fx.repo.GetRecurringForUser(s.ctx, s.fx.user.ID, b.ID)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, got.TotalProcessed)
}

func (s *ProcessorTestSuite) TestProcessSelected_CommitsAll() {
	a := s.fx.recurring(s.T(), "A", core.Daily, core.NewDate(2024, 1, 30))
	b := s.fx.recurring(s.T(), "B", core.Yearly, core.NewDate(2023, 2, 28))
	future := s.fx.recurring(s.T(), "Future", core.Monthly, core.NewDate(2024, 3, 1))

	res, err := s.processor.ProcessSelected(s.ctx, s.fx.user.ID, []int64{a.ID, b.ID, b.ID, future.ID, 999}, s.today)
	require.NoError(s.T(), err)

	require.Len(s.T(), res.Processed, 2)
	assert.Equal(s.T(), "2024-01-31", res.Processed[0].NextDueDate.String())
	assert.Equal(s.T(), "2024-02-28", res.Processed[1].NextDueDate.String())
	assert.ElementsMatch(s.T(), []Skipped{
		{ID: future.ID, Reason: "not eligible"},
		{ID: 999, Reason: "not found"},
	}, res.Skipped)

	expenses, err := s.fx.repo.ListExpenses(s.ctx, s.fx.user.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), expenses, 2)
	assert.Equal(s.T(), 2, s.events.count())
}

func (s *ProcessorTestSuite) TestProcessSelected_RollsBackOnFailure() {
	a := s.fx.recurring(s.T(), "A", core.Monthly, s.today)
	b := s.fx.recurring(s.T(), "B", core.Monthly, s.today)

	// Fail the second insert of the batch after the first one has succeeded.
	_, err := s.fx.repo.DB().ExecContext(s.ctx, fmt.Sprintf(`
		CREATE TRIGGER fail_second BEFORE INSERT ON expenses
		WHEN NEW.recurring_expense_id = %d
		BEGIN SELECT RAISE(ABORT, 'disk full'); END;`, b.ID))
	require.NoError(s.T(), err)

	_, err = s.processor.ProcessSelected(s.ctx, s.fx.user.ID, []int64{a.ID, b.ID}, s.today)
	require.Error(s.T(), err)

	expenses, err := s.fx.repo.ListExpenses(s.ctx, s.fx.user.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), expenses, "no expense from a failed batch may survive")

	for _, id := range []int64{a.ID, b.ID} {
		got, err := s.fx.repo.GetRecurringForUser(s.ctx, s.fx.user.ID, id)
		require.NoError(s.T(), err)
		assert.True(s.T(), got.NextDueDate.Equal(s.today), "due date of %d must not advance", id)
		assert.True(s.T(), got.LastProcessedDate.IsZero())
		assert.Zero(s.T(), got.TotalProcessed)
	}
	assert.Zero(s.T(), s.events.count())
}

func (s *ProcessorTestSuite) TestProcessSelected_NothingEligible() {
	res, err := s.processor.ProcessSelected(s.ctx, s.fx.user.ID, []int64{42}, s.today)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), res.Processed)
	assert.Len(s.T(), res.Skipped, 1)

	res, err = s.processor.ProcessSelected(s.ctx, s.fx.user.ID, nil, s.today)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), res.Processed)
}

func (s *ProcessorTestSuite) TestProcess_EndDateDeactivates() {
	re, err := s.fx.repo.CreateRecurring(s.ctx, core.RecurringExpense{
		UserID:      s.fx.user.ID,
		CategoryID:  s.fx.category.ID,
		Title:       "Course",
		Amount:      core.Money{Cents: 2000},
		Frequency:   core.Monthly,
		StartDate:   core.NewDate(2024, 1, 1),
		EndDate:     core.NewDate(2024, 1, 15),
		NextDueDate: core.NewDate(2024, 1, 1),
		Status:      core.StatusActive,
	})
	require.NoError(s.T(), err)

	res, err := s.processor.ProcessOne(s.ctx, s.fx.user.ID, re.ID, s.today)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.StatusInactive, res.Status)

	buckets, err := s.processor.DueForUser(s.ctx, s.fx.user.ID, core.NewDate(2024, 3, 1))
	require.NoError(s.T(), err)
	assert.Zero(s.T(), buckets.Len())
}

func (s *ProcessorTestSuite) TestPublishFailureDoesNotFail() {
	s.events.fail = true
	re := s.fx.recurring(s.T(), "Rent", core.Monthly, s.today)

	_, err := s.processor.ProcessOne(s.ctx, s.fx.user.ID, re.ID, s.today)
	assert.NoError(s.T(), err)
}

func TestProcessorTestSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}
