package notify

import (
	"context"
	"strings"
	"testing"

	"expensetracker/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() core.DueSummary {
	on := core.NewDate(2024, 2, 1)
	rent := core.RecurringExpense{
		ID: 1, UserID: 1, Title: "Rent", Category: "Housing", Amount: core.Money{Cents: 50000},
		Frequency: core.Monthly, NextDueDate: core.NewDate(2024, 1, 31), Status: core.StatusActive,
	}
	gym := core.RecurringExpense{
		ID: 2, UserID: 1, Title: "Gym <Pro>", Category: "Health", Amount: core.Money{Cents: 1999},
		Description: "annual plan", Frequency: core.Weekly, NextDueDate: on, Status: core.StatusActive,
	}
	user := core.User{ID: 1, Username: "ann", Email: "ann@example.com"}
	return core.BuildDueSummary(user, []core.RecurringExpense{rent, gym}, on)
}

func TestSubjects(t *testing.T) {
	s := sampleSummary()
	assert.Equal(t, "1 Overdue + 1 Due Expenses", DueSubject(s))
	assert.Equal(t, "2 Overdue Expense(s) - 1 Days Past Due", OverdueSubject(s))

	s.OverdueCount = 0
	s.DueTodayCount = 3
	assert.Equal(t, "3 Expense(s) Due Today!", DueSubject(s))
}

func TestComposer_Due(t *testing.T) {
	c, err := NewComposer("https://expenses.example.com/", "₹")
	require.NoError(t, err)
	c.newID = func() string { return "fixed-id" }

	n, err := c.Due(sampleSummary())
	require.NoError(t, err)

	assert.Equal(t, "fixed-id", n.ID)
	assert.Equal(t, "ann@example.com", n.To)
	assert.Equal(t, KindDue, n.Kind)
	assert.EqualValues(t, 1, n.UserID)

	for _, body := range []string{n.HTML, n.Text} {
		assert.Contains(t, body, "Rent")
		assert.Contains(t, body, "₹500.00")
		assert.Contains(t, body, "₹19.99")
		assert.Contains(t, body, "₹519.99")
		assert.Contains(t, body, "31 Jan 2024")
		assert.Contains(t, body, "https://expenses.example.com/process-due")
		assert.Contains(t, body, "https://expenses.example.com/recurring-expenses")
	}

	assert.Contains(t, n.HTML, "Gym &lt;Pro&gt;", "html body must escape titles")
	assert.Contains(t, n.Text, "Gym <Pro>")
	assert.Contains(t, n.Text, "Note: annual plan")
	assert.Contains(t, n.HTML, "1 days overdue")
	assert.Contains(t, n.HTML, "1 Monthly expense<")
	assert.Equal(t, 1, strings.Count(n.Text, "OVERDUE"))
}

func TestComposer_OverdueAndMissingEmail(t *testing.T) {
	c, err := NewComposer("http://localhost:8080", "$")
	require.NoError(t, err)

	s := sampleSummary()
	n, err := c.Overdue(s)
	require.NoError(t, err)
	assert.Equal(t, KindOverdue, n.Kind)
	assert.NotEmpty(t, n.ID)

	s.User.Email = ""
	_, err = c.Due(s)
	assert.Error(t, err)
}

func TestNotificationJSON(t *testing.T) {
	in := Notification{ID: "x", To: "a@b.c", Subject: "s", HTML: "<p>h</p>", Text: "t", UserID: 9, Kind: KindOverdue}
	data, err := in.ToJSON()
	require.NoError(t, err)

	out, err := NotificationFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = NotificationFromJSON([]byte(`{"user_id":"nope"}`))
	assert.Error(t, err)
}

func TestLogDispatcher(t *testing.T) {
	var d Dispatcher = NewLogDispatcher(nil)
	assert.NoError(t, d.Send(context.Background(), Notification{ID: "1"}))
}
