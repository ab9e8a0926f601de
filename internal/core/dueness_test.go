package core

import "testing"

func recurring(id, user int64, next Date) RecurringExpense {
	return RecurringExpense{
		ID:          id,
		UserID:      user,
		Title:       "item",
		Amount:      Money{Cents: 1000},
		Frequency:   Monthly,
		NextDueDate: next,
		Status:      StatusActive,
	}
}

func TestRecurringExpense_IsDue(t *testing.T) {
	on := NewDate(2024, 2, 1)

	tests := []struct {
		name   string
		next   Date
		status Status
		want   bool
	}{
		{"past due", NewDate(2024, 1, 31), StatusActive, true},
		{"due today", NewDate(2024, 2, 1), StatusActive, true},
		{"tomorrow", NewDate(2024, 2, 2), StatusActive, false},
		{"inactive past due", NewDate(2023, 1, 1), StatusInactive, false},
		{"inactive today", NewDate(2024, 2, 1), StatusInactive, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := recurring(1, 1, tt.next)
			re.Status = tt.status
			if got := re.IsDue(on); got != tt.want {
				t.Errorf("IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecurringExpense_IsEligible(t *testing.T) {
	on := NewDate(2024, 2, 1)

	tests := []struct {
		name          string
		lastProcessed Date
		want          bool
	}{
		{"never processed", Date{}, true},
		{"processed for previous due date", NewDate(2024, 1, 1), true},
		{"processed for current due date", NewDate(2024, 1, 31), false},
		{"processed after current due date", NewDate(2024, 2, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := recurring(1, 1, NewDate(2024, 1, 31))
			re.LastProcessedDate = tt.lastProcessed
			if got := re.IsEligible(on); got != tt.want {
				t.Errorf("IsEligible() = %v, want %v", got, tt.want)
			}
		})
	}

	notDue := recurring(2, 1, NewDate(2024, 2, 5))
	if notDue.IsEligible(on) {
		t.Error("item not yet due must not be eligible")
	}
}

func TestClassify(t *testing.T) {
	on := NewDate(2024, 2, 1)
	items := []RecurringExpense{
		recurring(1, 1, NewDate(2024, 1, 31)),
		recurring(2, 1, NewDate(2024, 2, 1)),
		recurring(3, 2, NewDate(2024, 2, 2)),
		recurring(4, 2, NewDate(2023, 11, 1)),
	}

	b := Classify(items, on)
	if len(b.Overdue) != 2 || b.Overdue[0].ID != 1 || b.Overdue[1].ID != 4 {
		t.Fatalf("overdue = %+v", b.Overdue)
	}
	if len(b.DueToday) != 1 || b.DueToday[0].ID != 2 {
		t.Fatalf("due today = %+v", b.DueToday)
	}
	if b.Len() != 3 || len(b.All()) != 3 {
		t.Fatalf("len = %d", b.Len())
	}
}

func TestGroupByUser(t *testing.T) {
	on := NewDate(2024, 2, 1)
	items := []RecurringExpense{
		recurring(1, 7, on),
		recurring(2, 3, on),
		recurring(3, 7, on),
	}

	groups := GroupByUser(items)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].UserID != 7 || len(groups[0].Items) != 2 || groups[0].Items[1].ID != 3 {
		t.Fatalf("first group = %+v", groups[0])
	}
	if groups[1].UserID != 3 || len(groups[1].Items) != 1 {
		t.Fatalf("second group = %+v", groups[1])
	}
}

func TestBuildDueSummary(t *testing.T) {
	on := NewDate(2024, 2, 1)
	rent := recurring(1, 1, NewDate(2024, 1, 29))
	rent.Amount = Money{Cents: 50000}
	gym := recurring(2, 1, on)
	gym.Frequency = Weekly
	phone := recurring(3, 1, NewDate(2024, 1, 31))
	phone.Amount = Money{Cents: 1999}

	s := BuildDueSummary(User{ID: 1, Username: "ann"}, []RecurringExpense{rent, gym, phone}, on)

	if s.Total.Cents != 50000+1000+1999 {
		t.Errorf("total = %d", s.Total.Cents)
	}
	if s.OverdueCount != 2 || s.DueTodayCount != 1 {
		t.Errorf("overdue=%d today=%d", s.OverdueCount, s.DueTodayCount)
	}
	if s.MaxDaysOverdue != 3 {
		t.Errorf("max days overdue = %d", s.MaxDaysOverdue)
	}
	if s.Items[0].DaysText != "3 days overdue" || s.Items[1].DaysText != "Due today" {
		t.Errorf("days text = %q, %q", s.Items[0].DaysText, s.Items[1].DaysText)
	}
	if len(s.Frequencies) != 2 || s.Frequencies[0] != (FrequencyCount{"Monthly", 2}) || s.Frequencies[1] != (FrequencyCount{"Weekly", 1}) {
		t.Errorf("frequencies = %+v", s.Frequencies)
	}
}
