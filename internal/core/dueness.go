package core

// DueState describes where a recurring expense stands relative to a date.
type DueState string

const (
	DueUpcoming DueState = "upcoming"
	DueToday    DueState = "due_today"
	DueOverdue  DueState = "overdue"
)

// IsDue reports whether re is active and its next due date is on or before on.
func (re RecurringExpense) IsDue(on Date) bool {
	return re.Status.IsActive() && !re.NextDueDate.After(on)
}

// IsProcessedForCurrentDue reports whether the current due date has already
// been materialized.
func (re RecurringExpense) IsProcessedForCurrentDue() bool {
	if re.LastProcessedDate.IsZero() {
		return false
	}
	return !re.LastProcessedDate.Before(re.NextDueDate)
}

// IsEligible reports whether re can be processed on the given date: active,
// due, and not yet processed for its current due date.
func (re RecurringExpense) IsEligible(on Date) bool {
	return re.IsDue(on) && !re.IsProcessedForCurrentDue()
}

// DueState classifies re against on regardless of status.
func (re RecurringExpense) DueState(on Date) DueState {
	switch {
	case re.NextDueDate.Before(on):
		return DueOverdue
	case re.NextDueDate.Equal(on):
		return DueToday
	default:
		return DueUpcoming
	}
}

// DaysOverdue returns how many days on is past the due date; negative when
// the due date is still ahead.
func (re RecurringExpense) DaysOverdue(on Date) int {
	return on.DaysSince(re.NextDueDate)
}

// DueBuckets splits due items into due-today and overdue, keeping input order.
type DueBuckets struct {
	DueToday []RecurringExpense
	Overdue  []RecurringExpense
}

// All returns overdue items followed by due-today items.
func (b DueBuckets) All() []RecurringExpense {
	all := make([]RecurringExpense, 0, len(b.Overdue)+len(b.DueToday))
	all = append(all, b.Overdue...)
	return append(all, b.DueToday...)
}

// Len returns the number of items in both buckets.
func (b DueBuckets) Len() int {
	return len(b.DueToday) + len(b.Overdue)
}

// Classify buckets items by their due date relative to on. Items that are
// not yet due are dropped.
func Classify(items []RecurringExpense, on Date) DueBuckets {
	var b DueBuckets
	for _, re := range items {
		switch re.DueState(on) {
		case DueToday:
			b.DueToday = append(b.DueToday, re)
		case DueOverdue:
			b.Overdue = append(b.Overdue, re)
		}
	}
	return b
}

// UserGroup is one owner and their items, in first-seen order.
type UserGroup struct {
	UserID int64
	Items  []RecurringExpense
}

// GroupByUser groups items by owner. Groups are ordered by the first
// appearance of each user and items keep their relative order.
func GroupByUser(items []RecurringExpense) []UserGroup {
	index := make(map[int64]int)
	var groups []UserGroup
	for _, re := range items {
		i, ok := index[re.UserID]
		if !ok {
			i = len(groups)
			index[re.UserID] = i
			groups = append(groups, UserGroup{UserID: re.UserID})
		}
		groups[i].Items = append(groups[i].Items, re)
	}
	return groups
}

// SeedNextDueDate returns the first due date of a recurring expense that
// starts on start: the first occurrence is the start date itself.
func SeedNextDueDate(start Date) Date {
	return start
}
