package core

import "fmt"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// Dashboard is a per-user overview of recorded expenses.
type Dashboard struct {
	Total      Money
	ByCategory []CategoryAmount
}

// DueItem is one line of a due-expenses notification.
type DueItem struct {
	ID          int64
	Title       string
	Category    string
	Frequency   string
	Amount      Money
	DueDate     Date
	State       DueState
	DaysText    string
	Description string
}

// FrequencyCount is the number of due items sharing a frequency.
type FrequencyCount struct {
	Frequency string
	Count     int
}

// DueSummary is what a user is told about their due recurring expenses.
type DueSummary struct {
	User           User
	On             Date
	Items          []DueItem
	Total          Money
	OverdueCount   int
	DueTodayCount  int
	MaxDaysOverdue int
	Frequencies    []FrequencyCount
}

// BuildDueSummary aggregates items for user as of on. Frequencies are
// listed in order of first appearance.
func BuildDueSummary(user User, items []RecurringExpense, on Date) DueSummary {
	s := DueSummary{User: user, On: on}
	freqIndex := make(map[string]int)

	for _, re := range items {
		state := re.DueState(on)
		days := re.DaysOverdue(on)
		switch state {
		case DueOverdue:
			s.OverdueCount++
			if days > s.MaxDaysOverdue {
				s.MaxDaysOverdue = days
			}
		case DueToday:
			s.DueTodayCount++
		}
		s.Total = s.Total.Add(re.Amount)

		freq := re.Frequency.Title()
		s.Items = append(s.Items, DueItem{
			ID:          re.ID,
			Title:       re.Title,
			Category:    re.Category,
			Frequency:   freq,
			Amount:      re.Amount,
			DueDate:     re.NextDueDate,
			State:       state,
			DaysText:    daysText(days),
			Description: re.Description,
		})

		if i, ok := freqIndex[freq]; ok {
			s.Frequencies[i].Count++
		} else {
			freqIndex[freq] = len(s.Frequencies)
			s.Frequencies = append(s.Frequencies, FrequencyCount{Frequency: freq, Count: 1})
		}
	}
	return s
}

func daysText(days int) string {
	switch {
	case days > 0:
		return fmt.Sprintf("%d days overdue", days)
	case days == 0:
		return "Due today"
	default:
		return fmt.Sprintf("Due in %d days", -days)
	}
}
