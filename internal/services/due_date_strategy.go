// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for advancing recurring expense
// due dates. Each frequency (daily, weekly, monthly, yearly) has its own
// strategy that knows how to compute the next occurrence.

package services

import (
	"time"

	"expensetracker/internal/core"
)

// DueDateAdvancer is the strategy interface for computing the next due date.
type DueDateAdvancer interface {
	// Next returns the occurrence following current. It must be strictly
	// after current so repeated processing always moves forward.
	Next(current core.Date) core.Date
}

// DailyAdvancer implements DueDateAdvancer for daily recurring expenses.
type DailyAdvancer struct{}

func (DailyAdvancer) Next(current core.Date) core.Date {
	return current.AddDays(1)
}

// WeeklyAdvancer implements DueDateAdvancer for weekly recurring expenses.
type WeeklyAdvancer struct{}

func (WeeklyAdvancer) Next(current core.Date) core.Date {
	return current.AddDays(7)
}

// MonthlyAdvancer moves to the same day next month, clamped to the last day
// when the target month is shorter (Jan 31 -> Feb 28/29).
type MonthlyAdvancer struct{}

func (MonthlyAdvancer) Next(current core.Date) core.Date {
	return addMonthsClamped(current, 1)
}

// YearlyAdvancer moves to the same day next year; Feb 29 becomes Feb 28.
type YearlyAdvancer struct{}

func (YearlyAdvancer) Next(current core.Date) core.Date {
	return addMonthsClamped(current, 12)
}

// addMonthsClamped avoids time.AddDate normalisation, which would turn
// Jan 31 + 1 month into Mar 2/3.
func addMonthsClamped(d core.Date, months int) core.Date {
	y, m, day := d.Time.Date()
	first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	lastDay := daysIn(first.Year(), first.Month())
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// dueDateStrategies maps frequencies to their advancers.
var dueDateStrategies = map[core.Frequency]DueDateAdvancer{
	core.Daily:   DailyAdvancer{},
	core.Weekly:  WeeklyAdvancer{},
	core.Monthly: MonthlyAdvancer{},
	core.Yearly:  YearlyAdvancer{},
}

// GetDueDateAdvancer returns the advancer for a frequency, or false when
// the frequency is not supported.
func GetDueDateAdvancer(frequency core.Frequency) (DueDateAdvancer, bool) {
	advancer, ok := dueDateStrategies[frequency]
	return advancer, ok
}

// CalculateNextDueDate returns the occurrence after current for frequency.
// Unknown frequencies return current unchanged rather than an error.
func CalculateNextDueDate(current core.Date, frequency core.Frequency) core.Date {
	advancer, ok := GetDueDateAdvancer(frequency)
	if !ok {
		return current
	}
	return advancer.Next(current)
}
