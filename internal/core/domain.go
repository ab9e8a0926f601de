package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

const dateLayout = "2006-01-02"

type (
	Frequency string

	// Status replaces the bare is_active flag; inactive rows are kept but
	// never surface in due or notification queries.
	Status string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID   int64
		Name string
	}

	Expense struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Category    string // Category name, filled on reads
		Amount      Money
		Description string
		Date        Date

		RecurringExpenseID int64 // zero for manual entries
	}

	RecurringExpense struct {
		ID          int64
		UserID      int64
		CategoryID  int64
		Category    string // Category name, filled on reads
		Title       string
		Amount      Money
		Description string
		Frequency   Frequency
		StartDate   Date
		EndDate     Date // zero when open-ended
		NextDueDate Date
		Status      Status
		CreatedAt   time.Time

		LastProcessedDate       Date // zero when never processed
		TotalProcessed          int64
		LastNotifiedDate        Date
		LastOverdueReminderDate Date
	}
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrEmptyTitle       = errors.New("empty title")
	ErrEmptyDescription = errors.New("empty description")
	ErrMissingCategory  = errors.New("missing category")
	ErrMissingUser      = errors.New("missing user")
	ErrEndBeforeStart   = errors.New("end date must not be before start date")
	ErrTooLong          = errors.New("text too long")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: zero date", ErrInvalidDate)
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// String formats the date as YYYY-MM-DD; the zero date is "".
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// Before reports whether d is on an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is on a later calendar day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Equal reports whether d and o are the same calendar day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysSince returns the whole number of days from o to d.
func (d Date) DaysSince(o Date) int {
	return int(d.Time.Sub(o.Time).Hours() / 24)
}

// ParseFrequency accepts the four supported frequencies, case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFrequency, s)
	}
	return f, nil
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// Title returns the display form, e.g. "Monthly".
func (f Frequency) Title() string {
	if f == "" {
		return ""
	}
	s := string(f)
	return strings.ToUpper(s[:1]) + s[1:]
}

func (s Status) IsActive() bool {
	return s == StatusActive
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if e.UserID == 0 {
		return ErrMissingUser
	}
	if e.CategoryID == 0 {
		return ErrMissingCategory
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return fmt.Errorf("%w: description max 200 characters", ErrTooLong)
	}
	return e.Amount.Validate()
}

func (re RecurringExpense) Validate() error {
	if re.UserID == 0 {
		return ErrMissingUser
	}
	if re.CategoryID == 0 {
		return ErrMissingCategory
	}

	if err := re.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}

	if !re.EndDate.IsZero() {
		if err := re.EndDate.Validate(); err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		if re.EndDate.Before(re.StartDate) {
			return ErrEndBeforeStart
		}
	}

	if !re.Frequency.Valid() {
		return ErrInvalidFrequency
	}

	if len(strings.TrimSpace(re.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(re.Title) > 100 {
		return fmt.Errorf("%w: title max 100 characters", ErrTooLong)
	}
	if len(re.Description) > 200 {
		return fmt.Errorf("%w: description max 200 characters", ErrTooLong)
	}

	return re.Amount.Validate()
}

// IsValidationError reports whether err comes from input validation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidDay, ErrInvalidMonth, ErrInvalidDate, ErrInvalidAmount, ErrInvalidFrequency,
		ErrEmptyTitle, ErrEmptyDescription, ErrMissingCategory, ErrMissingUser, ErrEndBeforeStart,
		ErrTooLong,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
