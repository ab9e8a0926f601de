package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2024-02-29 ")
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if !d.Equal(NewDate(2024, 2, 29)) {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("2023-02-29"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateOf(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	got := DateOf(time.Date(2024, 3, 1, 0, 30, 0, 0, loc))
	if got.String() != "2024-03-01" {
		t.Fatalf("got %s", got)
	}
}

func TestParseFrequency(t *testing.T) {
	for in, want := range map[string]Frequency{"daily": Daily, " Weekly ": Weekly, "MONTHLY": Monthly, "yearly": Yearly} {
		got, err := ParseFrequency(in)
		if err != nil || got != want {
			t.Errorf("ParseFrequency(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFrequency("hourly"); !errors.Is(err, ErrInvalidFrequency) {
		t.Errorf("expected ErrInvalidFrequency, got %v", err)
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		UserID:      1,
		CategoryID:  2,
		Date:        NewDate(2025, 1, 1),
		Description: "ok",
		Amount:      Money{Cents: 100},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{UserID: 1, CategoryID: 2, Date: Date{}, Description: "a", Amount: Money{Cents: 1}},
		{UserID: 1, CategoryID: 2, Date: NewDate(2025, 1, 1), Description: "", Amount: Money{Cents: 1}},
		{UserID: 1, CategoryID: 2, Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}},
		{UserID: 0, CategoryID: 2, Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}},
		{UserID: 1, CategoryID: 0, Date: NewDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}},
	}
	for i, e := range bads {
		err := e.Validate()
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !IsValidationError(err) {
			t.Fatalf("case %d: %v not classified as validation error", i, err)
		}
	}
}

func TestRecurringExpenseValidate(t *testing.T) {
	base := RecurringExpense{
		UserID:     1,
		CategoryID: 1,
		Title:      "Rent",
		Amount:     Money{Cents: 50000},
		Frequency:  Monthly,
		StartDate:  NewDate(2024, 1, 1),
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RecurringExpense)
		want   error
	}{
		{"empty title", func(re *RecurringExpense) { re.Title = "  " }, ErrEmptyTitle},
		{"bad frequency", func(re *RecurringExpense) { re.Frequency = "hourly" }, ErrInvalidFrequency},
		{"zero amount", func(re *RecurringExpense) { re.Amount = Money{} }, ErrInvalidAmount},
		{"end before start", func(re *RecurringExpense) { re.EndDate = NewDate(2023, 12, 31) }, ErrEndBeforeStart},
		{"missing start", func(re *RecurringExpense) { re.StartDate = Date{} }, ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			re := base
			tt.mutate(&re)
			if err := re.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}
