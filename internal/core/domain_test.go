package core

import (
	"errors"
	"testing"
)

func TestRecurringRuleValidate(t *testing.T) {
	valid := RecurringRule{
		Amount:      Money{Cents: 1500},
		Description: "Rent",
		Kind:        Monthly,
		StartDate:   NewDate(2024, 1, 1),
		EndDate:     NewDate(2024, 12, 31),
	}

	if err := valid.Validate(); err != nil {
		t.Fatalf("valid rule rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*RecurringRule)
		want   error
	}{
		{
			name:   "unknown kind",
			mutate: func(r *RecurringRule) { r.Kind = "biweekly" },
			want:   ErrUnknownRecurrenceKind,
		},
		{
			name:   "end before start",
			mutate: func(r *RecurringRule) { r.EndDate = NewDate(2023, 12, 31) },
			want:   ErrInvalidDateRange,
		},
		{
			name:   "zero amount",
			mutate: func(r *RecurringRule) { r.Amount = Money{} },
			want:   ErrInvalidAmount,
		},
		{
			name:   "blank description",
			mutate: func(r *RecurringRule) { r.Description = "   " },
			want:   ErrEmptyDescription,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid
			tt.mutate(&rule)
			if err := rule.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{
		Amount:      Money{Cents: 999},
		Description: "Groceries",
		Date:        NewDate(2024, 3, 10),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid expense rejected: %v", err)
	}

	missingDate := valid
	missingDate.Date = Date{}
	if err := missingDate.Validate(); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("zero date: got %v, want ErrInvalidDate", err)
	}
}

func TestUserFieldValidation(t *testing.T) {
	if err := ValidateEmail("test@example.com"); err != nil {
		t.Errorf("valid email rejected: %v", err)
	}
	if err := ValidateEmail("not-an-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("bad email: got %v", err)
	}
	if err := ValidateUsername("user_42"); err != nil {
		t.Errorf("valid username rejected: %v", err)
	}
	if err := ValidateUsername("no spaces"); !errors.Is(err, ErrInvalidUsername) {
		t.Errorf("bad username: got %v", err)
	}
	if err := ValidatePassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("short password: got %v", err)
	}
	if err := ValidatePassword("longenough"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}

func TestDateOf(t *testing.T) {
	d := DateOf(NewDate(2024, 7, 4).Add(13*60*60*1e9 + 30*60*1e9))
	if !d.Equal(NewDate(2024, 7, 4).Time) {
		t.Errorf("DateOf() = %s, want 2024-07-04", d)
	}
}
