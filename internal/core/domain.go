package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	Daily   RecurrenceKind = "daily"
	Weekly  RecurrenceKind = "weekly"
	Monthly RecurrenceKind = "monthly"
	Yearly  RecurrenceKind = "yearly"
)

// NotificationLargeExpense is the kind assigned to threshold notifications.
const NotificationLargeExpense = "large_expense"

type (
	RecurrenceKind string

	// Date is a civil date pinned to UTC midnight. All recurrence
	// arithmetic operates on Dates, never on wall-clock instants.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	User struct {
		ID           int64
		Email        string
		Username     string
		PasswordHash string
		CreatedAt    time.Time
	}

	Category struct {
		ID   int64
		Name string
	}

	Expense struct {
		ID          int64
		Amount      Money
		Description string
		Date        Date // occurrence date
		UserID      int64
		CategoryID  int64
		RuleID      *int64 // originating recurring rule, nil for manual entries
	}

	// RecurringRule is the template a sweep materializes expenses from.
	// AnchorDate is the last occurrence date already materialized; it starts
	// at StartDate and only ever moves forward.
	RecurringRule struct {
		ID          int64
		Amount      Money
		Description string
		Kind        RecurrenceKind
		StartDate   Date
		AnchorDate  Date
		EndDate     Date
		Active      bool
		UserID      int64
		CategoryID  int64
	}

	Notification struct {
		ID        int64
		UserID    int64
		Message   string
		Kind      string
		CreatedAt time.Time
		Read      bool
	}
)

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrEmptyDescription      = errors.New("empty description")
	ErrInvalidDate           = errors.New("invalid date")
	ErrInvalidDateRange      = errors.New("end date before start date")
	ErrUnknownRecurrenceKind = errors.New("unknown recurrence kind")
	ErrInvalidEmail          = errors.New("invalid email format")
	ErrInvalidUsername       = errors.New("username may only contain alphanumeric characters and underscores")
	ErrPasswordTooShort      = errors.New("password must be at least 8 characters long")
)

var (
	emailPattern    = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its civil date in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return NewDate(y, int(m), d)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (k RecurrenceKind) Validate() error {
	switch k {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	default:
		return ErrUnknownRecurrenceKind
	}
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return e.Amount.Validate()
}

func (r RecurringRule) Validate() error {
	if err := r.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if err := r.EndDate.Validate(); err != nil {
		return errors.New("invalid end date: " + err.Error())
	}
	if r.EndDate.Before(r.StartDate.Time) {
		return ErrInvalidDateRange
	}
	if err := r.Kind.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(r.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return r.Amount.Validate()
}

// ValidateEmail checks basic address shape; anything stricter belongs to the
// mail system, not this service.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}
