package core

import (
	"fmt"
	"time"
)

// NextOccurrence computes the occurrence date that follows basis for the
// given recurrence kind.
//
// Daily and weekly steps are plain day arithmetic. Monthly and yearly steps
// clamp to the last day of the target month when the basis day does not
// exist there (Jan 31 -> Feb 28, Feb 29 -> Feb 28 on non-leap years); the
// carry-to-next-month behavior of time.AddDate is deliberately avoided so a
// month-end rule never drifts into the following month.
func NextOccurrence(basis Date, kind RecurrenceKind) (Date, error) {
	switch kind {
	case Daily:
		return Date{Time: basis.AddDate(0, 0, 1)}, nil
	case Weekly:
		return Date{Time: basis.AddDate(0, 0, 7)}, nil
	case Monthly:
		return addMonthsClamped(basis, 1), nil
	case Yearly:
		return addYearsClamped(basis, 1), nil
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrUnknownRecurrenceKind, kind)
	}
}

func addMonthsClamped(basis Date, months int) Date {
	y, m, d := basis.Date()
	target := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, time.UTC)
	last := lastDayOfMonth(target.Year(), target.Month())
	if d > last {
		d = last
	}
	return NewDate(target.Year(), int(target.Month()), d)
}

func addYearsClamped(basis Date, years int) Date {
	y, m, d := basis.Date()
	last := lastDayOfMonth(y+years, m)
	if d > last {
		d = last
	}
	return NewDate(y+years, int(m), d)
}

// lastDayOfMonth exploits day-zero normalization of the following month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
