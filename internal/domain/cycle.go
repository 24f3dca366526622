package domain

import (
	"fmt"
	"time"
)

// Cycle is the repayment frequency of a loan.
type Cycle string

const (
	CycleDaily     Cycle = "daily"
	CycleWeekly    Cycle = "weekly"
	CycleBiweekly  Cycle = "biweekly"
	CycleMonthly   Cycle = "monthly"
	CycleQuarterly Cycle = "quarterly"
	CycleAnnual    Cycle = "annual"
)

// PeriodsPerYear returns how many cycles make up a year.
func (c Cycle) PeriodsPerYear() (int64, error) {
	switch c {
	case CycleDaily:
		return 365, nil
	case CycleWeekly:
		return 52, nil
	case CycleBiweekly:
		return 26, nil
	case CycleMonthly:
		return 12, nil
	case CycleQuarterly:
		return 4, nil
	case CycleAnnual:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: unknown repayment cycle %q", ErrInvalidTerms, c)
	}
}

// Step returns anchor moved forward by n cycles. Month based cycles keep the
// anchor's day of month and clamp to the last day of shorter months.
func (c Cycle) Step(anchor time.Time, n int) time.Time {
	switch c {
	case CycleDaily:
		return anchor.AddDate(0, 0, n)
	case CycleWeekly:
		return anchor.AddDate(0, 0, 7*n)
	case CycleBiweekly:
		return anchor.AddDate(0, 0, 14*n)
	case CycleMonthly:
		return addMonthsClamped(anchor, n)
	case CycleQuarterly:
		return addMonthsClamped(anchor, 3*n)
	case CycleAnnual:
		return addMonthsClamped(anchor, 12*n)
	default:
		return anchor
	}
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysInMonth(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}
