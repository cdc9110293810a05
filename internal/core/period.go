package core

import (
	"strings"
	"time"
)

const (
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// Period names a reporting window.
type Period string

// ParsePeriod defaults to month when s is empty.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "month", "thang", "tháng":
		return PeriodMonth, nil
	case "week", "tuan", "tuần":
		return PeriodWeek, nil
	case "year", "nam", "năm":
		return PeriodYear, nil
	}
	return "", ErrInvalidPeriod
}

// Window is the half-open interval [From, To).
type Window struct {
	From time.Time
	To   time.Time
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

// LastDays is the trailing window of n days ending at now. The lower bound
// is the start of the calendar day n days ago, matching a date-only filter.
func LastDays(now time.Time, n int) Window {
	if n < 0 {
		n = 0
	}
	y, m, d := now.Date()
	from := time.Date(y, m, d-n, 0, 0, 0, 0, now.Location())
	return Window{From: from, To: now.Add(time.Second)}
}

// MonthOf is the calendar month containing now.
func MonthOf(now time.Time) Window {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Window{From: from, To: from.AddDate(0, 1, 0)}
}

// YearOf is the calendar year containing now.
func YearOf(now time.Time) Window {
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	return Window{From: from, To: from.AddDate(1, 0, 0)}
}

// WindowFor maps a period to its current window: week is the trailing
// seven days, month and year are calendar windows.
func WindowFor(p Period, now time.Time) Window {
	switch p {
	case PeriodWeek:
		return LastDays(now, 7)
	case PeriodYear:
		return YearOf(now)
	default:
		return MonthOf(now)
	}
}

// PreviousWindow is the window of equal kind immediately before the
// current one.
func PreviousWindow(p Period, now time.Time) Window {
	cur := WindowFor(p, now)
	switch p {
	case PeriodWeek:
		return Window{From: cur.From.AddDate(0, 0, -7), To: cur.From}
	case PeriodYear:
		return Window{From: cur.From.AddDate(-1, 0, 0), To: cur.From}
	default:
		return Window{From: cur.From.AddDate(0, -1, 0), To: cur.From}
	}
}

// MonthBounds returns the first and last calendar day of the month
// containing now, as stored on monthly budgets.
func MonthBounds(now time.Time) (Date, Date) {
	w := MonthOf(now)
	first := NewDate(w.From.Year(), int(w.From.Month()), 1)
	last := DateOf(w.To.AddDate(0, 0, -1), w.To.Location())
	return first, last
}
