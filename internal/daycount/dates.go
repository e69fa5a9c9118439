package daycount

import "time"

// AddMonths behaves like Excel's EDATE: the day is kept when the target month
// has it and clamped to the month end otherwise. When eom is set and t is the
// last day of its month, the result is the last day of the target month.
func AddMonths(t time.Time, months int, eom bool) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	last := DaysInMonth(first.Year(), first.Month())
	day := t.Day()
	if day > last || (eom && IsMonthEnd(t)) {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// DaysInMonth returns the number of days in month of year.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsMonthEnd reports whether t is the last calendar day of its month.
func IsMonthEnd(t time.Time) bool {
	return t.Day() == DaysInMonth(t.Year(), t.Month())
}
