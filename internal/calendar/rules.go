package calendar

import "time"

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// EasterSunday uses the anonymous Gregorian algorithm.
func EasterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}

// nthWeekday returns the n-th weekday of the month; n < 0 counts from the end.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	if n > 0 {
		first := date(year, month, 1)
		offset := (int(weekday) - int(first.Weekday()) + 7) % 7
		return first.AddDate(0, 0, offset+7*(n-1))
	}
	last := date(year, month+1, 0)
	offset := (int(last.Weekday()) - int(weekday) + 7) % 7
	return last.AddDate(0, 0, -offset+7*(n+1))
}

// nearestWeekday moves Saturday holidays to Friday and Sunday holidays to Monday.
func nearestWeekday(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, -1)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

// nextWeekday moves weekend holidays to the following Monday.
func nextWeekday(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	case time.Sunday:
		return t.AddDate(0, 0, 1)
	}
	return t
}

func usHolidays(year int) []time.Time {
	days := []time.Time{
		nthWeekday(year, time.January, time.Monday, 3),    // Martin Luther King Jr.
		nthWeekday(year, time.February, time.Monday, 3),   // Presidents
		EasterSunday(year).AddDate(0, 0, -2),              // Good Friday
		nthWeekday(year, time.May, time.Monday, -1),       // Memorial
		nearestWeekday(date(year, time.July, 4)),          // Independence
		nthWeekday(year, time.September, time.Monday, 1),  // Labor
		nthWeekday(year, time.October, time.Monday, 2),    // Columbus
		nearestWeekday(date(year, time.November, 11)),     // Veterans
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		nearestWeekday(date(year, time.December, 25)),     // Christmas
	}
	// Saturday New Year is not moved back into the previous year.
	if ny := date(year, time.January, 1); ny.Weekday() != time.Saturday {
		days = append(days, nearestWeekday(ny))
	}
	if year >= 2022 {
		days = append(days, nearestWeekday(date(year, time.June, 19))) // Juneteenth
	}
	return days
}

func targetHolidays(year int) []time.Time {
	easter := EasterSunday(year)
	return []time.Time{
		date(year, time.January, 1),
		easter.AddDate(0, 0, -2),
		easter.AddDate(0, 0, 1),
		date(year, time.May, 1),
		date(year, time.December, 25),
		date(year, time.December, 26),
	}
}

func ukHolidays(year int) []time.Time {
	easter := EasterSunday(year)
	christmas := date(year, time.December, 25)
	boxing := date(year, time.December, 26)
	switch christmas.Weekday() {
	case time.Saturday:
		christmas, boxing = christmas.AddDate(0, 0, 2), boxing.AddDate(0, 0, 2)
	case time.Sunday:
		christmas = christmas.AddDate(0, 0, 2)
	case time.Friday:
		boxing = boxing.AddDate(0, 0, 2)
	}
	return []time.Time{
		nextWeekday(date(year, time.January, 1)),
		easter.AddDate(0, 0, -2),
		easter.AddDate(0, 0, 1),
		nthWeekday(year, time.May, time.Monday, 1),
		nthWeekday(year, time.May, time.Monday, -1),
		nthWeekday(year, time.August, time.Monday, -1),
		christmas,
		boxing,
	}
}
