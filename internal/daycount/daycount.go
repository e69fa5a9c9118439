// Package daycount converts date spans into day counts and year fractions.
package daycount

import (
	"math"
	"time"

	"github.com/wonny/bondlab/internal/contracts"
)

// ActualDays is the number of calendar days between two dates.
func ActualDays(start, end time.Time) float64 {
	return math.Round(end.Sub(start).Hours() / 24)
}

// Days returns the day count numerator of a convention between start and end.
// The 30/360 family counts thirty-day months, everything else counts actual days.
func Days(dc contracts.DayCount, start, end time.Time) float64 {
	switch dc {
	case contracts.DayCount30360:
		return thirty360US(start, end)
	case contracts.DayCount30E360:
		return thirtyE360(start, end)
	default:
		return ActualDays(start, end)
	}
}

// YearFraction computes the year fraction between start and end.
// refStart/refEnd bound the regular coupon period containing the span and are
// only read by Act/Act ICMA, which divides by frequency × period length.
func YearFraction(dc contracts.DayCount, start, end, refStart, refEnd time.Time, freq contracts.Frequency) float64 {
	switch dc {
	case contracts.DayCountAct360:
		return ActualDays(start, end) / 360.0
	case contracts.DayCountAct365F:
		return ActualDays(start, end) / 365.0
	case contracts.DayCount30360, contracts.DayCount30E360:
		return Days(dc, start, end) / 360.0
	case contracts.DayCountActActISDA:
		return actActISDA(start, end)
	case contracts.DayCountActActICMA:
		period := ActualDays(refStart, refEnd)
		if period <= 0 || !freq.Valid() {
			return ActualDays(start, end) / 365.0
		}
		return ActualDays(start, end) / (float64(freq) * period)
	default:
		return ActualDays(start, end) / 365.0
	}
}

// Tenor is the Act/365F year distance used to pick benchmark maturities.
func Tenor(start, end time.Time) float64 {
	return ActualDays(start, end) / 365.0
}

// 30/360 US bond basis: D1 = 31 → 30; D2 = 31 → 30 only when D1 is 30 or 31.
func thirty360US(start, end time.Time) float64 {
	d1, d2 := start.Day(), end.Day()
	if d1 == 31 {
		d1 = 30
	}
	if d2 == 31 && d1 == 30 {
		d2 = 30
	}
	return float64(360*(end.Year()-start.Year()) + 30*(int(end.Month())-int(start.Month())) + (d2 - d1))
}

// 30E/360 Eurobond basis: both day numbers capped at 30.
func thirtyE360(start, end time.Time) float64 {
	d1, d2 := start.Day(), end.Day()
	if d1 > 30 {
		d1 = 30
	}
	if d2 > 30 {
		d2 = 30
	}
	return float64(360*(end.Year()-start.Year()) + 30*(int(end.Month())-int(start.Month())) + (d2 - d1))
}

func actActISDA(start, end time.Time) float64 {
	if end.Before(start) {
		return -actActISDA(end, start)
	}
	total := 0.0
	for cur := start; cur.Before(end); {
		next := time.Date(cur.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
		if next.After(end) {
			next = end
		}
		total += ActualDays(cur, next) / daysInYear(cur.Year())
		cur = next
	}
	return total
}

func daysInYear(year int) float64 {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// IsLeapYear reports whether year has a February 29.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
