// Package calendar provides holiday calendars and business-day adjustment.
package calendar

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wonny/bondlab/internal/contracts"
)

// ID identifies a holiday calendar.
type ID string

const (
	// US follows the SIFMA recommended close for US government securities.
	US     ID = "US"
	TARGET ID = "TARGET"
	UK     ID = "UK"
	// Weekends treats every weekday as a business day.
	Weekends ID = "WEEKENDS"
)

// Parse resolves a calendar name. An empty name is Weekends.
func Parse(name string) (ID, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		return Weekends, nil
	case "US", "USD", "USGS", "SIFMA", "NYSE":
		return US, nil
	case "TARGET", "EUR", "TARGET2":
		return TARGET, nil
	case "UK", "GB", "GBP", "LONDON":
		return UK, nil
	case "WEEKENDS", "NONE":
		return Weekends, nil
	}
	return "", fmt.Errorf("%w: unknown holiday calendar %q", contracts.ErrInvalidInput, name)
}

type yearKey struct {
	id   ID
	year int
}

// holidays per (calendar, year); rules are pure, so entries never change.
var holidayCache sync.Map

func holidays(id ID, year int) map[time.Time]struct{} {
	key := yearKey{id, year}
	if v, ok := holidayCache.Load(key); ok {
		return v.(map[time.Time]struct{})
	}

	var days []time.Time
	switch id {
	case US:
		days = usHolidays(year)
	case TARGET:
		days = targetHolidays(year)
	case UK:
		days = ukHolidays(year)
	}

	set := make(map[time.Time]struct{}, len(days))
	for _, d := range days {
		set[d] = struct{}{}
	}
	v, _ := holidayCache.LoadOrStore(key, set)
	return v.(map[time.Time]struct{})
}

// IsHoliday reports whether t is a listed holiday of the calendar.
func IsHoliday(id ID, t time.Time) bool {
	t = contracts.Midnight(t)
	_, ok := holidays(id, t.Year())[t]
	return ok
}

// IsBusinessDay checks weekends and holiday sets.
func IsBusinessDay(id ID, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	return !IsHoliday(id, t)
}

// Adjust rolls t onto a business day according to bdc.
func Adjust(id ID, t time.Time, bdc contracts.BusinessDayConvention) time.Time {
	switch bdc {
	case contracts.Following:
		return roll(id, t, 1)
	case contracts.ModifiedFollowing:
		adj := roll(id, t, 1)
		if adj.Month() != t.Month() {
			return roll(id, t, -1)
		}
		return adj
	case contracts.Preceding:
		return roll(id, t, -1)
	case contracts.ModifiedPreceding:
		adj := roll(id, t, -1)
		if adj.Month() != t.Month() {
			return roll(id, t, 1)
		}
		return adj
	default:
		return t
	}
}

func roll(id ID, t time.Time, step int) time.Time {
	for !IsBusinessDay(id, t) {
		t = t.AddDate(0, 0, step)
	}
	return t
}

// AddBusinessDays advances n business days (n can be negative).
func AddBusinessDays(id ID, t time.Time, n int) time.Time {
	step := 1
	if n < 0 {
		step = -1
	}
	for n != 0 {
		t = t.AddDate(0, 0, step)
		if IsBusinessDay(id, t) {
			n -= step
		}
	}
	return t
}

// PreviousBusinessDay returns the latest business day strictly before t.
func PreviousBusinessDay(id ID, t time.Time) time.Time {
	return AddBusinessDays(id, t, -1)
}
