package calendar

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondlab/internal/contracts"
)

func TestEasterSunday(t *testing.T) {
	tests := map[int]time.Time{
		2019: date(2019, time.April, 21),
		2024: date(2024, time.March, 31),
		2025: date(2025, time.April, 20),
		2026: date(2026, time.April, 5),
		2038: date(2038, time.April, 25),
	}
	for year, want := range tests {
		assert.Equal(t, want, EasterSunday(year), "year %d", year)
	}
}

func TestUSHolidays2025(t *testing.T) {
	holidays := []time.Time{
		date(2025, time.January, 1),
		date(2025, time.January, 20),
		date(2025, time.February, 17),
		date(2025, time.April, 18),
		date(2025, time.May, 26),
		date(2025, time.June, 19),
		date(2025, time.July, 4),
		date(2025, time.September, 1),
		date(2025, time.October, 13),
		date(2025, time.November, 11),
		date(2025, time.November, 27),
		date(2025, time.December, 25),
	}
	for _, h := range holidays {
		assert.True(t, IsHoliday(US, h), h.Format(contracts.DateLayout))
		assert.False(t, IsBusinessDay(US, h), h.Format(contracts.DateLayout))
	}

	assert.True(t, IsBusinessDay(US, date(2025, time.April, 17)))
	assert.False(t, IsBusinessDay(US, date(2025, time.April, 19)))
}

func TestUSObservedHolidays(t *testing.T) {
	// July 4 2026 is a Saturday.
	assert.True(t, IsHoliday(US, date(2026, time.July, 3)))
	// Juneteenth before 2022 was not a bond market holiday.
	assert.False(t, IsHoliday(US, date(2021, time.June, 18)))
	// New Year 2022 fell on a Saturday and is not observed on Dec 31 2021.
	assert.True(t, IsBusinessDay(US, date(2021, time.December, 31)))
}

func TestTargetAndUK(t *testing.T) {
	assert.True(t, IsHoliday(TARGET, date(2025, time.April, 21)))
	assert.True(t, IsHoliday(TARGET, date(2025, time.May, 1)))
	assert.False(t, IsHoliday(TARGET, date(2025, time.May, 26)))

	assert.True(t, IsHoliday(UK, date(2025, time.May, 5)))
	assert.True(t, IsHoliday(UK, date(2025, time.August, 25)))
	// Christmas 2022 was a Sunday: Boxing Day Monday, substitute Christmas Tuesday.
	assert.True(t, IsHoliday(UK, date(2022, time.December, 26)))
	assert.True(t, IsHoliday(UK, date(2022, time.December, 27)))
}

func TestAdjust(t *testing.T) {
	// Saturday 2025-05-31: following rolls into June, modified following stays in May.
	sat := date(2025, time.May, 31)
	tests := []struct {
		bdc  contracts.BusinessDayConvention
		want time.Time
	}{
		{contracts.Unadjusted, sat},
		{contracts.Following, date(2025, time.June, 2)},
		{contracts.ModifiedFollowing, date(2025, time.May, 30)},
		{contracts.Preceding, date(2025, time.May, 30)},
		{contracts.ModifiedPreceding, date(2025, time.May, 30)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Adjust(US, sat, tt.bdc), string(tt.bdc))
	}

	// Saturday 2025-11-01: modified preceding stays in November.
	assert.Equal(t, date(2025, time.November, 3), Adjust(US, date(2025, time.November, 1), contracts.ModifiedPreceding))
	// Holiday roll: Good Friday 2025 follows to Monday.
	assert.Equal(t, date(2025, time.April, 21), Adjust(US, date(2025, time.April, 18), contracts.Following))
	assert.Equal(t, date(2025, time.April, 22), Adjust(UK, date(2025, time.April, 18), contracts.Following))
}

func TestAddBusinessDays(t *testing.T) {
	assert.Equal(t, date(2025, time.April, 22), AddBusinessDays(US, date(2025, time.April, 17), 2))
	assert.Equal(t, date(2025, time.April, 17), AddBusinessDays(US, date(2025, time.April, 21), -1))
	assert.Equal(t, date(2025, time.April, 17), PreviousBusinessDay(US, date(2025, time.April, 20)))
}

func TestParse(t *testing.T) {
	tests := map[string]ID{
		"":       Weekends,
		"usd":    US,
		"SIFMA":  US,
		"target": TARGET,
		"GB":     UK,
		"none":   Weekends,
	}
	for in, want := range tests {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("MARS")
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestConcurrentLookups(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			year := 2000 + i%8
			_ = IsBusinessDay(US, date(year, time.July, 4))
			_ = IsBusinessDay(TARGET, date(year, time.May, 1))
		}(i)
	}
	wg.Wait()
	assert.True(t, IsHoliday(TARGET, date(2003, time.May, 1)))
}
