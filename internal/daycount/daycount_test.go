package daycount

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/bondlab/internal/contracts"
)

func d(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestDays(t *testing.T) {
	tests := []struct {
		name  string
		dc    contracts.DayCount
		start time.Time
		end   time.Time
		want  float64
	}{
		{"actual", contracts.DayCountActActICMA, d(2025, 2, 15), d(2025, 4, 18), 62},
		{"actual full period", contracts.DayCountActActICMA, d(2025, 2, 15), d(2025, 8, 15), 181},
		{"30/360 plain", contracts.DayCount30360, d(2025, 1, 15), d(2025, 7, 15), 180},
		{"30/360 d1=31", contracts.DayCount30360, d(2025, 1, 31), d(2025, 3, 31), 60},
		{"30/360 d2=31 d1<30", contracts.DayCount30360, d(2025, 3, 15), d(2025, 3, 31), 16},
		{"30E/360 d2=31", contracts.DayCount30E360, d(2025, 3, 15), d(2025, 3, 31), 15},
		{"30E/360 feb", contracts.DayCount30E360, d(2025, 2, 28), d(2025, 8, 31), 182},
		{"act/360", contracts.DayCountAct360, d(2024, 1, 1), d(2025, 1, 1), 366},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Days(tt.dc, tt.start, tt.end))
		})
	}
}

func TestYearFraction(t *testing.T) {
	tests := []struct {
		name string
		dc   contracts.DayCount
		want float64
	}{
		{"act/360", contracts.DayCountAct360, 181.0 / 360.0},
		{"act/365f", contracts.DayCountAct365F, 181.0 / 365.0},
		{"30/360", contracts.DayCount30360, 0.5},
		{"act/act icma", contracts.DayCountActActICMA, 0.5},
		{"act/act isda", contracts.DayCountActActISDA, 181.0 / 365.0},
	}

	start, end := d(2025, 2, 15), d(2025, 8, 15)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := YearFraction(tt.dc, start, end, start, end, contracts.FrequencySemiannual)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestYearFraction_ICMAPartialPeriod(t *testing.T) {
	got := YearFraction(contracts.DayCountActActICMA, d(2025, 4, 18), d(2025, 8, 15),
		d(2025, 2, 15), d(2025, 8, 15), contracts.FrequencySemiannual)
	assert.InDelta(t, 119.0/362.0, got, 1e-12)
}

func TestYearFraction_ISDAAcrossYearEnd(t *testing.T) {
	got := YearFraction(contracts.DayCountActActISDA, d(2023, 12, 1), d(2024, 2, 1), time.Time{}, time.Time{}, 0)
	assert.InDelta(t, 31.0/365.0+31.0/366.0, got, 1e-12)
	assert.Equal(t, 0.0, YearFraction(contracts.DayCountActActISDA, d(2024, 1, 1), d(2024, 1, 1), time.Time{}, time.Time{}, 0))
}

func TestTenor(t *testing.T) {
	assert.InDelta(t, 1.0, Tenor(d(2025, 1, 1), d(2026, 1, 1)), 1e-12)
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		name   string
		in     time.Time
		months int
		eom    bool
		want   time.Time
	}{
		{"plain backward", d(2052, 8, 15), -6, false, d(2052, 2, 15)},
		{"clamp to feb", d(2025, 8, 31), -6, false, d(2025, 2, 28)},
		{"clamp to leap feb", d(2024, 8, 31), -6, false, d(2024, 2, 29)},
		{"no eom keeps day", d(2025, 2, 28), 6, false, d(2025, 8, 28)},
		{"eom roll", d(2025, 2, 28), 6, true, d(2025, 8, 31)},
		{"eom 30th", d(2025, 4, 30), -1, true, d(2025, 3, 31)},
		{"year boundary", d(2025, 1, 15), -3, false, d(2024, 10, 15)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddMonths(tt.in, tt.months, tt.eom))
		})
	}
}

func TestIsLeapYear(t *testing.T) {
	assert.True(t, IsLeapYear(2024))
	assert.True(t, IsLeapYear(2000))
	assert.False(t, IsLeapYear(1900))
	assert.False(t, IsLeapYear(2025))
}
