// Package schedule builds coupon schedules and accrued interest.
package schedule

import (
	"fmt"
	"time"

	"github.com/wonny/bondlab/internal/calendar"
	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/daycount"
)

// MaxPeriods bounds the backward roll (100 years of monthly coupons).
const MaxPeriods = 1200

// Build constructs the schedule of spec as seen from settlement.
//
// Coupon dates are rolled backward from maturity in whole multiples of the
// period length, so day-of-month drift never accumulates. The roll stops at
// the issue date when known, otherwise at the first date on or before the
// effective settlement date. The returned schedule is shared through the
// result cache and must not be modified.
func Build(spec contracts.BondSpecification, settlement time.Time) (*contracts.Schedule, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if settlement.IsZero() {
		return nil, fmt.Errorf("%w: settlement date is required", contracts.ErrInvalidInput)
	}
	cal, err := calendar.Parse(spec.Calendar)
	if err != nil {
		return nil, err
	}

	settlement = contracts.Midnight(settlement)
	maturity := contracts.Midnight(spec.Maturity)
	if !maturity.After(settlement) {
		return nil, fmt.Errorf("%w: maturity %s is on or before settlement %s",
			contracts.ErrInvalidSchedule, maturity.Format(contracts.DateLayout), settlement.Format(contracts.DateLayout))
	}

	effective := settlement
	clamped := false
	var issue time.Time
	if spec.IssueDate != nil {
		issue = contracts.Midnight(*spec.IssueDate)
		if settlement.Before(issue) {
			effective = issue
			clamped = true
		}
	}

	adjusted := spec.DayCount.AccruesOnAdjustedDates()
	boundary := func(t time.Time) time.Time {
		if adjusted {
			return calendar.Adjust(cal, t, spec.BusinessDay)
		}
		return t
	}

	// Unadjusted roll dates, newest first.
	eom := daycount.IsMonthEnd(maturity)
	months := spec.Frequency.Months()
	rolls := []time.Time{maturity}
	for k := 1; ; k++ {
		if k > MaxPeriods {
			return nil, fmt.Errorf("%w: more than %d coupon periods", contracts.ErrInvalidSchedule, MaxPeriods)
		}
		d := daycount.AddMonths(maturity, -k*months, eom)
		rolls = append(rolls, d)
		if !issue.IsZero() {
			if !d.After(issue) {
				break
			}
		} else if !boundary(d).After(effective) {
			break
		}
	}
	reverse(rolls)

	periods := make([]contracts.Period, 0, len(rolls)-1)
	for i := 0; i+1 < len(rolls); i++ {
		start, end := rolls[i], rolls[i+1]
		p := contracts.Period{
			UnadjustedStart: start,
			UnadjustedEnd:   end,
			AccrualStart:    boundary(start),
			AccrualEnd:      boundary(end),
			PaymentDate:     calendar.Adjust(cal, end, spec.BusinessDay),
			Fraction:        1,
		}
		p.NominalStart = p.AccrualStart

		// The first period accrues from the issue date itself. A short first
		// period is counted against the regular period length.
		if i == 0 && !issue.IsZero() {
			p.UnadjustedStart = issue
			p.AccrualStart = issue
			if start.Before(issue) {
				full := daycount.Days(spec.DayCount, p.NominalStart, p.AccrualEnd)
				if full > 0 {
					p.Fraction = daycount.Days(spec.DayCount, p.AccrualStart, p.AccrualEnd) / full
				}
			} else {
				p.NominalStart = issue
			}
		}

		p.Coupon = 100 * spec.CouponRate / float64(spec.Frequency) * p.Fraction
		periods = append(periods, p)
	}

	current := -1
	for i, p := range periods {
		if !effective.Before(p.AccrualStart) && effective.Before(p.AccrualEnd) {
			current = i
			break
		}
	}
	if current < 0 {
		// Only reachable when the final accrual end was adjusted onto or before settlement.
		return nil, fmt.Errorf("%w: no coupon period contains settlement %s",
			contracts.ErrInvalidSchedule, effective.Format(contracts.DateLayout))
	}

	p := periods[current]
	accruedDays := daycount.Days(spec.DayCount, p.AccrualStart, effective)
	periodDays := daycount.Days(spec.DayCount, p.NominalStart, p.AccrualEnd)
	accrued := 0.0
	if periodDays > 0 {
		accrued = 100 * spec.CouponRate / float64(spec.Frequency) * accruedDays / periodDays
	}

	return &contracts.Schedule{
		Spec:                spec,
		Settlement:          settlement,
		EffectiveSettlement: effective,
		Clamped:             clamped,
		Periods:             periods,
		Current:             current,
		AccruedDays:         accruedDays,
		PeriodDays:          periodDays,
		AccruedInterest:     accrued,
		AccruedPerMillion:   accrued * 10000,
	}, nil
}

func reverse(ts []time.Time) {
	for i, j := 0, len(ts)-1; i < j; i, j = i+1, j-1 {
		ts[i], ts[j] = ts[j], ts[i]
	}
}
