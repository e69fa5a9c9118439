package contracts

import "time"

// Period is one coupon period of a schedule.
type Period struct {
	// Unadjusted roll dates.
	UnadjustedStart time.Time `json:"unadjusted_start"`
	UnadjustedEnd   time.Time `json:"unadjusted_end"`
	// Boundaries used for day counting (adjusted or unadjusted per day count).
	AccrualStart time.Time `json:"accrual_start"`
	AccrualEnd   time.Time `json:"accrual_end"`
	// NominalStart is the regular period start when AccrualStart was clamped to the issue date.
	NominalStart time.Time `json:"nominal_start"`
	PaymentDate  time.Time `json:"payment_date"`
	// Coupon is the cash paid at PaymentDate per 100 face, redemption excluded.
	Coupon float64 `json:"coupon"`
	// Fraction of a regular period this period represents (1 for regular periods).
	Fraction float64 `json:"fraction"`
}

// Schedule is the immutable coupon schedule of a bond as seen from a settlement date.
type Schedule struct {
	Spec BondSpecification `json:"spec"`

	Settlement time.Time `json:"settlement"`
	// EffectiveSettlement is max(settlement, issue date). Every accrued-dependent
	// value is computed from it; Settlement is kept for reporting only.
	EffectiveSettlement time.Time `json:"effective_settlement"`
	Clamped             bool      `json:"clamped"`

	// Periods are ascending and contiguous.
	Periods []Period `json:"periods"`
	// Current indexes the period containing EffectiveSettlement.
	Current int `json:"current"`

	AccruedDays       float64 `json:"accrued_days"`
	PeriodDays        float64 `json:"period_days"`
	AccruedInterest   float64 `json:"accrued_interest"` // percent of face
	AccruedPerMillion float64 `json:"accrued_per_million"`
}

// Remaining returns the periods whose coupon is still owed to the buyer.
func (s *Schedule) Remaining() []Period {
	return s.Periods[s.Current:]
}

// PreviousCoupon is the start of the accrual period containing settlement.
func (s *Schedule) PreviousCoupon() time.Time {
	return s.Periods[s.Current].AccrualStart
}

// NextCoupon is the next payment date after settlement.
func (s *Schedule) NextCoupon() time.Time {
	return s.Periods[s.Current].PaymentDate
}

// Maturity is the final accrual end date.
func (s *Schedule) Maturity() time.Time {
	return s.Periods[len(s.Periods)-1].AccrualEnd
}
