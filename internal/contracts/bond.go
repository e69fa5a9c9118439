package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Frequency is the number of coupon payments per year.
type Frequency int

const (
	FrequencyAnnual     Frequency = 1
	FrequencySemiannual Frequency = 2
	FrequencyQuarterly  Frequency = 4
	FrequencyMonthly    Frequency = 12
)

// Valid reports whether f is one of the supported frequencies.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyAnnual, FrequencySemiannual, FrequencyQuarterly, FrequencyMonthly:
		return true
	}
	return false
}

// Months is the length of a regular coupon period.
func (f Frequency) Months() int {
	return 12 / int(f)
}

func (f Frequency) String() string {
	switch f {
	case FrequencyAnnual:
		return "annual"
	case FrequencySemiannual:
		return "semiannual"
	case FrequencyQuarterly:
		return "quarterly"
	case FrequencyMonthly:
		return "monthly"
	}
	return fmt.Sprintf("frequency(%d)", int(f))
}

// ParseFrequency accepts names ("annual", "semi", "s/a", ...) and counts ("1", "2", "4", "12").
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "annual", "annually", "a", "1", "yearly":
		return FrequencyAnnual, nil
	case "semiannual", "semi-annual", "semi", "s/a", "sa", "2":
		return FrequencySemiannual, nil
	case "quarterly", "q", "4":
		return FrequencyQuarterly, nil
	case "monthly", "m", "12":
		return FrequencyMonthly, nil
	}
	return 0, fmt.Errorf("%w: unknown frequency %q", ErrInvalidInput, s)
}

// DayCount is a day-count convention.
type DayCount string

const (
	DayCountActActICMA DayCount = "ACT/ACT ICMA"
	DayCountActActISDA DayCount = "ACT/ACT ISDA"
	DayCountAct360     DayCount = "ACT/360"
	DayCountAct365F    DayCount = "ACT/365F"
	DayCount30360      DayCount = "30/360"
	DayCount30E360     DayCount = "30E/360"
)

// Valid reports whether d is a supported convention.
func (d DayCount) Valid() bool {
	switch d {
	case DayCountActActICMA, DayCountActActISDA, DayCountAct360, DayCountAct365F, DayCount30360, DayCount30E360:
		return true
	}
	return false
}

// AccruesOnAdjustedDates reports whether accrual boundaries follow the
// business-day adjusted coupon dates. Act/Act ICMA and the 30/360 family
// accrue on the unadjusted schedule.
func (d DayCount) AccruesOnAdjustedDates() bool {
	switch d {
	case DayCountAct360, DayCountAct365F, DayCountActActISDA:
		return true
	}
	return false
}

// ParseDayCount normalizes the common spellings of a convention.
func ParseDayCount(s string) (DayCount, error) {
	n := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	switch n {
	case "ACT/ACT ICMA", "ACT/ACT", "ACTUAL/ACTUAL", "ACTUAL/ACTUAL ICMA", "ACT/ACT ISMA", "ICMA":
		return DayCountActActICMA, nil
	case "ACT/ACT ISDA", "ACTUAL/ACTUAL ISDA", "ISDA":
		return DayCountActActISDA, nil
	case "ACT/360", "ACTUAL/360", "A360":
		return DayCountAct360, nil
	case "ACT/365F", "ACT/365", "ACTUAL/365", "ACT/365 FIXED", "ACTUAL/365 FIXED", "A365F":
		return DayCountAct365F, nil
	case "30/360", "30/360 US", "30U/360", "BOND BASIS":
		return DayCount30360, nil
	case "30E/360", "30/360 ICMA", "EUROBOND BASIS":
		return DayCount30E360, nil
	}
	return "", fmt.Errorf("%w: unknown day count %q", ErrInvalidInput, s)
}

// BusinessDayConvention rolls a date that falls on a holiday.
type BusinessDayConvention string

const (
	Unadjusted        BusinessDayConvention = "unadjusted"
	Following         BusinessDayConvention = "following"
	ModifiedFollowing BusinessDayConvention = "modified_following"
	Preceding         BusinessDayConvention = "preceding"
	ModifiedPreceding BusinessDayConvention = "modified_preceding"
)

// Valid reports whether c is a supported convention.
func (c BusinessDayConvention) Valid() bool {
	switch c {
	case Unadjusted, Following, ModifiedFollowing, Preceding, ModifiedPreceding:
		return true
	}
	return false
}

// ParseBusinessDayConvention accepts snake case, spaced and abbreviated forms.
func ParseBusinessDayConvention(s string) (BusinessDayConvention, error) {
	n := strings.ToLower(strings.TrimSpace(s))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	switch n {
	case "unadjusted", "none", "":
		return Unadjusted, nil
	case "following", "f":
		return Following, nil
	case "modified_following", "modfollowing", "mf":
		return ModifiedFollowing, nil
	case "preceding", "p":
		return Preceding, nil
	case "modified_preceding", "modpreceding", "mp":
		return ModifiedPreceding, nil
	}
	return "", fmt.Errorf("%w: unknown business day convention %q", ErrInvalidInput, s)
}

// AssetClass is the broad class used for last-resort convention defaults.
type AssetClass string

const (
	AssetClassSovereign AssetClass = "sovereign"
	AssetClassCorporate AssetClass = "corporate"
)

// DefaultFaceValue is the face amount every price is quoted against.
const DefaultFaceValue = 100.0

// BondSpecification is the route-agnostic description of a fixed coupon bond.
// ⭐ SSOT: both resolution routes converge on this shape
type BondSpecification struct {
	Identifier  string                `json:"identifier,omitempty"`
	Issuer      string                `json:"issuer"`
	AssetClass  AssetClass            `json:"asset_class"`
	CouponRate  float64               `json:"coupon_rate"` // decimal, annualized (0.03 = 3%)
	Maturity    time.Time             `json:"maturity"`
	IssueDate   *time.Time            `json:"issue_date,omitempty"`
	Frequency   Frequency             `json:"frequency"`
	DayCount    DayCount              `json:"day_count"`
	BusinessDay BusinessDayConvention `json:"business_day"`
	Calendar    string                `json:"calendar"`
	FaceValue   float64               `json:"face_value"`
}

// Validate checks the specification invariants.
func (s BondSpecification) Validate() error {
	if math.IsNaN(s.CouponRate) || math.IsInf(s.CouponRate, 0) || s.CouponRate < 0 {
		return fmt.Errorf("%w: coupon rate must be finite and >= 0, got %v", ErrInvalidInput, s.CouponRate)
	}
	if s.Maturity.IsZero() {
		return fmt.Errorf("%w: maturity date is required", ErrInvalidSchedule)
	}
	if s.IssueDate != nil && !s.Maturity.After(*s.IssueDate) {
		return fmt.Errorf("%w: maturity %s must be after issue date %s",
			ErrInvalidSchedule, s.Maturity.Format(DateLayout), s.IssueDate.Format(DateLayout))
	}
	if !s.Frequency.Valid() {
		return fmt.Errorf("%w: unsupported frequency %d", ErrInvalidInput, int(s.Frequency))
	}
	if !s.DayCount.Valid() {
		return fmt.Errorf("%w: unsupported day count %q", ErrInvalidInput, s.DayCount)
	}
	if !s.BusinessDay.Valid() {
		return fmt.Errorf("%w: unsupported business day convention %q", ErrInvalidInput, s.BusinessDay)
	}
	if s.FaceValue <= 0 || math.IsInf(s.FaceValue, 0) || math.IsNaN(s.FaceValue) {
		return fmt.Errorf("%w: face value must be > 0", ErrInvalidInput)
	}
	return nil
}

// Key is the normalized identity used for caching. Two specifications with
// the same key produce identical schedules for any settlement date.
func (s BondSpecification) Key() string {
	issue := "-"
	if s.IssueDate != nil {
		issue = s.IssueDate.Format(DateLayout)
	}
	return fmt.Sprintf("%s|%s|%.12g|%s|%s|%d|%s|%s|%s|%.6g",
		strings.ToUpper(s.Identifier), strings.ToUpper(s.Issuer), s.CouponRate,
		s.Maturity.Format(DateLayout), issue, int(s.Frequency),
		s.DayCount, s.BusinessDay, s.Calendar, s.FaceValue)
}

// DateLayout is the canonical wire format for dates.
const DateLayout = "2006-01-02"

// ParseDate parses a canonical YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrInvalidInput, s)
	}
	return t, nil
}

// Midnight truncates t to its UTC calendar day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
