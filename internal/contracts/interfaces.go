package contracts

import (
	"context"
	"time"
)

// ConventionRecord is what the convention store knows about an identifier or issuer.
type ConventionRecord struct {
	Key         string                `json:"key"`
	Issuer      string                `json:"issuer"`
	AssetClass  AssetClass            `json:"asset_class"`
	DayCount    DayCount              `json:"day_count"`
	BusinessDay BusinessDayConvention `json:"business_day"`
	Frequency   Frequency             `json:"frequency"`
	Calendar    string                `json:"calendar"`
	IssueDate   *time.Time            `json:"issue_date,omitempty"`

	// Reference terms, only present on identifier level records.
	CouponRate *float64   `json:"coupon_rate,omitempty"`
	Maturity   *time.Time `json:"maturity,omitempty"`
}

// HasTerms reports whether the record alone can price the bond.
func (r *ConventionRecord) HasTerms() bool {
	return r.CouponRate != nil && r.Maturity != nil
}

// ConventionStore is the read-only convention lookup.
// ⭐ SSOT: the engine never writes through this interface
type ConventionStore interface {
	// LookupIdentifier returns ErrNotFound when the identifier is unknown.
	LookupIdentifier(ctx context.Context, identifier string) (*ConventionRecord, error)
	// LookupIssuer returns ErrNotFound when no issuer pattern matches.
	LookupIssuer(ctx context.Context, issuerPattern string) (*ConventionRecord, error)
}

// Observation is a benchmark yield read from a curve.
type Observation struct {
	Rate            float64   `json:"rate"` // decimal
	Tenor           float64   `json:"tenor"`
	ObservationDate time.Time `json:"observation_date"`
	RequestedDate   time.Time `json:"requested_date"`
	Source          string    `json:"source,omitempty"`
}

// Stale reports whether the observation predates the requested date.
func (o *Observation) Stale() bool {
	return o.ObservationDate.Before(o.RequestedDate)
}

// CurveService supplies benchmark yields. It may answer with an earlier
// observation date than requested; callers trust that value.
type CurveService interface {
	YieldCurve(ctx context.Context, date time.Time, tenorYears float64) (*Observation, error)
}
