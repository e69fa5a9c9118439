package contracts

import (
	"fmt"
	"time"
)

// Depth selects how much of the pipeline a request needs.
type Depth string

const (
	// DepthPricing stops after yield and accrued interest.
	DepthPricing Depth = "pricing"
	// DepthAnalytics adds risk measures and benchmark spread.
	DepthAnalytics Depth = "analytics"
)

// ParseDepth returns DepthAnalytics for an empty string.
func ParseDepth(s string) (Depth, error) {
	switch Depth(s) {
	case "", DepthAnalytics:
		return DepthAnalytics, nil
	case DepthPricing:
		return DepthPricing, nil
	}
	return "", fmt.Errorf("%w: unknown depth %q", ErrInvalidInput, s)
}

// Status is the outcome of a single-bond computation.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// AnalyticsResult is the output of the single-bond pipeline. It is owned by
// the caller that requested it. Optional measures are nil when not computed
// or not available; they are never reported as zero in their place.
type AnalyticsResult struct {
	Identifier  string             `json:"identifier,omitempty"`
	Description string             `json:"description,omitempty"`
	Spec        *BondSpecification `json:"spec,omitempty"`
	Route       *ResolutionRoute   `json:"route,omitempty"`
	Depth       Depth              `json:"depth"`

	Settlement          time.Time `json:"settlement"`
	EffectiveSettlement time.Time `json:"effective_settlement,omitempty"`
	PreviousCoupon      time.Time `json:"previous_coupon,omitempty"`
	NextCoupon          time.Time `json:"next_coupon,omitempty"`

	CleanPrice        float64 `json:"clean_price"`
	DirtyPrice        float64 `json:"dirty_price"`
	AccruedInterest   float64 `json:"accrued_interest"`
	AccruedPerMillion float64 `json:"accrued_per_million"`
	YieldToMaturity   float64 `json:"yield_to_maturity"`
	Iterations        int     `json:"iterations"`

	ModifiedDuration *float64 `json:"modified_duration"`
	MacaulayDuration *float64 `json:"macaulay_duration"`
	Convexity        *float64 `json:"convexity"`

	Spread    *float64     `json:"spread"`
	Benchmark *Observation `json:"benchmark,omitempty"`

	Status        Status      `json:"status"`
	FailureKind   FailureKind `json:"failure_kind,omitempty"`
	FailureReason string      `json:"failure_reason,omitempty"`
}

// Succeeded reports whether the result carries usable numbers.
func (r *AnalyticsResult) Succeeded() bool {
	return r.Status == StatusSuccess
}

// Fail turns r into a failure result for err.
func (r *AnalyticsResult) Fail(err error) {
	r.Status = StatusFailure
	r.FailureKind = KindOf(err)
	r.FailureReason = err.Error()
}

// Float returns a pointer to v, for optional result fields.
func Float(v float64) *float64 {
	return &v
}
