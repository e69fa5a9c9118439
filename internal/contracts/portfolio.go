package contracts

import "time"

// PortfolioEntry is one holding to be analyzed. Either Spec or an
// identifier/description pair must be set.
type PortfolioEntry struct {
	Identifier  string             `json:"identifier,omitempty"`
	Description string             `json:"description,omitempty"`
	Spec        *BondSpecification `json:"spec,omitempty"`
	CleanPrice  float64            `json:"clean_price"`
	Weight      float64            `json:"weight"`
	Settlement  time.Time          `json:"settlement"`
}

// PortfolioLine pairs an entry's result with its weights.
type PortfolioLine struct {
	Weight float64 `json:"weight"`
	// NormalizedWeight is Weight / sum of successful weights; zero for failures.
	NormalizedWeight float64         `json:"normalized_weight"`
	Result           AnalyticsResult `json:"result"`
}

// NormalizationSuccessfulSubset is the only normalization rule the aggregator
// applies: weights are renormalized over successful entries, and every
// optional metric is averaged over the entries where it is present using its
// own denominator.
const NormalizationSuccessfulSubset = "renormalized-over-successful-subset"

// PortfolioResult holds per-bond results in input order plus aggregates
// computed over successful bonds only. An aggregate is nil when no
// successful bond contributes to it.
type PortfolioResult struct {
	RunID         string          `json:"run_id"`
	Lines         []PortfolioLine `json:"lines"`
	Normalization string          `json:"normalization"`

	Count         int     `json:"count"`
	Succeeded     int     `json:"succeeded"`
	Failed        int     `json:"failed"`
	TotalWeight   float64 `json:"total_weight"`
	SuccessWeight float64 `json:"success_weight"`

	WeightedYield            *float64 `json:"weighted_yield"`
	WeightedModifiedDuration *float64 `json:"weighted_modified_duration"`
	WeightedMacaulayDuration *float64 `json:"weighted_macaulay_duration"`
	WeightedConvexity        *float64 `json:"weighted_convexity"`
	WeightedSpread           *float64 `json:"weighted_spread"`
	WeightedAccrued          *float64 `json:"weighted_accrued"`
	// SpreadCoverage is the share of successful weight that had a spread.
	SpreadCoverage float64 `json:"spread_coverage"`
}
