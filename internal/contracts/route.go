package contracts

// RouteKind tags which hierarchy produced a specification.
type RouteKind string

const (
	RouteIdentifier  RouteKind = "identifier-hierarchy"
	RouteDescription RouteKind = "description-hierarchy"
)

// RouteRule names the sub-rule that satisfied resolution.
type RouteRule string

const (
	RuleExactIdentifier    RouteRule = "exact-identifier"
	RuleIssuerPrefix       RouteRule = "issuer-prefix"
	RuleAssetClassDefault  RouteRule = "asset-class-default"
	RuleDescriptionIssuer  RouteRule = "description-issuer-pattern"
	RuleDescriptionDefault RouteRule = "description-default"
)

// TermsSource names where coupon, maturity and issue date came from.
type TermsSource string

const (
	TermsFromIdentifier  TermsSource = "identifier"
	TermsFromDescription TermsSource = "description"
)

// Discrepancy records one field on which the two routes disagreed.
// The identifier value was used; the description value is kept here.
type Discrepancy struct {
	Field       string `json:"field"`
	Identifier  string `json:"identifier_value"`
	Description string `json:"description_value"`
}

// ResolutionRoute is the provenance of a BondSpecification.
// A new route is created per resolution and never mutated afterwards.
type ResolutionRoute struct {
	Kind            RouteKind     `json:"kind"`
	Rule            RouteRule     `json:"rule"`
	Identifier      string        `json:"identifier,omitempty"`
	IdentifierValid bool          `json:"identifier_valid"`
	TermsSource     TermsSource   `json:"terms_source"`
	Discrepancy     bool          `json:"discrepancy"`
	Discrepancies   []Discrepancy `json:"discrepancies,omitempty"`
}
