// Package resolver turns an identifier and/or a free-text description into a
// BondSpecification through two independent hierarchies of rules.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/parser"
	"github.com/wonny/bondlab/pkg/logger"
)

// Request is the canonical resolution input.
type Request struct {
	Identifier  string
	Description string
}

// Resolver implements the dual-hierarchy resolution.
// ⭐ SSOT: precedence between identifier and description data is decided here
type Resolver struct {
	store  contracts.ConventionStore
	logger *logger.Logger
}

// New creates a resolver over a read-only convention store.
func New(store contracts.ConventionStore, log *logger.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: log.WithComponent("resolver"),
	}
}

// identifierHit is what the identifier hierarchy produced.
type identifierHit struct {
	info   IdentifierInfo
	rule   contracts.RouteRule
	record contracts.ConventionRecord
}

// Resolve produces the specification and the route that produced it.
//
// Precedence: conventions come from the identifier hierarchy whenever it
// matched any rule. Coupon, maturity and issue date come from the identifier
// record when it carries them and from the description otherwise. Fields
// supplied by both that disagree keep the identifier value and are listed in
// the route's discrepancies.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*contracts.BondSpecification, *contracts.ResolutionRoute, error) {
	if strings.TrimSpace(req.Identifier) == "" && strings.TrimSpace(req.Description) == "" {
		return nil, nil, fmt.Errorf("%w: identifier or description is required", contracts.ErrResolution)
	}

	var hit *identifierHit
	if strings.TrimSpace(req.Identifier) != "" {
		var err error
		hit, err = r.identifierRoute(ctx, req.Identifier)
		if err != nil {
			return nil, nil, err
		}
	}

	var desc *parser.Description
	var descErr error
	if strings.TrimSpace(req.Description) != "" {
		desc, descErr = parser.Parse(req.Description)
	} else {
		descErr = fmt.Errorf("%w: no description supplied", contracts.ErrResolution)
	}

	var (
		spec  *contracts.BondSpecification
		route *contracts.ResolutionRoute
		err   error
	)
	if hit != nil {
		spec, route, err = r.fromIdentifier(hit, desc, descErr)
	} else {
		spec, route, err = r.fromDescription(ctx, req.Identifier, desc, descErr)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	r.logger.WithFields(map[string]interface{}{
		"identifier":  req.Identifier,
		"description": req.Description,
		"route":       route.Kind,
		"rule":        route.Rule,
		"terms":       route.TermsSource,
		"discrepancy": route.Discrepancy,
	}).Debug("bond resolved")

	return spec, route, nil
}

// identifierRoute walks exact-identifier → issuer-prefix → asset-class-default.
// It returns nil when the identifier is opaque and unknown.
func (r *Resolver) identifierRoute(ctx context.Context, identifier string) (*identifierHit, error) {
	info := Inspect(identifier)

	rec, err := r.store.LookupIdentifier(ctx, info.Normalized)
	switch {
	case err == nil:
		return &identifierHit{info: info, rule: contracts.RuleExactIdentifier, record: *rec}, nil
	case !errors.Is(err, contracts.ErrNotFound):
		return nil, fmt.Errorf("identifier lookup: %w", err)
	}

	if !info.Valid {
		return nil, nil
	}

	for _, prefix := range info.IssuerPrefixes {
		rec, err := r.store.LookupIssuer(ctx, prefix)
		if err == nil {
			return &identifierHit{info: info, rule: contracts.RuleIssuerPrefix, record: *rec}, nil
		}
		if !errors.Is(err, contracts.ErrNotFound) {
			return nil, fmt.Errorf("issuer lookup: %w", err)
		}
	}

	def := assetClassDefault(info.AssetClass, info.Country)
	return &identifierHit{info: info, rule: contracts.RuleAssetClassDefault, record: def}, nil
}

func (r *Resolver) fromIdentifier(hit *identifierHit, desc *parser.Description, descErr error) (*contracts.BondSpecification, *contracts.ResolutionRoute, error) {
	rec := hit.record
	route := &contracts.ResolutionRoute{
		Kind:            contracts.RouteIdentifier,
		Rule:            hit.rule,
		Identifier:      hit.info.Normalized,
		IdentifierValid: hit.info.Valid,
	}

	spec := specFromRecord(rec)
	spec.Identifier = hit.info.Normalized
	if spec.AssetClass == "" {
		spec.AssetClass = hit.info.AssetClass
	}

	switch {
	case rec.HasTerms():
		route.TermsSource = contracts.TermsFromIdentifier
		spec.CouponRate = *rec.CouponRate
		spec.Maturity = *rec.Maturity
		if desc != nil {
			route.Discrepancies = compare(spec, desc)
		}
	case desc != nil:
		route.TermsSource = contracts.TermsFromDescription
		spec.CouponRate = desc.CouponRate
		spec.Maturity = desc.Maturity
		if desc.Frequency != 0 && desc.Frequency != spec.Frequency {
			route.Discrepancies = append(route.Discrepancies, contracts.Discrepancy{
				Field:       "frequency",
				Identifier:  spec.Frequency.String(),
				Description: desc.Frequency.String(),
			})
		}
		if spec.Issuer == "" {
			spec.Issuer = desc.Issuer
		}
	default:
		return nil, nil, fmt.Errorf("%w: identifier %s has no reference terms and the description is unusable: %v",
			contracts.ErrResolution, hit.info.Normalized, descErr)
	}

	route.Discrepancy = len(route.Discrepancies) > 0
	return spec, route, nil
}

func (r *Resolver) fromDescription(ctx context.Context, identifier string, desc *parser.Description, descErr error) (*contracts.BondSpecification, *contracts.ResolutionRoute, error) {
	if desc == nil {
		return nil, nil, descErr
	}

	route := &contracts.ResolutionRoute{
		Kind:        contracts.RouteDescription,
		TermsSource: contracts.TermsFromDescription,
	}
	if identifier != "" {
		route.Identifier = NormalizeIdentifier(identifier)
	}

	rec, rule, err := r.describeIssuer(ctx, desc.Issuer)
	if err != nil {
		return nil, nil, err
	}
	route.Rule = rule

	spec := specFromRecord(rec)
	if spec.Issuer == "" {
		spec.Issuer = desc.Issuer
	}
	spec.CouponRate = desc.CouponRate
	spec.Maturity = desc.Maturity
	if desc.Frequency != 0 {
		spec.Frequency = desc.Frequency
	}
	return spec, route, nil
}

// describeIssuer tries the whole issuer string first, then its first word
// ("US Treasury" → "US TREASURY", then "US").
func (r *Resolver) describeIssuer(ctx context.Context, issuer string) (contracts.ConventionRecord, contracts.RouteRule, error) {
	candidates := []string{issuer}
	if fields := strings.Fields(issuer); len(fields) > 1 {
		candidates = append(candidates, fields[0])
	}

	for _, c := range candidates {
		if strings.TrimSpace(c) == "" {
			continue
		}
		rec, err := r.store.LookupIssuer(ctx, c)
		if err == nil {
			return *rec, contracts.RuleDescriptionIssuer, nil
		}
		if !errors.Is(err, contracts.ErrNotFound) {
			return contracts.ConventionRecord{}, "", fmt.Errorf("issuer lookup: %w", err)
		}
	}
	return descriptionDefault(), contracts.RuleDescriptionDefault, nil
}

func specFromRecord(rec contracts.ConventionRecord) *contracts.BondSpecification {
	spec := &contracts.BondSpecification{
		Issuer:      rec.Issuer,
		AssetClass:  rec.AssetClass,
		Frequency:   rec.Frequency,
		DayCount:    rec.DayCount,
		BusinessDay: rec.BusinessDay,
		Calendar:    rec.Calendar,
		FaceValue:   contracts.DefaultFaceValue,
	}
	if spec.BusinessDay == "" {
		spec.BusinessDay = contracts.Unadjusted
	}
	if rec.IssueDate != nil {
		issue := *rec.IssueDate
		spec.IssueDate = &issue
	}
	return spec
}

// compare lists the fields where the description disagrees with spec.
func compare(spec *contracts.BondSpecification, desc *parser.Description) []contracts.Discrepancy {
	var out []contracts.Discrepancy
	if math.Abs(spec.CouponRate-desc.CouponRate) > 1e-9 {
		out = append(out, contracts.Discrepancy{
			Field:       "coupon_rate",
			Identifier:  strconv.FormatFloat(spec.CouponRate, 'f', -1, 64),
			Description: strconv.FormatFloat(desc.CouponRate, 'f', -1, 64),
		})
	}
	if !spec.Maturity.Equal(desc.Maturity) {
		out = append(out, contracts.Discrepancy{
			Field:       "maturity",
			Identifier:  spec.Maturity.Format(contracts.DateLayout),
			Description: desc.Maturity.Format(contracts.DateLayout),
		})
	}
	if desc.Frequency != 0 && desc.Frequency != spec.Frequency {
		out = append(out, contracts.Discrepancy{
			Field:       "frequency",
			Identifier:  spec.Frequency.String(),
			Description: desc.Frequency.String(),
		})
	}
	return out
}
