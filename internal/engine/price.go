package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/resolver"
	"github.com/wonny/bondlab/internal/schedule"
)

// PriceRequest asks for the price of a bond at a given yield.
type PriceRequest struct {
	Identifier  string
	Description string
	Spec        *contracts.BondSpecification
	Yield       float64
	Settlement  time.Time
}

// Quote is the price of a bond at a yield.
type Quote struct {
	Spec                contracts.BondSpecification `json:"spec"`
	Route               *contracts.ResolutionRoute  `json:"route,omitempty"`
	Settlement          time.Time                   `json:"settlement"`
	EffectiveSettlement time.Time                   `json:"effective_settlement"`
	PreviousCoupon      time.Time                   `json:"previous_coupon"`
	NextCoupon          time.Time                   `json:"next_coupon"`
	YieldToMaturity     float64                     `json:"yield_to_maturity"`
	CleanPrice          float64                     `json:"clean_price"`
	DirtyPrice          float64                     `json:"dirty_price"`
	AccruedInterest     float64                     `json:"accrued_interest"`
}

// PriceFromYield is the inverse of the yield solve. Unlike AnalyzeSingleBond
// it reports every failure as an error.
func (e *Engine) PriceFromYield(ctx context.Context, req PriceRequest) (*Quote, error) {
	if math.IsNaN(req.Yield) || math.IsInf(req.Yield, 0) {
		return nil, fmt.Errorf("%w: yield must be finite", contracts.ErrInvalidInput)
	}
	if req.Settlement.IsZero() {
		return nil, fmt.Errorf("%w: settlement date is required", contracts.ErrInvalidInput)
	}

	var (
		spec  contracts.BondSpecification
		route *contracts.ResolutionRoute
	)
	switch {
	case req.Spec != nil:
		spec = *req.Spec
	case strings.TrimSpace(req.Identifier) != "" || strings.TrimSpace(req.Description) != "":
		s, r, err := e.resolver.Resolve(ctx, resolver.Request{Identifier: req.Identifier, Description: req.Description})
		if err != nil {
			return nil, err
		}
		spec, route = *s, r
	default:
		return nil, fmt.Errorf("%w: identifier, description or spec is required", contracts.ErrInvalidInput)
	}

	sched, err := schedule.Build(spec, req.Settlement)
	if err != nil {
		return nil, err
	}
	clean, dirty, err := e.solver.PriceFromYield(sched, req.Yield)
	if err != nil {
		return nil, err
	}

	return &Quote{
		Spec:                spec,
		Route:               route,
		Settlement:          sched.Settlement,
		EffectiveSettlement: sched.EffectiveSettlement,
		PreviousCoupon:      sched.PreviousCoupon(),
		NextCoupon:          sched.NextCoupon(),
		YieldToMaturity:     req.Yield,
		CleanPrice:          clean,
		DirtyPrice:          dirty,
		AccruedInterest:     sched.AccruedInterest,
	}, nil
}
