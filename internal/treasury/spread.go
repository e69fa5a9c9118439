package treasury

import (
	"context"
	"time"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/daycount"
	"github.com/wonny/bondlab/pkg/logger"
)

// Spreader computes yield spreads over the benchmark curve.
type Spreader struct {
	curves contracts.CurveService
	logger *logger.Logger
}

// NewSpreader creates a Spreader. A nil curve service yields no spreads.
func NewSpreader(curves contracts.CurveService, log *logger.Logger) *Spreader {
	return &Spreader{curves: curves, logger: log.WithComponent("spread")}
}

// SpreadOver returns ytm minus the benchmark yield at the bond's remaining
// tenor, with the observation used. Both are nil when no benchmark could be
// read; the failure is logged and never returned.
func (s *Spreader) SpreadOver(ctx context.Context, sched *contracts.Schedule, ytm float64, settlement time.Time) (*float64, *contracts.Observation) {
	if s == nil || s.curves == nil {
		return nil, nil
	}

	tenor := daycount.Tenor(contracts.Midnight(settlement), sched.Maturity())
	obs, err := s.curves.YieldCurve(ctx, settlement, tenor)
	if err != nil {
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"identifier": sched.Spec.Identifier,
			"settlement": settlement.Format(contracts.DateLayout),
			"tenor":      tenor,
		}).Warn("Benchmark unavailable, spread omitted")
		return nil, nil
	}

	return contracts.Float(ytm - obs.Rate), obs
}
