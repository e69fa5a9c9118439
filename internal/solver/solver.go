// Package solver finds yield to maturity and risk measures for a coupon schedule.
package solver

import (
	"fmt"
	"math"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/daycount"
)

// Config holds root finder limits.
type Config struct {
	// Tolerance is the absolute dirty price error accepted as converged.
	Tolerance float64
	MaxIter   int
	// BumpBps is the yield shift used by the finite-difference risk measures.
	BumpBps float64
	// Lower and Upper bound the yield search bracket.
	Lower float64
	Upper float64
}

// DefaultConfig returns the production limits.
func DefaultConfig() Config {
	return Config{
		Tolerance: 1e-8,
		MaxIter:   200,
		BumpBps:   1,
		Lower:     -0.5,
		Upper:     1.0,
	}
}

// bisectionWidth is the bracket width below which Newton steps are attempted.
const bisectionWidth = 0.01

// Solver prices schedules and inverts prices into yields. It holds no
// mutable state and is safe for concurrent use.
type Solver struct {
	cfg Config
}

// New creates a Solver. Zero fields of cfg fall back to DefaultConfig.
func New(cfg Config) *Solver {
	def := DefaultConfig()
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = def.Tolerance
	}
	if cfg.MaxIter <= 0 {
		cfg.MaxIter = def.MaxIter
	}
	if cfg.BumpBps <= 0 {
		cfg.BumpBps = def.BumpBps
	}
	if cfg.Lower == 0 && cfg.Upper == 0 {
		cfg.Lower, cfg.Upper = def.Lower, def.Upper
	}
	return &Solver{cfg: cfg}
}

// Config returns the effective limits.
func (s *Solver) Config() Config {
	return s.cfg
}

// Yield is the result of inverting a price.
type Yield struct {
	Rate       float64
	DirtyPrice float64
	Iterations int
}

// Risk holds the finite-difference risk measures at a yield.
type Risk struct {
	ModifiedDuration float64
	MacaulayDuration float64
	Convexity        float64
}

// cashflow is one remaining payment with its discounting exponent in periods.
type cashflow struct {
	amount  float64
	periods float64
}

// cashflows lists the payments still owed after the effective settlement date.
// Act/Act ICMA discounts the first payment by the elapsed share of its period
// and every later payment by whole periods; other conventions use the year
// fraction to the accrual end times the frequency.
func cashflows(sched *contracts.Schedule) []cashflow {
	spec := sched.Spec
	eff := sched.EffectiveSettlement
	remaining := sched.Remaining()
	out := make([]cashflow, 0, len(remaining))

	var first float64
	if spec.DayCount == contracts.DayCountActActICMA {
		cur := remaining[0]
		if full := daycount.ActualDays(cur.NominalStart, cur.AccrualEnd); full > 0 {
			first = daycount.ActualDays(eff, cur.AccrualEnd) / full
		}
	}

	f := float64(spec.Frequency)
	for i, p := range remaining {
		cf := cashflow{amount: p.Coupon}
		if i == len(remaining)-1 {
			cf.amount += 100
		}
		if spec.DayCount == contracts.DayCountActActICMA {
			cf.periods = first + float64(i)
		} else {
			cf.periods = daycount.YearFraction(spec.DayCount, eff, p.AccrualEnd, p.NominalStart, p.AccrualEnd, spec.Frequency) * f
		}
		out = append(out, cf)
	}
	return out
}

// priceAndDerivative returns the dirty price at y and its first derivative.
func priceAndDerivative(cfs []cashflow, y float64, freq contracts.Frequency) (float64, float64) {
	f := float64(freq)
	base := 1 + y/f
	var price, deriv float64
	for _, cf := range cfs {
		disc := math.Pow(base, -cf.periods)
		price += cf.amount * disc
		deriv += -cf.periods / f * cf.amount * disc / base
	}
	return price, deriv
}

// DirtyPrice is the present value per 100 face of the remaining cash flows at ytm.
func DirtyPrice(sched *contracts.Schedule, ytm float64) float64 {
	p, _ := priceAndDerivative(cashflows(sched), ytm, sched.Spec.Frequency)
	return p
}

// PriceFromYield returns the clean and dirty price for ytm.
func (s *Solver) PriceFromYield(sched *contracts.Schedule, ytm float64) (clean, dirty float64, err error) {
	if math.IsNaN(ytm) || math.IsInf(ytm, 0) || 1+ytm/float64(sched.Spec.Frequency) <= 0 {
		return 0, 0, fmt.Errorf("%w: yield %v is outside the priceable range", contracts.ErrInvalidInput, ytm)
	}
	dirty = DirtyPrice(sched, ytm)
	return dirty - sched.AccruedInterest, dirty, nil
}

// SolveYield finds the yield whose dirty price equals cleanPrice plus accrued.
//
// The bracket is first narrowed by bisection, then refined with Newton steps.
// A Newton step that leaves the current bracket is replaced by a bisection
// step, so the iterate never escapes the bracket.
func (s *Solver) SolveYield(sched *contracts.Schedule, cleanPrice float64) (Yield, error) {
	if math.IsNaN(cleanPrice) || math.IsInf(cleanPrice, 0) || cleanPrice <= 0 {
		return Yield{}, fmt.Errorf("%w: clean price %v", contracts.ErrNegativePrice, cleanPrice)
	}
	target := cleanPrice + sched.AccruedInterest
	cfs := cashflows(sched)
	freq := sched.Spec.Frequency

	lo, hi := s.cfg.Lower, s.cfg.Upper
	pLo, _ := priceAndDerivative(cfs, lo, freq)
	pHi, _ := priceAndDerivative(cfs, hi, freq)
	// Price falls as yield rises, so the target must lie between the bracket prices.
	if !(pLo-target >= 0 && pHi-target <= 0) {
		return Yield{}, fmt.Errorf("%w: dirty price %.6f has no yield in [%.0f%%, %.0f%%] (bracket prices %.6f to %.6f)",
			contracts.ErrYieldNotConverged, target, lo*100, hi*100, pHi, pLo)
	}

	y := (lo + hi) / 2
	for iter := 1; iter <= s.cfg.MaxIter; iter++ {
		price, deriv := priceAndDerivative(cfs, y, freq)
		diff := price - target
		if math.Abs(diff) < s.cfg.Tolerance {
			return Yield{Rate: y, DirtyPrice: price, Iterations: iter}, nil
		}
		if diff > 0 {
			lo = y
		} else {
			hi = y
		}

		next := (lo + hi) / 2
		if hi-lo < bisectionWidth && deriv != 0 {
			if step := y - diff/deriv; step > lo && step < hi && !math.IsNaN(step) {
				next = step
			}
		}
		if next == y {
			break
		}
		y = next
	}

	return Yield{}, fmt.Errorf("%w: no convergence within %d iterations (last yield %.10f)",
		contracts.ErrYieldNotConverged, s.cfg.MaxIter, y)
}

// Risk computes duration and convexity at ytm by centred finite differences.
func (s *Solver) Risk(sched *contracts.Schedule, ytm float64) (Risk, error) {
	cfs := cashflows(sched)
	freq := sched.Spec.Frequency
	h := s.cfg.BumpBps / 10000

	p0, _ := priceAndDerivative(cfs, ytm, freq)
	up, _ := priceAndDerivative(cfs, ytm+h, freq)
	down, _ := priceAndDerivative(cfs, ytm-h, freq)
	if p0 <= 0 || math.IsNaN(p0) || math.IsInf(p0, 0) {
		return Risk{}, fmt.Errorf("%w: dirty price %v at yield %v", contracts.ErrNegativePrice, p0, ytm)
	}

	md := (down - up) / (2 * h * p0)
	return Risk{
		ModifiedDuration: md,
		MacaulayDuration: md * (1 + ytm/float64(freq)),
		Convexity:        (up + down - 2*p0) / (p0 * h * h),
	}, nil
}

// Solve runs the solver at the requested depth and fills a result for sched.
// At pricing depth the risk measures stay nil.
func (s *Solver) Solve(sched *contracts.Schedule, cleanPrice float64, depth contracts.Depth) (*contracts.AnalyticsResult, error) {
	y, err := s.SolveYield(sched, cleanPrice)
	if err != nil {
		return nil, err
	}

	spec := sched.Spec
	res := &contracts.AnalyticsResult{
		Identifier:          spec.Identifier,
		Spec:                &spec,
		Depth:               depth,
		Settlement:          sched.Settlement,
		EffectiveSettlement: sched.EffectiveSettlement,
		PreviousCoupon:      sched.PreviousCoupon(),
		NextCoupon:          sched.NextCoupon(),
		CleanPrice:          cleanPrice,
		DirtyPrice:          y.DirtyPrice,
		AccruedInterest:     sched.AccruedInterest,
		AccruedPerMillion:   sched.AccruedPerMillion,
		YieldToMaturity:     y.Rate,
		Iterations:          y.Iterations,
		Status:              contracts.StatusSuccess,
	}
	if depth == contracts.DepthPricing {
		return res, nil
	}

	r, err := s.Risk(sched, y.Rate)
	if err != nil {
		return nil, err
	}
	res.ModifiedDuration = contracts.Float(r.ModifiedDuration)
	res.MacaulayDuration = contracts.Float(r.MacaulayDuration)
	res.Convexity = contracts.Float(r.Convexity)
	return res, nil
}
