// Package engine exposes the public bond analytics operations.
package engine

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/wonny/bondlab/internal/cache"
	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/portfolio"
	"github.com/wonny/bondlab/internal/resolver"
	"github.com/wonny/bondlab/internal/schedule"
	"github.com/wonny/bondlab/internal/solver"
	"github.com/wonny/bondlab/internal/treasury"
	"github.com/wonny/bondlab/pkg/logger"
)

// Request is the canonical single-bond input. Settlement is always explicit.
type Request struct {
	Identifier  string
	Description string
	CleanPrice  float64
	Settlement  time.Time
	Depth       contracts.Depth
}

// Options wires the engine's collaborators. Nil fields disable the feature:
// no cache means every call computes, no curve service means no spreads.
type Options struct {
	Solver  solver.Config
	Workers int
	Cache   *cache.Cache
	Curves  contracts.CurveService
}

// Engine runs the resolve → schedule → solve → spread pipeline. It holds no
// per-call state and is safe for concurrent use.
// ⭐ SSOT: the single-bond pipeline is assembled here
type Engine struct {
	resolver  *resolver.Resolver
	solver    *solver.Solver
	spreads   *treasury.Spreader
	cache     *cache.Cache
	portfolio *portfolio.Aggregator
	logger    *logger.Logger
}

// New creates an engine over a read-only convention store.
func New(store contracts.ConventionStore, opts Options, log *logger.Logger) *Engine {
	e := &Engine{
		resolver: resolver.New(store, log),
		solver:   solver.New(opts.Solver),
		cache:    opts.Cache,
		logger:   log.WithComponent("engine"),
	}
	var curves contracts.CurveService
	if opts.Curves != nil {
		curves = &cachedCurves{inner: opts.Curves, cache: opts.Cache}
	}
	e.spreads = treasury.NewSpreader(curves, log)
	e.portfolio = portfolio.New(e, opts.Workers, log)
	return e
}

// AnalyzeSingleBond resolves and analyzes one bond.
//
// The error return is reserved for malformed input (non-finite price, missing
// settlement, nothing to resolve, unknown depth). Every other failure is
// reported by a result with StatusFailure.
func (e *Engine) AnalyzeSingleBond(ctx context.Context, req Request) (*contracts.AnalyticsResult, error) {
	depth, err := checkInput(req.CleanPrice, req.Settlement, req.Depth)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Identifier) == "" && strings.TrimSpace(req.Description) == "" {
		return nil, fmt.Errorf("%w: identifier or description is required", contracts.ErrInvalidInput)
	}

	res := &contracts.AnalyticsResult{
		Identifier:  strings.TrimSpace(req.Identifier),
		Description: strings.TrimSpace(req.Description),
		Depth:       depth,
		Settlement:  contracts.Midnight(req.Settlement),
		CleanPrice:  req.CleanPrice,
	}
	if err := ctx.Err(); err != nil {
		return e.fail(res, err), nil
	}

	spec, route, err := e.resolver.Resolve(ctx, resolver.Request{Identifier: req.Identifier, Description: req.Description})
	if err != nil {
		return e.fail(res, err), nil
	}
	res.Route = route
	return e.analyze(ctx, res, *spec), nil
}

// AnalyzeSpec analyzes a bond whose specification is already known.
func (e *Engine) AnalyzeSpec(ctx context.Context, spec contracts.BondSpecification, cleanPrice float64, settlement time.Time, depth contracts.Depth) (*contracts.AnalyticsResult, error) {
	depth, err := checkInput(cleanPrice, settlement, depth)
	if err != nil {
		return nil, err
	}

	res := &contracts.AnalyticsResult{
		Identifier: spec.Identifier,
		Depth:      depth,
		Settlement: contracts.Midnight(settlement),
		CleanPrice: cleanPrice,
	}
	if err := ctx.Err(); err != nil {
		return e.fail(res, err), nil
	}
	if err := spec.Validate(); err != nil {
		return e.fail(res, err), nil
	}
	return e.analyze(ctx, res, spec), nil
}

// AnalyzeEntry implements portfolio.Analyzer.
func (e *Engine) AnalyzeEntry(ctx context.Context, entry contracts.PortfolioEntry) contracts.AnalyticsResult {
	var (
		res *contracts.AnalyticsResult
		err error
	)
	if entry.Spec != nil {
		res, err = e.AnalyzeSpec(ctx, *entry.Spec, entry.CleanPrice, entry.Settlement, contracts.DepthAnalytics)
	} else {
		res, err = e.AnalyzeSingleBond(ctx, Request{
			Identifier:  entry.Identifier,
			Description: entry.Description,
			CleanPrice:  entry.CleanPrice,
			Settlement:  entry.Settlement,
			Depth:       contracts.DepthAnalytics,
		})
	}
	if err != nil {
		failed := &contracts.AnalyticsResult{
			Identifier:  entry.Identifier,
			Description: entry.Description,
			Settlement:  entry.Settlement,
			CleanPrice:  entry.CleanPrice,
			Depth:       contracts.DepthAnalytics,
		}
		return *e.fail(failed, err)
	}
	return *res
}

// AnalyzePortfolio analyzes every entry independently and aggregates the
// successful ones. The only error is an empty portfolio.
func (e *Engine) AnalyzePortfolio(ctx context.Context, entries []contracts.PortfolioEntry) (*contracts.PortfolioResult, error) {
	return e.portfolio.Aggregate(ctx, entries)
}

// CacheStats reports result cache counters. The zero value when caching is off.
func (e *Engine) CacheStats() cache.Stats {
	if e.cache == nil {
		return cache.Stats{}
	}
	return e.cache.Stats()
}

func (e *Engine) analyze(ctx context.Context, res *contracts.AnalyticsResult, spec contracts.BondSpecification) *contracts.AnalyticsResult {
	settlement := res.Settlement
	identity := spec.Key()

	sched, err := cache.GetOrCompute(ctx, e.cache,
		cache.Key{Identity: identity, Settlement: settlement, Depth: cache.DepthSchedule},
		func(context.Context) (*contracts.Schedule, error) {
			return schedule.Build(spec, settlement)
		})
	if err != nil {
		res.Spec = &spec
		return e.fail(res, err)
	}

	var solved *contracts.AnalyticsResult
	if res.Depth == contracts.DepthAnalytics {
		solved, err = cache.GetOrCompute(ctx, e.cache,
			cache.Key{Identity: identity, Price: res.CleanPrice, Settlement: settlement, Depth: cache.DepthAnalytics},
			func(context.Context) (*contracts.AnalyticsResult, error) {
				return e.solver.Solve(sched, res.CleanPrice, contracts.DepthAnalytics)
			})
	} else {
		solved, err = e.solver.Solve(sched, res.CleanPrice, contracts.DepthPricing)
	}
	if err != nil {
		res.Spec = &spec
		return e.fail(res, err)
	}

	out := merge(res, solved)
	if out.Depth == contracts.DepthAnalytics {
		spread, obs := e.spreads.SpreadOver(ctx, sched, out.YieldToMaturity, settlement)
		out.Spread = spread
		if obs != nil {
			o := *obs
			out.Benchmark = &o
		}
	}
	return out
}

// merge copies a possibly shared solver result and stamps the request's own
// identity and route onto the copy.
func merge(req, solved *contracts.AnalyticsResult) *contracts.AnalyticsResult {
	out := *solved
	if req.Identifier != "" {
		out.Identifier = req.Identifier
	}
	out.Description = req.Description
	out.Route = req.Route
	out.Depth = req.Depth
	if solved.Spec != nil {
		s := *solved.Spec
		out.Spec = &s
	}
	out.ModifiedDuration = clone(solved.ModifiedDuration)
	out.MacaulayDuration = clone(solved.MacaulayDuration)
	out.Convexity = clone(solved.Convexity)
	out.Spread = nil
	out.Benchmark = nil
	return &out
}

func clone(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return contracts.Float(*v)
}

func (e *Engine) fail(res *contracts.AnalyticsResult, err error) *contracts.AnalyticsResult {
	res.Fail(err)
	e.logger.WithFields(map[string]interface{}{
		"identifier":  res.Identifier,
		"description": res.Description,
		"kind":        res.FailureKind,
		"reason":      res.FailureReason,
	}).Warn("Bond analysis failed")
	return res
}

func checkInput(price float64, settlement time.Time, depth contracts.Depth) (contracts.Depth, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return "", fmt.Errorf("%w: clean price must be finite, got %v", contracts.ErrInvalidInput, price)
	}
	if settlement.IsZero() {
		return "", fmt.Errorf("%w: settlement date is required", contracts.ErrInvalidInput)
	}
	return contracts.ParseDepth(string(depth))
}

// cachedCurves memoizes benchmark observations per (date, tenor) in the
// result cache.
type cachedCurves struct {
	inner contracts.CurveService
	cache *cache.Cache
}

func (c *cachedCurves) YieldCurve(ctx context.Context, date time.Time, tenorYears float64) (*contracts.Observation, error) {
	return cache.GetOrCompute(ctx, c.cache,
		cache.Key{Identity: "benchmark", Price: tenorYears, Settlement: contracts.Midnight(date), Depth: cache.DepthBenchmark},
		func(ctx context.Context) (*contracts.Observation, error) {
			return c.inner.YieldCurve(ctx, date, tenorYears)
		})
}
