// Package portfolio runs many bonds through the single-bond pipeline and
// aggregates their results.
package portfolio

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/pkg/logger"
)

// DefaultWorkers bounds concurrent single-bond computations.
const DefaultWorkers = 8

// Analyzer runs one entry through the single-bond pipeline. Failures are
// reported inside the returned result, never as a panic or error.
type Analyzer interface {
	AnalyzeEntry(ctx context.Context, entry contracts.PortfolioEntry) contracts.AnalyticsResult
}

// Aggregator fans entries out to an Analyzer and combines the results.
// ⭐ SSOT: portfolio weighting rules live here
type Aggregator struct {
	analyzer Analyzer
	workers  int
	logger   *logger.Logger
}

// New creates an aggregator running at most workers entries at once.
func New(analyzer Analyzer, workers int, log *logger.Logger) *Aggregator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Aggregator{
		analyzer: analyzer,
		workers:  workers,
		logger:   log.WithComponent("portfolio"),
	}
}

// Aggregate analyzes every entry independently. One entry failing never
// affects another; the only error is an empty portfolio.
func (a *Aggregator) Aggregate(ctx context.Context, entries []contracts.PortfolioEntry) (*contracts.PortfolioResult, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: portfolio has no entries", contracts.ErrInvalidInput)
	}

	lines := make([]contracts.PortfolioLine, len(entries))
	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, entry := range entries {
		g.Go(func() error {
			lines[i] = a.analyze(ctx, entry)
			return nil
		})
	}
	_ = g.Wait()

	res := &contracts.PortfolioResult{
		RunID:         uuid.NewString(),
		Lines:         lines,
		Normalization: contracts.NormalizationSuccessfulSubset,
		Count:         len(lines),
	}
	aggregate(res)

	a.logger.WithFields(map[string]interface{}{
		"run_id":    res.RunID,
		"count":     res.Count,
		"succeeded": res.Succeeded,
		"failed":    res.Failed,
	}).Info("Portfolio analyzed")
	return res, nil
}

func (a *Aggregator) analyze(ctx context.Context, entry contracts.PortfolioEntry) contracts.PortfolioLine {
	line := contracts.PortfolioLine{Weight: entry.Weight}

	if math.IsNaN(entry.Weight) || math.IsInf(entry.Weight, 0) || entry.Weight <= 0 {
		line.Result = failed(entry, fmt.Errorf("%w: weight must be finite and > 0, got %v", contracts.ErrInvalidInput, entry.Weight))
		return line
	}
	if err := ctx.Err(); err != nil {
		line.Result = failed(entry, err)
		return line
	}

	line.Result = a.analyzer.AnalyzeEntry(ctx, entry)
	return line
}

func failed(entry contracts.PortfolioEntry, err error) contracts.AnalyticsResult {
	r := contracts.AnalyticsResult{
		Identifier:  entry.Identifier,
		Description: entry.Description,
		Settlement:  entry.Settlement,
		CleanPrice:  entry.CleanPrice,
	}
	r.Fail(err)
	return r
}

// aggregate fills counts, normalized weights and weighted averages.
// Every average is taken over successful lines only; optional measures use
// the weight of the lines that carry them as their denominator.
func aggregate(res *contracts.PortfolioResult) {
	var yield, accrued float64
	for i := range res.Lines {
		line := &res.Lines[i]
		if w := line.Weight; !math.IsNaN(w) && !math.IsInf(w, 0) && w > 0 {
			res.TotalWeight += w
		}
		if !line.Result.Succeeded() {
			res.Failed++
			continue
		}
		res.Succeeded++
		res.SuccessWeight += line.Weight
		yield += line.Weight * line.Result.YieldToMaturity
		accrued += line.Weight * line.Result.AccruedInterest
	}
	if res.SuccessWeight == 0 {
		return
	}

	for i := range res.Lines {
		if res.Lines[i].Result.Succeeded() {
			res.Lines[i].NormalizedWeight = res.Lines[i].Weight / res.SuccessWeight
		}
	}
	res.WeightedYield = contracts.Float(yield / res.SuccessWeight)
	res.WeightedAccrued = contracts.Float(accrued / res.SuccessWeight)

	res.WeightedModifiedDuration, _ = weighted(res.Lines, func(r *contracts.AnalyticsResult) *float64 { return r.ModifiedDuration })
	res.WeightedMacaulayDuration, _ = weighted(res.Lines, func(r *contracts.AnalyticsResult) *float64 { return r.MacaulayDuration })
	res.WeightedConvexity, _ = weighted(res.Lines, func(r *contracts.AnalyticsResult) *float64 { return r.Convexity })

	var spreadWeight float64
	res.WeightedSpread, spreadWeight = weighted(res.Lines, func(r *contracts.AnalyticsResult) *float64 { return r.Spread })
	res.SpreadCoverage = spreadWeight / res.SuccessWeight
}

// weighted averages an optional measure over the successful lines where it
// is present. It returns nil and zero weight when no line carries it.
func weighted(lines []contracts.PortfolioLine, measure func(*contracts.AnalyticsResult) *float64) (*float64, float64) {
	var sum, weight float64
	for i := range lines {
		r := &lines[i].Result
		if !r.Succeeded() {
			continue
		}
		v := measure(r)
		if v == nil {
			continue
		}
		sum += lines[i].Weight * *v
		weight += lines[i].Weight
	}
	if weight == 0 {
		return nil, 0
	}
	return contracts.Float(sum / weight), weight
}
