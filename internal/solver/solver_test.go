package solver

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/schedule"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ust3s52() contracts.BondSpecification {
	issue := date(2022, 8, 15)
	return contracts.BondSpecification{
		Identifier:  "US912810TJ79",
		Issuer:      "US Treasury",
		AssetClass:  contracts.AssetClassSovereign,
		CouponRate:  0.03,
		Maturity:    date(2052, 8, 15),
		IssueDate:   &issue,
		Frequency:   contracts.FrequencySemiannual,
		DayCount:    contracts.DayCountActActICMA,
		BusinessDay: contracts.Following,
		Calendar:    "US",
		FaceValue:   100,
	}
}

func corporate() contracts.BondSpecification {
	return contracts.BondSpecification{
		Identifier:  "US037833AK68",
		Issuer:      "APPLE",
		AssetClass:  contracts.AssetClassCorporate,
		CouponRate:  0.05,
		Maturity:    date(2035, 6, 1),
		Frequency:   contracts.FrequencySemiannual,
		DayCount:    contracts.DayCount30360,
		BusinessDay: contracts.Following,
		Calendar:    "US",
		FaceValue:   100,
	}
}

func floaterLike() contracts.BondSpecification {
	return contracts.BondSpecification{
		Issuer:      "EIB",
		AssetClass:  contracts.AssetClassCorporate,
		CouponRate:  0.0425,
		Maturity:    date(2029, 3, 15),
		Frequency:   contracts.FrequencyQuarterly,
		DayCount:    contracts.DayCountAct360,
		BusinessDay: contracts.ModifiedFollowing,
		Calendar:    "TARGET",
		FaceValue:   100,
	}
}

func build(t *testing.T, spec contracts.BondSpecification, settlement time.Time) *contracts.Schedule {
	t.Helper()
	s, err := schedule.Build(spec, settlement)
	require.NoError(t, err)
	return s
}

func TestSolve_TreasuryExample(t *testing.T) {
	sched := build(t, ust3s52(), date(2025, 4, 18))

	res, err := New(DefaultConfig()).Solve(sched, 71.66, contracts.DepthAnalytics)
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusSuccess, res.Status)
	assert.InDelta(t, 0.049, res.YieldToMaturity, 0.0005)
	require.NotNil(t, res.ModifiedDuration)
	assert.InDelta(t, 16.4, *res.ModifiedDuration, 0.5)
	require.NotNil(t, res.MacaulayDuration)
	assert.Greater(t, *res.MacaulayDuration, *res.ModifiedDuration)
	require.NotNil(t, res.Convexity)
	assert.Greater(t, *res.Convexity, 0.0)

	assert.InDelta(t, 71.66+sched.AccruedInterest, res.DirtyPrice, 1e-8)
	assert.Equal(t, date(2025, 2, 15), res.PreviousCoupon)
	assert.Equal(t, date(2025, 8, 15), res.NextCoupon)
	assert.Greater(t, res.Iterations, 0)
}

func TestSolve_PricingDepthOmitsRisk(t *testing.T) {
	sched := build(t, ust3s52(), date(2025, 4, 18))

	res, err := New(DefaultConfig()).Solve(sched, 71.66, contracts.DepthPricing)
	require.NoError(t, err)

	assert.Equal(t, contracts.DepthPricing, res.Depth)
	assert.Nil(t, res.ModifiedDuration)
	assert.Nil(t, res.MacaulayDuration)
	assert.Nil(t, res.Convexity)
	assert.Nil(t, res.Spread)
}

func TestRoundTrip(t *testing.T) {
	s := New(DefaultConfig())
	specs := map[string]contracts.BondSpecification{
		"act/act icma": ust3s52(),
		"30/360":       corporate(),
		"act/360":      floaterLike(),
	}
	yields := []float64{-0.01, 0, 0.015, 0.045, 0.09, 0.25}

	for name, spec := range specs {
		sched := build(t, spec, date(2025, 4, 22))
		for _, y := range yields {
			clean, dirty, err := s.PriceFromYield(sched, y)
			require.NoError(t, err)
			assert.InDelta(t, dirty-sched.AccruedInterest, clean, 1e-12)

			got, err := s.SolveYield(sched, clean)
			require.NoError(t, err, "%s at %v", name, y)
			assert.InDelta(t, y, got.Rate, 1e-7, "%s at %v", name, y)
		}
	}
}

func TestSolveYield_ParBondOnCouponDate(t *testing.T) {
	sched := build(t, corporate(), date(2025, 12, 1))
	require.Zero(t, sched.AccruedInterest)

	y, err := New(DefaultConfig()).SolveYield(sched, 100)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, y.Rate, 1e-9)
}

func TestZeroCouponClosedForm(t *testing.T) {
	spec := contracts.BondSpecification{
		Issuer:      "STRIP",
		CouponRate:  0,
		Maturity:    date(2027, 6, 1),
		Frequency:   contracts.FrequencyAnnual,
		DayCount:    contracts.DayCountActActICMA,
		BusinessDay: contracts.Unadjusted,
		FaceValue:   100,
	}
	sched := build(t, spec, date(2025, 6, 1))
	s := New(DefaultConfig())

	y, err := s.SolveYield(sched, 100/math.Pow(1.05, 2))
	require.NoError(t, err)
	assert.InDelta(t, 0.05, y.Rate, 1e-9)

	r, err := s.Risk(sched, y.Rate)
	require.NoError(t, err)
	assert.InDelta(t, 2/1.05, r.ModifiedDuration, 1e-6)
	assert.InDelta(t, 2.0, r.MacaulayDuration, 1e-6)
	assert.InDelta(t, 6/(1.05*1.05), r.Convexity, 1e-3)
}

func TestSolveYield_NearMaturity(t *testing.T) {
	sched := build(t, ust3s52(), date(2052, 8, 1))
	require.Len(t, sched.Remaining(), 1)
	s := New(DefaultConfig())

	res, err := s.Solve(sched, 99.9, contracts.DepthAnalytics)
	require.NoError(t, err)
	assert.Greater(t, res.YieldToMaturity, 0.0)
	require.NotNil(t, res.ModifiedDuration)
	assert.Greater(t, *res.ModifiedDuration, 0.0)
	assert.Less(t, *res.ModifiedDuration, 0.1)
}

func TestSolveYield_DeepDiscount(t *testing.T) {
	sched := build(t, ust3s52(), date(2025, 4, 18))

	y, err := New(DefaultConfig()).SolveYield(sched, 20)
	require.NoError(t, err)
	assert.Greater(t, y.Rate, 0.1)
	assert.InDelta(t, 20+sched.AccruedInterest, DirtyPrice(sched, y.Rate), 1e-8)
}

func TestSolveYield_InvalidPrices(t *testing.T) {
	sched := build(t, ust3s52(), date(2025, 4, 18))
	s := New(DefaultConfig())

	for _, price := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		_, err := s.SolveYield(sched, price)
		assert.ErrorIs(t, err, contracts.ErrNegativePrice, "price %v", price)
	}
}

func TestSolveYield_OutsideBracket(t *testing.T) {
	sched := build(t, ust3s52(), date(2025, 4, 18))
	s := New(DefaultConfig())

	_, err := s.SolveYield(sched, 1e12)
	assert.ErrorIs(t, err, contracts.ErrYieldNotConverged)

	_, err = s.SolveYield(sched, 0.01)
	assert.ErrorIs(t, err, contracts.ErrYieldNotConverged)
	assert.Contains(t, err.Error(), "has no yield")
}

func TestSolveYield_IterationCap(t *testing.T) {
	sched := build(t, ust3s52(), date(2025, 4, 18))

	_, err := New(Config{MaxIter: 3}).SolveYield(sched, 71.66)
	assert.ErrorIs(t, err, contracts.ErrYieldNotConverged)
	assert.Contains(t, err.Error(), "3 iterations")
}

func TestPriceFromYield_Unpriceable(t *testing.T) {
	sched := build(t, ust3s52(), date(2025, 4, 18))
	s := New(DefaultConfig())

	_, _, err := s.PriceFromYield(sched, -2.5)
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
	_, _, err = s.PriceFromYield(sched, math.NaN())
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestNew_Defaults(t *testing.T) {
	cfg := New(Config{}).Config()
	assert.Equal(t, DefaultConfig(), cfg)

	cfg = New(Config{Tolerance: 1e-6, MaxIter: 50}).Config()
	assert.Equal(t, 1e-6, cfg.Tolerance)
	assert.Equal(t, 50, cfg.MaxIter)
	assert.Equal(t, 1.0, cfg.BumpBps)
}

func TestPriceDecreasesWithYield(t *testing.T) {
	sched := build(t, floaterLike(), date(2025, 4, 22))
	prev := math.Inf(1)
	for y := -0.02; y <= 0.2; y += 0.01 {
		p := DirtyPrice(sched, y)
		assert.Less(t, p, prev)
		prev = p
	}
}
