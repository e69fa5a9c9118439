package treasury

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/schedule"
	"github.com/wonny/bondlab/pkg/httputil"
	"github.com/wonny/bondlab/pkg/logger"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const textViewPage = `<!DOCTYPE html>
<html><body>
<table class="usa-table"><tr><th>Navigation</th></tr></table>
<table class="usa-table views-table views-view-table cols-20">
  <thead>
    <tr>
      <th>Date</th><th>20 YR CMT</th><th>1 Mo</th><th>1.5 Month</th><th>3 Mo</th>
      <th>6 Mo</th><th>1 Yr</th><th>2 Yr</th><th>5 Yr</th><th>10 Yr</th><th>20 Yr</th><th>30 Yr</th>
    </tr>
  </thead>
  <tbody>
    <tr>
      <td>04/16/2025</td><td>4.80</td><td>4.36</td><td>N/A</td><td>4.33</td>
      <td>4.23</td><td>4.01</td><td>3.78</td><td>3.88</td><td>4.28</td><td>4.76</td><td>4.74</td>
    </tr>
    <tr>
      <td>04/17/2025</td><td>4.83</td><td>4.35</td><td>4.34</td><td>4.33</td>
      <td>4.24</td><td>4.03</td><td>3.80</td><td>3.95</td><td>4.34</td><td>4.82</td><td>4.80</td>
    </tr>
    <tr><td>totals</td><td>ignored</td></tr>
  </tbody>
</table>
</body></html>`

func TestParseTenor(t *testing.T) {
	tests := []struct {
		header string
		want   float64
		ok     bool
	}{
		{"1 Mo", 1.0 / 12, true},
		{"1.5 Month", 1.5 / 12, true},
		{"6 Mo", 0.5, true},
		{"10 Yr", 10, true},
		{"30 yr", 30, true},
		{"Date", 0, false},
		{"20 YR CMT", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := parseTenor(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestParseTextView(t *testing.T) {
	curves, err := ParseTextView([]byte(textViewPage))
	require.NoError(t, err)
	require.Len(t, curves, 2)

	c := curves["2025-04-17"]
	require.NotNil(t, c)
	assert.Equal(t, date(2025, 4, 17), c.Date)
	assert.Equal(t, TextViewSourceName, c.Source)
	require.Len(t, c.Points, 10)
	assert.InDelta(t, 1.0/12, c.Points[0].Tenor, 1e-12)
	assert.InDelta(t, 0.0480, c.Points[9].Rate, 1e-12)

	// N/A cells are skipped.
	assert.Len(t, curves["2025-04-16"].Points, 9)
}

func TestParseTextView_NoTable(t *testing.T) {
	_, err := ParseTextView([]byte(`<html><body><p>maintenance</p></body></html>`))
	assert.ErrorIs(t, err, contracts.ErrBenchmarkUnavailable)
}

func TestCurveRate(t *testing.T) {
	c := NewCurve(date(2025, 4, 17), "test", []Point{
		{Tenor: 10, Rate: 0.04},
		{Tenor: 2, Rate: 0.03},
		{Tenor: 30, Rate: 0.05},
		{Tenor: -1, Rate: 0.01},
	})
	require.Len(t, c.Points, 3)

	tests := []struct {
		tenor float64
		want  float64
	}{
		{0.5, 0.03},
		{2, 0.03},
		{6, 0.035},
		{20, 0.045},
		{30, 0.05},
		{40, 0.05},
	}
	for _, tt := range tests {
		got, err := c.Rate(tt.tenor)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-12, "tenor %v", tt.tenor)
	}

	_, err := NewCurve(date(2025, 4, 17), "test", nil).Rate(5)
	assert.ErrorIs(t, err, contracts.ErrBenchmarkUnavailable)
}

func TestTextViewSource(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Equal(t, "daily_treasury_yield_curve", r.URL.Query().Get("type"))
		assert.Equal(t, "202504", r.URL.Query().Get("field_tdr_date_value_month"))
		_, _ = w.Write([]byte(textViewPage))
	}))
	defer srv.Close()

	client := httputil.New(logger.Nop(), time.Second).DisableRetry()
	src := NewTextViewSource(client, srv.URL+"/TextView", time.Minute, logger.Nop())

	c, err := src.Curve(context.Background(), date(2025, 4, 17))
	require.NoError(t, err)
	assert.Equal(t, date(2025, 4, 17), c.Date)

	_, err = src.Curve(context.Background(), date(2025, 4, 18))
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "month page is fetched once")
}

func TestTextViewSource_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := httputil.New(logger.Nop(), time.Second).DisableRetry()
	src := NewTextViewSource(client, srv.URL, time.Minute, logger.Nop())

	_, err := src.Curve(context.Background(), date(2025, 4, 17))
	require.Error(t, err)
	assert.ErrorIs(t, err, httputil.ErrStatus)
	assert.NotErrorIs(t, err, contracts.ErrNotFound)
}

type countingSource struct {
	mu    sync.Mutex
	calls map[string]int
	inner Source
	err   error
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) Curve(ctx context.Context, d time.Time) (*Curve, error) {
	s.mu.Lock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[d.Format(contracts.DateLayout)]++
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.Curve(ctx, d)
}

func staticCurves() *StaticSource {
	return NewStaticSource("static",
		NewCurve(date(2025, 4, 17), "static", []Point{{Tenor: 10, Rate: 0.0434}, {Tenor: 30, Rate: 0.0480}}),
		NewCurve(date(2025, 4, 14), "static", []Point{{Tenor: 10, Rate: 0.0438}, {Tenor: 30, Rate: 0.0484}}),
	)
}

func TestService_WalksBackOverHoliday(t *testing.T) {
	src := &countingSource{inner: staticCurves()}
	svc := NewService(src, 10, time.Minute, logger.Nop())

	// 2025-04-18 is Good Friday.
	obs, err := svc.YieldCurve(context.Background(), date(2025, 4, 18), 27.3)
	require.NoError(t, err)
	assert.Equal(t, date(2025, 4, 17), obs.ObservationDate)
	assert.Equal(t, date(2025, 4, 18), obs.RequestedDate)
	assert.True(t, obs.Stale())
	assert.InDelta(t, 0.0434+(27.3-10)/20*(0.0480-0.0434), obs.Rate, 1e-12)
	assert.Equal(t, 27.3, obs.Tenor)

	_, skipped := src.calls["2025-04-18"]
	assert.False(t, skipped, "holidays are not requested")

	// Weekend settlement walks back to Thursday via the cache.
	_, err = svc.YieldCurve(context.Background(), date(2025, 4, 20), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, src.calls["2025-04-17"])
	assert.Equal(t, 1, svc.Len())
}

func TestService_LookbackExhausted(t *testing.T) {
	svc := NewService(staticCurves(), 3, time.Minute, logger.Nop())

	_, err := svc.YieldCurve(context.Background(), date(2025, 6, 2), 10)
	assert.ErrorIs(t, err, contracts.ErrBenchmarkUnavailable)
	assert.Contains(t, err.Error(), "within 3 days")
}

func TestService_SourceErrorStopsWalk(t *testing.T) {
	boom := errors.New("connection refused")
	src := &countingSource{err: boom}
	svc := NewService(src, 10, time.Minute, logger.Nop())

	_, err := svc.YieldCurve(context.Background(), date(2025, 4, 17), 10)
	assert.ErrorIs(t, err, contracts.ErrBenchmarkUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, src.calls, 1)

	// Failures are not cached.
	_, _ = svc.YieldCurve(context.Background(), date(2025, 4, 17), 10)
	assert.Equal(t, 2, src.calls["2025-04-17"])
}

func TestService_InvalidTenor(t *testing.T) {
	svc := NewService(staticCurves(), 10, time.Minute, logger.Nop())
	_, err := svc.YieldCurve(context.Background(), date(2025, 4, 17), 0)
	assert.ErrorIs(t, err, contracts.ErrBenchmarkUnavailable)
}

func TestService_ConcurrentMissesCollapse(t *testing.T) {
	src := &countingSource{inner: staticCurves()}
	svc := NewService(src, 10, time.Minute, logger.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.YieldCurve(context.Background(), date(2025, 4, 17), 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.LessOrEqual(t, src.calls["2025-04-17"], 16)
	assert.GreaterOrEqual(t, src.calls["2025-04-17"], 1)
	assert.Equal(t, 1, svc.Len())
}

func ust3s52() contracts.BondSpecification {
	issue := date(2022, 8, 15)
	return contracts.BondSpecification{
		Identifier:  "US912810TJ79",
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

func TestSpreader(t *testing.T) {
	sched, err := schedule.Build(ust3s52(), date(2025, 4, 18))
	require.NoError(t, err)

	svc := NewService(staticCurves(), 10, time.Minute, logger.Nop())
	spread, obs := NewSpreader(svc, logger.Nop()).SpreadOver(context.Background(), sched, 0.049, date(2025, 4, 18))
	require.NotNil(t, spread)
	require.NotNil(t, obs)
	assert.InDelta(t, 0.049-obs.Rate, *spread, 1e-12)
	assert.InDelta(t, 27.34, obs.Tenor, 0.01)
}

func TestSpreader_Unavailable(t *testing.T) {
	sched, err := schedule.Build(ust3s52(), date(2025, 4, 18))
	require.NoError(t, err)

	empty := NewService(NewStaticSource("empty"), 10, time.Minute, logger.Nop())
	spread, obs := NewSpreader(empty, logger.Nop()).SpreadOver(context.Background(), sched, 0.049, date(2025, 4, 18))
	assert.Nil(t, spread)
	assert.Nil(t, obs)

	spread, obs = NewSpreader(nil, logger.Nop()).SpreadOver(context.Background(), sched, 0.049, date(2025, 4, 18))
	assert.Nil(t, spread)
	assert.Nil(t, obs)
}

type fakeRow struct {
	scan func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakeQuerier struct {
	row      fakeRow
	args     []any
	execArgs []any
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.args = args
	return q.row
}

func (q *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.execArgs = args
	return pgconn.NewCommandTag("INSERT 0 2"), nil
}

func TestRepository_Curve(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error {
		*dest[0].(*[]float64) = []float64{2, 10}
		*dest[1].(*[]float64) = []float64{0.038, 0.0434}
		*dest[2].(*string) = TextViewSourceName
		return nil
	}}}

	c, err := NewRepository(q).Curve(context.Background(), date(2025, 4, 17))
	require.NoError(t, err)
	assert.Equal(t, []any{date(2025, 4, 17)}, q.args)
	assert.Equal(t, TextViewSourceName, c.Source)
	assert.Equal(t, []Point{{Tenor: 2, Rate: 0.038}, {Tenor: 10, Rate: 0.0434}}, c.Points)
}

func TestRepository_CurveMissing(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{scan: func(dest ...any) error { return nil }}}

	_, err := NewRepository(q).Curve(context.Background(), date(2025, 4, 19))
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestRepository_Save(t *testing.T) {
	q := &fakeQuerier{}
	c := NewCurve(date(2025, 4, 17), "static", []Point{{Tenor: 10, Rate: 0.0434}, {Tenor: 2, Rate: 0.038}})

	require.NoError(t, NewRepository(q).Save(context.Background(), c))
	require.Len(t, q.execArgs, 4)
	assert.Equal(t, []float64{2, 10}, q.execArgs[1])
	assert.Equal(t, []float64{0.038, 0.0434}, q.execArgs[2])
}
