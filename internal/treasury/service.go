package treasury

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/wonny/bondlab/internal/calendar"
	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/pkg/logger"
	"github.com/wonny/bondlab/pkg/redis"
)

// DefaultLookbackDays bounds the walk back over weekends and holidays.
const DefaultLookbackDays = 10

// Service implements contracts.CurveService over a Source.
// Curves are cached per observation date; only successful reads are cached.
type Service struct {
	source   Source
	lookback int
	calendar calendar.ID
	curves   *expirable.LRU[string, *Curve]
	remote   *redis.Cache
	group    singleflight.Group
	logger   *logger.Logger
}

// NewService creates a curve service over source.
func NewService(source Source, lookbackDays int, ttl time.Duration, log *logger.Logger) *Service {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	if ttl <= 0 {
		ttl = redis.TTLCurve
	}
	return &Service{
		source:   source,
		lookback: lookbackDays,
		calendar: calendar.US,
		curves:   expirable.NewLRU[string, *Curve](256, nil, ttl),
		logger:   log.WithComponent("treasury"),
	}
}

// WithRemote shares fetched curves through Redis.
func (s *Service) WithRemote(cache *redis.Cache) *Service {
	s.remote = cache
	return s
}

// WithCalendar sets the calendar whose holidays are skipped during walk-back.
func (s *Service) WithCalendar(id calendar.ID) *Service {
	s.calendar = id
	return s
}

// Source returns the underlying curve source.
func (s *Service) Source() Source {
	return s.source
}

// YieldCurve implements contracts.CurveService.
func (s *Service) YieldCurve(ctx context.Context, date time.Time, tenorYears float64) (*contracts.Observation, error) {
	if math.IsNaN(tenorYears) || math.IsInf(tenorYears, 0) || tenorYears <= 0 {
		return nil, fmt.Errorf("%w: tenor %v", contracts.ErrBenchmarkUnavailable, tenorYears)
	}

	curve, err := s.Latest(ctx, date)
	if err != nil {
		return nil, err
	}
	rate, err := curve.Rate(tenorYears)
	if err != nil {
		return nil, err
	}

	return &contracts.Observation{
		Rate:            rate,
		Tenor:           tenorYears,
		ObservationDate: curve.Date,
		RequestedDate:   contracts.Midnight(date),
		Source:          curve.Source,
	}, nil
}

// Latest returns the most recent curve published on or before date, looking
// back at most the configured number of days.
func (s *Service) Latest(ctx context.Context, date time.Time) (*Curve, error) {
	requested := contracts.Midnight(date)
	for i := 0; i <= s.lookback; i++ {
		day := requested.AddDate(0, 0, -i)
		if !calendar.IsBusinessDay(s.calendar, day) {
			continue
		}

		curve, err := s.curve(ctx, day)
		if err == nil {
			if i > 0 {
				s.logger.WithFields(map[string]interface{}{
					"requested": requested.Format(contracts.DateLayout),
					"observed":  day.Format(contracts.DateLayout),
				}).Debug("Using earlier curve")
			}
			return curve, nil
		}
		if !errors.Is(err, contracts.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", contracts.ErrBenchmarkUnavailable, err)
		}
	}

	return nil, fmt.Errorf("%w: no %s curve within %d days of %s",
		contracts.ErrBenchmarkUnavailable, s.source.Name(), s.lookback, requested.Format(contracts.DateLayout))
}

func (s *Service) curve(ctx context.Context, day time.Time) (*Curve, error) {
	key := day.Format(contracts.DateLayout)
	if c, ok := s.curves.Get(key); ok {
		return c, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		remoteKey := redis.CurveKey(s.source.Name(), key)
		if s.remote.Enabled() {
			var c Curve
			if found, err := s.remote.Get(ctx, remoteKey, &c); err == nil && found {
				return &c, nil
			}
		}

		c, err := s.source.Curve(ctx, day)
		if err != nil {
			return nil, err
		}
		if s.remote.Enabled() {
			if err := s.remote.Set(ctx, remoteKey, c, redis.TTLCurve); err != nil {
				s.logger.WithError(err).Warn("Failed to share curve")
			}
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	c := v.(*Curve)
	s.curves.Add(key, c)
	return c, nil
}

// Len reports how many curves are cached.
func (s *Service) Len() int {
	return s.curves.Len()
}
