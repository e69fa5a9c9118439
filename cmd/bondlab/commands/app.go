package commands

import (
	"fmt"
	"time"

	"github.com/wonny/bondlab/internal/cache"
	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/internal/conventions"
	"github.com/wonny/bondlab/internal/engine"
	"github.com/wonny/bondlab/internal/portfolio"
	"github.com/wonny/bondlab/internal/scheduler"
	"github.com/wonny/bondlab/internal/scheduler/jobs"
	"github.com/wonny/bondlab/internal/solver"
	"github.com/wonny/bondlab/internal/treasury"
	"github.com/wonny/bondlab/pkg/config"
	"github.com/wonny/bondlab/pkg/database"
	"github.com/wonny/bondlab/pkg/httputil"
	"github.com/wonny/bondlab/pkg/logger"
	"github.com/wonny/bondlab/pkg/redis"
)

// app holds every long-lived component a command needs.
// ⭐ SSOT: components are wired from config here only
type app struct {
	cfg    *config.Config
	logger *logger.Logger

	db    *database.DB
	redis *redis.Client

	engine     *engine.Engine
	curves     *treasury.Service
	curveStore jobs.CurveSaver
	runs       *portfolio.Repository
}

// newApp connects optional infrastructure and builds the engine. PostgreSQL
// is mandatory only when a configured source reads it.
func newApp(cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: log}

	if cfg.Database.URL != "" {
		db, err := database.New(cfg)
		switch {
		case err == nil:
			a.db = db
		case cfg.NeedsDatabase():
			return nil, fmt.Errorf("connect to database: %w", err)
		default:
			log.WithError(err).Warn("Database unavailable, continuing without run storage")
		}
	}

	rc, err := redis.New(cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = rc
	if rc.Enabled() {
		log.WithField("addr", rc.Addr()).Info("Redis connected")
	}

	store, err := a.conventionStore()
	if err != nil {
		a.Close()
		return nil, err
	}

	if src := a.curveSource(); src != nil {
		a.curves = treasury.NewService(src, cfg.Treasury.LookbackDays, redis.TTLCurve, log)
		if rc.Enabled() {
			a.curves.WithRemote(redis.NewCache(rc, "bondlab"))
		}
	}

	results := cache.New(cfg.Cache.Capacity, cfg.Cache.TTL, log)
	if cfg.Cache.RemoteL2 {
		results.WithRemote(redis.NewCache(rc, "bondlab"))
	}

	opts := engine.Options{
		Solver: solver.Config{
			Tolerance: cfg.Solver.Tolerance,
			MaxIter:   cfg.Solver.MaxIter,
			BumpBps:   cfg.Solver.BumpBps,
		},
		Workers: cfg.Portfolio.Workers,
		Cache:   results,
	}
	if a.curves != nil {
		opts.Curves = a.curves
	}
	a.engine = engine.New(store, opts, log)

	if a.db != nil {
		a.runs = portfolio.NewRepository(a.db.Pool)
		a.curveStore = treasury.NewRepository(a.db.Pool)
	}

	return a, nil
}

func (a *app) conventionStore() (contracts.ConventionStore, error) {
	memory := conventions.NewDefaultStore()
	if a.cfg.Conventions.File != "" {
		if err := conventions.LoadFile(a.cfg.Conventions.File, memory); err != nil {
			return nil, err
		}
	}
	if a.cfg.Conventions.Source == "postgres" {
		return conventions.NewChain(a.logger, conventions.NewRepository(a.db.Pool), memory), nil
	}
	return memory, nil
}

func (a *app) curveSource() treasury.Source {
	switch a.cfg.Treasury.Source {
	case "postgres":
		return treasury.NewRepository(a.db.Pool)
	case "textview":
		client := httputil.New(a.logger, a.cfg.Treasury.Timeout).WithLocalLimit(a.cfg.Treasury.RatePerSec)
		if a.redis.Enabled() {
			client.WithRateLimiter(redis.NewRateLimiter(a.redis, "ratelimit"),
				redis.TreasuryRateLimitFor(a.cfg.Treasury.RatePerSec))
		}
		return treasury.NewTextViewSource(client, a.cfg.Treasury.BaseURL, 6*time.Hour, a.logger)
	}
	return nil
}

// scheduler registers the maintenance jobs this configuration supports.
func (a *app) scheduler(opts ...scheduler.Option) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.logger, opts...)
	if a.curves != nil {
		if err := s.AddJob(jobs.NewBenchmarkWarmupJob(a.curves, a.curveStore, a.logger)); err != nil {
			return nil, err
		}
	}
	if err := s.AddJob(jobs.NewCacheReportJob(a.engine, a.logger)); err != nil {
		return nil, err
	}
	return s, nil
}

// Close releases connections.
func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
