package treasury

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/pkg/database"
)

// Repository stores benchmark curves in PostgreSQL.
//
//	market.treasury_curve(curve_date date, tenor_years float8, rate float8,
//	    source text, PRIMARY KEY (curve_date, tenor_years))
//
// ⭐ SSOT: curve SQL lives here
type Repository struct {
	db database.Querier
}

// NewRepository creates a repository over a pool or transaction.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// Name implements Source.
func (r *Repository) Name() string { return "postgres" }

// Curve implements Source.
func (r *Repository) Curve(ctx context.Context, date time.Time) (*Curve, error) {
	query := `
		SELECT array_agg(tenor_years ORDER BY tenor_years)::float8[],
		       array_agg(rate ORDER BY tenor_years)::float8[],
		       coalesce(min(source), '')
		FROM market.treasury_curve
		WHERE curve_date = $1
	`

	var (
		tenors []float64
		rates  []float64
		source string
	)
	err := r.db.QueryRow(ctx, query, contracts.Midnight(date)).Scan(&tenors, &rates, &source)
	if errors.Is(err, pgx.ErrNoRows) || (err == nil && len(tenors) == 0) {
		return nil, fmt.Errorf("%w: no stored curve on %s", contracts.ErrNotFound, date.Format(contracts.DateLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query treasury curve: %w", err)
	}
	if len(tenors) != len(rates) {
		return nil, fmt.Errorf("treasury curve %s: %d tenors but %d rates", date.Format(contracts.DateLayout), len(tenors), len(rates))
	}

	points := make([]Point, len(tenors))
	for i := range tenors {
		points[i] = Point{Tenor: tenors[i], Rate: rates[i]}
	}
	return NewCurve(date, source, points), nil
}

// Save upserts every point of c.
func (r *Repository) Save(ctx context.Context, c *Curve) error {
	if len(c.Points) == 0 {
		return nil
	}

	query := `
		INSERT INTO market.treasury_curve (curve_date, tenor_years, rate, source)
		SELECT $1, u.tenor, u.rate, $4
		FROM unnest($2::float8[], $3::float8[]) AS u(tenor, rate)
		ON CONFLICT (curve_date, tenor_years)
		DO UPDATE SET rate = EXCLUDED.rate, source = EXCLUDED.source
	`

	tenors := make([]float64, len(c.Points))
	rates := make([]float64, len(c.Points))
	for i, p := range c.Points {
		tenors[i], rates[i] = p.Tenor, p.Rate
	}

	if _, err := r.db.Exec(ctx, query, c.Date, tenors, rates, c.Source); err != nil {
		return fmt.Errorf("failed to save treasury curve %s: %w", c.Date.Format(contracts.DateLayout), err)
	}
	return nil
}
