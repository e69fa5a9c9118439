package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/bondlab/internal/contracts"
)

// Repository persists portfolio runs.
//
//	analytics.portfolio_runs(run_id PK, normalization, count, succeeded, failed,
//	    total_weight, success_weight, weighted_yield, weighted_modified_duration,
//	    weighted_spread, spread_coverage, created_at)
//	analytics.portfolio_lines(run_id, position, weight, normalized_weight,
//	    status, result jsonb, PRIMARY KEY (run_id, position))
//
// ⭐ SSOT: portfolio run SQL lives here
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun stores a run and all of its lines in one transaction.
func (r *Repository) SaveRun(ctx context.Context, res *contracts.PortfolioResult) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	runQuery := `
		INSERT INTO analytics.portfolio_runs (
			run_id, normalization, count, succeeded, failed, total_weight, success_weight,
			weighted_yield, weighted_modified_duration, weighted_spread, spread_coverage, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
	`
	_, err = tx.Exec(ctx, runQuery,
		res.RunID, res.Normalization, res.Count, res.Succeeded, res.Failed, res.TotalWeight, res.SuccessWeight,
		res.WeightedYield, res.WeightedModifiedDuration, res.WeightedSpread, res.SpreadCoverage,
	)
	if err != nil {
		return fmt.Errorf("failed to save portfolio run: %w", err)
	}

	lineQuery := `
		INSERT INTO analytics.portfolio_lines (
			run_id, position, weight, normalized_weight, status, result
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	for i, line := range res.Lines {
		payload, err := json.Marshal(line.Result)
		if err != nil {
			return fmt.Errorf("failed to encode line %d: %w", i, err)
		}
		_, err = tx.Exec(ctx, lineQuery, res.RunID, i, line.Weight, line.NormalizedWeight, string(line.Result.Status), payload)
		if err != nil {
			return fmt.Errorf("failed to insert portfolio line %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetRun loads a stored run. Unknown run ids return contracts.ErrNotFound.
func (r *Repository) GetRun(ctx context.Context, runID string) (*contracts.PortfolioResult, error) {
	res := &contracts.PortfolioResult{RunID: runID}
	err := r.pool.QueryRow(ctx, `
		SELECT normalization, count, succeeded, failed, total_weight, success_weight,
		       weighted_yield, weighted_modified_duration, weighted_spread, spread_coverage
		FROM analytics.portfolio_runs
		WHERE run_id = $1
	`, runID).Scan(
		&res.Normalization, &res.Count, &res.Succeeded, &res.Failed, &res.TotalWeight, &res.SuccessWeight,
		&res.WeightedYield, &res.WeightedModifiedDuration, &res.WeightedSpread, &res.SpreadCoverage,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: portfolio run %s", contracts.ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio run: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT weight, normalized_weight, result
		FROM analytics.portfolio_lines
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolio lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			line    contracts.PortfolioLine
			payload []byte
		)
		if err := rows.Scan(&line.Weight, &line.NormalizedWeight, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio line: %w", err)
		}
		if err := json.Unmarshal(payload, &line.Result); err != nil {
			return nil, fmt.Errorf("failed to decode portfolio line: %w", err)
		}
		res.Lines = append(res.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return res, nil
}
