package conventions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/bondlab/internal/contracts"
	"github.com/wonny/bondlab/pkg/database"
)

// Repository reads conventions from PostgreSQL.
//
// Tables (owned by the reference data pipeline, read-only here):
//
//	reference.bond_conventions(identifier PK, issuer, asset_class, day_count,
//	    business_day, frequency, calendar, coupon_rate, maturity, issue_date)
//	reference.issuer_conventions(pattern PK, issuer, asset_class, day_count,
//	    business_day, frequency, calendar)
//
// ⭐ SSOT: convention SQL lives here
type Repository struct {
	db database.Querier
}

// NewRepository creates a repository over a pool or transaction.
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// LookupIdentifier implements contracts.ConventionStore.
func (r *Repository) LookupIdentifier(ctx context.Context, identifier string) (*contracts.ConventionRecord, error) {
	query := `
		SELECT identifier, issuer, asset_class, day_count, business_day, frequency,
		       calendar, coupon_rate, maturity, issue_date
		FROM reference.bond_conventions
		WHERE identifier = $1
	`

	var (
		row      conventionRow
		coupon   *float64
		maturity *time.Time
		issue    *time.Time
	)
	err := r.db.QueryRow(ctx, query, normalize(identifier)).Scan(
		&row.key, &row.issuer, &row.assetClass, &row.dayCount, &row.businessDay,
		&row.frequency, &row.calendar, &coupon, &maturity, &issue,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: identifier %q", contracts.ErrNotFound, identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query bond conventions: %w", err)
	}

	rec, err := row.record()
	if err != nil {
		return nil, err
	}
	rec.CouponRate = coupon
	rec.Maturity = maturity
	rec.IssueDate = issue
	return rec, nil
}

// LookupIssuer implements contracts.ConventionStore.
func (r *Repository) LookupIssuer(ctx context.Context, issuerPattern string) (*contracts.ConventionRecord, error) {
	query := `
		SELECT pattern, issuer, asset_class, day_count, business_day, frequency, calendar
		FROM reference.issuer_conventions
		WHERE upper(pattern) = $1
	`

	var row conventionRow
	err := r.db.QueryRow(ctx, query, normalize(issuerPattern)).Scan(
		&row.key, &row.issuer, &row.assetClass, &row.dayCount, &row.businessDay,
		&row.frequency, &row.calendar,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: issuer %q", contracts.ErrNotFound, issuerPattern)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query issuer conventions: %w", err)
	}

	return row.record()
}

type conventionRow struct {
	key         string
	issuer      string
	assetClass  string
	dayCount    string
	businessDay string
	frequency   int
	calendar    string
}

func (row conventionRow) record() (*contracts.ConventionRecord, error) {
	dc, err := contracts.ParseDayCount(row.dayCount)
	if err != nil {
		return nil, fmt.Errorf("row %q: %w", row.key, err)
	}
	bdc, err := contracts.ParseBusinessDayConvention(row.businessDay)
	if err != nil {
		return nil, fmt.Errorf("row %q: %w", row.key, err)
	}
	freq := contracts.Frequency(row.frequency)
	if !freq.Valid() {
		return nil, fmt.Errorf("row %q: %w: frequency %d", row.key, contracts.ErrInvalidInput, row.frequency)
	}

	return &contracts.ConventionRecord{
		Key:         row.key,
		Issuer:      row.issuer,
		AssetClass:  contracts.AssetClass(strings.ToLower(row.assetClass)),
		DayCount:    dc,
		BusinessDay: bdc,
		Frequency:   freq,
		Calendar:    strings.ToUpper(row.calendar),
	}, nil
}
