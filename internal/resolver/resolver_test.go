package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondlab/internal/contracts"
	convstore "github.com/wonny/bondlab/internal/conventions"
	"github.com/wonny/bondlab/pkg/logger"
)

func newResolver() *Resolver {
	return New(convstore.NewDefaultStore(), logger.Nop())
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidISIN(t *testing.T) {
	for _, id := range []string{"US912810TJ79", "DE0001102580", "US912828YV68", "GB00BL68HJ26", "IT0005094088", "US037833AK68"} {
		assert.True(t, ValidISIN(id), id)
	}
	for _, id := range []string{"US912810TJ78", "XS1234567890", "US912810TJ7", "1S912810TJ79", "us912810tj79"} {
		assert.False(t, ValidISIN(id), id)
	}
}

func TestValidCUSIP(t *testing.T) {
	for _, id := range []string{"912810TJ7", "037833100", "912828YV6"} {
		assert.True(t, ValidCUSIP(id), id)
	}
	for _, id := range []string{"912810TJ8", "03783310", "0378331000"} {
		assert.False(t, ValidCUSIP(id), id)
	}
}

func TestInspect(t *testing.T) {
	tests := []struct {
		id       string
		kind     IdentifierKind
		country  string
		class    contracts.AssetClass
		prefixes []string
	}{
		{"US912810TJ79", KindISIN, "US", contracts.AssetClassSovereign, []string{"US912810", "912810"}},
		{" de0001102580 ", KindISIN, "DE", contracts.AssetClassSovereign, []string{"DE000110", "DE00011", "DE0001", "DE0"}},
		{"US037833AK68", KindISIN, "US", contracts.AssetClassCorporate, []string{"US037833", "037833"}},
		{"912810TJ7", KindCUSIP, "US", contracts.AssetClassSovereign, []string{"912810"}},
		{"XS1234567890", KindOpaque, "", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			info := Inspect(tt.id)
			assert.Equal(t, tt.kind, info.Kind)
			assert.Equal(t, tt.kind != KindOpaque, info.Valid)
			assert.Equal(t, tt.country, info.Country)
			assert.Equal(t, tt.class, info.AssetClass)
			assert.Equal(t, tt.prefixes, info.IssuerPrefixes)
		})
	}
}

func TestResolve_IdentifierExact(t *testing.T) {
	spec, route, err := newResolver().Resolve(context.Background(), Request{Identifier: "US912810TJ79"})
	require.NoError(t, err)

	assert.Equal(t, contracts.RouteIdentifier, route.Kind)
	assert.Equal(t, contracts.RuleExactIdentifier, route.Rule)
	assert.Equal(t, contracts.TermsFromIdentifier, route.TermsSource)
	assert.False(t, route.Discrepancy)

	assert.Equal(t, "US912810TJ79", spec.Identifier)
	assert.Equal(t, 0.03, spec.CouponRate)
	assert.Equal(t, date(2052, 8, 15), spec.Maturity)
	require.NotNil(t, spec.IssueDate)
	assert.Equal(t, date(2022, 8, 15), *spec.IssueDate)
	assert.Equal(t, contracts.FrequencySemiannual, spec.Frequency)
	assert.Equal(t, contracts.DayCountActActICMA, spec.DayCount)
	assert.Equal(t, contracts.DefaultFaceValue, spec.FaceValue)
}

func TestResolve_IdentifierAndConsistentDescription(t *testing.T) {
	_, route, err := newResolver().Resolve(context.Background(), Request{
		Identifier:  "US912810TJ79",
		Description: "T 3 15/08/52",
	})
	require.NoError(t, err)
	assert.False(t, route.Discrepancy)
	assert.Empty(t, route.Discrepancies)
}

func TestResolve_Discrepancy(t *testing.T) {
	spec, route, err := newResolver().Resolve(context.Background(), Request{
		Identifier:  "US912810TJ79",
		Description: "T 3.125 15/11/52 annual",
	})
	require.NoError(t, err)

	assert.Equal(t, 0.03, spec.CouponRate, "identifier value wins")
	assert.Equal(t, date(2052, 8, 15), spec.Maturity)
	assert.Equal(t, contracts.FrequencySemiannual, spec.Frequency)

	require.True(t, route.Discrepancy)
	require.Len(t, route.Discrepancies, 3)
	assert.Equal(t, contracts.Discrepancy{Field: "coupon_rate", Identifier: "0.03", Description: "0.03125"}, route.Discrepancies[0])
	assert.Equal(t, contracts.Discrepancy{Field: "maturity", Identifier: "2052-08-15", Description: "2052-11-15"}, route.Discrepancies[1])
	assert.Equal(t, "frequency", route.Discrepancies[2].Field)
}

func TestResolve_IssuerPrefix(t *testing.T) {
	spec, route, err := newResolver().Resolve(context.Background(), Request{
		Identifier:  "912828YV6",
		Description: "T 1.5 15/01/25",
	})
	require.NoError(t, err)

	assert.Equal(t, contracts.RouteIdentifier, route.Kind)
	assert.Equal(t, contracts.RuleIssuerPrefix, route.Rule)
	assert.Equal(t, contracts.TermsFromDescription, route.TermsSource)
	assert.Equal(t, "US Treasury", spec.Issuer)
	assert.Equal(t, 0.015, spec.CouponRate)
	assert.Nil(t, spec.IssueDate)
}

func TestResolve_ISINCountryPrefix(t *testing.T) {
	spec, route, err := newResolver().Resolve(context.Background(), Request{
		Identifier:  "DE0001102580",
		Description: "Bund 0% 15/02/32",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.RuleIssuerPrefix, route.Rule)
	assert.Equal(t, contracts.FrequencyAnnual, spec.Frequency)
	assert.Equal(t, "TARGET", spec.Calendar)
}

func TestResolve_AssetClassDefault(t *testing.T) {
	spec, route, err := newResolver().Resolve(context.Background(), Request{
		Identifier:  "US037833AK68",
		Description: "AAPL 2.4 03/05/2023",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.RuleAssetClassDefault, route.Rule)
	assert.Equal(t, contracts.AssetClassCorporate, spec.AssetClass)
	assert.Equal(t, contracts.DayCount30360, spec.DayCount)
	assert.Equal(t, "AAPL", spec.Issuer)
}

func TestResolve_OpaqueIdentifierFallsBackToDescription(t *testing.T) {
	spec, route, err := newResolver().Resolve(context.Background(), Request{
		Identifier:  "XS1234567890",
		Description: "UKT 4¼ 07-Dec-2055",
	})
	require.NoError(t, err)
	assert.Equal(t, contracts.RouteDescription, route.Kind)
	assert.Equal(t, contracts.RuleDescriptionIssuer, route.Rule)
	assert.Equal(t, "XS1234567890", route.Identifier)
	assert.False(t, route.IdentifierValid)
	assert.Equal(t, "UK", spec.Calendar)
}

func TestResolve_DescriptionRoutes(t *testing.T) {
	tests := []struct {
		name string
		text string
		rule contracts.RouteRule
		freq contracts.Frequency
		dc   contracts.DayCount
	}{
		{"ticker", "T 3 15/08/52", contracts.RuleDescriptionIssuer, contracts.FrequencySemiannual, contracts.DayCountActActICMA},
		{"annual sovereign", "DBR 2.6% 2033-08-15", contracts.RuleDescriptionIssuer, contracts.FrequencyAnnual, contracts.DayCountActActICMA},
		{"hint overrides issuer", "DBR 2.6% 2033-08-15 semi", contracts.RuleDescriptionIssuer, contracts.FrequencySemiannual, contracts.DayCountActActICMA},
		{"multi word issuer", "US Treasury 3% 15/08/52", contracts.RuleDescriptionIssuer, contracts.FrequencySemiannual, contracts.DayCountActActICMA},
		{"unknown issuer", "ACME 5% 2030-01-01", contracts.RuleDescriptionDefault, contracts.FrequencySemiannual, contracts.DayCount30360},
		{"unknown issuer annual hint", "ACME 5% 2030-01-01 annual", contracts.RuleDescriptionDefault, contracts.FrequencyAnnual, contracts.DayCount30360},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, route, err := newResolver().Resolve(context.Background(), Request{Description: tt.text})
			require.NoError(t, err)
			assert.Equal(t, contracts.RouteDescription, route.Kind)
			assert.Equal(t, tt.rule, route.Rule)
			assert.Equal(t, tt.freq, spec.Frequency)
			assert.Equal(t, tt.dc, spec.DayCount)
		})
	}
}

func TestResolve_RoutesAgreeOnConventions(t *testing.T) {
	r := newResolver()
	byID, _, err := r.Resolve(context.Background(), Request{Identifier: "US912810TJ79"})
	require.NoError(t, err)
	byDesc, _, err := r.Resolve(context.Background(), Request{Description: "T 3 15/08/52"})
	require.NoError(t, err)

	assert.Equal(t, byID.CouponRate, byDesc.CouponRate)
	assert.Equal(t, byID.Maturity, byDesc.Maturity)
	assert.Equal(t, byID.Frequency, byDesc.Frequency)
	assert.Equal(t, byID.DayCount, byDesc.DayCount)
	assert.Equal(t, byID.BusinessDay, byDesc.BusinessDay)
	assert.Equal(t, byID.Calendar, byDesc.Calendar)
}

func TestResolve_Failures(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"empty", Request{}},
		{"identifier without terms or description", Request{Identifier: "912828YV6"}},
		{"opaque identifier alone", Request{Identifier: "NOT-AN-ID"}},
		{"description without coupon", Request{Description: "UST 15/08/52"}},
		{"identifier with bad description", Request{Identifier: "912828YV6", Description: "T forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newResolver().Resolve(context.Background(), tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrResolution)
		})
	}
}

func TestResolve_MaturityBeforeIssue(t *testing.T) {
	store := convstore.NewMemoryStore()
	issue := date(2030, 1, 1)
	store.AddIdentifier(contracts.ConventionRecord{
		Key: "BAD1", DayCount: contracts.DayCount30360, Frequency: contracts.FrequencyAnnual,
		IssueDate: &issue,
	})

	_, _, err := New(store, logger.Nop()).Resolve(context.Background(), Request{
		Identifier:  "BAD1",
		Description: "ACME 5% 2029-01-01",
	})
	assert.ErrorIs(t, err, contracts.ErrInvalidSchedule)
}

type brokenStore struct{}

func (brokenStore) LookupIdentifier(ctx context.Context, id string) (*contracts.ConventionRecord, error) {
	return nil, errors.New("connection reset")
}

func (brokenStore) LookupIssuer(ctx context.Context, p string) (*contracts.ConventionRecord, error) {
	return nil, errors.New("connection reset")
}

func TestResolve_StoreError(t *testing.T) {
	_, _, err := New(brokenStore{}, logger.Nop()).Resolve(context.Background(), Request{Identifier: "US912810TJ79"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, contracts.FailureInternal, contracts.KindOf(err))
}

func TestResolve_RouteIsFreshPerCall(t *testing.T) {
	r := newResolver()
	_, first, err := r.Resolve(context.Background(), Request{Identifier: "US912810TJ79", Description: "T 4 15/08/52"})
	require.NoError(t, err)
	_, second, err := r.Resolve(context.Background(), Request{Identifier: "US912810TJ79", Description: "T 4 15/08/52"})
	require.NoError(t, err)

	first.Discrepancies[0].Description = "mutated"
	assert.Equal(t, "0.04", second.Discrepancies[0].Description)
}
