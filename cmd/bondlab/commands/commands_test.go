package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/bondlab/internal/contracts"
)

var fallback = time.Date(2025, 4, 18, 0, 0, 0, 0, time.UTC)

func TestParsePortfolio_YAML(t *testing.T) {
	entries, err := parsePortfolio([]byte(`
settlement: 2025-04-17
holdings:
  - identifier: US912810TJ79
    clean_price: 71.66
    weight: 2
  - description: "AAPL 4.5 05/06/2030"
    clean_price: 101.25
    settlement: "2025-04-16"
`), fallback)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "US912810TJ79", entries[0].Identifier)
	assert.Equal(t, 2.0, entries[0].Weight)
	assert.Equal(t, time.Date(2025, 4, 17, 0, 0, 0, 0, time.UTC), entries[0].Settlement)

	assert.Equal(t, 1.0, entries[1].Weight)
	assert.Equal(t, time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC), entries[1].Settlement)
}

func TestParsePortfolio_JSON(t *testing.T) {
	entries, err := parsePortfolio([]byte(`{"holdings":[{"identifier":"US912810TJ79","clean_price":71.66}]}`), fallback)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fallback, entries[0].Settlement)
	assert.Equal(t, 71.66, entries[0].CleanPrice)
}

func TestParsePortfolio_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown field": "holdings:\n  - identifier: X\n    clean_price: 1\n    colour: red\n",
		"missing price": "holdings:\n  - identifier: X\n",
		"bad date":      "settlement: tomorrow\nholdings:\n  - identifier: X\n    clean_price: 1\n",
		"not yaml":      "holdings: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parsePortfolio([]byte(body), fallback)
			assert.ErrorIs(t, err, contracts.ErrInvalidInput)
		})
	}
}

func TestSettlementDate(t *testing.T) {
	d, err := settlementDate("", func() time.Time { return time.Date(2025, 4, 18, 23, 59, 0, 0, time.UTC) })
	require.NoError(t, err)
	assert.Equal(t, fallback, d)

	d, err = settlementDate("2025-01-02", time.Now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), d)

	_, err = settlementDate("02/01/2025", time.Now)
	assert.ErrorIs(t, err, contracts.ErrInvalidInput)
}

func TestMaskPassword(t *testing.T) {
	assert.Equal(t, "postgres://bond:xxxxx@db:5432/bondlab", maskPassword("postgres://bond:secret@db:5432/bondlab"))
	assert.Equal(t, "***", maskPassword("short"))
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &contracts.AnalyticsResult{
		Identifier:       "US912810TJ79",
		Status:           contracts.StatusSuccess,
		Depth:            contracts.DepthAnalytics,
		Settlement:       fallback,
		CleanPrice:       71.66,
		YieldToMaturity:  0.0489,
		ModifiedDuration: contracts.Float(16.55),
	})
	assert.Contains(t, buf.String(), "US912810TJ79")
	assert.Contains(t, buf.String(), "4.890000%")
	assert.Contains(t, buf.String(), "16.5500")
	assert.Contains(t, buf.String(), "unavailable")

	buf.Reset()
	failed := &contracts.AnalyticsResult{Description: "hello world"}
	failed.Fail(contracts.ErrResolution)
	printResult(&buf, failed)
	assert.Contains(t, buf.String(), "resolution_failure")
}
