package conventions

import (
	"time"

	"github.com/wonny/bondlab/internal/contracts"
)

type issuerDefault struct {
	record  contracts.ConventionRecord
	aliases []string
}

// Sovereign issuers. Aliases cover description tickers and identifier prefixes
// (CUSIP issuer numbers, ISIN country + leading NSIN digits).
var builtinIssuers = []issuerDefault{
	{
		record: contracts.ConventionRecord{
			Key: "UST", Issuer: "US Treasury", AssetClass: contracts.AssetClassSovereign,
			DayCount: contracts.DayCountActActICMA, BusinessDay: contracts.Following,
			Frequency: contracts.FrequencySemiannual, Calendar: "US",
		},
		aliases: []string{"T", "US TREASURY", "TREASURY", "912810", "912828", "91282C", "US912810", "US912828", "US91282C"},
	},
	{
		record: contracts.ConventionRecord{
			Key: "DBR", Issuer: "Federal Republic of Germany", AssetClass: contracts.AssetClassSovereign,
			DayCount: contracts.DayCountActActICMA, BusinessDay: contracts.Following,
			Frequency: contracts.FrequencyAnnual, Calendar: "TARGET",
		},
		aliases: []string{"BUND", "OBL", "BKO", "DE0001", "DE000BU"},
	},
	{
		record: contracts.ConventionRecord{
			Key: "OAT", Issuer: "Republic of France", AssetClass: contracts.AssetClassSovereign,
			DayCount: contracts.DayCountActActICMA, BusinessDay: contracts.Following,
			Frequency: contracts.FrequencyAnnual, Calendar: "TARGET",
		},
		aliases: []string{"FRTR"},
	},
	{
		record: contracts.ConventionRecord{
			Key: "BTPS", Issuer: "Republic of Italy", AssetClass: contracts.AssetClassSovereign,
			DayCount: contracts.DayCountActActICMA, BusinessDay: contracts.Following,
			Frequency: contracts.FrequencySemiannual, Calendar: "TARGET",
		},
		aliases: []string{"BTP", "IT0005", "IT0004"},
	},
	{
		record: contracts.ConventionRecord{
			Key: "UKT", Issuer: "UK Gilt", AssetClass: contracts.AssetClassSovereign,
			DayCount: contracts.DayCountActActICMA, BusinessDay: contracts.Following,
			Frequency: contracts.FrequencySemiannual, Calendar: "UK",
		},
		aliases: []string{"GILT", "TSY"},
	},
	{
		record: contracts.ConventionRecord{
			Key: "JGB", Issuer: "Japan", AssetClass: contracts.AssetClassSovereign,
			DayCount: contracts.DayCountAct365F, BusinessDay: contracts.Following,
			Frequency: contracts.FrequencySemiannual, Calendar: "WEEKENDS",
		},
		aliases: []string{"JP1"},
	},
}

var builtinIdentifiers = []contracts.ConventionRecord{
	withTerms(builtinIssuers[0].record, "US912810TJ79", 0.03,
		time.Date(2052, 8, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2022, 8, 15, 0, 0, 0, 0, time.UTC)),
}

func withTerms(base contracts.ConventionRecord, identifier string, coupon float64, maturity, issue time.Time) contracts.ConventionRecord {
	rec := base
	rec.Key = identifier
	rec.CouponRate = &coupon
	rec.Maturity = &maturity
	rec.IssueDate = &issue
	return rec
}
