package resolver

import "github.com/wonny/bondlab/internal/contracts"

type defaultKey struct {
	class   contracts.AssetClass
	country string
}

var euroArea = map[string]bool{
	"AT": true, "BE": true, "DE": true, "ES": true, "FI": true, "FR": true,
	"IE": true, "IT": true, "LU": true, "NL": true, "PT": true,
}

func conventions(dc contracts.DayCount, freq contracts.Frequency, bdc contracts.BusinessDayConvention, cal string) contracts.ConventionRecord {
	return contracts.ConventionRecord{DayCount: dc, Frequency: freq, BusinessDay: bdc, Calendar: cal}
}

// Last-resort conventions when nothing but the identifier structure is known.
var assetClassDefaults = map[defaultKey]contracts.ConventionRecord{
	{contracts.AssetClassSovereign, "US"}: conventions(contracts.DayCountActActICMA, contracts.FrequencySemiannual, contracts.Following, "US"),
	{contracts.AssetClassSovereign, "GB"}: conventions(contracts.DayCountActActICMA, contracts.FrequencySemiannual, contracts.Following, "UK"),
	{contracts.AssetClassSovereign, "IT"}: conventions(contracts.DayCountActActICMA, contracts.FrequencySemiannual, contracts.Following, "TARGET"),
	{contracts.AssetClassSovereign, "JP"}: conventions(contracts.DayCountAct365F, contracts.FrequencySemiannual, contracts.Following, "WEEKENDS"),
	{contracts.AssetClassCorporate, "US"}: conventions(contracts.DayCount30360, contracts.FrequencySemiannual, contracts.Following, "US"),
	{contracts.AssetClassCorporate, "XS"}: conventions(contracts.DayCount30E360, contracts.FrequencyAnnual, contracts.Following, "TARGET"),
}

// assetClassDefault never misses: unknown countries fall back per class.
func assetClassDefault(class contracts.AssetClass, country string) contracts.ConventionRecord {
	if rec, ok := assetClassDefaults[defaultKey{class, country}]; ok {
		rec.AssetClass = class
		return rec
	}

	var rec contracts.ConventionRecord
	switch {
	case euroArea[country]:
		rec = conventions(contracts.DayCountActActICMA, contracts.FrequencyAnnual, contracts.Following, "TARGET")
	case class == contracts.AssetClassSovereign:
		rec = conventions(contracts.DayCountActActICMA, contracts.FrequencySemiannual, contracts.Following, "WEEKENDS")
	default:
		rec = conventions(contracts.DayCount30360, contracts.FrequencySemiannual, contracts.Following, "WEEKENDS")
	}
	rec.AssetClass = class
	return rec
}

// descriptionDefault applies when the description names no known issuer.
func descriptionDefault() contracts.ConventionRecord {
	rec := conventions(contracts.DayCount30360, contracts.FrequencySemiannual, contracts.Following, "WEEKENDS")
	rec.AssetClass = contracts.AssetClassCorporate
	return rec
}
