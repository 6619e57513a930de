package config

import "github.com/shopspring/decimal"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// Defaults returns the built-in configuration for every supported exchange
// group. Callers own the returned maps; the pipeline treats them as frozen.
//
// Rule order within a group is authoritative. Where sources disagreed on the
// relative order of the aggregated crack/spread rules the configured order
// below decides; the engine itself has no opinion.
func Defaults() map[string]*GroupConfig {
	return map[string]*GroupConfig{
		"ICE": iceDefaults(),
		"SGX": sgxDefaults(),
		"CME": cmeDefaults(),
		"EEX": eexDefaults(),
	}
}

func iceDefaults() *GroupConfig {
	return &GroupConfig{
		Group:       "ICE",
		MonthFormat: MonthDashYY,
		Rules: []RuleConfig{
			{ID: RuleExact, Confidence: 100},
			{ID: RuleCalendarSpread, Confidence: 95},
			{ID: RuleSimpleCrack, Confidence: 90, ConvertedConfidence: 88, ToleranceBBL: dec("100")},
			// Brent clears in round 1000 BBL lots, so the converted trader
			// quantity can sit up to 500 BBL off the cleared brent leg.
			{ID: RuleComplexCrack, Confidence: 80, ToleranceMT: dec("50"), ToleranceBBL: dec("500")},
			{ID: RuleProductSpread, Confidence: 75},
			{ID: RuleButterfly, Confidence: 74},
			{ID: RuleAggregation, Confidence: 72},
			{ID: RuleAggCalendarSpread, Confidence: 70},
			{ID: RuleMultilegSpread, Confidence: 68},
			{ID: RuleAggCrack, Confidence: 68, ToleranceBBL: dec("500")},
			{ID: RuleAggComplexCrack, Confidence: 65, ToleranceMT: dec("50"), ToleranceBBL: dec("500")},
			{ID: RuleCrackRoll, Confidence: 65, ToleranceMT: dec("145")},
			{ID: RuleAggProductSpread, Confidence: 62},
		},
		ConversionRatios: map[string]decimal.Decimal{
			"marine 0.5%":   dec("6.35"),
			"380cst":        dec("6.35"),
			"naphtha japan": dec("8.9"),
			"naphtha nwe":   dec("8.9"),
		},
		DefaultRatio: dec("7.0"),
		ProductMap: map[string]string{
			"380cst crack":     "380cst crack",
			"marine 0.5 crack": "marine 0.5% crack",
			"marine0.5%":       "marine 0.5%",
			"brentswap":        "brent swap",
		},
		Variations: []Variation{
			{Keywords: []string{"marine", "0.5", "crack"}, Canonical: "marine 0.5% crack"},
			{Keywords: []string{"marine", "0.5"}, Canonical: "marine 0.5%"},
			{Keywords: []string{"380", "crack"}, Canonical: "380cst crack"},
			{Keywords: []string{"naphtha", "jap"}, Canonical: "naphtha japan"},
			{Keywords: []string{"naphtha", "nwe"}, Canonical: "naphtha nwe"},
		},
		TraderUnitDefaults: map[string]string{
			"brent swap": "BBL",
		},
		DefaultTraderUnit: "MT",
	}
}

func sgxDefaults() *GroupConfig {
	return &GroupConfig{
		Group:       "SGX",
		MonthFormat: MonthYY,
		Rules: []RuleConfig{
			{ID: RuleExact, Confidence: 100},
			{ID: RuleCalendarSpread, Confidence: 95},
			{ID: RuleProductSpreadTier, Confidence: 95, TierConfidences: []int{95, 92, 90}},
		},
		ConversionRatios:  map[string]decimal.Decimal{},
		DefaultRatio:      dec("7.0"),
		ProductMap:        map[string]string{},
		DefaultTraderUnit: "MT",
	}
}

func cmeDefaults() *GroupConfig {
	return &GroupConfig{
		Group:       "CME",
		MonthFormat: MonthYY,
		Rules: []RuleConfig{
			{ID: RuleExactOpposite, Confidence: 100},
		},
		ConversionRatios:  map[string]decimal.Decimal{},
		DefaultRatio:      dec("7.0"),
		ProductMap:        map[string]string{},
		DefaultTraderUnit: "MT",
		HeaderAliases:     map[string]string{"lots": "quantity"},
	}
}

func eexDefaults() *GroupConfig {
	return &GroupConfig{
		Group:       "EEX",
		MonthFormat: MonthYY,
		Rules: []RuleConfig{
			{ID: RuleExactOpposite, Confidence: 100},
		},
		ConversionRatios:  map[string]decimal.Decimal{},
		DefaultRatio:      dec("7.0"),
		ProductMap:        map[string]string{},
		DefaultTraderUnit: "MT",
		HeaderAliases:     map[string]string{"units": "quantity"},
	}
}
