package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// Rule identifiers. The per-group rule list references these; the pipeline
// refuses to start on an id it does not recognize.
const (
	RuleExact             = "exact"
	RuleCalendarSpread    = "calendar_spread"
	RuleSimpleCrack       = "simple_crack"
	RuleComplexCrack      = "complex_crack"
	RuleProductSpread     = "product_spread"
	RuleButterfly         = "butterfly"
	RuleAggregation       = "aggregation"
	RuleAggComplexCrack   = "agg_complex_crack"
	RuleAggCalendarSpread = "agg_calendar_spread"
	RuleMultilegSpread    = "multileg_spread"
	RuleAggCrack          = "agg_crack"
	RuleCrackRoll         = "crack_roll"
	RuleAggProductSpread  = "agg_product_spread"
	RuleProductSpreadTier = "product_spread_tiered" // SGX three-tier variant
	RuleExactOpposite     = "exact_opposite"        // CME/EEX: trader Sell pairs to exchange Buy
)

// Contract month dialects.
const (
	MonthDashYY = "MMM-YY" // Aug-25 (ICE)
	MonthYY     = "MMMYY"  // Aug25 (SGX/CME/EEX)
)

// ConfigError is fatal for the run: the pipeline refuses to start.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Field, e.Reason)
}

// RuleConfig declares one rule invocation in a group's ordered pipeline.
type RuleConfig struct {
	ID         string `json:"id"`
	Confidence int    `json:"confidence"`

	// ConvertedConfidence applies when the rule accepted a candidate only
	// after unit conversion (simple crack: 90 exact, 88 converted).
	ConvertedConfidence int `json:"converted_confidence,omitempty"`

	// TierConfidences applies to tiered rules (SGX product spread: 95/92/90).
	TierConfidences []int `json:"tier_confidences,omitempty"`

	ToleranceBBL decimal.Decimal `json:"tolerance_bbl,omitempty"` // barrel tolerance for converted comparisons
	ToleranceMT  decimal.Decimal `json:"tolerance_mt,omitempty"`  // tonne tolerance for same-unit comparisons
}

// Variation maps any product string containing all Keywords to Canonical.
type Variation struct {
	Keywords  []string `json:"keywords"`
	Canonical string   `json:"canonical"`
}

// GroupConfig is the read-only configuration bundle for one exchange group.
// All tables are frozen after Validate.
type GroupConfig struct {
	Group       string `json:"group"`        // ICE, SGX, CME, EEX
	MonthFormat string `json:"month_format"` // canonical contract-month dialect

	Rules []RuleConfig `json:"rules"` // applied in exactly this order

	// Unit conversion, MT -> BBL, looked up by base product.
	ConversionRatios map[string]decimal.Decimal `json:"conversion_ratios"`
	DefaultRatio     decimal.Decimal            `json:"default_ratio"`

	// Normalization tables.
	ProductMap         map[string]string `json:"product_map"`          // direct mapping, keyed lower-case
	Variations         []Variation       `json:"product_variations"`   // keyword containment rules
	TraderUnitDefaults map[string]string `json:"trader_unit_defaults"` // canonical product -> unit when trader side omits it
	DefaultTraderUnit  string            `json:"default_trader_unit"`

	// Ingest header aliasing: source column name -> record attribute.
	HeaderAliases map[string]string `json:"header_aliases,omitempty"`
}

// Ratio returns the MT->BBL conversion ratio for a base product, falling
// back to the group default.
func (g *GroupConfig) Ratio(baseProduct string) decimal.Decimal {
	if r, ok := g.ConversionRatios[baseProduct]; ok {
		return r
	}
	return g.DefaultRatio
}

// RuleIDs returns the configured pipeline order.
func (g *GroupConfig) RuleIDs() []string {
	ids := make([]string, len(g.Rules))
	for i, rc := range g.Rules {
		ids[i] = rc.ID
	}
	return ids
}

// Validate checks the structural invariants that are fatal for a run.
// Rule-id recognition is checked by the pipeline against its registry.
func (g *GroupConfig) Validate() error {
	if g.Group == "" {
		return &ConfigError{Field: "group", Reason: "missing exchange group name"}
	}
	if g.MonthFormat != MonthDashYY && g.MonthFormat != MonthYY {
		return &ConfigError{Field: "month_format", Reason: fmt.Sprintf("unknown dialect %q", g.MonthFormat)}
	}
	if len(g.Rules) == 0 {
		return &ConfigError{Field: "rules", Reason: "empty rule list"}
	}
	for _, rc := range g.Rules {
		if rc.ID == "" {
			return &ConfigError{Field: "rules", Reason: "rule with empty id"}
		}
		if rc.Confidence < 0 || rc.Confidence > 100 {
			return &ConfigError{Field: "rules." + rc.ID, Reason: fmt.Sprintf("confidence %d outside [0,100]", rc.Confidence)}
		}
		if rc.ConvertedConfidence < 0 || rc.ConvertedConfidence > 100 {
			return &ConfigError{Field: "rules." + rc.ID, Reason: "converted confidence outside [0,100]"}
		}
		for _, tc := range rc.TierConfidences {
			if tc < 0 || tc > 100 {
				return &ConfigError{Field: "rules." + rc.ID, Reason: "tier confidence outside [0,100]"}
			}
		}
		if rc.ToleranceBBL.IsNegative() || rc.ToleranceMT.IsNegative() {
			return &ConfigError{Field: "rules." + rc.ID, Reason: "negative tolerance"}
		}
	}
	for p, r := range g.ConversionRatios {
		if !r.IsPositive() {
			return &ConfigError{Field: "conversion_ratios." + p, Reason: "ratio must be positive"}
		}
	}
	if !g.DefaultRatio.IsPositive() {
		return &ConfigError{Field: "default_ratio", Reason: "missing or non-positive default conversion ratio"}
	}
	return nil
}

// LoadFile reads per-group overrides from a JSON file keyed by group name.
// Groups absent from the file keep their built-in defaults.
func LoadFile(path string) (map[string]*GroupConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	groups := Defaults()
	var overrides map[string]*GroupConfig
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for name, gc := range overrides {
		groups[name] = gc
	}
	for name, gc := range groups {
		if err := gc.Validate(); err != nil {
			return nil, fmt.Errorf("group %s: %w", name, err)
		}
	}
	return groups, nil
}
