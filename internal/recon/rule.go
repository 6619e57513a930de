package recon

import (
	"github.com/google/uuid"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// RuleFunc is one rule processor. It scans the pool's available records,
// emits the matches satisfying its predicate and claims the consumed ids.
// A failed per-candidate predicate is an ordinary negative outcome, never
// an error; the per-attempt lifecycle is scan -> candidate -> predicate ->
// claim, and only a successful claim emits a MatchResult.
type RuleFunc func(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult

// registry maps rule ids to processors. The pipeline resolves the
// configured rule list against it at construction and refuses unknown ids.
var registry = map[string]RuleFunc{
	config.RuleExact:             ruleExact,
	config.RuleCalendarSpread:    ruleCalendarSpread,
	config.RuleSimpleCrack:       ruleSimpleCrack,
	config.RuleComplexCrack:      ruleComplexCrack,
	config.RuleProductSpread:     ruleProductSpread,
	config.RuleButterfly:         ruleButterfly,
	config.RuleAggregation:       ruleAggregation,
	config.RuleAggComplexCrack:   ruleAggComplexCrack,
	config.RuleAggCalendarSpread: ruleAggCalendarSpread,
	config.RuleMultilegSpread:    ruleMultilegSpread,
	config.RuleAggCrack:          ruleAggCrack,
	config.RuleCrackRoll:         ruleCrackRoll,
	config.RuleAggProductSpread:  ruleAggProductSpread,
	config.RuleProductSpreadTier: ruleProductSpreadTiered,
	config.RuleExactOpposite:     ruleExactOpposite,
}

// newMatch assembles a MatchResult with a fresh match id.
func newMatch(ruleID string, confidence int, traderIDs, exchangeIDs, matchedFields []string, audit map[string]string) models.MatchResult {
	return models.MatchResult{
		MatchID:       uuid.NewString(),
		RuleID:        ruleID,
		Confidence:    confidence,
		TraderIDs:     traderIDs,
		ExchangeIDs:   exchangeIDs,
		MatchedFields: matchedFields,
		Audit:         audit,
	}
}
