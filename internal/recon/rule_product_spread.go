package recon

import (
	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/internal/normalize"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Product spread
//
// The exchange clears a hyphenated spread product "A-B" as a single record;
// the trader books two component legs. Direction semantics: selling A-B is
// selling A and buying B, buying A-B reverses both. The predicate is
//
//	price(A)_trader - price(B)_trader == price(A-B)_exchange
//
// in exact decimal. A hit claims 1 exchange + 2 trader records.

var productSpreadFields = []string{
	"product_components", "contract_month", "quantity", "buy_sell",
	"spread_price", "broker_group_id", "clearing_acct_id",
}

// componentPair is a trader leg pair over two different products in the
// same contract month: the product-spread counterpart of LegPair.
type componentPair struct {
	First  *models.Trade // component A leg
	Second *models.Trade // component B leg
}

func (cp componentPair) IDs() []string {
	return []string{cp.First.ID, cp.Second.ID}
}

func (cp componentPair) spread() decimal.Decimal {
	return cp.First.Price.Sub(cp.Second.Price)
}

// findComponentPair locates a trader leg pair whose products are the two
// spread components, aligned in month, quantity, universal fields and
// direction with the exchange spread record.
func findComponentPair(p *Pool, e *models.Trade, compA, compB string) (componentPair, bool) {
	var first *models.Trade
	for _, a := range p.Available(models.SourceTrader) {
		if a.Product != compA || a.ContractMonth != e.ContractMonth {
			continue
		}
		if !a.Quantity.Equal(e.Quantity) || a.BuySell != e.BuySell {
			continue
		}
		if !UniversalsEqual(a, e) {
			continue
		}
		first = a
		for _, b := range p.Available(models.SourceTrader) {
			if b.ID == first.ID || b.Product != compB || b.ContractMonth != e.ContractMonth {
				continue
			}
			if !b.Quantity.Equal(e.Quantity) || b.BuySell != e.BuySell.Opposite() {
				continue
			}
			if !UniversalsEqual(b, e) {
				continue
			}
			return componentPair{First: first, Second: b}, true
		}
	}
	return componentPair{}, false
}

func ruleProductSpread(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	var matches []models.MatchResult
	for _, e := range p.Available(models.SourceExchange) {
		m, ok := matchHyphenatedSpread(p, e, gc, func(cp componentPair) (int, bool) {
			return rc.Confidence, true
		}, rc.ID)
		if ok {
			matches = append(matches, m)
		}
	}
	return matches
}

// matchHyphenatedSpread runs the shared product spread predicate for one
// hyphenated exchange record. tier decides the emitted confidence from the
// located trader pair (the SGX variant grades by spread marker and price
// pattern).
func matchHyphenatedSpread(p *Pool, e *models.Trade, gc *config.GroupConfig, tier func(componentPair) (int, bool), ruleID string) (models.MatchResult, bool) {
	if !p.IsAvailable(e.ID) {
		return models.MatchResult{}, false
	}
	rawA, rawB, ok := SplitHyphenated(e.Product)
	if !ok {
		return models.MatchResult{}, false
	}
	compA := normalize.Product(rawA, gc)
	compB := normalize.Product(rawB, gc)

	cp, ok := findComponentPair(p, e, compA, compB)
	if !ok {
		return models.MatchResult{}, false
	}
	if !cp.spread().Equal(e.Price) {
		return models.MatchResult{}, false
	}
	confidence, ok := tier(cp)
	if !ok {
		return models.MatchResult{}, false
	}
	if !p.Claim(cp.IDs(), []string{e.ID}) {
		return models.MatchResult{}, false
	}
	return newMatch(ruleID, confidence, cp.IDs(), []string{e.ID}, productSpreadFields,
		map[string]string{
			"component_spread": decKey(cp.spread()),
			"exchange_spread":  decKey(e.Price),
		}), true
}

// ruleProductSpreadTiered is the SGX three-tier product spread. The
// predicate is the plain rule's; the tier (and confidence) is graded by the
// trader booking: an explicit PS marker, then the {non-zero, 0} price
// pattern, then a plain component pair with fully booked prices.
func ruleProductSpreadTiered(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	tiers := rc.TierConfidences
	if len(tiers) != 3 {
		tiers = []int{rc.Confidence, rc.Confidence, rc.Confidence}
	}

	var matches []models.MatchResult
	for _, e := range p.Available(models.SourceExchange) {
		m, ok := matchHyphenatedSpread(p, e, gc, func(cp componentPair) (int, bool) {
			switch {
			case cp.First.SpreadFlag == "PS" || cp.Second.SpreadFlag == "PS":
				return tiers[0], true
			case cp.First.Price.IsZero() != cp.Second.Price.IsZero():
				return tiers[1], true
			default:
				return tiers[2], true
			}
		}, rc.ID)
		if ok {
			matches = append(matches, m)
		}
	}
	return matches
}
