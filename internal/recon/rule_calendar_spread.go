package recon

import (
	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Calendar spread
//
// A trader books a calendar spread as two legs with a {non-zero, 0} price
// pattern while the exchange clears two outright legs at full prices. The
// rule pairs legs on each side (exchange pairing tiers: shared deal id,
// identical timestamp, product+quantity fallback), aligns months and
// directions leg-for-leg, and accepts when
//
//	price(early)_exch - price(late)_exch == non-zero trader leg price
//
// or both sides predict zero. A hit claims 2 trader + 2 exchange records.

var calendarSpreadFields = []string{
	"product", "quantity", "contract_month", "buy_sell", "spread_price",
	"broker_group_id", "clearing_acct_id",
}

func ruleCalendarSpread(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	ePairs := ExchangeLegPairs(p.Available(models.SourceExchange))
	index := make(map[string][]LegPair)
	for _, ep := range ePairs {
		k := pairKey(ep.Early)
		index[k] = append(index[k], ep)
	}

	var matches []models.MatchResult
	for _, tp := range TraderLegPairs(p.Available(models.SourceTrader)) {
		if !p.IsAvailable(tp.Early.ID) || !p.IsAvailable(tp.Late.ID) {
			continue
		}
		for _, ep := range index[pairKey(tp.Early)] {
			if m, ok := matchSpreadPair(p, rc.ID, rc.Confidence, tp, ep); ok {
				matches = append(matches, m)
				break
			}
		}
	}
	return matches
}

// matchSpreadPair applies the calendar spread predicate to one trader pair
// against one exchange pair and claims on success. Shared by the plain and
// aggregated calendar spread rules.
func matchSpreadPair(p *Pool, ruleID string, confidence int, tp, ep LegPair) (models.MatchResult, bool) {
	if !spreadPairAligned(tp, ep) {
		return models.MatchResult{}, false
	}
	if !UniversalsEqual(tp.Early, ep.Early) {
		return models.MatchResult{}, false
	}

	diff := ep.PriceDiff()
	booked, zero := tp.TraderSpreadPrice()
	if zero {
		if !diff.IsZero() {
			return models.MatchResult{}, false
		}
	} else if !diff.Equal(booked) {
		return models.MatchResult{}, false
	}

	if !p.Claim(tp.IDs(), ep.IDs()) {
		return models.MatchResult{}, false
	}
	return newMatch(ruleID, confidence, tp.IDs(), ep.IDs(), calendarSpreadFields,
		map[string]string{
			"exchange_spread": decKey(diff),
			"trader_spread":   decKey(booked),
		}), true
}

// spreadPairAligned checks that corresponding months and corresponding
// directions line up between a trader pair and an exchange pair, and that
// the product and quantity agree.
func spreadPairAligned(tp, ep LegPair) bool {
	if tp.Early.Product != ep.Early.Product {
		return false
	}
	if !tp.Early.Quantity.Equal(ep.Early.Quantity) {
		return false
	}
	if tp.Early.ContractMonth != ep.Early.ContractMonth || tp.Late.ContractMonth != ep.Late.ContractMonth {
		return false
	}
	if tp.Early.BuySell != ep.Early.BuySell || tp.Late.BuySell != ep.Late.BuySell {
		return false
	}
	return true
}
