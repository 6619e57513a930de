package recon

import (
	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Aggregated complex crack
//
// The complex crack decomposition with the exchange base-product leg
// replaced by an aggregated group: several base fills with identical price,
// direction, month and universal fields whose sum stands in for the single
// base quantity. The brent leg stays a single record, and the price
// invariant runs against the group's shared price.

func ruleAggComplexCrack(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	exchange := p.Available(models.SourceExchange)

	var matches []models.MatchResult
	for _, t := range p.Available(models.SourceTrader) {
		if !t.IsCrack() || t.Unit != models.UnitMT {
			continue
		}
		ratio := gc.Ratio(t.BaseProduct)

		var baseCandidates []*models.Trade
		for _, e := range exchange {
			if !p.IsAvailable(e.ID) {
				continue
			}
			if e.Product != t.BaseProduct || e.ContractMonth != t.ContractMonth {
				continue
			}
			if e.Unit != models.UnitMT || e.BuySell != t.BuySell {
				continue
			}
			if !UniversalsEqual(e, t) {
				continue
			}
			baseCandidates = append(baseCandidates, e)
		}

		for _, g := range AggregateGroups(baseCandidates) {
			if len(g.Trades) < 2 {
				continue
			}
			if !withinMT(g.Quantity, t.Quantity, rc.ToleranceMT) {
				continue
			}
			basePrice := g.First().Price

			claimed := false
			for _, br := range exchange {
				if !p.IsAvailable(br.ID) {
					continue
				}
				if br.Product != "brent swap" || br.ContractMonth != t.ContractMonth {
					continue
				}
				if br.Unit != models.UnitBBL || br.BuySell != t.BuySell.Opposite() {
					continue
				}
				if !UniversalsEqual(br, t) {
					continue
				}
				if !QuantitiesMatch(t.Quantity, br.Quantity, t.BaseProduct, rc.ToleranceBBL, gc) {
					continue
				}
				if !crackPriceHolds(basePrice, br.Price, t.Price, ratio) {
					continue
				}
				exchangeIDs := append(g.IDs(), br.ID)
				if !p.Claim([]string{t.ID}, exchangeIDs) {
					continue
				}
				matches = append(matches, newMatch(rc.ID, rc.Confidence,
					[]string{t.ID}, exchangeIDs, complexCrackFields,
					map[string]string{
						"aggregated_base": decKey(g.Quantity),
						"derived_crack":   decKey(derivedCrackPrice(basePrice, br.Price, ratio)),
						"trader_crack":    decKey(t.Price),
					}))
				claimed = true
				break
			}
			if claimed {
				break
			}
		}
	}
	return matches
}

// Aggregated calendar spread
//
// Two phases. Phase 1 aggregates exchange records per (product, month,
// price, direction, universal fields) into virtual positions. Phase 2 runs
// the calendar spread predicate between virtual exchange leg pairs and
// trader leg pairs, claiming every underlying exchange record. Pairs whose
// underlying count is two are left to the plain calendar spread rule.

func ruleAggCalendarSpread(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	groups := AggregateGroups(p.Available(models.SourceExchange))

	// Virtual positions take the group's summed quantity; the member list
	// travels alongside for the claim.
	type virtualLeg struct {
		trade models.Trade
		ids   []string
	}
	var legs []virtualLeg
	for _, g := range groups {
		v := *g.First()
		v.Quantity = g.Quantity
		legs = append(legs, virtualLeg{trade: v, ids: g.IDs()})
	}

	var matches []models.MatchResult
tpLoop:
	for _, tp := range TraderLegPairs(p.Available(models.SourceTrader)) {
		if !p.IsAvailable(tp.Early.ID) || !p.IsAvailable(tp.Late.ID) {
			continue
		}
		for i := 0; i < len(legs); i++ {
			for j := 0; j < len(legs); j++ {
				if i == j {
					continue
				}
				a, b := legs[i], legs[j]
				if len(a.ids)+len(b.ids) <= 2 {
					continue
				}
				ep, ok := orderLegs(&a.trade, &b.trade)
				if !ok || ep.Early != &a.trade {
					continue // ordered combinations are visited both ways
				}
				if a.trade.Product != b.trade.Product || !a.trade.Quantity.Equal(b.trade.Quantity) {
					continue
				}
				if a.trade.BuySell == b.trade.BuySell || !UniversalsEqual(&a.trade, &b.trade) {
					continue
				}
				if !spreadPairAligned(tp, ep) || !UniversalsEqual(tp.Early, ep.Early) {
					continue
				}

				diff := ep.PriceDiff()
				booked, zero := tp.TraderSpreadPrice()
				if zero {
					if !diff.IsZero() {
						continue
					}
				} else if !diff.Equal(booked) {
					continue
				}

				exchangeIDs := append(append([]string(nil), a.ids...), b.ids...)
				if !p.Claim(tp.IDs(), exchangeIDs) {
					continue
				}
				matches = append(matches, newMatch(rc.ID, rc.Confidence,
					tp.IDs(), exchangeIDs, calendarSpreadFields,
					map[string]string{
						"aggregated_quantity": decKey(a.trade.Quantity),
						"exchange_spread":     decKey(diff),
						"trader_spread":       decKey(booked),
					}))
				continue tpLoop
			}
		}
	}
	return matches
}
