package recon

import (
	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/internal/normalize"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Aggregated product spread
//
// Product spreads where one or both sides clear in pieces. Four tiers:
//
//	T1: exchange component fills aggregate per component against one
//	    trader leg pair of two different products;
//	T2: one hyphenated exchange spread against trader fills aggregating
//	    to each component;
//	T3: several trader leg pairs aggregate across pairs per component
//	    against individual exchange component records;
//	T4: several identical hyphenated exchange spreads aggregate to one
//	    trader leg pair.
//
// Every tier requires the aggregated sums to match exactly (no tolerance),
// the plain product spread direction semantics, and the spread-price
// equality price(c1) - price(c2) == spread price per unit.

func ruleAggProductSpread(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	var matches []models.MatchResult
	matches = append(matches, aggSpreadTier1(p, rc)...)
	matches = append(matches, aggSpreadTier2(p, rc, gc)...)
	matches = append(matches, aggSpreadTier3(p, rc)...)
	matches = append(matches, aggSpreadTier4(p, rc, gc)...)
	return matches
}

// traderComponentPairs enumerates trader leg pairs over two different
// products: same month and quantity, opposite directions, equal universal
// fields. Both orientations are candidates; the price equality picks one.
func traderComponentPairs(trades []*models.Trade) []componentPair {
	var pairs []componentPair
	for i := 0; i < len(trades); i++ {
		for j := 0; j < len(trades); j++ {
			if i == j {
				continue
			}
			a, b := trades[i], trades[j]
			if a.Product == b.Product || a.ContractMonth != b.ContractMonth {
				continue
			}
			if !a.Quantity.Equal(b.Quantity) || a.BuySell != b.BuySell.Opposite() {
				continue
			}
			if !UniversalsEqual(a, b) {
				continue
			}
			pairs = append(pairs, componentPair{First: a, Second: b})
		}
	}
	return pairs
}

// Tier 1: exchange fills aggregate per component to a trader leg pair.
func aggSpreadTier1(p *Pool, rc config.RuleConfig) []models.MatchResult {
	var matches []models.MatchResult
	for _, cp := range traderComponentPairs(p.Available(models.SourceTrader)) {
		if !p.IsAvailable(cp.First.ID) || !p.IsAvailable(cp.Second.ID) {
			continue
		}
		groups := AggregateGroups(p.Available(models.SourceExchange))

		gA, ok := findComponentGroup(groups, cp.First, cp.First.BuySell, cp.First.Quantity)
		if !ok {
			continue
		}
		gB, ok := findComponentGroup(groups, cp.Second, cp.Second.BuySell, cp.First.Quantity)
		if !ok {
			continue
		}
		if len(gA.Trades)+len(gB.Trades) < 3 {
			continue // a 1+1 decomposition is the plain component case
		}
		traderSpread := cp.spread()
		exchSpread := gA.First().Price.Sub(gB.First().Price)
		if !traderSpread.Equal(exchSpread) {
			continue
		}
		exchangeIDs := append(gA.IDs(), gB.IDs()...)
		if !p.Claim(cp.IDs(), exchangeIDs) {
			continue
		}
		matches = append(matches, newMatch(rc.ID, rc.Confidence,
			cp.IDs(), exchangeIDs, productSpreadFields,
			map[string]string{
				"aggregated_quantity": decKey(gA.Quantity),
				"component_spread":    decKey(traderSpread),
				"tier":                "1",
			}))
	}
	return matches
}

// findComponentGroup locates an aggregate over one spread component: same
// product, month and universal fields as the trader leg, the given
// direction, and an exact quantity sum.
func findComponentGroup(groups []*AggGroup, leg *models.Trade, side models.Side, want decimal.Decimal) (*AggGroup, bool) {
	for _, g := range groups {
		rep := g.First()
		if rep.Product != leg.Product || rep.ContractMonth != leg.ContractMonth {
			continue
		}
		if rep.BuySell != side || !UniversalsEqual(rep, leg) {
			continue
		}
		if !g.Quantity.Equal(want) {
			continue
		}
		return g, true
	}
	return nil, false
}

// Tier 2: one hyphenated exchange spread against aggregated trader fills
// per component.
func aggSpreadTier2(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	var matches []models.MatchResult
	for _, e := range p.Available(models.SourceExchange) {
		if !p.IsAvailable(e.ID) {
			continue
		}
		rawA, rawB, ok := SplitHyphenated(e.Product)
		if !ok {
			continue
		}
		compA := normalize.Product(rawA, gc)
		compB := normalize.Product(rawB, gc)

		groups := AggregateGroups(p.Available(models.SourceTrader))
		gA, ok := findNamedGroup(groups, compA, e.ContractMonth, e.BuySell, e.Quantity, e)
		if !ok {
			continue
		}
		gB, ok := findNamedGroup(groups, compB, e.ContractMonth, e.BuySell.Opposite(), e.Quantity, e)
		if !ok {
			continue
		}
		if len(gA.Trades)+len(gB.Trades) < 3 {
			continue // left to the plain product spread rule
		}
		spread := gA.First().Price.Sub(gB.First().Price)
		if !spread.Equal(e.Price) {
			continue
		}
		traderIDs := append(gA.IDs(), gB.IDs()...)
		if !p.Claim(traderIDs, []string{e.ID}) {
			continue
		}
		matches = append(matches, newMatch(rc.ID, rc.Confidence,
			traderIDs, []string{e.ID}, productSpreadFields,
			map[string]string{
				"aggregated_quantity": decKey(gA.Quantity),
				"component_spread":    decKey(spread),
				"tier":                "2",
			}))
	}
	return matches
}

func findNamedGroup(groups []*AggGroup, product, month string, side models.Side, want decimal.Decimal, universalRef *models.Trade) (*AggGroup, bool) {
	for _, g := range groups {
		rep := g.First()
		if rep.Product != product || rep.ContractMonth != month {
			continue
		}
		if rep.BuySell != side || !UniversalsEqual(rep, universalRef) {
			continue
		}
		if !g.Quantity.Equal(want) {
			continue
		}
		return g, true
	}
	return nil, false
}

// Tier 3: several trader leg pairs aggregate across pairs per component
// against individual exchange component records.
func aggSpreadTier3(p *Pool, rc config.RuleConfig) []models.MatchResult {
	// Bucket identical pairs: same products, month, per-leg prices,
	// orientation direction and universal fields.
	pairs := traderComponentPairs(p.Available(models.SourceTrader))
	buckets := make(map[string][]componentPair)
	var keys []string
	for _, cp := range pairs {
		k := sig(cp.First.Product, cp.Second.Product, cp.First.ContractMonth,
			decKey(cp.First.Price), decKey(cp.Second.Price),
			string(cp.First.BuySell), universalKey(cp.First))
		if _, seen := buckets[k]; !seen {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], cp)
	}

	var matches []models.MatchResult
	for _, k := range keys {
		bucket := disjointPairs(p, buckets[k])
		if len(bucket) < 2 {
			continue
		}
		ref := bucket[0]
		total := decimal.Zero
		for _, cp := range bucket {
			total = total.Add(cp.First.Quantity)
		}

		eA, eB, ok := findComponentSingles(p, ref, total)
		if !ok {
			continue
		}
		traderSpread := ref.spread()
		exchSpread := eA.Price.Sub(eB.Price)
		if !traderSpread.Equal(exchSpread) {
			continue
		}

		var traderIDs []string
		for _, cp := range bucket {
			traderIDs = append(traderIDs, cp.IDs()...)
		}
		if !p.Claim(traderIDs, []string{eA.ID, eB.ID}) {
			continue
		}
		matches = append(matches, newMatch(rc.ID, rc.Confidence,
			traderIDs, []string{eA.ID, eB.ID}, productSpreadFields,
			map[string]string{
				"aggregated_quantity": decKey(total),
				"component_spread":    decKey(traderSpread),
				"tier":                "3",
			}))
	}
	return matches
}

// disjointPairs filters a bucket down to available pairs that share no
// records, keeping scan order.
func disjointPairs(p *Pool, bucket []componentPair) []componentPair {
	used := make(map[string]bool)
	var out []componentPair
	for _, cp := range bucket {
		if !p.IsAvailable(cp.First.ID) || !p.IsAvailable(cp.Second.ID) {
			continue
		}
		if used[cp.First.ID] || used[cp.Second.ID] {
			continue
		}
		used[cp.First.ID] = true
		used[cp.Second.ID] = true
		out = append(out, cp)
	}
	return out
}

// findComponentSingles locates one exchange record per component carrying
// the full aggregated quantity.
func findComponentSingles(p *Pool, ref componentPair, total decimal.Decimal) (eA, eB *models.Trade, ok bool) {
	for _, e := range p.Available(models.SourceExchange) {
		if e.Product != ref.First.Product || e.ContractMonth != ref.First.ContractMonth {
			continue
		}
		if e.BuySell != ref.First.BuySell || !e.Quantity.Equal(total) {
			continue
		}
		if !UniversalsEqual(e, ref.First) {
			continue
		}
		eA = e
		break
	}
	if eA == nil {
		return nil, nil, false
	}
	for _, e := range p.Available(models.SourceExchange) {
		if e.ID == eA.ID || e.Product != ref.Second.Product || e.ContractMonth != ref.Second.ContractMonth {
			continue
		}
		if e.BuySell != ref.Second.BuySell || !e.Quantity.Equal(total) {
			continue
		}
		if !UniversalsEqual(e, ref.Second) {
			continue
		}
		return eA, e, true
	}
	return nil, nil, false
}

// Tier 4: several identical hyphenated exchange spreads aggregate to one
// trader leg pair.
func aggSpreadTier4(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	var hyphenated []*models.Trade
	for _, e := range p.Available(models.SourceExchange) {
		if _, _, ok := SplitHyphenated(e.Product); ok {
			hyphenated = append(hyphenated, e)
		}
	}

	var matches []models.MatchResult
	for _, g := range AggregateGroups(hyphenated) {
		if len(g.Trades) < 2 {
			continue
		}
		rep := g.First()
		rawA, rawB, _ := SplitHyphenated(rep.Product)
		compA := normalize.Product(rawA, gc)
		compB := normalize.Product(rawB, gc)

		// The trader leg pair carries the aggregated quantity per leg.
		virtual := *rep
		virtual.Quantity = g.Quantity
		cp, ok := findComponentPair(p, &virtual, compA, compB)
		if !ok {
			continue
		}
		if !cp.spread().Equal(rep.Price) {
			continue
		}
		if !p.Claim(cp.IDs(), g.IDs()) {
			continue
		}
		matches = append(matches, newMatch(rc.ID, rc.Confidence,
			cp.IDs(), g.IDs(), productSpreadFields,
			map[string]string{
				"aggregated_quantity": decKey(g.Quantity),
				"component_spread":    decKey(cp.spread()),
				"tier":                "4",
			}))
	}
	return matches
}
