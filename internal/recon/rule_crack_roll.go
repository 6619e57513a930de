package recon

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Complex crack roll
//
// A crack roll moves a crack position between contract months: the trader
// books two consecutive crack legs with opposite directions, different
// months and the {non-zero, 0} price pattern. On the exchange both months
// clear as full (base product, brent swap) decompositions. The per-month
// crack prices derive from the complex crack formula, and the booked roll
// price must equal the early month's derived crack minus the late month's.
// Quantities are compared under a relaxed tonne-equivalent tolerance. A hit
// claims 2 trader + 4 exchange records.

var crackRollFields = []string{
	"base_product", "contract_month", "buy_sell", "quantity", "roll_price",
	"broker_group_id", "clearing_acct_id",
}

func ruleCrackRoll(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	// Consecutive-in-time trader crack legs, grouped by base product and
	// universal fields, ordered by ingest sequence.
	grouped := make(map[string][]*models.Trade)
	var keys []string
	for _, t := range p.Available(models.SourceTrader) {
		if !t.IsCrack() || t.Unit != models.UnitMT {
			continue
		}
		k := sig(t.BaseProduct, universalKey(t))
		if _, seen := grouped[k]; !seen {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], t)
	}

	var matches []models.MatchResult
	for _, k := range keys {
		legs := grouped[k]
		sort.SliceStable(legs, func(i, j int) bool { return legs[i].Seq < legs[j].Seq })
		for i := 0; i+1 < len(legs); i++ {
			a, b := legs[i], legs[i+1]
			if !p.IsAvailable(a.ID) || !p.IsAvailable(b.ID) {
				continue
			}
			if m, ok := matchCrackRoll(p, rc, gc, a, b); ok {
				matches = append(matches, m)
			}
		}
	}
	return matches
}

func matchCrackRoll(p *Pool, rc config.RuleConfig, gc *config.GroupConfig, a, b *models.Trade) (models.MatchResult, bool) {
	if a.Product != b.Product || a.BuySell == b.BuySell {
		return models.MatchResult{}, false
	}
	if a.ContractMonth == b.ContractMonth || !a.Quantity.Equal(b.Quantity) {
		return models.MatchResult{}, false
	}
	if a.Price.IsZero() == b.Price.IsZero() {
		return models.MatchResult{}, false // exactly one priced leg
	}
	roll, ok := orderLegs(a, b)
	if !ok {
		return models.MatchResult{}, false
	}
	booked, _ := roll.TraderSpreadPrice()

	ratio := gc.Ratio(a.BaseProduct)
	tolBBL := rc.ToleranceMT.Mul(ratio) // tonne-equivalent tolerance in barrels

	earlyBase, earlyBrent, ok := findRollLegs(p, roll.Early, rc.ToleranceMT, tolBBL, gc)
	if !ok {
		return models.MatchResult{}, false
	}
	lateBase, lateBrent, ok := findRollLegs(p, roll.Late, rc.ToleranceMT, tolBBL, gc)
	if !ok {
		return models.MatchResult{}, false
	}
	if earlyBase.ID == lateBase.ID || earlyBrent.ID == lateBrent.ID {
		return models.MatchResult{}, false
	}

	// The booked roll price equals the derived crack of the priced month
	// minus the derived crack of the other (the priced leg is the early one
	// by booking convention). Checked without division:
	// (baseN - baseO) - ratio*(brentN - brentO) == ratio*booked.
	nzBase, nzBrent := earlyBase, earlyBrent
	otBase, otBrent := lateBase, lateBrent
	if roll.Early.Price.IsZero() {
		nzBase, nzBrent, otBase, otBrent = lateBase, lateBrent, earlyBase, earlyBrent
	}
	lhs := nzBase.Price.Sub(otBase.Price).
		Sub(ratio.Mul(nzBrent.Price.Sub(otBrent.Price)))
	if !lhs.Equal(ratio.Mul(booked)) {
		return models.MatchResult{}, false
	}

	exchangeIDs := []string{earlyBase.ID, earlyBrent.ID, lateBase.ID, lateBrent.ID}
	if !p.Claim(roll.IDs(), exchangeIDs) {
		return models.MatchResult{}, false
	}
	return newMatch(rc.ID, rc.Confidence, roll.IDs(), exchangeIDs, crackRollFields,
		map[string]string{
			"derived_crack_early": decKey(derivedCrackPrice(earlyBase.Price, earlyBrent.Price, ratio)),
			"derived_crack_late":  decKey(derivedCrackPrice(lateBase.Price, lateBrent.Price, ratio)),
			"roll_price":          decKey(booked),
		}), true
}

// findRollLegs locates the (base, brent) exchange decomposition for one
// roll month under the relaxed tolerances.
func findRollLegs(p *Pool, t *models.Trade, tolMT, tolBBL decimal.Decimal, gc *config.GroupConfig) (base, brent *models.Trade, ok bool) {
	ratio := gc.Ratio(t.BaseProduct)
	for _, e := range p.Available(models.SourceExchange) {
		if e.Product != t.BaseProduct || e.ContractMonth != t.ContractMonth {
			continue
		}
		if e.Unit != models.UnitMT || e.BuySell != t.BuySell {
			continue
		}
		if !withinMT(e.Quantity, t.Quantity, tolMT) || !UniversalsEqual(e, t) {
			continue
		}
		for _, br := range p.Available(models.SourceExchange) {
			if br.ID == e.ID || br.Product != "brent swap" {
				continue
			}
			if br.ContractMonth != t.ContractMonth || br.Unit != models.UnitBBL {
				continue
			}
			if br.BuySell != t.BuySell.Opposite() || !UniversalsEqual(br, t) {
				continue
			}
			if t.Quantity.Mul(ratio).Sub(br.Quantity).Abs().GreaterThan(tolBBL) {
				continue
			}
			return e, br, true
		}
	}
	return nil, nil, false
}
