package recon

import (
	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Crack rules
//
// A crack spread books the differential between a refined product and the
// Brent reference. The simple form reconciles one trader crack record in
// tonnes against one exchange crack record in barrels; the complex form
// decomposes the trader crack into an exchange (base product, brent swap)
// pair in the same month, with the price invariant
//
//	price_base / ratio - price_brent == price_crack
//
// checked in exact decimal.

func crackSigKey(t *models.Trade) string {
	return sig(t.Product, t.ContractMonth, string(t.BuySell), decKey(t.Price), universalKey(t))
}

var simpleCrackFields = []string{
	"product", "contract_month", "buy_sell", "price", "quantity",
	"broker_group_id", "clearing_acct_id",
}

// ruleSimpleCrack probes trader crack records against exchange crack
// records on (product, month, direction, price, universal fields). Equal
// quantities in equal units match at full confidence; a tonne-to-barrel
// conversion within the configured barrel tolerance matches at the
// converted confidence.
func ruleSimpleCrack(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	index := make(map[string][]*models.Trade)
	for _, e := range p.Available(models.SourceExchange) {
		if !e.IsCrack() {
			continue
		}
		k := crackSigKey(e)
		index[k] = append(index[k], e)
	}

	var matches []models.MatchResult
	for _, t := range p.Available(models.SourceTrader) {
		if !t.IsCrack() {
			continue
		}
		for _, e := range index[crackSigKey(t)] {
			if !p.IsAvailable(e.ID) {
				continue
			}

			confidence := 0
			audit := map[string]string{}
			switch {
			case t.Unit == e.Unit && t.Quantity.Equal(e.Quantity):
				confidence = rc.Confidence
			case t.Unit == models.UnitMT && e.Unit == models.UnitBBL &&
				QuantitiesMatch(t.Quantity, e.Quantity, t.BaseProduct, rc.ToleranceBBL, gc):
				confidence = rc.ConvertedConfidence
				audit["converted_bbl"] = decKey(ToBBL(t.Quantity, t.Unit, t.BaseProduct, gc))
				audit["exchange_bbl"] = decKey(e.Quantity)
			default:
				continue
			}

			if !p.Claim([]string{t.ID}, []string{e.ID}) {
				continue
			}
			matches = append(matches, newMatch(rc.ID, confidence,
				[]string{t.ID}, []string{e.ID}, simpleCrackFields, audit))
			break
		}
	}
	return matches
}

var complexCrackFields = []string{
	"base_product", "contract_month", "buy_sell", "quantity", "crack_price",
	"broker_group_id", "clearing_acct_id",
}

// ruleComplexCrack decomposes each trader crack record into two exchange
// records: the base product leg (same direction, tonnes, within the tonne
// tolerance) and a brent swap leg (opposite direction, barrels, within the
// barrel tolerance after conversion by the base product's ratio).
func ruleComplexCrack(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	exchange := p.Available(models.SourceExchange)

	var matches []models.MatchResult
	for _, t := range p.Available(models.SourceTrader) {
		if !t.IsCrack() || t.Unit != models.UnitMT {
			continue
		}
		base, brent, ok := findCrackLegs(exchange, p, t, t.Quantity, t.Price, rc, gc)
		if !ok {
			continue
		}
		if !p.Claim([]string{t.ID}, []string{base.ID, brent.ID}) {
			continue
		}
		ratio := gc.Ratio(t.BaseProduct)
		matches = append(matches, newMatch(rc.ID, rc.Confidence,
			[]string{t.ID}, []string{base.ID, brent.ID}, complexCrackFields,
			map[string]string{
				"derived_crack": decKey(derivedCrackPrice(base.Price, brent.Price, ratio)),
				"trader_crack":  decKey(t.Price),
				"converted_bbl": decKey(t.Quantity.Mul(ratio)),
			}))
	}
	return matches
}

// findCrackLegs locates the (base product, brent swap) exchange pair for a
// trader crack of the given quantity and crack price. Direction rule:
// selling the crack sells the base and buys brent; buying reverses both.
func findCrackLegs(exchange []*models.Trade, p *Pool, t *models.Trade, qtyMT, crackPrice decimal.Decimal, rc config.RuleConfig, gc *config.GroupConfig) (base, brent *models.Trade, ok bool) {
	ratio := gc.Ratio(t.BaseProduct)
	for _, b := range exchange {
		if !p.IsAvailable(b.ID) {
			continue
		}
		if b.Product != t.BaseProduct || b.ContractMonth != t.ContractMonth {
			continue
		}
		if b.Unit != models.UnitMT || b.BuySell != t.BuySell {
			continue
		}
		if !withinMT(b.Quantity, qtyMT, rc.ToleranceMT) || !UniversalsEqual(b, t) {
			continue
		}
		for _, br := range exchange {
			if !p.IsAvailable(br.ID) || br.ID == b.ID {
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
			if !QuantitiesMatch(qtyMT, br.Quantity, t.BaseProduct, rc.ToleranceBBL, gc) {
				continue
			}
			if !crackPriceHolds(b.Price, br.Price, crackPrice, ratio) {
				continue
			}
			return b, br, true
		}
	}
	return nil, nil, false
}
