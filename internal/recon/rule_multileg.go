package recon

import (
	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Multileg spread
//
// A trader A/C calendar spread sometimes clears as a chain of exchange
// spreads through intermediate months. Tier 1 (4 legs / 3 months): two
// deal-linked exchange spreads A/B and B/C whose middle legs net exactly
// (same product, quantity and price, opposite directions); the outer legs
// and the sum of the two spread prices must equal the trader A/C pair.
// Tier 2 (6 legs / 4 months): three chained spreads A/B + B/C + C/D whose
// algebraic price sum equals the trader A/D pair, with no per-leg netting
// requirement. Tier 1 claims 4+2, tier 2 claims 6+2.

var multilegFields = []string{
	"product", "quantity", "contract_month", "buy_sell", "spread_price_sum",
	"broker_group_id", "clearing_acct_id",
}

// dealLinkedPairs returns exchange leg pairs whose two legs share a deal id.
func dealLinkedPairs(p *Pool) []LegPair {
	byDeal := make(map[string][]*models.Trade)
	var deals []string
	for _, e := range p.Available(models.SourceExchange) {
		if e.DealID == "" {
			continue
		}
		if _, seen := byDeal[e.DealID]; !seen {
			deals = append(deals, e.DealID)
		}
		byDeal[e.DealID] = append(byDeal[e.DealID], e)
	}

	var pairs []LegPair
	for _, d := range deals {
		group := byDeal[d]
		if len(group) != 2 {
			continue
		}
		a, b := group[0], group[1]
		if a.Product != b.Product || !a.Quantity.Equal(b.Quantity) {
			continue
		}
		if a.BuySell == b.BuySell || !UniversalsEqual(a, b) {
			continue
		}
		if pr, ok := orderLegs(a, b); ok {
			pairs = append(pairs, pr)
		}
	}
	return pairs
}

func pairsChain(first, second LegPair) bool {
	return first.Late.ContractMonth == second.Early.ContractMonth
}

// legsNet reports whether two inner legs cancel exactly: same product,
// quantity and price with opposite directions.
func legsNet(a, b *models.Trade) bool {
	return a.Product == b.Product &&
		a.Quantity.Equal(b.Quantity) &&
		a.Price.Equal(b.Price) &&
		a.BuySell == b.BuySell.Opposite()
}

func ruleMultilegSpread(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	ePairs := dealLinkedPairs(p)
	tPairs := TraderLegPairs(p.Available(models.SourceTrader))

	var matches []models.MatchResult
tpLoop:
	for _, tp := range tPairs {
		if !p.IsAvailable(tp.Early.ID) || !p.IsAvailable(tp.Late.ID) {
			continue
		}
		booked, zero := tp.TraderSpreadPrice()
		if zero {
			// A chained multileg decomposition of an all-zero spread would
			// need every exchange spread to cancel; leave those residues to
			// the simpler rules.
			continue
		}

		// Tier 1: two chained spreads with netting middle legs.
		for i := range ePairs {
			for j := range ePairs {
				if i == j {
					continue
				}
				p1, p2 := ePairs[i], ePairs[j]
				if !multilegCompatible(tp, p1, p2) {
					continue
				}
				if !pairsChain(p1, p2) || !legsNet(p1.Late, p2.Early) {
					continue
				}
				if tp.Early.ContractMonth != p1.Early.ContractMonth ||
					tp.Late.ContractMonth != p2.Late.ContractMonth {
					continue
				}
				if tp.Early.BuySell != p1.Early.BuySell || tp.Late.BuySell != p2.Late.BuySell {
					continue
				}
				sum := p1.PriceDiff().Add(p2.PriceDiff())
				if !sum.Equal(booked) {
					continue
				}
				exchangeIDs := append(p1.IDs(), p2.IDs()...)
				if !p.Claim(tp.IDs(), exchangeIDs) {
					continue
				}
				matches = append(matches, newMatch(rc.ID, rc.Confidence,
					tp.IDs(), exchangeIDs, multilegFields,
					map[string]string{
						"spread_price_sum": decKey(sum),
						"trader_spread":    decKey(booked),
						"legs":             "4",
					}))
				continue tpLoop
			}
		}

		// Tier 2: three chained spreads, algebraic price sum only.
		for i := range ePairs {
			for j := range ePairs {
				for k := range ePairs {
					if i == j || j == k || i == k {
						continue
					}
					p1, p2, p3 := ePairs[i], ePairs[j], ePairs[k]
					if !multilegCompatible(tp, p1, p2) || !multilegCompatible(tp, p2, p3) {
						continue
					}
					if !pairsChain(p1, p2) || !pairsChain(p2, p3) {
						continue
					}
					if tp.Early.ContractMonth != p1.Early.ContractMonth ||
						tp.Late.ContractMonth != p3.Late.ContractMonth {
						continue
					}
					if tp.Early.BuySell != p1.Early.BuySell || tp.Late.BuySell != p3.Late.BuySell {
						continue
					}
					sum := p1.PriceDiff().Add(p2.PriceDiff()).Add(p3.PriceDiff())
					if !sum.Equal(booked) {
						continue
					}
					exchangeIDs := append(append(p1.IDs(), p2.IDs()...), p3.IDs()...)
					if !p.Claim(tp.IDs(), exchangeIDs) {
						continue
					}
					matches = append(matches, newMatch(rc.ID, rc.Confidence,
						tp.IDs(), exchangeIDs, multilegFields,
						map[string]string{
							"spread_price_sum": decKey(sum),
							"trader_spread":    decKey(booked),
							"legs":             "6",
						}))
					continue tpLoop
				}
			}
		}
	}
	return matches
}

// multilegCompatible checks the fields every leg of the chain must share
// with the trader pair: product, quantity and universal fields.
func multilegCompatible(tp LegPair, pairs ...LegPair) bool {
	for _, pr := range pairs {
		if pr.Early.Product != tp.Early.Product {
			return false
		}
		if !pr.Early.Quantity.Equal(tp.Early.Quantity) {
			return false
		}
		if !UniversalsEqual(pr.Early, tp.Early) {
			return false
		}
	}
	return true
}
