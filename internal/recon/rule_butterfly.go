package recon

import (
	"sort"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/internal/normalize"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Fly / butterfly
//
// Three trader legs with a spread marker over three chronological months
// with quantities (X, Y, Z), X+Z = Y, and directions (d, not-d, d), against
// three exchange legs sharing one deal id and mirroring the month, quantity
// and direction slots. The trader convention books the fly price on the
// earliest leg and zero on the others; the predicate is
//
//	(P1 - P2) + (P3 - P2) == fly price
//
// over the exchange leg prices in month order, exact in decimal.

var butterflyFields = []string{
	"product", "contract_month", "quantity", "buy_sell", "fly_price",
	"broker_group_id", "clearing_acct_id",
}

type flyLegs struct {
	legs [3]*models.Trade // chronological
}

func (f flyLegs) IDs() []string {
	return []string{f.legs[0].ID, f.legs[1].ID, f.legs[2].ID}
}

// flyShape validates months, quantities and directions of three
// chronologically sorted legs.
func flyShape(legs [3]*models.Trade) bool {
	m1, ok1 := normalize.MonthKey(legs[0].ContractMonth)
	m2, ok2 := normalize.MonthKey(legs[1].ContractMonth)
	m3, ok3 := normalize.MonthKey(legs[2].ContractMonth)
	if !ok1 || !ok2 || !ok3 || m1 >= m2 || m2 >= m3 {
		return false
	}
	if !legs[0].Quantity.Add(legs[2].Quantity).Equal(legs[1].Quantity) {
		return false
	}
	d := legs[0].BuySell
	return legs[1].BuySell == d.Opposite() && legs[2].BuySell == d
}

func sortChrono(legs []*models.Trade) bool {
	ok := true
	sort.SliceStable(legs, func(i, j int) bool {
		ki, oki := normalize.MonthKey(legs[i].ContractMonth)
		kj, okj := normalize.MonthKey(legs[j].ContractMonth)
		if !oki || !okj {
			ok = false
			return false
		}
		return ki < kj
	})
	return ok
}

func ruleButterfly(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	// Trader candidates: spread-marked legs grouped by product + universal
	// fields; enumerate 3-leg combinations within each group.
	grouped := make(map[string][]*models.Trade)
	var keys []string
	for _, t := range p.Available(models.SourceTrader) {
		if t.SpreadFlag == "" {
			continue
		}
		k := sig(t.Product, universalKey(t))
		if _, seen := grouped[k]; !seen {
			keys = append(keys, k)
		}
		grouped[k] = append(grouped[k], t)
	}

	// Exchange candidates: three legs sharing one deal id.
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

	var matches []models.MatchResult
	for _, k := range keys {
		group := grouped[k]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				for l := j + 1; l < len(group); l++ {
					candidate := []*models.Trade{group[i], group[j], group[l]}
					if !p.IsAvailable(candidate[0].ID) || !p.IsAvailable(candidate[1].ID) || !p.IsAvailable(candidate[2].ID) {
						continue
					}
					if m, ok := matchFly(p, rc, candidate, byDeal, deals); ok {
						matches = append(matches, m)
					}
				}
			}
		}
	}
	return matches
}

func matchFly(p *Pool, rc config.RuleConfig, candidate []*models.Trade, byDeal map[string][]*models.Trade, deals []string) (models.MatchResult, bool) {
	legs := append([]*models.Trade(nil), candidate...)
	if !sortChrono(legs) {
		return models.MatchResult{}, false
	}
	tf := flyLegs{legs: [3]*models.Trade{legs[0], legs[1], legs[2]}}
	if !flyShape(tf.legs) {
		return models.MatchResult{}, false
	}
	// Fly price on the earliest leg, zero elsewhere.
	if !tf.legs[1].Price.IsZero() || !tf.legs[2].Price.IsZero() {
		return models.MatchResult{}, false
	}
	fly := tf.legs[0].Price

	for _, dealID := range deals {
		elegs := byDeal[dealID]
		if len(elegs) != 3 {
			continue
		}
		if !p.IsAvailable(elegs[0].ID) || !p.IsAvailable(elegs[1].ID) || !p.IsAvailable(elegs[2].ID) {
			continue
		}
		sorted := append([]*models.Trade(nil), elegs...)
		if !sortChrono(sorted) {
			continue
		}
		ef := flyLegs{legs: [3]*models.Trade{sorted[0], sorted[1], sorted[2]}}
		if !flyMirrors(tf, ef) {
			continue
		}
		predicted := ef.legs[0].Price.Sub(ef.legs[1].Price).
			Add(ef.legs[2].Price.Sub(ef.legs[1].Price))
		if !predicted.Equal(fly) {
			continue
		}
		if !p.Claim(tf.IDs(), ef.IDs()) {
			continue
		}
		return newMatch(rc.ID, rc.Confidence, tf.IDs(), ef.IDs(), butterflyFields,
			map[string]string{
				"fly_price":     decKey(fly),
				"derived_price": decKey(predicted),
				"deal_id":       dealID,
			}), true
	}
	return models.MatchResult{}, false
}

// flyMirrors checks that the exchange legs occupy the same month, quantity
// and direction slots as the trader legs, with matching product and
// universal fields.
func flyMirrors(tf, ef flyLegs) bool {
	for i := 0; i < 3; i++ {
		t, e := tf.legs[i], ef.legs[i]
		if e.Product != t.Product || e.ContractMonth != t.ContractMonth {
			return false
		}
		if !e.Quantity.Equal(t.Quantity) || e.BuySell != t.BuySell {
			return false
		}
		if !UniversalsEqual(t, e) {
			return false
		}
	}
	return true
}
