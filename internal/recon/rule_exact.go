package recon

import (
	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Exact match
//
// Signature = (product, contract month, quantity, price, direction,
// universal fields), plus strike and put/call when the record carries them.
// The exchange side is indexed by signature and probed with the trader side;
// a signature hit claims one trader record against one exchange record.

var exactMatchedFields = []string{
	"product", "contract_month", "quantity", "price", "buy_sell",
	"broker_group_id", "clearing_acct_id",
}

func ruleExact(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	return exactMatch(p, rc, false)
}

// ruleExactOpposite is the CME/EEX variant: a trader Sell pairs to an
// exchange Buy. Everything else is the plain exact signature.
func ruleExactOpposite(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	return exactMatch(p, rc, true)
}

func exactMatch(p *Pool, rc config.RuleConfig, opposite bool) []models.MatchResult {
	index := make(map[string][]*models.Trade)
	for _, e := range p.Available(models.SourceExchange) {
		k := exactKey(e, e.BuySell)
		index[k] = append(index[k], e)
	}

	var matches []models.MatchResult
	for _, t := range p.Available(models.SourceTrader) {
		want := t.BuySell
		if opposite {
			want = t.BuySell.Opposite()
		}
		for _, e := range index[exactKey(t, want)] {
			if !p.IsAvailable(e.ID) {
				continue
			}
			if !p.Claim([]string{t.ID}, []string{e.ID}) {
				continue
			}
			matches = append(matches, newMatch(rc.ID, rc.Confidence,
				[]string{t.ID}, []string{e.ID}, exactMatchedFields, nil))
			break
		}
	}
	return matches
}
