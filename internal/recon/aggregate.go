package recon

import (
	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/pkg/models"
)

// AggGroup is a virtual record standing in for N records with identical key
// fields; its quantity is their sum. Aggregation exists for matching only,
// the member records stay individually claimable until a rule consumes the
// whole group.
type AggGroup struct {
	Key      string
	Trades   []*models.Trade
	Quantity decimal.Decimal
}

// First returns the group's representative record for key-field reads.
func (g *AggGroup) First() *models.Trade {
	return g.Trades[0]
}

// IDs lists the member ids in scan order.
func (g *AggGroup) IDs() []string {
	ids := make([]string, len(g.Trades))
	for i, t := range g.Trades {
		ids[i] = t.ID
	}
	return ids
}

// AggregateGroups buckets records by (product, contract month, price,
// direction, unit, universal fields) and sums each bucket's quantity.
// Groups come back in first-seen scan order for deterministic probing.
func AggregateGroups(trades []*models.Trade) []*AggGroup {
	byKey := make(map[string]*AggGroup)
	var groups []*AggGroup
	for _, t := range trades {
		k := aggKey(t)
		g, ok := byKey[k]
		if !ok {
			g = &AggGroup{Key: k, Quantity: decimal.Zero}
			byKey[k] = g
			groups = append(groups, g)
		}
		g.Trades = append(g.Trades, t)
		g.Quantity = g.Quantity.Add(t.Quantity)
	}
	return groups
}
