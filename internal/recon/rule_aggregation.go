package recon

import (
	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// Aggregation
//
// A single fill on one side often clears as several partial fills on the
// other. Records sharing (product, month, price, direction, unit, universal
// fields) aggregate into a virtual record whose quantity is their sum; when
// the sum equals a single opposite-source record exactly, the entire group
// matches many-to-one. The rule runs in both directions.

var aggregationFields = []string{
	"product", "contract_month", "price", "buy_sell", "aggregated_quantity",
	"broker_group_id", "clearing_acct_id",
}

func ruleAggregation(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	matches := aggregateManyToOne(p, rc, models.SourceTrader, models.SourceExchange)
	matches = append(matches, aggregateManyToOne(p, rc, models.SourceExchange, models.SourceTrader)...)
	return matches
}

func aggregateManyToOne(p *Pool, rc config.RuleConfig, manySrc, oneSrc models.Source) []models.MatchResult {
	singles := make(map[string][]*models.Trade)
	for _, s := range p.Available(oneSrc) {
		k := aggKey(s)
		singles[k] = append(singles[k], s)
	}

	var matches []models.MatchResult
	for _, g := range AggregateGroups(p.Available(manySrc)) {
		if len(g.Trades) < 2 {
			continue
		}
		for _, s := range singles[g.Key] {
			if !p.IsAvailable(s.ID) || !g.Quantity.Equal(s.Quantity) {
				continue
			}
			var traderIDs, exchangeIDs []string
			if manySrc == models.SourceTrader {
				traderIDs, exchangeIDs = g.IDs(), []string{s.ID}
			} else {
				traderIDs, exchangeIDs = []string{s.ID}, g.IDs()
			}
			if !p.Claim(traderIDs, exchangeIDs) {
				continue
			}
			matches = append(matches, newMatch(rc.ID, rc.Confidence,
				traderIDs, exchangeIDs, aggregationFields,
				map[string]string{
					"aggregated_quantity": decKey(g.Quantity),
					"group_size":          decKey(decimalFromInt(len(g.Trades))),
				}))
			break
		}
	}
	return matches
}

// Aggregated crack
//
// The simple crack predicate with the many side aggregated: several barrel
// fills of one exchange crack aggregate against a single trader tonne
// record (and symmetrically), accepted within a widened barrel tolerance.

func ruleAggCrack(p *Pool, rc config.RuleConfig, gc *config.GroupConfig) []models.MatchResult {
	matches := aggCrackDirection(p, rc, gc, models.SourceExchange)
	matches = append(matches, aggCrackDirection(p, rc, gc, models.SourceTrader)...)
	return matches
}

// aggCrackDirection aggregates crack records on manySrc and probes singles
// on the opposite side. The tonne side is converted through the base
// product's ratio before the tolerance comparison.
func aggCrackDirection(p *Pool, rc config.RuleConfig, gc *config.GroupConfig, manySrc models.Source) []models.MatchResult {
	oneSrc := models.SourceTrader
	if manySrc == models.SourceTrader {
		oneSrc = models.SourceExchange
	}

	var crackRecords []*models.Trade
	for _, t := range p.Available(manySrc) {
		if t.IsCrack() {
			crackRecords = append(crackRecords, t)
		}
	}

	var matches []models.MatchResult
	for _, g := range AggregateGroups(crackRecords) {
		if len(g.Trades) < 2 {
			continue
		}
		rep := g.First()
		for _, s := range p.Available(oneSrc) {
			if !s.IsCrack() || s.Product != rep.Product {
				continue
			}
			if s.ContractMonth != rep.ContractMonth || s.BuySell != rep.BuySell {
				continue
			}
			if !s.Price.Equal(rep.Price) || !UniversalsEqual(s, rep) {
				continue
			}

			var qMT, qBBL decimal.Decimal
			switch {
			case s.Unit == models.UnitMT && rep.Unit == models.UnitBBL:
				qMT, qBBL = s.Quantity, g.Quantity
			case s.Unit == models.UnitBBL && rep.Unit == models.UnitMT:
				qMT, qBBL = g.Quantity, s.Quantity
			default:
				continue
			}
			if !QuantitiesMatch(qMT, qBBL, s.BaseProduct, rc.ToleranceBBL, gc) {
				continue
			}

			var traderIDs, exchangeIDs []string
			if manySrc == models.SourceTrader {
				traderIDs, exchangeIDs = g.IDs(), []string{s.ID}
			} else {
				traderIDs, exchangeIDs = []string{s.ID}, g.IDs()
			}
			if !p.Claim(traderIDs, exchangeIDs) {
				continue
			}
			matches = append(matches, newMatch(rc.ID, rc.Confidence,
				traderIDs, exchangeIDs, simpleCrackFields,
				map[string]string{
					"aggregated_quantity": decKey(g.Quantity),
					"converted_bbl":       decKey(qMT.Mul(gc.Ratio(s.BaseProduct))),
				}))
			break
		}
	}
	return matches
}
