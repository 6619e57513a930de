package recon

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/normalize"
	"github.com/rawblock/recon-engine/pkg/models"
)

// LegPair is one side of a calendar spread: two opposite-direction records
// of identical product, quantity and universal fields in different contract
// months, ordered early to late.
type LegPair struct {
	Early *models.Trade
	Late  *models.Trade
}

// IDs returns both member ids, early first.
func (lp LegPair) IDs() []string {
	return []string{lp.Early.ID, lp.Late.ID}
}

// TraderSpreadPrice returns the spread price booked on a trader leg pair:
// the single non-zero leg price. zero is true when both legs book at zero.
func (lp LegPair) TraderSpreadPrice() (decimal.Decimal, bool) {
	if !lp.Early.Price.IsZero() {
		return lp.Early.Price, false
	}
	if !lp.Late.Price.IsZero() {
		return lp.Late.Price, false
	}
	return decimal.Zero, true
}

// PriceDiff is the pair's price differential, early minus late.
func (lp LegPair) PriceDiff() decimal.Decimal {
	return lp.Early.Price.Sub(lp.Late.Price)
}

// monthBefore orders two canonical contract months. Balmo and unparseable
// months never order, so pairs containing them are rejected by orderLegs.
func monthBefore(a, b string) (bool, bool) {
	ka, oka := normalize.MonthKey(a)
	kb, okb := normalize.MonthKey(b)
	if !oka || !okb {
		return false, false
	}
	return ka < kb, true
}

func orderLegs(a, b *models.Trade) (LegPair, bool) {
	before, ok := monthBefore(a.ContractMonth, b.ContractMonth)
	if !ok || a.ContractMonth == b.ContractMonth {
		return LegPair{}, false
	}
	if before {
		return LegPair{Early: a, Late: b}, true
	}
	return LegPair{Early: b, Late: a}, true
}

// legPairShape checks the structural spread-leg predicate shared by both
// sides: same product, same quantity, same universal fields, different
// contract months, opposite directions, and a {non-zero, 0} or {0, 0}
// price pattern.
func legPairShape(a, b *models.Trade) bool {
	if a.Product != b.Product {
		return false
	}
	if !a.Quantity.Equal(b.Quantity) {
		return false
	}
	if a.ContractMonth == b.ContractMonth {
		return false
	}
	if a.BuySell == b.BuySell {
		return false
	}
	if !UniversalsEqual(a, b) {
		return false
	}
	if !a.Price.IsZero() && !b.Price.IsZero() {
		return false
	}
	return true
}

// TraderLegPairs scans one side's available records for spread leg pairs.
// When a spread flag is booked it must be present on both legs. Each record
// may appear in several candidate pairs; the claim primitive arbitrates.
func TraderLegPairs(trades []*models.Trade) []LegPair {
	byKey := make(map[string][]*models.Trade)
	var keys []string
	for _, t := range trades {
		k := pairKey(t)
		if _, seen := byKey[k]; !seen {
			keys = append(keys, k)
		}
		byKey[k] = append(byKey[k], t)
	}

	var pairs []LegPair
	for _, k := range keys {
		group := byKey[k]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if !legPairShape(a, b) {
					continue
				}
				if (a.SpreadFlag != "") != (b.SpreadFlag != "") {
					continue
				}
				if p, ok := orderLegs(a, b); ok {
					pairs = append(pairs, p)
				}
			}
		}
	}
	return pairs
}

// ExchangeLegPairs pairs exchange-side spread legs in three confidence
// tiers: shared deal id, then identical execution timestamp, then a
// product-and-quantity grouping fallback. Pairs found by an earlier tier
// suppress the same records in later tiers.
func ExchangeLegPairs(trades []*models.Trade) []LegPair {
	var pairs []LegPair
	used := make(map[string]bool)

	emit := func(a, b *models.Trade) {
		if used[a.ID] || used[b.ID] {
			return
		}
		if p, ok := orderLegs(a, b); ok {
			pairs = append(pairs, p)
			used[a.ID] = true
			used[b.ID] = true
		}
	}

	// Tier A: legs booked under one deal id.
	pairWithin(trades, used, emit, func(t *models.Trade) (string, bool) {
		return t.DealID, t.DealID != ""
	})

	// Tier B: legs stamped with the same execution time.
	pairWithin(trades, used, emit, func(t *models.Trade) (string, bool) {
		return t.TradeTime, t.TradeTime != ""
	})

	// Tier C: product + quantity fallback.
	pairWithin(trades, used, emit, func(t *models.Trade) (string, bool) {
		return pairKey(t), true
	})

	return pairs
}

func pairWithin(trades []*models.Trade, used map[string]bool, emit func(a, b *models.Trade), keyOf func(*models.Trade) (string, bool)) {
	groups := make(map[string][]*models.Trade)
	var keys []string
	for _, t := range trades {
		if used[t.ID] {
			continue
		}
		k, ok := keyOf(t)
		if !ok {
			continue
		}
		if _, seen := groups[k]; !seen {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], t)
	}
	for _, k := range keys {
		group := groups[k]
		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if used[a.ID] || used[b.ID] {
					continue
				}
				if a.Product != b.Product || !a.Quantity.Equal(b.Quantity) {
					continue
				}
				if a.BuySell == b.BuySell || a.ContractMonth == b.ContractMonth {
					continue
				}
				if !UniversalsEqual(a, b) {
					continue
				}
				emit(a, b)
			}
		}
	}
}

// SplitHyphenated recognizes product-spread notation: a hyphen with
// non-empty components on both sides splits the product into its two
// component products.
func SplitHyphenated(product string) (first, second string, ok bool) {
	i := strings.Index(product, "-")
	if i <= 0 || i == len(product)-1 {
		return "", "", false
	}
	first = strings.TrimSpace(product[:i])
	second = strings.TrimSpace(product[i+1:])
	if first == "" || second == "" {
		return "", "", false
	}
	return first, second, true
}
