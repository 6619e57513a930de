package recon

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/pkg/models"
)

// Signatures are the fundamental matching primitive: a rule builds a map
// from signature to candidate trades on one side and probes it with the
// other, giving O(N+M) matching. Decimal components are rendered through
// decKey so that 2000 and 2000.00 hash identically.

func decKey(d decimal.Decimal) string {
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// universalKey encodes the universal fields. Nil is its own value: a nil
// broker group only ever collides with another nil.
func universalKey(t *models.Trade) string {
	var b strings.Builder
	b.WriteString("bg:")
	if t.BrokerGroupID != nil {
		b.WriteString(decKey(decimal.NewFromInt(*t.BrokerGroupID)))
	} else {
		b.WriteString("~")
	}
	b.WriteString("|ca:")
	if t.ClearingAcctID != nil {
		b.WriteString(*t.ClearingAcctID)
	} else {
		b.WriteString("~")
	}
	return b.String()
}

// UniversalsEqual applies the rule-independent validation: two trades may
// participate in the same match only if broker group and clearing account
// compare equal, null against null included.
func UniversalsEqual(a, b *models.Trade) bool {
	if (a.BrokerGroupID == nil) != (b.BrokerGroupID == nil) {
		return false
	}
	if a.BrokerGroupID != nil && *a.BrokerGroupID != *b.BrokerGroupID {
		return false
	}
	if (a.ClearingAcctID == nil) != (b.ClearingAcctID == nil) {
		return false
	}
	if a.ClearingAcctID != nil && *a.ClearingAcctID != *b.ClearingAcctID {
		return false
	}
	return true
}

func sig(parts ...string) string {
	return strings.Join(parts, "|")
}

// exactKey is the full-match signature: product, month, quantity, price,
// direction, universal fields, and the option fields when present.
func exactKey(t *models.Trade, side models.Side) string {
	parts := []string{
		t.Product,
		t.ContractMonth,
		decKey(t.Quantity),
		decKey(t.Price),
		string(side),
		universalKey(t),
	}
	if t.Strike != nil {
		parts = append(parts, "k:"+decKey(*t.Strike))
	}
	if t.PutCall != "" {
		parts = append(parts, "pc:"+t.PutCall)
	}
	return sig(parts...)
}

// pairKey groups candidate spread legs: product, quantity, universal fields.
func pairKey(t *models.Trade) string {
	return sig(t.Product, decKey(t.Quantity), universalKey(t))
}

// aggKey groups aggregation candidates: every key field except quantity.
func aggKey(t *models.Trade) string {
	return sig(t.Product, t.ContractMonth, decKey(t.Price), string(t.BuySell), string(t.Unit), universalKey(t))
}
