// Package normalize makes equivalent inputs compare equal without losing
// information. Every function is per-record and side-effect-free: the same
// raw value and configuration tables always produce the same canonical value.
package normalize

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Error reports a field that could not be normalized. The record carrying
// it is rejected at ingest; the run proceeds without it.
type Error struct {
	Field  string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("normalization error: %s=%q: %s", e.Field, e.Value, e.Reason)
}

func trim(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"'`)
}

// Product canonicalizes a product name: lower-case, wrapping quotes and
// whitespace stripped, direct mapping applied, then keyword variations.
// Hyphens, percent signs and decimal points survive verbatim so that
// product-spread notation stays parseable.
func Product(raw string, gc *config.GroupConfig) string {
	p := strings.ToLower(trim(raw))

	if mapped, ok := gc.ProductMap[p]; ok {
		return mapped
	}

	// Hyphenated spread notation: canonicalize each component on its own so
	// the keyword variations cannot collapse "marine 0.5%-380cst" into one
	// component's name.
	if i := strings.Index(p, "-"); i > 0 && i < len(p)-1 {
		first := strings.TrimSpace(p[:i])
		second := strings.TrimSpace(p[i+1:])
		if first != "" && second != "" {
			return Product(first, gc) + "-" + Product(second, gc)
		}
	}

	for _, v := range gc.Variations {
		all := true
		for _, kw := range v.Keywords {
			if !strings.Contains(p, strings.ToLower(kw)) {
				all = false
				break
			}
		}
		if all {
			return v.Canonical
		}
	}

	return p
}

// BaseProduct derives the matching base for crack products: the portion
// preceding the "crack" suffix. Non-crack products are their own base.
func BaseProduct(product string) string {
	if strings.HasSuffix(product, " crack") {
		return strings.TrimSuffix(product, " crack")
	}
	return product
}

// BuySell maps the buy/sell synonym alphabet onto the canonical B/S enum.
// Anything outside the alphabet is an error.
func BuySell(raw string) (models.Side, error) {
	switch strings.ToLower(trim(raw)) {
	case "b", "buy", "bought":
		return models.Buy, nil
	case "s", "sell", "sold":
		return models.Sell, nil
	default:
		return "", &Error{Field: "buy_sell", Value: raw, Reason: "unknown direction"}
	}
}

// Quantity strips quotes and thousands separators and parses an exact,
// non-negative decimal.
func Quantity(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(trim(raw), ",", "")
	if s == "" {
		return decimal.Zero, &Error{Field: "quantity", Value: raw, Reason: "missing"}
	}
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &Error{Field: "quantity", Value: raw, Reason: "not numeric"}
	}
	if q.IsNegative() {
		return decimal.Zero, &Error{Field: "quantity", Value: raw, Reason: "negative"}
	}
	return q, nil
}

// Price parses an arbitrary-precision signed decimal. Zero is valid and
// semantically meaningful (spread legs book at zero).
func Price(raw string) (decimal.Decimal, error) {
	s := strings.ReplaceAll(trim(raw), ",", "")
	if s == "" {
		return decimal.Zero, &Error{Field: "price", Value: raw, Reason: "missing"}
	}
	p, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &Error{Field: "price", Value: raw, Reason: "not numeric"}
	}
	return p, nil
}

// UnitFor resolves a record's quantity unit. The exchange side always
// declares it; the trader side may omit it, in which case the per-product
// default table decides.
func UnitFor(raw string, product string, source models.Source, gc *config.GroupConfig) (models.Unit, error) {
	s := strings.ToUpper(trim(raw))
	if s == "" {
		if source == models.SourceExchange {
			return "", &Error{Field: "unit", Value: raw, Reason: "exchange record without declared unit"}
		}
		if def, ok := gc.TraderUnitDefaults[product]; ok {
			s = def
		} else {
			s = gc.DefaultTraderUnit
		}
	}
	switch s {
	case "MT", "TONNES", "TONS":
		return models.UnitMT, nil
	case "BBL", "BARRELS":
		return models.UnitBBL, nil
	default:
		return "", &Error{Field: "unit", Value: raw, Reason: "unknown unit"}
	}
}

// BrokerGroupID parses integer-ish id strings; truly absent values stay nil.
func BrokerGroupID(raw string) (*int64, error) {
	s := trim(raw)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, &Error{Field: "broker_group_id", Value: raw, Reason: "not an integer"}
	}
	return &n, nil
}

// ClearingAcctID keeps the trimmed id; absent stays nil.
func ClearingAcctID(raw string) *string {
	s := trim(raw)
	if s == "" {
		return nil
	}
	return &s
}

// Strike parses an optional SGX option strike.
func Strike(raw string) (*decimal.Decimal, error) {
	s := strings.ReplaceAll(trim(raw), ",", "")
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, &Error{Field: "strike", Value: raw, Reason: "not numeric"}
	}
	return &d, nil
}

// PutCall canonicalizes the option flag to "P"/"C"; absent stays empty.
func PutCall(raw string) (string, error) {
	switch strings.ToUpper(trim(raw)) {
	case "":
		return "", nil
	case "P", "PUT":
		return "P", nil
	case "C", "CALL":
		return "C", nil
	default:
		return "", &Error{Field: "put_call", Value: raw, Reason: "unknown option flag"}
	}
}

// Trade materializes one raw record into the immutable canonical Trade.
// seq fixes the record's position in the deterministic scan order.
func Trade(raw models.RawTrade, source models.Source, seq int, gc *config.GroupConfig) (models.Trade, error) {
	product := Product(raw.Product, gc)
	if product == "" {
		return models.Trade{}, &Error{Field: "product", Value: raw.Product, Reason: "missing"}
	}

	month, err := Month(raw.ContractMonth, gc.MonthFormat)
	if err != nil {
		return models.Trade{}, err
	}
	side, err := BuySell(raw.BuySell)
	if err != nil {
		return models.Trade{}, err
	}
	qty, err := Quantity(raw.Quantity)
	if err != nil {
		return models.Trade{}, err
	}
	price, err := Price(raw.Price)
	if err != nil {
		return models.Trade{}, err
	}
	unit, err := UnitFor(raw.Unit, product, source, gc)
	if err != nil {
		return models.Trade{}, err
	}
	broker, err := BrokerGroupID(raw.BrokerGroupID)
	if err != nil {
		return models.Trade{}, err
	}
	strike, err := Strike(raw.Strike)
	if err != nil {
		return models.Trade{}, err
	}
	putCall, err := PutCall(raw.PutCall)
	if err != nil {
		return models.Trade{}, err
	}

	rawFields := map[string]string{
		"product":        raw.Product,
		"contract_month": raw.ContractMonth,
		"quantity":       raw.Quantity,
		"price":          raw.Price,
		"buy_sell":       raw.BuySell,
	}
	for k, v := range raw.Fields {
		rawFields[k] = v
	}

	return models.Trade{
		ID:             raw.ID,
		Source:         source,
		Product:        product,
		BaseProduct:    BaseProduct(product),
		ContractMonth:  month,
		Quantity:       qty,
		Unit:           unit,
		Price:          price,
		BuySell:        side,
		BrokerGroupID:  broker,
		ClearingAcctID: ClearingAcctID(raw.ClearingAcctID),
		DealID:         trim(raw.DealID),
		TradeID:        trim(raw.TradeID),
		Strike:         strike,
		PutCall:        putCall,
		SpreadFlag:     strings.ToUpper(trim(raw.SpreadFlag)),
		TradeTime:      trim(raw.TradeTime),
		Seq:            seq,
		Raw:            rawFields,
	}, nil
}

// Records normalizes a full side. Rejected records are returned with their
// errors; the caller logs them and proceeds with the survivors.
func Records(raws []models.RawTrade, source models.Source, gc *config.GroupConfig) ([]models.Trade, []error) {
	trades := make([]models.Trade, 0, len(raws))
	var rejected []error
	for i, raw := range raws {
		t, err := Trade(raw, source, i, gc)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("record %s: %w", raw.ID, err))
			continue
		}
		trades = append(trades, t)
	}
	return trades, rejected
}
