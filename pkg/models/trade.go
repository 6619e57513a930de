package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Source identifies which side of the reconciliation a record came from.
type Source string

const (
	SourceTrader   Source = "TRADER"
	SourceExchange Source = "EXCHANGE"
)

// Side is the canonical buy/sell direction of a trade.
type Side string

const (
	Buy  Side = "B"
	Sell Side = "S"
)

// Opposite returns the reverse direction.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Unit is the quantity unit a record was booked in.
type Unit string

const (
	UnitMT  Unit = "MT"  // metric tonnes
	UnitBBL Unit = "BBL" // barrels
)

// Trade represents one executed lot on one side of the reconciliation.
// A Trade is immutable once created: the base product derivation and the
// trader-side unit default are applied at ingest and frozen.
type Trade struct {
	ID            string `json:"id"`     // unique within a run; the consumption key
	Source        Source `json:"source"` // TRADER or EXCHANGE
	Product       string `json:"product"`       // canonical product name (lower-case, punctuation preserved)
	BaseProduct   string `json:"baseProduct"`   // for "X crack" products the X; otherwise = Product
	ContractMonth string `json:"contractMonth"` // canonical per exchange dialect, e.g. "Aug-25" or "Aug25"

	Quantity decimal.Decimal `json:"quantity"` // non-negative, in the record's native unit
	Unit     Unit            `json:"unit"`
	Price    decimal.Decimal `json:"price"` // signed; zero is a valid value
	BuySell  Side            `json:"buySell"`

	// Universal fields. Every record of every match must agree on these;
	// nil compares equal only to nil.
	BrokerGroupID  *int64  `json:"brokerGroupId,omitempty"`
	ClearingAcctID *string `json:"clearingAcctId,omitempty"`

	// Exchange-side pairing hints.
	DealID  string `json:"dealId,omitempty"`
	TradeID string `json:"tradeId,omitempty"`

	// SGX options only.
	Strike  *decimal.Decimal `json:"strike,omitempty"`
	PutCall string           `json:"putCall,omitempty"` // "P" or "C"

	SpreadFlag string `json:"spreadFlag,omitempty"` // trader spread marker ("S", "PS")
	TradeTime  string `json:"tradeTime,omitempty"`  // raw execution timestamp as booked

	Seq int `json:"seq"` // ingest order; fixes deterministic scan order

	Raw map[string]string `json:"raw,omitempty"` // original field values for audit
}

// IsCrack reports whether the product expresses a crack spread.
func (t *Trade) IsCrack() bool {
	return strings.Contains(t.Product, "crack")
}

// MatchResult records one successful rule invocation against a specific
// tuple of records. TraderIDs and ExchangeIDs together name every record
// consumed by the match. Equality is by payload.
type MatchResult struct {
	MatchID       string            `json:"matchId"`
	RuleID        string            `json:"ruleId"`
	Confidence    int               `json:"confidence"` // fixed per-rule constant, 0-100
	TraderIDs     []string          `json:"traderIds"`
	ExchangeIDs   []string          `json:"exchangeIds"`
	MatchedFields []string          `json:"matchedFields"`
	Audit         map[string]string `json:"audit,omitempty"` // aggregated sums, converted quantities, derived prices
}

// RawTrade is the boundary type produced by the ingest readers before
// normalization. All fields are verbatim source text; empty string means
// the field was absent.
type RawTrade struct {
	ID             string            `json:"id"`
	ExchangeGroup  string            `json:"exchangeGroup"` // ICE, SGX, CME, EEX
	Product        string            `json:"product"`
	ContractMonth  string            `json:"contractMonth"`
	Quantity       string            `json:"quantity"`
	Unit           string            `json:"unit"`
	Price          string            `json:"price"`
	BuySell        string            `json:"buySell"`
	BrokerGroupID  string            `json:"brokerGroupId"`
	ClearingAcctID string            `json:"clearingAcctId"`
	DealID         string            `json:"dealId"`
	TradeID        string            `json:"tradeId"`
	Strike         string            `json:"strike"`
	PutCall        string            `json:"putCall"`
	SpreadFlag     string            `json:"spreadFlag"`
	TradeTime      string            `json:"tradeTime"`
	Fields         map[string]string `json:"fields,omitempty"` // everything else, kept for audit
}
