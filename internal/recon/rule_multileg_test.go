package recon

import (
	"testing"

	"github.com/rawblock/recon-engine/pkg/models"
)

func traderJunSepPair(booked string) []models.Trade {
	early := trade("t1", models.SourceTrader, "380cst", "Jun-25", "2000", models.UnitMT, booked, models.Buy)
	early.SpreadFlag = "S"
	late := trade("t2", models.SourceTrader, "380cst", "Sep-25", "2000", models.UnitMT, "0", models.Sell)
	late.SpreadFlag = "S"
	return []models.Trade{early, late}
}

func dealPair(idPrefix, dealID, earlyMonth, lateMonth, earlyPrice, latePrice string) []models.Trade {
	a := trade(idPrefix+"a", models.SourceExchange, "380cst", earlyMonth, "2000", models.UnitMT, earlyPrice, models.Buy)
	a.DealID = dealID
	b := trade(idPrefix+"b", models.SourceExchange, "380cst", lateMonth, "2000", models.UnitMT, latePrice, models.Sell)
	b.DealID = dealID
	return []models.Trade{a, b}
}

func TestRuleMultilegSpread_FourLegChain(t *testing.T) {
	// A trader Jun/Sep spread at 10.00 clears as two chained exchange
	// spreads: Jun/Aug at (425 - 418 = 7) and Aug/Sep at (418 - 415 = 3).
	// The Aug middle legs net exactly.
	trader := traderJunSepPair("10.00")
	var exchange []models.Trade
	exchange = append(exchange, dealPair("d1", "DA", "Jun-25", "Aug-25", "425.00", "418.00")...)
	exchange = append(exchange, dealPair("d2", "DB", "Aug-25", "Sep-25", "418.00", "415.00")...)

	p := newTestPool(trader, exchange)
	gc := ice()
	matches := ruleMultilegSpread(p, ruleCfg(gc, "multileg_spread"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 multileg match, got %d", len(matches))
	}
	m := matches[0]
	if m.Confidence != 68 {
		t.Errorf("expected confidence 68, got %d", m.Confidence)
	}
	if len(m.TraderIDs) != 2 || len(m.ExchangeIDs) != 4 {
		t.Errorf("tier 1 should claim 2+4 records, got %v / %v", m.TraderIDs, m.ExchangeIDs)
	}
	if m.Audit["legs"] != "4" {
		t.Errorf("expected a 4-leg decomposition, got %q", m.Audit["legs"])
	}
	if m.Audit["spread_price_sum"] != "10" {
		t.Errorf("expected spread_price_sum 10, got %q", m.Audit["spread_price_sum"])
	}
}

func TestRuleMultilegSpread_SixLegChain(t *testing.T) {
	// Three chained spreads Jun/Jul + Jul/Aug + Aug/Sep summing 3 + 2 + 5 =
	// 10. The middle legs do not net (different prices), so only the 6-leg
	// tier can take it.
	trader := traderJunSepPair("10.00")
	var exchange []models.Trade
	exchange = append(exchange, dealPair("d1", "DA", "Jun-25", "Jul-25", "425.00", "422.00")...)
	exchange = append(exchange, dealPair("d2", "DB", "Jul-25", "Aug-25", "421.50", "419.50")...)
	exchange = append(exchange, dealPair("d3", "DC", "Aug-25", "Sep-25", "419.00", "414.00")...)

	p := newTestPool(trader, exchange)
	gc := ice()
	matches := ruleMultilegSpread(p, ruleCfg(gc, "multileg_spread"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 six-leg match, got %d", len(matches))
	}
	m := matches[0]
	if len(m.ExchangeIDs) != 6 {
		t.Errorf("tier 2 should claim 6 exchange legs, got %v", m.ExchangeIDs)
	}
	if m.Audit["legs"] != "6" {
		t.Errorf("expected a 6-leg decomposition, got %q", m.Audit["legs"])
	}
}

func TestRuleMultilegSpread_SumMismatch(t *testing.T) {
	trader := traderJunSepPair("10.50")
	var exchange []models.Trade
	exchange = append(exchange, dealPair("d1", "DA", "Jun-25", "Aug-25", "425.00", "418.00")...)
	exchange = append(exchange, dealPair("d2", "DB", "Aug-25", "Sep-25", "418.00", "415.00")...)

	p := newTestPool(trader, exchange)
	gc := ice()
	if got := ruleMultilegSpread(p, ruleCfg(gc, "multileg_spread"), gc); len(got) != 0 {
		t.Fatalf("7 + 3 != 10.50, chain must not match, got %d", len(got))
	}
}

func TestRuleMultilegSpread_ZeroSpreadLeftToSimplerRules(t *testing.T) {
	trader := traderJunSepPair("0")
	var exchange []models.Trade
	exchange = append(exchange, dealPair("d1", "DA", "Jun-25", "Aug-25", "418.00", "418.00")...)
	exchange = append(exchange, dealPair("d2", "DB", "Aug-25", "Sep-25", "418.00", "418.00")...)

	p := newTestPool(trader, exchange)
	gc := ice()
	if got := ruleMultilegSpread(p, ruleCfg(gc, "multileg_spread"), gc); len(got) != 0 {
		t.Fatalf("all-zero trader spreads are out of scope here, got %d", len(got))
	}
}
