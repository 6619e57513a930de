package recon

import (
	"testing"

	"github.com/rawblock/recon-engine/pkg/models"
)

func TestRuleAggProductSpread_Tier1ComponentFills(t *testing.T) {
	// Trader books the two component legs once; the exchange cleared the
	// marine component in two fills. 430.00 - 423.75 = 6.25 either way.
	a := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "1000", models.UnitMT, "430.00", models.Sell)
	b := trade("t2", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "423.75", models.Buy)

	e1 := trade("e1", models.SourceExchange, "marine 0.5%", "Aug-25", "400", models.UnitMT, "430.00", models.Sell)
	e2 := trade("e2", models.SourceExchange, "marine 0.5%", "Aug-25", "600", models.UnitMT, "430.00", models.Sell)
	e3 := trade("e3", models.SourceExchange, "380cst", "Aug-25", "1000", models.UnitMT, "423.75", models.Buy)

	p := newTestPool([]models.Trade{a, b}, []models.Trade{e1, e2, e3})
	gc := ice()
	matches := ruleAggProductSpread(p, ruleCfg(gc, "agg_product_spread"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 tier-1 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Confidence != 62 {
		t.Errorf("expected confidence 62, got %d", m.Confidence)
	}
	if m.Audit["tier"] != "1" {
		t.Errorf("expected tier 1, got %q", m.Audit["tier"])
	}
	if len(m.TraderIDs) != 2 || len(m.ExchangeIDs) != 3 {
		t.Errorf("expected 2+3 consumption, got %v / %v", m.TraderIDs, m.ExchangeIDs)
	}
}

func TestRuleAggProductSpread_Tier2TraderFills(t *testing.T) {
	// One hyphenated exchange clear for the full 1000; the trader worked the
	// marine component in two fills.
	t1 := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "400", models.UnitMT, "430.00", models.Sell)
	t2 := trade("t2", models.SourceTrader, "marine 0.5%", "Aug-25", "600", models.UnitMT, "430.00", models.Sell)
	t3 := trade("t3", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "423.75", models.Buy)

	e1 := trade("e1", models.SourceExchange, "marine 0.5%-380cst", "Aug-25", "1000", models.UnitMT, "6.25", models.Sell)

	p := newTestPool([]models.Trade{t1, t2, t3}, []models.Trade{e1})
	gc := ice()
	matches := ruleAggProductSpread(p, ruleCfg(gc, "agg_product_spread"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 tier-2 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Audit["tier"] != "2" {
		t.Errorf("expected tier 2, got %q", m.Audit["tier"])
	}
	if len(m.TraderIDs) != 3 || len(m.ExchangeIDs) != 1 {
		t.Errorf("expected 3+1 consumption, got %v / %v", m.TraderIDs, m.ExchangeIDs)
	}
}

func TestRuleAggProductSpread_Tier3RepeatedPairs(t *testing.T) {
	// The trader booked the same 500 MT component pair twice; the exchange
	// cleared each component once for the full 1000. Only the spread has to
	// line up, 431.00 - 424.75 = 430.00 - 423.75 = 6.25.
	t1 := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "500", models.UnitMT, "430.00", models.Sell)
	t2 := trade("t2", models.SourceTrader, "380cst", "Aug-25", "500", models.UnitMT, "423.75", models.Buy)
	t3 := trade("t3", models.SourceTrader, "marine 0.5%", "Aug-25", "500", models.UnitMT, "430.00", models.Sell)
	t4 := trade("t4", models.SourceTrader, "380cst", "Aug-25", "500", models.UnitMT, "423.75", models.Buy)

	e1 := trade("e1", models.SourceExchange, "marine 0.5%", "Aug-25", "1000", models.UnitMT, "431.00", models.Sell)
	e2 := trade("e2", models.SourceExchange, "380cst", "Aug-25", "1000", models.UnitMT, "424.75", models.Buy)

	p := newTestPool([]models.Trade{t1, t2, t3, t4}, []models.Trade{e1, e2})
	gc := ice()
	matches := ruleAggProductSpread(p, ruleCfg(gc, "agg_product_spread"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 tier-3 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Audit["tier"] != "3" {
		t.Errorf("expected tier 3, got %q", m.Audit["tier"])
	}
	if len(m.TraderIDs) != 4 || len(m.ExchangeIDs) != 2 {
		t.Errorf("expected 4+2 consumption, got %v / %v", m.TraderIDs, m.ExchangeIDs)
	}
	if m.Audit["aggregated_quantity"] != "1000" {
		t.Errorf("expected aggregated_quantity 1000, got %q", m.Audit["aggregated_quantity"])
	}
}

func TestRuleAggProductSpread_Tier4RepeatedSpreads(t *testing.T) {
	// Two identical hyphenated spread clears of 500 MT against one trader
	// component pair booked for the full 1000.
	a := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "1000", models.UnitMT, "430.00", models.Sell)
	b := trade("t2", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "423.75", models.Buy)

	e1 := trade("e1", models.SourceExchange, "marine 0.5%-380cst", "Aug-25", "500", models.UnitMT, "6.25", models.Sell)
	e2 := trade("e2", models.SourceExchange, "marine 0.5%-380cst", "Aug-25", "500", models.UnitMT, "6.25", models.Sell)

	p := newTestPool([]models.Trade{a, b}, []models.Trade{e1, e2})
	gc := ice()
	matches := ruleAggProductSpread(p, ruleCfg(gc, "agg_product_spread"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 tier-4 match, got %d", len(matches))
	}
	m := matches[0]
	if m.Audit["tier"] != "4" {
		t.Errorf("expected tier 4, got %q", m.Audit["tier"])
	}
	if m.Audit["aggregated_quantity"] != "1000" {
		t.Errorf("expected aggregated_quantity 1000, got %q", m.Audit["aggregated_quantity"])
	}
}

func TestRuleAggProductSpread_SumMustBeExact(t *testing.T) {
	// 400 + 550 = 950 != 1000: no tolerance in the aggregated spread tiers.
	a := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "1000", models.UnitMT, "430.00", models.Sell)
	b := trade("t2", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "423.75", models.Buy)

	e1 := trade("e1", models.SourceExchange, "marine 0.5%", "Aug-25", "400", models.UnitMT, "430.00", models.Sell)
	e2 := trade("e2", models.SourceExchange, "marine 0.5%", "Aug-25", "550", models.UnitMT, "430.00", models.Sell)
	e3 := trade("e3", models.SourceExchange, "380cst", "Aug-25", "1000", models.UnitMT, "423.75", models.Buy)

	p := newTestPool([]models.Trade{a, b}, []models.Trade{e1, e2, e3})
	gc := ice()
	if got := ruleAggProductSpread(p, ruleCfg(gc, "agg_product_spread"), gc); len(got) != 0 {
		t.Fatalf("inexact component sum must not match, got %d", len(got))
	}
}
