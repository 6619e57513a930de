package recon

import (
	"testing"

	"github.com/rawblock/recon-engine/pkg/models"
)

func TestRuleProductSpread_Hyphenated(t *testing.T) {
	// The exchange clears "marine 0.5%-380cst" as one record; the trader
	// books a sell of marine 0.5% and a buy of 380cst whose price difference
	// is the cleared spread: 430.00 - 423.75 = 6.25.
	e := trade("e1", models.SourceExchange, "marine 0.5%-380cst", "Aug-25", "1000", models.UnitMT, "6.25", models.Sell)
	a := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "1000", models.UnitMT, "430.00", models.Sell)
	b := trade("t2", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "423.75", models.Buy)

	p := newTestPool([]models.Trade{a, b}, []models.Trade{e})
	gc := ice()
	matches := ruleProductSpread(p, ruleCfg(gc, "product_spread"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 product spread match, got %d", len(matches))
	}
	m := matches[0]
	if m.Confidence != 75 {
		t.Errorf("expected confidence 75, got %d", m.Confidence)
	}
	if len(m.TraderIDs) != 2 || len(m.ExchangeIDs) != 1 {
		t.Errorf("product spread should claim 2+1 records, got %v / %v", m.TraderIDs, m.ExchangeIDs)
	}
	if m.Audit["component_spread"] != "6.25" {
		t.Errorf("expected component_spread 6.25, got %q", m.Audit["component_spread"])
	}
}

func TestRuleProductSpread_DirectionSemantics(t *testing.T) {
	// Selling A-B means selling A and buying B. Both trader legs on the same
	// direction break the decomposition.
	e := trade("e1", models.SourceExchange, "marine 0.5%-380cst", "Aug-25", "1000", models.UnitMT, "6.25", models.Sell)
	a := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "1000", models.UnitMT, "430.00", models.Sell)
	b := trade("t2", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "423.75", models.Sell)

	p := newTestPool([]models.Trade{a, b}, []models.Trade{e})
	gc := ice()
	if got := ruleProductSpread(p, ruleCfg(gc, "product_spread"), gc); len(got) != 0 {
		t.Fatalf("same-direction legs must not match, got %d", len(got))
	}
}

func TestRuleProductSpread_NonHyphenatedIgnored(t *testing.T) {
	e := trade("e1", models.SourceExchange, "marine 0.5%", "Aug-25", "1000", models.UnitMT, "430.00", models.Sell)
	a := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "1000", models.UnitMT, "430.00", models.Sell)

	p := newTestPool([]models.Trade{a}, []models.Trade{e})
	gc := ice()
	if got := ruleProductSpread(p, ruleCfg(gc, "product_spread"), gc); len(got) != 0 {
		t.Fatalf("plain products are not spread notation, got %d", len(got))
	}
}

func TestRuleProductSpreadTiered_Grading(t *testing.T) {
	gc := sgx()
	rc := ruleCfg(gc, "product_spread_tiered")

	build := func(flagA string, priceA, priceB string) (*Pool, []models.MatchResult) {
		e := trade("e1", models.SourceExchange, "gasoil-jet", "Aug25", "2000", models.UnitMT, "4.50", models.Sell)
		a := trade("t1", models.SourceTrader, "gasoil", "Aug25", "2000", models.UnitMT, priceA, models.Sell)
		a.SpreadFlag = flagA
		b := trade("t2", models.SourceTrader, "jet", "Aug25", "2000", models.UnitMT, priceB, models.Buy)

		p := newTestPool([]models.Trade{a, b}, []models.Trade{e})
		return p, ruleProductSpreadTiered(p, rc, gc)
	}

	// Tier 1: an explicit PS marker on a trader leg.
	if _, matches := build("PS", "4.50", "0"); len(matches) != 1 || matches[0].Confidence != 95 {
		t.Errorf("PS-marked booking should match at 95, got %+v", matches)
	}

	// Tier 2: no marker but the {non-zero, 0} price pattern.
	if _, matches := build("", "4.50", "0"); len(matches) != 1 || matches[0].Confidence != 92 {
		t.Errorf("zero-legged booking should match at 92, got %+v", matches)
	}

	// Tier 3: both component prices fully booked.
	if _, matches := build("", "610.50", "606.00"); len(matches) != 1 || matches[0].Confidence != 90 {
		t.Errorf("fully priced booking should match at 90, got %+v", matches)
	}
}

func TestSplitHyphenated(t *testing.T) {
	cases := []struct {
		in          string
		first, last string
		ok          bool
	}{
		{"marine 0.5%-380cst", "marine 0.5%", "380cst", true},
		{"gasoil-jet", "gasoil", "jet", true},
		{"380cst", "", "", false},
		{"-jet", "", "", false},
		{"gasoil-", "", "", false},
	}
	for _, c := range cases {
		first, last, ok := SplitHyphenated(c.in)
		if ok != c.ok || first != c.first || last != c.last {
			t.Errorf("SplitHyphenated(%q) = %q, %q, %v; want %q, %q, %v",
				c.in, first, last, ok, c.first, c.last, c.ok)
		}
	}
}
