package recon

import (
	"testing"

	"github.com/rawblock/recon-engine/pkg/models"
)

func TestRuleAggComplexCrack_AggregatedBaseLeg(t *testing.T) {
	// The complex crack decomposition with the base leg filled twice: two
	// 2500 MT fills at the shared 427.99 stand in for the 5000 MT base.
	tt := trade("t1", models.SourceTrader, "marine 0.5% crack", "Aug-25", "5000", models.UnitMT, "3.35", models.Sell)
	b1 := trade("e1", models.SourceExchange, "marine 0.5%", "Aug-25", "2500", models.UnitMT, "427.99", models.Sell)
	b2 := trade("e2", models.SourceExchange, "marine 0.5%", "Aug-25", "2500", models.UnitMT, "427.99", models.Sell)
	brent := trade("e3", models.SourceExchange, "brent swap", "Aug-25", "31750", models.UnitBBL, "64.05", models.Buy)

	p := newTestPool([]models.Trade{tt}, []models.Trade{b1, b2, brent})
	gc := ice()
	matches := ruleAggComplexCrack(p, ruleCfg(gc, "agg_complex_crack"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 aggregated complex crack match, got %d", len(matches))
	}
	m := matches[0]
	if m.Confidence != 65 {
		t.Errorf("expected confidence 65, got %d", m.Confidence)
	}
	if len(m.ExchangeIDs) != 3 {
		t.Errorf("should claim 2 base fills + 1 brent, got %v", m.ExchangeIDs)
	}
	if m.Audit["aggregated_base"] != "5000" {
		t.Errorf("expected aggregated_base 5000, got %q", m.Audit["aggregated_base"])
	}
}

func TestRuleAggComplexCrack_SingleFillLeftToPlainRule(t *testing.T) {
	// One base fill is the plain complex crack case; this rule requires a
	// group of at least two.
	tt := trade("t1", models.SourceTrader, "marine 0.5% crack", "Aug-25", "5000", models.UnitMT, "3.35", models.Sell)
	b1 := trade("e1", models.SourceExchange, "marine 0.5%", "Aug-25", "5000", models.UnitMT, "427.99", models.Sell)
	brent := trade("e2", models.SourceExchange, "brent swap", "Aug-25", "31750", models.UnitBBL, "64.05", models.Buy)

	p := newTestPool([]models.Trade{tt}, []models.Trade{b1, brent})
	gc := ice()
	if got := ruleAggComplexCrack(p, ruleCfg(gc, "agg_complex_crack"), gc); len(got) != 0 {
		t.Fatalf("single-fill base belongs to the plain rule, got %d", len(got))
	}
}

func TestRuleAggCalendarSpread_PartialFillLegs(t *testing.T) {
	// A Jun/Jul spread whose early exchange leg cleared in two fills of 2000
	// and 3000. The virtual Jun position carries 5000 and the spread
	// differential 425.50 - 409.00 = 16.50 matches the trader booking.
	tEarly := trade("t1", models.SourceTrader, "380cst", "Jun-25", "5000", models.UnitMT, "16.50", models.Buy)
	tEarly.SpreadFlag = "S"
	tLate := trade("t2", models.SourceTrader, "380cst", "Jul-25", "5000", models.UnitMT, "0", models.Sell)
	tLate.SpreadFlag = "S"

	e1 := trade("e1", models.SourceExchange, "380cst", "Jun-25", "2000", models.UnitMT, "425.50", models.Buy)
	e2 := trade("e2", models.SourceExchange, "380cst", "Jun-25", "3000", models.UnitMT, "425.50", models.Buy)
	e3 := trade("e3", models.SourceExchange, "380cst", "Jul-25", "5000", models.UnitMT, "409.00", models.Sell)

	p := newTestPool([]models.Trade{tEarly, tLate}, []models.Trade{e1, e2, e3})
	gc := ice()
	matches := ruleAggCalendarSpread(p, ruleCfg(gc, "agg_calendar_spread"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 aggregated calendar spread match, got %d", len(matches))
	}
	m := matches[0]
	if m.Confidence != 70 {
		t.Errorf("expected confidence 70, got %d", m.Confidence)
	}
	if len(m.TraderIDs) != 2 || len(m.ExchangeIDs) != 3 {
		t.Errorf("should claim 2 trader + 3 exchange records, got %v / %v", m.TraderIDs, m.ExchangeIDs)
	}
	if p.AvailableCount(models.SourceExchange) != 0 {
		t.Error("all exchange fills should be consumed")
	}
}

func TestRuleAggCalendarSpread_TwoUnderlyingLeftToPlainRule(t *testing.T) {
	// With one fill per month the plain calendar spread rule owns the case.
	tEarly := trade("t1", models.SourceTrader, "380cst", "Jun-25", "5000", models.UnitMT, "16.50", models.Buy)
	tEarly.SpreadFlag = "S"
	tLate := trade("t2", models.SourceTrader, "380cst", "Jul-25", "5000", models.UnitMT, "0", models.Sell)
	tLate.SpreadFlag = "S"

	e1 := trade("e1", models.SourceExchange, "380cst", "Jun-25", "5000", models.UnitMT, "425.50", models.Buy)
	e2 := trade("e2", models.SourceExchange, "380cst", "Jul-25", "5000", models.UnitMT, "409.00", models.Sell)

	p := newTestPool([]models.Trade{tEarly, tLate}, []models.Trade{e1, e2})
	gc := ice()
	if got := ruleAggCalendarSpread(p, ruleCfg(gc, "agg_calendar_spread"), gc); len(got) != 0 {
		t.Fatalf("1+1 underlying belongs to the plain rule, got %d", len(got))
	}
}
