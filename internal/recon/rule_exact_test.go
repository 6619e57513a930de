package recon

import (
	"testing"

	"github.com/rawblock/recon-engine/pkg/models"
)

func TestRuleExact_FullSignature(t *testing.T) {
	// One marine 0.5% sell booked identically on both sides, with agreeing
	// broker group and clearing account.
	tt := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "2000", models.UnitMT, "476.75", models.Sell)
	tt.BrokerGroupID = broker(3)
	tt.ClearingAcctID = acct("18")
	et := trade("e1", models.SourceExchange, "marine 0.5%", "Aug-25", "2000.00", models.UnitMT, "476.75", models.Sell)
	et.BrokerGroupID = broker(3)
	et.ClearingAcctID = acct("18")

	p := newTestPool([]models.Trade{tt}, []models.Trade{et})
	gc := ice()
	matches := ruleExact(p, ruleCfg(gc, "exact"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 exact match, got %d", len(matches))
	}
	m := matches[0]
	if m.Confidence != 100 {
		t.Errorf("exact match confidence should be 100, got %d", m.Confidence)
	}
	if len(m.TraderIDs) != 1 || m.TraderIDs[0] != "t1" || len(m.ExchangeIDs) != 1 || m.ExchangeIDs[0] != "e1" {
		t.Errorf("wrong consumed ids: %v / %v", m.TraderIDs, m.ExchangeIDs)
	}
	if p.IsAvailable("t1") || p.IsAvailable("e1") {
		t.Error("matched records must leave the pool")
	}
}

func TestRuleExact_UniversalFieldMismatch(t *testing.T) {
	// Identical key fields but a different broker group: no match, ever.
	tt := trade("t1", models.SourceTrader, "marine 0.5%", "Aug-25", "2000", models.UnitMT, "476.75", models.Sell)
	tt.BrokerGroupID = broker(3)
	et := trade("e1", models.SourceExchange, "marine 0.5%", "Aug-25", "2000", models.UnitMT, "476.75", models.Sell)
	et.BrokerGroupID = broker(4)

	p := newTestPool([]models.Trade{tt}, []models.Trade{et})
	gc := ice()
	if got := ruleExact(p, ruleCfg(gc, "exact"), gc); len(got) != 0 {
		t.Fatalf("broker group mismatch must not match, got %d", len(got))
	}
}

func TestRuleExact_PriceMismatch(t *testing.T) {
	tt := trade("t1", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "420.00", models.Sell)
	et := trade("e1", models.SourceExchange, "380cst", "Aug-25", "1000", models.UnitMT, "420.05", models.Sell)

	p := newTestPool([]models.Trade{tt}, []models.Trade{et})
	gc := ice()
	if got := ruleExact(p, ruleCfg(gc, "exact"), gc); len(got) != 0 {
		t.Fatalf("price mismatch must not match, got %d", len(got))
	}
	if !p.IsAvailable("t1") || !p.IsAvailable("e1") {
		t.Error("unmatched records must stay in the pool")
	}
}

func TestRuleExact_OneToOneConsumption(t *testing.T) {
	// Two identical trader records against one exchange record: exactly one
	// match; the second trader record survives as residue.
	t1 := trade("t1", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "420.00", models.Sell)
	t2 := trade("t2", models.SourceTrader, "380cst", "Aug-25", "1000", models.UnitMT, "420.00", models.Sell)
	e1 := trade("e1", models.SourceExchange, "380cst", "Aug-25", "1000", models.UnitMT, "420.00", models.Sell)

	p := newTestPool([]models.Trade{t1, t2}, []models.Trade{e1})
	gc := ice()
	matches := ruleExact(p, ruleCfg(gc, "exact"), gc)

	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if p.AvailableCount(models.SourceTrader) != 1 {
		t.Error("exactly one trader record should remain")
	}
	if p.FailedClaims() != 0 {
		t.Errorf("no failed claims expected, got %d", p.FailedClaims())
	}
}

func TestRuleExactOpposite_DirectionFlip(t *testing.T) {
	// CME/EEX convention: the exchange statement shows the house side, so a
	// trader sell reconciles against an exchange buy.
	tt := trade("t1", models.SourceTrader, "ulsd", "Aug25", "500", models.UnitMT, "710.25", models.Sell)
	et := trade("e1", models.SourceExchange, "ulsd", "Aug25", "500", models.UnitMT, "710.25", models.Buy)

	p := newTestPool([]models.Trade{tt}, []models.Trade{et})
	gc := cme()
	matches := ruleExactOpposite(p, ruleCfg(gc, "exact_opposite"), gc)
	if len(matches) != 1 {
		t.Fatalf("expected 1 opposite-direction match, got %d", len(matches))
	}

	// The same dataset under the plain exact rule must not match.
	p2 := newTestPool([]models.Trade{tt}, []models.Trade{et})
	if got := ruleExact(p2, ruleCfg(gc, "exact_opposite"), gc); len(got) != 0 {
		t.Errorf("same-direction probe should miss, got %d", len(got))
	}
}
