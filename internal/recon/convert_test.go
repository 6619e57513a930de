package recon

import (
	"testing"

	"github.com/rawblock/recon-engine/pkg/models"
)

func TestToBBL_MarineRatio(t *testing.T) {
	// 2520 MT of marine 0.5% at the 6.35 ratio is 16002 barrels.
	got := ToBBL(d("2520"), models.UnitMT, "marine 0.5%", ice())
	if !got.Equal(d("16002")) {
		t.Errorf("expected 16002 BBL, got %s", got)
	}

	// Barrel quantities pass through untouched.
	got = ToBBL(d("16000"), models.UnitBBL, "marine 0.5%", ice())
	if !got.Equal(d("16000")) {
		t.Errorf("barrel passthrough changed the quantity: %s", got)
	}
}

func TestToBBL_DefaultRatio(t *testing.T) {
	// Products without a configured ratio fall back to the group default 7.0.
	got := ToBBL(d("100"), models.UnitMT, "gasoil", ice())
	if !got.Equal(d("700")) {
		t.Errorf("expected default ratio 7.0 to give 700, got %s", got)
	}
}

func TestQuantitiesMatch_Tolerance(t *testing.T) {
	// 2520 MT converts to 16002 BBL; a 16000 BBL clearing is 2 barrels off.
	if !QuantitiesMatch(d("2520"), d("16000"), "marine 0.5%", d("100"), ice()) {
		t.Error("2 barrel discrepancy should pass a 100 barrel tolerance")
	}
	if QuantitiesMatch(d("2520"), d("16000"), "marine 0.5%", d("1"), ice()) {
		t.Error("2 barrel discrepancy should fail a 1 barrel tolerance")
	}
}

func TestCrackPriceInvariant(t *testing.T) {
	// 427.99 / 6.35 - 64.05 = 3.35, exact in decimal.
	if !crackPriceHolds(d("427.99"), d("64.05"), d("3.35"), d("6.35")) {
		t.Error("crack price invariant should hold for the 427.99 decomposition")
	}
	if crackPriceHolds(d("427.99"), d("64.05"), d("3.36"), d("6.35")) {
		t.Error("a one cent crack discrepancy must fail the exact predicate")
	}

	derived := derivedCrackPrice(d("427.99"), d("64.05"), d("6.35"))
	if !derived.Equal(d("3.35")) {
		t.Errorf("derived crack should be 3.35, got %s", derived)
	}
}
