package recon

import (
	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// ToBBL converts a quantity to barrels using the base product's configured
// ratio. Barrel inputs pass through; conversion is always MT -> BBL.
func ToBBL(q decimal.Decimal, unit models.Unit, baseProduct string, gc *config.GroupConfig) decimal.Decimal {
	if unit == models.UnitBBL {
		return q
	}
	return q.Mul(gc.Ratio(baseProduct))
}

// QuantitiesMatch reports whether a tonne quantity and a barrel quantity
// agree within the rule's barrel tolerance after conversion.
func QuantitiesMatch(qMT, qBBL decimal.Decimal, baseProduct string, tolBBL decimal.Decimal, gc *config.GroupConfig) bool {
	converted := qMT.Mul(gc.Ratio(baseProduct))
	return converted.Sub(qBBL).Abs().LessThanOrEqual(tolBBL)
}

// withinMT reports whether two tonne quantities agree within a tonne
// tolerance. Used by the complex crack family for the base-product leg.
func withinMT(a, b, tolMT decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolMT)
}

// crackPriceHolds checks the complex crack price invariant
//
//	price_base / ratio - price_brent == price_crack
//
// in exact decimal. The check multiplies through by the ratio so that no
// division (and therefore no rounding) happens inside the predicate.
func crackPriceHolds(priceBase, priceBrent, priceCrack, ratio decimal.Decimal) bool {
	return priceBase.Equal(ratio.Mul(priceBrent.Add(priceCrack)))
}

// derivedCrackPrice renders the computed crack for the audit map. Division
// is allowed here because the value is informational, never compared.
func derivedCrackPrice(priceBase, priceBrent, ratio decimal.Decimal) decimal.Decimal {
	return priceBase.Div(ratio).Sub(priceBrent)
}
