package recon

import (
	"github.com/shopspring/decimal"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/internal/normalize"
	"github.com/rawblock/recon-engine/pkg/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func broker(n int64) *int64 { return &n }
func acct(s string) *string { return &s }

// trade builds a record the way the normalizer would emit it.
func trade(id string, src models.Source, product, month, qty string, unit models.Unit, price string, side models.Side) models.Trade {
	return models.Trade{
		ID:            id,
		Source:        src,
		Product:       product,
		BaseProduct:   normalize.BaseProduct(product),
		ContractMonth: month,
		Quantity:      d(qty),
		Unit:          unit,
		Price:         d(price),
		BuySell:       side,
	}
}

// newTestPool stamps ingest sequence numbers and materializes the pool.
func newTestPool(trader, exchange []models.Trade) *Pool {
	for i := range trader {
		trader[i].Seq = i
	}
	for i := range exchange {
		exchange[i].Seq = i
	}
	return NewPool(trader, exchange)
}

func ice() *config.GroupConfig { return config.Defaults()["ICE"] }
func sgx() *config.GroupConfig { return config.Defaults()["SGX"] }
func cme() *config.GroupConfig { return config.Defaults()["CME"] }

func ruleCfg(gc *config.GroupConfig, id string) config.RuleConfig {
	for _, rc := range gc.Rules {
		if rc.ID == id {
			return rc
		}
	}
	panic("rule id not configured: " + id)
}
