// Package dispatch routes mixed raw records to per-exchange-group
// pipelines. Each group's run is an independent data structure: pools are
// never shared, and group results merge only at the report boundary.
package dispatch

import (
	"fmt"
	"log"
	"sort"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/internal/normalize"
	"github.com/rawblock/recon-engine/internal/recon"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Dispatcher partitions trader and exchange records by exchange group and
// drives one pipeline per group, in deterministic group-name order.
type Dispatcher struct {
	groups map[string]*config.GroupConfig
}

// Outcome collects one dispatch run: per-group results plus the records
// rejected at normalization, with their errors.
type Outcome struct {
	Results  []*recon.RunResult `json:"results"`
	Rejected []string           `json:"rejected,omitempty"`
}

func New(groups map[string]*config.GroupConfig) *Dispatcher {
	return &Dispatcher{groups: groups}
}

// Run partitions, normalizes and reconciles. Records naming an unknown
// exchange group are a configuration error: the whole run refuses to start,
// matching the fatal-configuration contract.
func (d *Dispatcher) Run(trader, exchange []models.RawTrade, observe func(models.MatchResult)) (*Outcome, error) {
	traderByGroup, err := d.partition(trader)
	if err != nil {
		return nil, err
	}
	exchangeByGroup, err := d.partition(exchange)
	if err != nil {
		return nil, err
	}

	names := make(map[string]bool)
	for g := range traderByGroup {
		names[g] = true
	}
	for g := range exchangeByGroup {
		names[g] = true
	}
	ordered := make([]string, 0, len(names))
	for g := range names {
		ordered = append(ordered, g)
	}
	sort.Strings(ordered)

	outcome := &Outcome{}
	for _, name := range ordered {
		gc := d.groups[name]
		pipeline, err := recon.NewPipeline(gc)
		if err != nil {
			return nil, err
		}

		traderTrades, rejectedT := normalize.Records(traderByGroup[name], models.SourceTrader, gc)
		exchangeTrades, rejectedE := normalize.Records(exchangeByGroup[name], models.SourceExchange, gc)
		for _, rej := range append(rejectedT, rejectedE...) {
			log.Printf("[Dispatch] %s: rejected %v", name, rej)
			outcome.Rejected = append(outcome.Rejected, rej.Error())
		}

		result := pipeline.RunWithObserver(traderTrades, exchangeTrades, observe)
		outcome.Results = append(outcome.Results, result)
	}
	return outcome, nil
}

func (d *Dispatcher) partition(records []models.RawTrade) (map[string][]models.RawTrade, error) {
	out := make(map[string][]models.RawTrade)
	for _, r := range records {
		group := r.ExchangeGroup
		if group == "" {
			return nil, &config.ConfigError{Field: "exchange_group", Reason: fmt.Sprintf("record %s without exchange group", r.ID)}
		}
		if _, ok := d.groups[group]; !ok {
			return nil, &config.ConfigError{Field: "exchange_group", Reason: fmt.Sprintf("record %s names unknown group %q", r.ID, group)}
		}
		out[group] = append(out[group], r)
	}
	return out, nil
}
