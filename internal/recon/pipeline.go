package recon

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/rawblock/recon-engine/internal/config"
	"github.com/rawblock/recon-engine/pkg/models"
)

// Pipeline executes one exchange group's ordered rule list against one
// dataset. Rules run to completion in configured order; every rule sees a
// pool no larger than its predecessor's. Construction fails on a rule id
// the registry does not recognize, before any record is touched.
type Pipeline struct {
	gc    *config.GroupConfig
	rules []boundRule
}

type boundRule struct {
	cfg config.RuleConfig
	fn  RuleFunc
}

// Summary aggregates the run statistics surfaced alongside the match log.
type Summary struct {
	MatchesPerRule    map[string]int `json:"matchesPerRule"`
	TotalMatches      int            `json:"totalMatches"`
	TraderInput       int            `json:"traderInput"`
	ExchangeInput     int            `json:"exchangeInput"`
	TraderMatched     int            `json:"traderMatched"`
	ExchangeMatched   int            `json:"exchangeMatched"`
	TraderUnmatched   int            `json:"traderUnmatched"`
	ExchangeUnmatched int            `json:"exchangeUnmatched"`
	TraderMatchRate   float64        `json:"traderMatchRate"`
	ExchangeMatchRate float64        `json:"exchangeMatchRate"`
	FailedClaims      int            `json:"failedClaims"`
}

// RunResult is the terminal output of one pipeline run: the match log in
// emission order, both residues, and the summary.
type RunResult struct {
	RunID             string               `json:"runId"`
	Group             string               `json:"group"`
	Matches           []models.MatchResult `json:"matches"`
	UnmatchedTrader   []models.Trade       `json:"unmatchedTrader"`
	UnmatchedExchange []models.Trade       `json:"unmatchedExchange"`
	Summary           Summary              `json:"summary"`
}

// NewPipeline validates the group configuration and binds its rule list to
// the registry. Configuration errors are fatal: the pipeline refuses to
// start rather than run a partial rule sequence.
func NewPipeline(gc *config.GroupConfig) (*Pipeline, error) {
	if err := gc.Validate(); err != nil {
		return nil, err
	}
	rules := make([]boundRule, 0, len(gc.Rules))
	for _, rc := range gc.Rules {
		fn, ok := registry[rc.ID]
		if !ok {
			return nil, &config.ConfigError{Field: "rules", Reason: fmt.Sprintf("unrecognized rule id %q", rc.ID)}
		}
		rules = append(rules, boundRule{cfg: rc, fn: fn})
	}
	return &Pipeline{gc: gc, rules: rules}, nil
}

// Run executes the full rule sequence. Inputs are normalized trades for one
// exchange group; the pool is created here and owned exclusively by this
// call. Identical inputs and configuration produce an identical match log.
func (pl *Pipeline) Run(trader, exchange []models.Trade) *RunResult {
	return pl.RunWithObserver(trader, exchange, nil)
}

// RunWithObserver additionally invokes observe for every match as it is
// emitted, in log order. The observer must not retain the pool; it exists
// so a hosting service can stream progress while a run executes.
func (pl *Pipeline) RunWithObserver(trader, exchange []models.Trade, observe func(models.MatchResult)) *RunResult {
	pool := NewPool(trader, exchange)
	result := &RunResult{
		RunID: uuid.NewString(),
		Group: pl.gc.Group,
		Summary: Summary{
			MatchesPerRule: make(map[string]int, len(pl.rules)),
			TraderInput:    len(trader),
			ExchangeInput:  len(exchange),
		},
	}

	for _, br := range pl.rules {
		emitted := br.fn(pool, br.cfg, pl.gc)
		for _, m := range emitted {
			result.Matches = append(result.Matches, m)
			result.Summary.MatchesPerRule[br.cfg.ID] += 1
			result.Summary.TraderMatched += len(m.TraderIDs)
			result.Summary.ExchangeMatched += len(m.ExchangeIDs)
			if observe != nil {
				observe(m)
			}
		}
		if len(emitted) > 0 {
			log.Printf("[Pipeline] %s: rule %s matched %d tuple(s)", pl.gc.Group, br.cfg.ID, len(emitted))
		}
	}

	result.UnmatchedTrader = pool.Residue(models.SourceTrader)
	result.UnmatchedExchange = pool.Residue(models.SourceExchange)
	result.Summary.TotalMatches = len(result.Matches)
	result.Summary.TraderUnmatched = len(result.UnmatchedTrader)
	result.Summary.ExchangeUnmatched = len(result.UnmatchedExchange)
	result.Summary.FailedClaims = pool.FailedClaims()
	if result.Summary.TraderInput > 0 {
		result.Summary.TraderMatchRate = float64(result.Summary.TraderMatched) / float64(result.Summary.TraderInput)
	}
	if result.Summary.ExchangeInput > 0 {
		result.Summary.ExchangeMatchRate = float64(result.Summary.ExchangeMatched) / float64(result.Summary.ExchangeInput)
	}
	return result
}
