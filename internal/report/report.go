// Package report renders run results for terminal consumption.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rawblock/recon-engine/internal/recon"
)

// Render produces a plain-text summary of one pipeline run: per-rule match
// counts in stable order, both match rates, and the residue sizes.
func Render(r *recon.RunResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reconciliation run %s (%s)\n", r.RunID, r.Group)
	fmt.Fprintf(&b, "  input: %d trader / %d exchange records\n",
		r.Summary.TraderInput, r.Summary.ExchangeInput)

	rules := make([]string, 0, len(r.Summary.MatchesPerRule))
	for id := range r.Summary.MatchesPerRule {
		rules = append(rules, id)
	}
	sort.Strings(rules)
	for _, id := range rules {
		fmt.Fprintf(&b, "  %-24s %d match(es)\n", id, r.Summary.MatchesPerRule[id])
	}

	fmt.Fprintf(&b, "  matched: %d trader (%.1f%%), %d exchange (%.1f%%)\n",
		r.Summary.TraderMatched, 100*r.Summary.TraderMatchRate,
		r.Summary.ExchangeMatched, 100*r.Summary.ExchangeMatchRate)
	fmt.Fprintf(&b, "  unmatched: %d trader, %d exchange\n",
		r.Summary.TraderUnmatched, r.Summary.ExchangeUnmatched)
	if r.Summary.FailedClaims > 0 {
		fmt.Fprintf(&b, "  failed claims: %d (duplicate emission suspected)\n", r.Summary.FailedClaims)
	}
	return b.String()
}
