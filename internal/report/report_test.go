package report

import (
	"strings"
	"testing"

	"github.com/rawblock/recon-engine/internal/recon"
)

func TestRender_Summary(t *testing.T) {
	r := &recon.RunResult{
		RunID: "run-1",
		Group: "ICE",
		Summary: recon.Summary{
			MatchesPerRule:    map[string]int{"exact": 2, "calendar_spread": 1},
			TotalMatches:      3,
			TraderInput:       10,
			ExchangeInput:     12,
			TraderMatched:     4,
			ExchangeMatched:   4,
			TraderUnmatched:   6,
			ExchangeUnmatched: 8,
			TraderMatchRate:   0.4,
			ExchangeMatchRate: 0.3333,
		},
	}

	out := Render(r)
	for _, want := range []string{"run-1", "ICE", "exact", "calendar_spread", "unmatched: 6 trader, 8 exchange"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "failed claims") {
		t.Error("clean runs should not warn about failed claims")
	}

	r.Summary.FailedClaims = 2
	if !strings.Contains(Render(r), "failed claims: 2") {
		t.Error("failed claims should surface in the report")
	}
}
