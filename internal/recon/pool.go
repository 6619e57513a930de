// Package recon implements the matching core: the unmatched pool, the shared
// rule primitives (signatures, unit conversion, leg-pair recognition,
// aggregation) and the per-exchange rule processors, driven by an ordered
// pipeline. The core is pure: it consumes normalized trades and a read-only
// configuration bundle and produces match results plus a residue.
package recon

import (
	"github.com/rawblock/recon-engine/pkg/models"
)

// Pool holds the records still eligible to match, one set per side, plus the
// dual set of consumed ids. It is single-threaded and owned exclusively by
// the pipeline driver; every record leaves it exactly once, through Claim.
type Pool struct {
	trades map[string]*models.Trade
	order  map[models.Source][]string // ids in ingest order, fixes scan determinism
	avail  map[string]bool
	source map[string]models.Source

	failedClaims int
}

// NewPool materializes both sides into a fresh pool. Duplicate ids within a
// run are a structural error on the producer side; the later record wins to
// keep the pool consistent.
func NewPool(trader, exchange []models.Trade) *Pool {
	p := &Pool{
		trades: make(map[string]*models.Trade, len(trader)+len(exchange)),
		order:  make(map[models.Source][]string, 2),
		avail:  make(map[string]bool, len(trader)+len(exchange)),
		source: make(map[string]models.Source, len(trader)+len(exchange)),
	}
	for i := range trader {
		p.add(&trader[i], models.SourceTrader)
	}
	for i := range exchange {
		p.add(&exchange[i], models.SourceExchange)
	}
	return p
}

func (p *Pool) add(t *models.Trade, src models.Source) {
	if _, dup := p.trades[t.ID]; !dup {
		p.order[src] = append(p.order[src], t.ID)
	}
	p.trades[t.ID] = t
	p.avail[t.ID] = true
	p.source[t.ID] = src
}

// Available returns the still-eligible records on one side, in ingest order.
// The slice is a snapshot: consuming records during iteration is safe, and
// claimed records are simply skipped by the claim primitive.
func (p *Pool) Available(src models.Source) []*models.Trade {
	out := make([]*models.Trade, 0, len(p.order[src]))
	for _, id := range p.order[src] {
		if p.avail[id] {
			out = append(out, p.trades[id])
		}
	}
	return out
}

// IsAvailable reports whether a single record is still eligible.
func (p *Pool) IsAvailable(id string) bool {
	return p.avail[id]
}

// AvailableCount returns the number of still-eligible records on one side.
func (p *Pool) AvailableCount(src models.Source) int {
	n := 0
	for _, id := range p.order[src] {
		if p.avail[id] {
			n++
		}
	}
	return n
}

// Claim atomically consumes the named records. It succeeds only if every id
// is currently available on its declared side; otherwise it changes nothing
// and returns false. This is the sole path by which records leave the pool.
func (p *Pool) Claim(traderIDs, exchangeIDs []string) bool {
	for _, id := range traderIDs {
		if !p.avail[id] || p.source[id] != models.SourceTrader {
			p.failedClaims++
			return false
		}
	}
	for _, id := range exchangeIDs {
		if !p.avail[id] || p.source[id] != models.SourceExchange {
			p.failedClaims++
			return false
		}
	}
	for _, id := range traderIDs {
		p.avail[id] = false
	}
	for _, id := range exchangeIDs {
		p.avail[id] = false
	}
	return true
}

// Residue returns the final unmatched set for one side, in ingest order.
func (p *Pool) Residue(src models.Source) []models.Trade {
	out := make([]models.Trade, 0)
	for _, id := range p.order[src] {
		if p.avail[id] {
			out = append(out, *p.trades[id])
		}
	}
	return out
}

// FailedClaims counts rejected claim attempts. In a single-threaded run a
// non-zero count indicates a rule emitted the same record twice; production
// skips silently, development asserts on it.
func (p *Pool) FailedClaims() int {
	return p.failedClaims
}

// Trade resolves an id regardless of availability, for audit rendering.
func (p *Pool) Trade(id string) *models.Trade {
	return p.trades[id]
}
