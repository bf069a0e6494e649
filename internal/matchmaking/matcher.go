// Package matchmaking pairs users into PvP matches: opponent selection,
// the request/enqueue/form flow, and the expired-entry sweep.
package matchmaking

import (
	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// wagerTolerance is the relative band an opponent's wager may deviate from
// the requester's and still be compatible. Inclusive at the boundary.
var wagerTolerance = decimal.RequireFromString("0.1")

// WagerCompatible reports whether a candidate wager sits within tolerance of
// the requested wager: |candidate - requested| <= 0.1 * requested.
func WagerCompatible(requested, candidate decimal.Decimal) bool {
	return candidate.Sub(requested).Abs().LessThanOrEqual(requested.Mul(wagerTolerance))
}

// BestCandidate picks the opponent for a request out of the waiting pool.
// Candidates outside the wager tolerance are discarded; among the rest the
// winner is the one whose position size is closest to the requested size,
// ties broken by earliest enqueue time. Returns nil when nobody qualifies.
//
// The pool is expected to be pre-filtered by class, liveness and ownership
// (see Store.WaitingCandidates); those predicates are re-checked here only
// where they are cheap, since a stale row is caught again by the claim at
// formation time.
func BestCandidate(pool []model.QueueCandidate, wager, position decimal.Decimal) *model.QueueCandidate {
	var best *model.QueueCandidate
	var bestDiff decimal.Decimal

	for i := range pool {
		c := &pool[i]
		if c.Status != model.QueueWaiting {
			continue
		}
		if !WagerCompatible(wager, c.WagerAmount) {
			continue
		}
		diff := c.PositionSize.Sub(position).Abs()
		switch {
		case best == nil:
			best, bestDiff = c, diff
		case diff.LessThan(bestDiff):
			best, bestDiff = c, diff
		case diff.Equal(bestDiff) && c.CreatedAt.Before(best.CreatedAt):
			best, bestDiff = c, diff
		}
	}
	return best
}
