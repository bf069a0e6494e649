// Package draft assigns league draft positions by stake-weighted lottery.
package draft

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/obsanitylabs/fantasy-crypto/internal/metrics"
	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// Rand is the randomness source for the lottery. Tests substitute a
// deterministic sequence.
type Rand interface {
	Float64() float64
}

// lockedRand serializes draws. *math/rand.Rand is not safe for concurrent
// use and one Assigner serves every request handler, so the shared source
// must be guarded.
type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

// NewLockedRand wraps a source so concurrent assignment runs can share it.
func NewLockedRand(src Rand) Rand {
	return &lockedRand{src: src}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// Order runs the lottery over a draft pool. Each candidate scores
// StakeWeight(staked) + U[0,1); higher scores draft earlier. Staking tilts
// the odds without ever deciding the order outright.
func Order(pool []model.DraftCandidate, rng Rand) []model.DraftAssignment {
	type scored struct {
		cand  model.DraftCandidate
		score float64
	}
	scores := make([]scored, len(pool))
	for i, c := range pool {
		scores[i] = scored{c, model.StakeWeight(c.Staked) + rng.Float64()}
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	out := make([]model.DraftAssignment, len(scores))
	for i, s := range scores {
		out[i] = model.DraftAssignment{
			UserID:        s.cand.UserID,
			Position:      i + 1,
			StakedAtDraft: s.cand.Staked,
		}
	}
	return out
}

// Store is the persistence surface the assigner needs.
type Store interface {
	DraftPool(ctx context.Context, leagueID string) ([]model.DraftCandidate, error)
	WriteDraftPositions(ctx context.Context, leagueID string, order []model.DraftAssignment) error
}

type Assigner struct {
	store   Store
	rng     Rand
	metrics *metrics.Metrics
}

func NewAssigner(store Store, rng Rand, m *metrics.Metrics) *Assigner {
	return &Assigner{store: store, rng: rng, metrics: m}
}

// Assign reads a league's participant pool, runs the lottery and persists
// the resulting order. Positions are written all-or-nothing, so a concurrent
// assignment cannot leave the league half ordered.
func (a *Assigner) Assign(ctx context.Context, leagueID string) ([]model.DraftAssignment, error) {
	pool, err := a.store.DraftPool(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("read draft pool: %w", err)
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("league %s: %w", leagueID, model.ErrNotFound)
	}

	order := Order(pool, a.rng)
	if err := a.store.WriteDraftPositions(ctx, leagueID, order); err != nil {
		return nil, fmt.Errorf("write draft positions: %w", err)
	}
	a.metrics.DraftAssignments.Inc()
	log.Printf("[draft] assigned %d positions for league %s", len(order), leagueID)
	return order, nil
}
