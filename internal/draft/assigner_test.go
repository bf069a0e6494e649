package draft

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/metrics"
	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// seqRand replays a fixed sequence of draws.
type seqRand struct {
	vals []float64
	i    int
}

func (s *seqRand) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestOrderStakeWeightTiltsWithEqualDraws(t *testing.T) {
	pool := []model.DraftCandidate{
		{UserID: "none", Staked: dec(0)},       // weight 0.05
		{UserID: "tier1", Staked: dec(15_000)}, // weight 0.1
		{UserID: "tier5", Staked: dec(52_000)}, // weight 0.5
	}
	// Identical uniform draws: only the stake weights decide.
	order := Order(pool, &seqRand{vals: []float64{0.3}})

	if order[0].UserID != "tier5" || order[1].UserID != "tier1" || order[2].UserID != "none" {
		t.Fatalf("expected tier5, tier1, none; got %s, %s, %s",
			order[0].UserID, order[1].UserID, order[2].UserID)
	}
}

func TestOrderLuckCanBeatStake(t *testing.T) {
	pool := []model.DraftCandidate{
		{UserID: "whale", Staked: dec(52_000)}, // 0.5 + 0.1 = 0.6
		{UserID: "minnow", Staked: dec(0)},     // 0.05 + 0.9 = 0.95
	}
	order := Order(pool, &seqRand{vals: []float64{0.1, 0.9}})

	if order[0].UserID != "minnow" {
		t.Fatalf("expected minnow to out-draw whale, got %s first", order[0].UserID)
	}
}

func TestOrderPositionsAreDenseAndUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pool := make([]model.DraftCandidate, 10)
	for i := range pool {
		pool[i] = model.DraftCandidate{UserID: string(rune('a' + i)), Staked: dec(int64(i) * 7000)}
	}
	order := Order(pool, rng)

	if len(order) != len(pool) {
		t.Fatalf("expected %d assignments, got %d", len(pool), len(order))
	}
	seen := make(map[int]bool)
	for _, a := range order {
		if a.Position < 1 || a.Position > len(pool) {
			t.Fatalf("position %d out of range", a.Position)
		}
		if seen[a.Position] {
			t.Fatalf("duplicate position %d", a.Position)
		}
		seen[a.Position] = true
	}
}

func TestOrderRecordsStakeAtDraft(t *testing.T) {
	pool := []model.DraftCandidate{{UserID: "u1", Staked: dec(31_000)}}
	order := Order(pool, &seqRand{vals: []float64{0.5}})

	if !order[0].StakedAtDraft.Equal(dec(31_000)) {
		t.Fatalf("expected staked snapshot 31000, got %s", order[0].StakedAtDraft)
	}
}

func TestLockedRandSharedAcrossAssignments(t *testing.T) {
	rng := NewLockedRand(rand.New(rand.NewSource(7)))
	pool := []model.DraftCandidate{
		{UserID: "u1", Staked: dec(0)},
		{UserID: "u2", Staked: dec(25_000)},
		{UserID: "u3", Staked: dec(52_000)},
	}

	var wg sync.WaitGroup
	results := make([][]model.DraftAssignment, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Order(pool, rng)
		}(i)
	}
	wg.Wait()

	for i, order := range results {
		if len(order) != len(pool) {
			t.Fatalf("run %d: expected %d assignments, got %d", i, len(pool), len(order))
		}
		seen := make(map[int]bool)
		for _, a := range order {
			if a.Position < 1 || a.Position > len(pool) || seen[a.Position] {
				t.Fatalf("run %d: invalid permutation %v", i, order)
			}
			seen[a.Position] = true
		}
	}
}

// ── Assigner ─────────────────────────────────────────

type fakeDraftStore struct {
	pool     []model.DraftCandidate
	poolErr  error
	written  map[string][]model.DraftAssignment
	writeErr error
}

func (f *fakeDraftStore) DraftPool(_ context.Context, _ string) ([]model.DraftCandidate, error) {
	return f.pool, f.poolErr
}

func (f *fakeDraftStore) WriteDraftPositions(_ context.Context, leagueID string, order []model.DraftAssignment) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.written == nil {
		f.written = make(map[string][]model.DraftAssignment)
	}
	f.written[leagueID] = order
	return nil
}

func TestAssignPersistsFullOrder(t *testing.T) {
	store := &fakeDraftStore{pool: []model.DraftCandidate{
		{UserID: "u1", Staked: dec(0)},
		{UserID: "u2", Staked: dec(25_000)},
	}}
	a := NewAssigner(store, rand.New(rand.NewSource(1)), metrics.New())

	order, err := a.Assign(context.Background(), "league-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(order))
	}
	if got := store.written["league-1"]; len(got) != 2 {
		t.Fatalf("expected persisted order, got %v", got)
	}
}

func TestAssignEmptyPoolFails(t *testing.T) {
	a := NewAssigner(&fakeDraftStore{}, rand.New(rand.NewSource(1)), metrics.New())
	if _, err := a.Assign(context.Background(), "league-1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAssignWriteFailureSurfaces(t *testing.T) {
	store := &fakeDraftStore{
		pool:     []model.DraftCandidate{{UserID: "u1", Staked: dec(0)}},
		writeErr: model.ErrConflict,
	}
	a := NewAssigner(store, rand.New(rand.NewSource(1)), metrics.New())
	if _, err := a.Assign(context.Background(), "league-1"); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}
