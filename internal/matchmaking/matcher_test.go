package matchmaking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func candidate(userID, wager, pos string, createdAt time.Time) model.QueueCandidate {
	return model.QueueCandidate{
		QueueEntry: model.QueueEntry{
			ID:           "q-" + userID,
			UserID:       userID,
			WagerAmount:  dec(wager),
			PositionSize: dec(pos),
			UserClass:    model.ClassShark,
			Status:       model.QueueWaiting,
			CreatedAt:    createdAt,
			ExpiresAt:    createdAt.Add(model.QueueEntryTTL),
		},
		WalletAddress: "0x" + userID,
	}
}

func TestWagerCompatible(t *testing.T) {
	tests := []struct {
		name      string
		requested string
		candidate string
		want      bool
	}{
		{"exact", "1.0", "1.0", true},
		{"upper boundary inclusive", "1.0", "1.1", true},
		{"lower boundary inclusive", "1.0", "0.9", true},
		{"just above band", "1.0", "1.11", false},
		{"just below band", "1.0", "0.89", false},
		{"band scales with wager", "100", "109", true},
		{"band scales with wager out", "100", "111", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := WagerCompatible(dec(tc.requested), dec(tc.candidate))
			if got != tc.want {
				t.Fatalf("WagerCompatible(%s, %s) = %v, want %v",
					tc.requested, tc.candidate, got, tc.want)
			}
		})
	}
}

func TestBestCandidateEmptyPool(t *testing.T) {
	if got := BestCandidate(nil, dec("1"), dec("10000")); got != nil {
		t.Fatalf("expected nil for empty pool, got %v", got)
	}
}

func TestBestCandidateFiltersWagerBand(t *testing.T) {
	now := time.Now()
	pool := []model.QueueCandidate{
		candidate("far", "2.0", "10000", now),
		candidate("near", "1.05", "10000", now),
	}
	got := BestCandidate(pool, dec("1.0"), dec("10000"))
	if got == nil || got.UserID != "near" {
		t.Fatalf("expected near, got %v", got)
	}
}

func TestBestCandidateClosestPositionWins(t *testing.T) {
	now := time.Now()
	pool := []model.QueueCandidate{
		candidate("u1", "1.0", "8000", now),
		candidate("u2", "1.0", "9500", now.Add(time.Minute)),
		candidate("u3", "1.0", "14000", now),
	}
	got := BestCandidate(pool, dec("1.0"), dec("10000"))
	if got == nil || got.UserID != "u2" {
		t.Fatalf("expected u2 (closest position), got %v", got)
	}
}

func TestBestCandidateTieBreaksOnEnqueueTime(t *testing.T) {
	now := time.Now()
	// Same absolute position distance on both sides of the request.
	pool := []model.QueueCandidate{
		candidate("late", "1.0", "11000", now.Add(5*time.Minute)),
		candidate("early", "1.0", "9000", now),
	}
	got := BestCandidate(pool, dec("1.0"), dec("10000"))
	if got == nil || got.UserID != "early" {
		t.Fatalf("expected early (earlier enqueue), got %v", got)
	}
}

func TestBestCandidateOrderIndependent(t *testing.T) {
	now := time.Now()
	a := candidate("a", "1.0", "9000", now)
	b := candidate("b", "1.0", "11000", now.Add(time.Second))
	got1 := BestCandidate([]model.QueueCandidate{a, b}, dec("1.0"), dec("10000"))
	got2 := BestCandidate([]model.QueueCandidate{b, a}, dec("1.0"), dec("10000"))
	if got1 == nil || got2 == nil || got1.UserID != got2.UserID {
		t.Fatalf("selection depends on pool order: %v vs %v", got1, got2)
	}
	if got1.UserID != "a" {
		t.Fatalf("expected a (earlier), got %s", got1.UserID)
	}
}

func TestBestCandidateSkipsNonWaiting(t *testing.T) {
	now := time.Now()
	matched := candidate("m", "1.0", "10000", now)
	matched.Status = model.QueueMatched
	pool := []model.QueueCandidate{
		matched,
		candidate("w", "1.0", "12000", now),
	}
	got := BestCandidate(pool, dec("1.0"), dec("10000"))
	if got == nil || got.UserID != "w" {
		t.Fatalf("expected w, got %v", got)
	}
}

func TestBestCandidateNobodyInBand(t *testing.T) {
	now := time.Now()
	pool := []model.QueueCandidate{
		candidate("u1", "5.0", "10000", now),
		candidate("u2", "0.2", "10000", now),
	}
	if got := BestCandidate(pool, dec("1.0"), dec("10000")); got != nil {
		t.Fatalf("expected nil, got %s", got.UserID)
	}
}
