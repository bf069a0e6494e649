package model

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestStakeWeightSteps(t *testing.T) {
	tests := []struct {
		staked int64
		want   float64
	}{
		{0, 0.05},
		{9_999, 0.05},
		{10_000, 0.1},
		{15_000, 0.1},
		{20_000, 0.2},
		{30_000, 0.3},
		{40_000, 0.4},
		{49_999, 0.4},
		{50_000, 0.5},
		{1_000_000, 0.5},
	}
	for _, tc := range tests {
		if got := StakeWeight(dec(tc.staked)); got != tc.want {
			t.Fatalf("StakeWeight(%d) = %v, want %v", tc.staked, got, tc.want)
		}
	}
}

func TestEscrowIsDoubleWager(t *testing.T) {
	if got := Escrow(decimal.RequireFromString("0.75")); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("Escrow(0.75) = %s, want 1.5", got)
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		staked   int64
		tier     int
		leverage string
	}{
		{0, 0, "1x"},
		{10_000, 1, "2x"},
		{25_000, 2, "3x"},
		{50_000, 5, "10x"},
		{99_999, 5, "10x"},
	}
	for _, tc := range tests {
		got := TierFor(dec(tc.staked))
		if got.Tier != tc.tier || got.Leverage != tc.leverage {
			t.Fatalf("TierFor(%d) = tier %d %s, want tier %d %s",
				tc.staked, got.Tier, got.Leverage, tc.tier, tc.leverage)
		}
	}
}

func TestNextTierFor(t *testing.T) {
	next := NextTierFor(dec(0))
	if next == nil || next.MinStake != 10_000 {
		t.Fatalf("expected next tier at 10000, got %+v", next)
	}
	next = NextTierFor(dec(45_000))
	if next == nil || next.MinStake != 50_000 {
		t.Fatalf("expected next tier at 50000, got %+v", next)
	}
	if NextTierFor(dec(50_000)) != nil {
		t.Fatal("expected no tier above the top")
	}
}

func TestValidClass(t *testing.T) {
	for _, c := range []UserClass{ClassBarnacle, ClassGuppie, ClassShark, ClassWhale, ClassPoseidon} {
		if !ValidClass(c) {
			t.Fatalf("expected %s valid", c)
		}
	}
	if ValidClass("Kraken") {
		t.Fatal("expected Kraken invalid")
	}
}

func TestLeagueConfigFor(t *testing.T) {
	cfg, ok := LeagueConfigFor(ClassShark)
	if !ok {
		t.Fatal("expected shark config")
	}
	if !cfg.WagerAmount.Equal(dec(1)) || !cfg.PositionSize.Equal(dec(10_000)) {
		t.Fatalf("unexpected shark config: %+v", cfg)
	}
	if _, ok := LeagueConfigFor("Kraken"); ok {
		t.Fatal("expected no config for unknown class")
	}
}
