package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// uniteProfile bundles everything the staking screen shows: balances, the
// current and next leverage tier, and pending rewards.
func (s *Server) uniteProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.currentUser(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	pending, err := s.store.UnclaimedRewards(r.Context(), user.ID)
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, map[string]any{
		"balance":         user.UniteBalance,
		"staked":          user.UniteStaked,
		"tier":            model.TierFor(user.UniteStaked),
		"next_tier":       model.NextTierFor(user.UniteStaked),
		"draft_weight":    model.StakeWeight(user.UniteStaked),
		"pending_rewards": pending,
	})
}

func (s *Server) stake(w http.ResponseWriter, r *http.Request) {
	s.moveStake(w, r, s.store.Stake)
}

func (s *Server) unstake(w http.ResponseWriter, r *http.Request) {
	s.moveStake(w, r, s.store.Unstake)
}

func (s *Server) moveStake(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, userID string, amount decimal.Decimal) error) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	var req struct {
		Amount decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	if !req.Amount.IsPositive() {
		jsonErr(w, 400, "amount must be positive")
		return
	}
	if err := op(r.Context(), uid, req.Amount); err != nil {
		writeErr(w, err)
		return
	}
	user, err := s.store.GetUser(r.Context(), uid)
	if err != nil || user == nil {
		jsonErr(w, 500, "stake applied but reload failed")
		return
	}
	json200(w, map[string]any{
		"balance": user.UniteBalance,
		"staked":  user.UniteStaked,
		"tier":    model.TierFor(user.UniteStaked),
	})
}

func (s *Server) claimRewards(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	total, count, err := s.store.ClaimRewards(r.Context(), uid)
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, map[string]any{"claimed": total, "rewards": count})
}

func (s *Server) stakingHistory(w http.ResponseWriter, r *http.Request) {
	uid, _ := r.Context().Value(ctxUserID).(string)
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 200 {
		limit = n
	}
	history, err := s.store.StakingHistory(r.Context(), uid, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if history == nil {
		history = []model.StakingRecord{}
	}
	json200(w, history)
}

func (s *Server) uniteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.UniteStats(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	json200(w, stats)
}

// ── Admin ────────────────────────────────────────────

func (s *Server) awardReward(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID     string          `json:"user_id"`
		RewardType string          `json:"reward_type"`
		Amount     decimal.Decimal `json:"amount"`
		MatchID    *string         `json:"match_id"`
		LeagueID   *string         `json:"league_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, 400, "invalid json")
		return
	}
	if req.UserID == "" || req.RewardType == "" || !req.Amount.IsPositive() {
		jsonErr(w, 400, "user_id, reward_type and positive amount required")
		return
	}
	reward := &model.UniteReward{
		UserID:     req.UserID,
		RewardType: req.RewardType,
		Amount:     req.Amount,
		MatchID:    req.MatchID,
		LeagueID:   req.LeagueID,
	}
	if err := s.store.AwardReward(r.Context(), reward); err != nil {
		writeErr(w, err)
		return
	}
	json201(w, reward)
}
