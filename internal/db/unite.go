package db

import (
	"context"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// ── Staking ──────────────────────────────────────────

// Stake moves UNITE from a user's liquid balance into stake. The balance
// check rides in the UPDATE predicate so a concurrent spend cannot drive the
// balance negative.
func (s *Store) Stake(ctx context.Context, userID string, amount decimal.Decimal) error {
	return s.moveStake(ctx, userID, amount, "stake",
		`UPDATE users
		 SET unite_balance = unite_balance - $1,
		     unite_staked  = unite_staked + $1
		 WHERE id=$2 AND unite_balance >= $1`)
}

// Unstake moves staked UNITE back to the liquid balance.
func (s *Store) Unstake(ctx context.Context, userID string, amount decimal.Decimal) error {
	return s.moveStake(ctx, userID, amount, "unstake",
		`UPDATE users
		 SET unite_balance = unite_balance + $1,
		     unite_staked  = unite_staked - $1
		 WHERE id=$2 AND unite_staked >= $1`)
}

func (s *Store) moveStake(ctx context.Context, userID string, amount decimal.Decimal, action, query string) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(query, amount, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return model.ErrInsufficientBalance
	}

	if _, err := tx.Exec(
		`INSERT INTO staking_records (user_id, action, amount) VALUES ($1,$2,$3)`,
		userID, action, amount); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) StakingHistory(ctx context.Context, userID string, limit int) ([]model.StakingRecord, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, user_id, action, amount, created_at
		 FROM staking_records
		 WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StakingRecord
	for rows.Next() {
		var r model.StakingRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Action, &r.Amount, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ── Rewards ──────────────────────────────────────────

// AwardReward grants UNITE against the fixed 1M reward pool. The distributed
// total and the insert share one transaction serialized by an advisory lock,
// so the pool cap cannot be overshot by concurrent awards.
func (s *Store) AwardReward(ctx context.Context, r *model.UniteReward) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`SELECT pg_advisory_xact_lock(hashtext('unite_rewards'))`); err != nil {
		return err
	}

	var distributed decimal.Decimal
	if err := tx.QueryRow(
		`SELECT COALESCE(SUM(amount), 0) FROM unite_rewards`,
	).Scan(&distributed); err != nil {
		return err
	}
	if distributed.Add(r.Amount).GreaterThan(model.RewardPoolSupply) {
		return model.ErrExhausted
	}

	err = tx.QueryRow(
		`INSERT INTO unite_rewards (user_id, reward_type, amount, match_id, league_id)
		 VALUES ($1,$2,$3,$4,$5)
		 RETURNING id, is_claimed, created_at`,
		r.UserID, r.RewardType, r.Amount, r.MatchID, r.LeagueID,
	).Scan(&r.ID, &r.IsClaimed, &r.CreatedAt)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// ClaimRewards credits every unclaimed reward to the user's balance and
// marks the rows claimed, all or nothing. Returns the claimed total and row
// count; ErrNotFound when nothing is claimable.
func (s *Store) ClaimRewards(ctx context.Context, userID string) (decimal.Decimal, int, error) {
	zero := decimal.Zero
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return zero, 0, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(
		`SELECT id, amount FROM unite_rewards
		 WHERE user_id=$1 AND is_claimed=FALSE FOR UPDATE`, userID)
	if err != nil {
		return zero, 0, err
	}
	var ids []string
	total := decimal.Zero
	for rows.Next() {
		var id string
		var amount decimal.Decimal
		if err := rows.Scan(&id, &amount); err != nil {
			rows.Close()
			return zero, 0, err
		}
		ids = append(ids, id)
		total = total.Add(amount)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return zero, 0, err
	}
	if len(ids) == 0 {
		return zero, 0, model.ErrNotFound
	}

	if _, err := tx.Exec(
		`UPDATE users SET unite_balance = unite_balance + $1 WHERE id=$2`,
		total, userID); err != nil {
		return zero, 0, err
	}
	if _, err := tx.Exec(
		`UPDATE unite_rewards SET is_claimed=TRUE, claimed_at=now()
		 WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return zero, 0, err
	}
	if _, err := tx.Exec(
		`INSERT INTO staking_records (user_id, action, amount) VALUES ($1,'reward',$2)`,
		userID, total); err != nil {
		return zero, 0, err
	}

	return total, len(ids), tx.Commit()
}

func (s *Store) UnclaimedRewards(ctx context.Context, userID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM unite_rewards
		 WHERE user_id=$1 AND is_claimed=FALSE`, userID,
	).Scan(&total)
	return total, err
}

// ── Aggregate stats ──────────────────────────────────

type UniteStats struct {
	TotalStakers        int    `json:"total_stakers"`
	TotalStaked         string `json:"total_staked"`
	TotalCirculating    string `json:"total_circulating"`
	TotalDistributed    string `json:"total_distributed"`
	TotalClaimed        string `json:"total_claimed"`
	TotalPending        string `json:"total_pending"`
	RewardPoolRemaining string `json:"reward_pool_remaining"`
}

func (s *Store) UniteStats(ctx context.Context) (*UniteStats, error) {
	st := &UniteStats{}
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE unite_staked > 0),
		        COALESCE(SUM(unite_staked), 0),
		        COALESCE(SUM(unite_balance), 0)
		 FROM users`,
	).Scan(&st.TotalStakers, &st.TotalStaked, &st.TotalCirculating)
	if err != nil {
		return nil, err
	}

	var distributed decimal.Decimal
	err = s.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0),
		        COALESCE(SUM(CASE WHEN is_claimed THEN amount ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN NOT is_claimed THEN amount ELSE 0 END), 0)
		 FROM unite_rewards`,
	).Scan(&distributed, &st.TotalClaimed, &st.TotalPending)
	if err != nil {
		return nil, err
	}
	st.TotalDistributed = distributed.String()
	st.RewardPoolRemaining = model.RewardPoolSupply.Sub(distributed).String()
	return st, nil
}
