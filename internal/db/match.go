package db

import (
	"context"
	"database/sql"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

const matchCols = `id, player1_id, player2_id, wager_amount, position_size,
	escrow_amount, status, player1_pnl, player2_pnl, start_time, created_at`

func scanMatch(row interface{ Scan(...any) error }) (*model.Match, error) {
	m := &model.Match{}
	err := row.Scan(&m.ID, &m.Player1ID, &m.Player2ID, &m.WagerAmount,
		&m.PositionSize, &m.EscrowAmount, &m.Status, &m.Player1PnL,
		&m.Player2PnL, &m.StartTime, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// FormMatch commits a pairing in a single transaction: both players' waiting
// queue entries flip to matched and the match row is inserted. If either
// claim misses (entry already matched, withdrawn or expired) the whole
// transaction rolls back with ErrConflict and no partial state survives.
func (s *Store) FormMatch(ctx context.Context, m *model.Match) error {
	if m.Player2ID == nil {
		return model.ErrConflict
	}
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := claimQueueEntry(tx, m.Player1ID); err != nil {
		return err
	}
	if err := claimQueueEntry(tx, *m.Player2ID); err != nil {
		return err
	}

	err = tx.QueryRow(
		`INSERT INTO matches
		   (id, player1_id, player2_id, wager_amount, position_size, escrow_amount, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING created_at`,
		m.ID, m.Player1ID, m.Player2ID, m.WagerAmount, m.PositionSize,
		m.EscrowAmount, m.Status,
	).Scan(&m.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE platform_stats
		 SET total_matches  = total_matches + 1,
		     total_wagered  = total_wagered + $1,
		     total_escrowed = total_escrowed + $2,
		     updated_at     = now()
		 WHERE id = (SELECT id FROM platform_stats ORDER BY id DESC LIMIT 1)`,
		m.WagerAmount, m.EscrowAmount)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) GetMatch(ctx context.Context, id string) (*model.Match, error) {
	return scanMatch(s.q.QueryRowContext(ctx,
		`SELECT `+matchCols+` FROM matches WHERE id=$1`, id))
}

// UserMatches lists the caller's matches newest-first, with PnL columns
// projected relative to which side the caller occupies.
func (s *Store) UserMatches(ctx context.Context, userID string) ([]model.UserMatch, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT m.id, m.player1_id, m.player2_id, m.wager_amount,
		        m.position_size, m.escrow_amount, m.status, m.player1_pnl,
		        m.player2_pnl, m.start_time, m.created_at,
		        u1.wallet_address, u2.wallet_address,
		        CASE WHEN m.player1_id = $1 THEN m.player1_pnl ELSE m.player2_pnl END,
		        CASE WHEN m.player1_id = $1 THEN m.player2_pnl ELSE m.player1_pnl END
		 FROM matches m
		 JOIN users u1 ON m.player1_id = u1.id
		 LEFT JOIN users u2 ON m.player2_id = u2.id
		 WHERE m.player1_id = $1 OR m.player2_id = $1
		 ORDER BY m.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.UserMatch
	for rows.Next() {
		var um model.UserMatch
		if err := rows.Scan(&um.ID, &um.Player1ID, &um.Player2ID,
			&um.WagerAmount, &um.PositionSize, &um.EscrowAmount, &um.Status,
			&um.Player1PnL, &um.Player2PnL, &um.StartTime, &um.CreatedAt,
			&um.Player1Address, &um.Player2Address,
			&um.YourPnL, &um.OpponentPnL); err != nil {
			return nil, err
		}
		out = append(out, um)
	}
	return out, rows.Err()
}

// ── Drafted coins ────────────────────────────────────

// SaveDraft stores one player's drafted roster and, when it is the second
// completed roster, activates the match. Returns whether the match went
// active.
func (s *Store) SaveDraft(ctx context.Context, matchID, userID string, coins []model.DraftedCoin) (bool, error) {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	for _, c := range coins {
		if _, err := tx.Exec(
			`INSERT INTO drafted_coins
			   (match_id, user_id, coin_symbol, coin_name, position, draft_order, draft_price)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			matchID, userID, c.CoinSymbol, c.CoinName, c.Position,
			c.DraftOrder, c.DraftPrice); err != nil {
			if isUniqueViolation(err) {
				return false, model.ErrConflict
			}
			return false, err
		}
	}

	var playersDrafted int
	if err := tx.QueryRow(
		`SELECT COUNT(DISTINCT user_id) FROM drafted_coins WHERE match_id=$1`,
		matchID,
	).Scan(&playersDrafted); err != nil {
		return false, err
	}

	activated := false
	if playersDrafted >= 2 {
		res, err := tx.Exec(
			`UPDATE matches SET status='active', start_time=now()
			 WHERE id=$1 AND status='matched'`, matchID)
		if err != nil {
			return false, err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			activated = true
		}
	}

	return activated, tx.Commit()
}

func (s *Store) MatchDraft(ctx context.Context, matchID string) ([]model.DraftedCoin, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, match_id, user_id, coin_symbol, coin_name, position,
		        draft_order, draft_price, created_at
		 FROM drafted_coins WHERE match_id=$1
		 ORDER BY user_id, draft_order`, matchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DraftedCoin
	for rows.Next() {
		var c model.DraftedCoin
		if err := rows.Scan(&c.ID, &c.MatchID, &c.UserID, &c.CoinSymbol,
			&c.CoinName, &c.Position, &c.DraftOrder, &c.DraftPrice,
			&c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
