package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

const leagueCols = `id, league_class, wager_amount, position_size, status,
	max_participants, season_start, season_end, draft_time, created_at`

func scanLeague(row interface{ Scan(...any) error }) (*model.League, error) {
	l := &model.League{}
	err := row.Scan(&l.ID, &l.LeagueClass, &l.WagerAmount, &l.PositionSize,
		&l.Status, &l.MaxParticipants, &l.SeasonStart, &l.SeasonEnd,
		&l.DraftTime, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return l, err
}

func (s *Store) CreateLeague(ctx context.Context, l *model.League) error {
	return s.q.QueryRowContext(ctx,
		`INSERT INTO leagues
		   (league_class, wager_amount, position_size, max_participants,
		    season_start, season_end)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING id, status, created_at`,
		l.LeagueClass, l.WagerAmount, l.PositionSize, l.MaxParticipants,
		l.SeasonStart, l.SeasonEnd,
	).Scan(&l.ID, &l.Status, &l.CreatedAt)
}

func (s *Store) GetLeague(ctx context.Context, id string) (*model.League, error) {
	return scanLeague(s.q.QueryRowContext(ctx,
		`SELECT `+leagueCols+` FROM leagues WHERE id=$1`, id))
}

// AvailableLeagues lists filling leagues of a class that still have room and
// whose season has not started.
func (s *Store) AvailableLeagues(ctx context.Context, class model.UserClass) ([]model.League, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT l.id, l.league_class, l.wager_amount, l.position_size,
		        l.status, l.max_participants, l.season_start, l.season_end,
		        l.draft_time, l.created_at, COUNT(lp.user_id)
		 FROM leagues l
		 LEFT JOIN league_participants lp ON l.id = lp.league_id
		 WHERE l.league_class = $1
		   AND l.status = 'filling'
		   AND l.season_start > now()
		 GROUP BY l.id
		 HAVING COUNT(lp.user_id) < l.max_participants
		 ORDER BY l.season_start ASC`, class)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.League
	for rows.Next() {
		var l model.League
		if err := rows.Scan(&l.ID, &l.LeagueClass, &l.WagerAmount,
			&l.PositionSize, &l.Status, &l.MaxParticipants, &l.SeasonStart,
			&l.SeasonEnd, &l.DraftTime, &l.CreatedAt, &l.Participants); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) UserLeagues(ctx context.Context, userID string) ([]model.League, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT l.id, l.league_class, l.wager_amount, l.position_size,
		        l.status, l.max_participants, l.season_start, l.season_end,
		        l.draft_time, l.created_at,
		        (SELECT COUNT(*) FROM league_participants lp2 WHERE lp2.league_id = l.id)
		 FROM leagues l
		 JOIN league_participants lp ON l.id = lp.league_id
		 WHERE lp.user_id = $1
		 ORDER BY l.season_start DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.League
	for rows.Next() {
		var l model.League
		if err := rows.Scan(&l.ID, &l.LeagueClass, &l.WagerAmount,
			&l.PositionSize, &l.Status, &l.MaxParticipants, &l.SeasonStart,
			&l.SeasonEnd, &l.DraftTime, &l.CreatedAt, &l.Participants); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AddParticipant joins a user to a league, guarded against overfill in the
// insert itself so two concurrent joins cannot exceed capacity. Returns the
// participant count after the insert.
func (s *Store) AddParticipant(ctx context.Context, leagueID, userID string) (int, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO league_participants (league_id, user_id)
		 SELECT $1, $2
		 WHERE (SELECT COUNT(*) FROM league_participants WHERE league_id=$1)
		     < (SELECT max_participants FROM leagues WHERE id=$1)`,
		leagueID, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, model.ErrConflict
		}
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, model.ErrExhausted
	}

	var count int
	err = s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM league_participants WHERE league_id=$1`, leagueID,
	).Scan(&count)
	return count, err
}

// MarkLeagueFilled performs the filling→filled transition. Exactly one
// caller wins it; that caller is responsible for running the draft-position
// assignment.
func (s *Store) MarkLeagueFilled(ctx context.Context, leagueID string, draftTime time.Time) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE leagues SET status='filled', draft_time=$1
		 WHERE id=$2 AND status='filling'`, draftTime, leagueID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// DraftPool reads the participants with their current governance stake, the
// input to draft-position assignment.
func (s *Store) DraftPool(ctx context.Context, leagueID string) ([]model.DraftCandidate, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT lp.user_id, u.unite_staked
		 FROM league_participants lp
		 JOIN users u ON lp.user_id = u.id
		 WHERE lp.league_id = $1`, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.DraftCandidate
	for rows.Next() {
		var c model.DraftCandidate
		if err := rows.Scan(&c.UserID, &c.Staked); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// WriteDraftPositions persists a computed draft order in one transaction.
// Every row must land; a miss rolls the whole assignment back so the league
// is never left partially ordered.
func (s *Store) WriteDraftPositions(ctx context.Context, leagueID string, order []model.DraftAssignment) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, a := range order {
		res, err := tx.Exec(
			`UPDATE league_participants
			 SET draft_position=$1, staked_at_draft=$2
			 WHERE league_id=$3 AND user_id=$4 AND draft_position IS NULL`,
			a.Position, a.StakedAtDraft, leagueID, a.UserID)
		if err != nil {
			return err
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n != 1 {
			return model.ErrConflict
		}
	}

	if _, err := tx.Exec(
		`UPDATE leagues SET status='drafting' WHERE id=$1 AND status='filled'`,
		leagueID); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) LeagueParticipants(ctx context.Context, leagueID string) ([]model.LeagueParticipant, error) {
	return s.leagueParticipants(ctx, leagueID,
		`ORDER BY lp.draft_position ASC NULLS LAST, lp.joined_at ASC`)
}

// LeagueRankings orders participants by realized then open PnL.
func (s *Store) LeagueRankings(ctx context.Context, leagueID string) ([]model.LeagueParticipant, error) {
	return s.leagueParticipants(ctx, leagueID,
		`ORDER BY lp.realized_pnl DESC, lp.open_pnl DESC`)
}

func (s *Store) leagueParticipants(ctx context.Context, leagueID, orderBy string) ([]model.LeagueParticipant, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT lp.id, lp.league_id, lp.user_id, u.wallet_address, u.username,
		        lp.staked_at_draft, lp.draft_position, lp.final_position,
		        lp.realized_pnl, lp.open_pnl, lp.joined_at
		 FROM league_participants lp
		 JOIN users u ON lp.user_id = u.id
		 WHERE lp.league_id = $1 `+orderBy, leagueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LeagueParticipant
	for rows.Next() {
		var p model.LeagueParticipant
		if err := rows.Scan(&p.ID, &p.LeagueID, &p.UserID, &p.WalletAddress,
			&p.Username, &p.StakedAtDraft, &p.DraftPosition, &p.FinalPosition,
			&p.RealizedPnL, &p.OpenPnL, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
