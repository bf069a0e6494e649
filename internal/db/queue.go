package db

import (
	"context"
	"database/sql"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

const queueCols = `id, user_id, wager_amount, position_size, user_class, status,
	notification_method, notification_handle, created_at, expires_at`

func scanQueueEntry(row interface{ Scan(...any) error }) (*model.QueueEntry, error) {
	e := &model.QueueEntry{}
	err := row.Scan(&e.ID, &e.UserID, &e.WagerAmount, &e.PositionSize,
		&e.UserClass, &e.Status, &e.NotificationMethod, &e.NotificationHandle,
		&e.CreatedAt, &e.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// Enqueue inserts a waiting entry. The partial unique index on
// (user_id) WHERE status='waiting' turns a double enqueue into ErrConflict.
func (s *Store) Enqueue(ctx context.Context, e *model.QueueEntry) error {
	err := s.q.QueryRowContext(ctx,
		`INSERT INTO matchmaking_queue
		   (user_id, wager_amount, position_size, user_class,
		    notification_method, notification_handle, expires_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING id, status, created_at`,
		e.UserID, e.WagerAmount, e.PositionSize, e.UserClass,
		e.NotificationMethod, e.NotificationHandle, e.ExpiresAt,
	).Scan(&e.ID, &e.Status, &e.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return model.ErrConflict
	}
	return err
}

// WaitingCandidates returns every live entry of the given class owned by
// somebody else, joined with the owner's wallet address. Wager tolerance and
// tie-break ordering are applied by the matcher, not here.
func (s *Store) WaitingCandidates(ctx context.Context, class model.UserClass, excludeUserID string) ([]model.QueueCandidate, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT mq.id, mq.user_id, mq.wager_amount, mq.position_size,
		        mq.user_class, mq.status, mq.notification_method,
		        mq.notification_handle, mq.created_at, mq.expires_at,
		        u.wallet_address
		 FROM matchmaking_queue mq
		 JOIN users u ON mq.user_id = u.id
		 WHERE mq.user_id != $1
		   AND mq.status = 'waiting'
		   AND mq.expires_at > now()
		   AND mq.user_class = $2
		 ORDER BY mq.created_at ASC`,
		excludeUserID, class)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.QueueCandidate
	for rows.Next() {
		var c model.QueueCandidate
		if err := rows.Scan(&c.ID, &c.UserID, &c.WagerAmount, &c.PositionSize,
			&c.UserClass, &c.Status, &c.NotificationMethod, &c.NotificationHandle,
			&c.CreatedAt, &c.ExpiresAt, &c.WalletAddress); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// claimQueueEntry flips one user's waiting entry to matched inside tx.
// Exactly one row must change; anything else means a concurrent formation or
// withdrawal won the race.
func claimQueueEntry(tx *sql.Tx, userID string) error {
	res, err := tx.Exec(
		`UPDATE matchmaking_queue SET status='matched'
		 WHERE user_id=$1 AND status='waiting' AND expires_at > now()`, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return model.ErrConflict
	}
	return nil
}

// WaitingEntry returns the user's current waiting entry, or nil.
func (s *Store) WaitingEntry(ctx context.Context, userID string) (*model.QueueEntry, error) {
	return scanQueueEntry(s.q.QueryRowContext(ctx,
		`SELECT `+queueCols+` FROM matchmaking_queue
		 WHERE user_id=$1 AND status='waiting'`, userID))
}

// Withdraw deletes the user's waiting entry. ErrNotFound when there is none
// left to remove — including when a concurrent formation already claimed it.
func (s *Store) Withdraw(ctx context.Context, userID string) error {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM matchmaking_queue WHERE user_id=$1 AND status='waiting'`, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteExpired removes waiting entries past their expiry. Matched rows are
// never touched here; they belong to match history.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM matchmaking_queue
		 WHERE expires_at < now() AND status='waiting'`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateNotificationPrefs rewrites delivery preferences on the user's
// waiting entry.
func (s *Store) UpdateNotificationPrefs(ctx context.Context, userID string, method, handle *string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE matchmaking_queue
		 SET notification_method=$1, notification_handle=$2
		 WHERE user_id=$3 AND status='waiting'`, method, handle, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ── Queue stats ──────────────────────────────────────

type QueueStats struct {
	TotalWaiting    int     `json:"total_waiting"`
	BarnacleWaiting int     `json:"barnacle_waiting"`
	GuppieWaiting   int     `json:"guppie_waiting"`
	SharkWaiting    int     `json:"shark_waiting"`
	WhaleWaiting    int     `json:"whale_waiting"`
	PoseidonWaiting int     `json:"poseidon_waiting"`
	AvgWager        *string `json:"avg_wager"`
	AvgPosition     *string `json:"avg_position"`
}

func (s *Store) QueueStats(ctx context.Context) (*QueueStats, error) {
	stats := &QueueStats{}
	var avgWager, avgPos sql.NullString
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE user_class='Barnacle'),
		        COUNT(*) FILTER (WHERE user_class='Guppie'),
		        COUNT(*) FILTER (WHERE user_class='Shark'),
		        COUNT(*) FILTER (WHERE user_class='Whale'),
		        COUNT(*) FILTER (WHERE user_class='Poseidon'),
		        AVG(wager_amount), AVG(position_size)
		 FROM matchmaking_queue
		 WHERE status='waiting' AND expires_at > now()`,
	).Scan(&stats.TotalWaiting, &stats.BarnacleWaiting, &stats.GuppieWaiting,
		&stats.SharkWaiting, &stats.WhaleWaiting, &stats.PoseidonWaiting,
		&avgWager, &avgPos)
	if err != nil {
		return nil, err
	}
	if avgWager.Valid {
		stats.AvgWager = &avgWager.String
	}
	if avgPos.Valid {
		stats.AvgPosition = &avgPos.String
	}
	return stats, nil
}
