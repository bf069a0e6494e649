package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// Store wraps the shared Postgres pool. Reads and single-statement writes go
// through q (the hooked querier); multi-step mutations open explicit
// transactions via BeginTx.
type Store struct {
	DB *sql.DB
	q  Querier
}

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Store{DB: db, q: WithHooks(db, DefaultHooks())}, nil
}

func (s *Store) Migrate(dir string) error {
	driver, err := postgres.WithInstance(s.DB, &postgres.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func (s *Store) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.DB.BeginTx(ctx, nil)
}

// isUniqueViolation reports a Postgres duplicate-key error.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// ── Users ────────────────────────────────────────────

const userCols = `id, wallet_address, username, telegram_username, x_username,
	user_class, role, unite_balance, unite_staked, total_wins, total_eth_won,
	total_eth_wagered, created_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.WalletAddress, &u.Username, &u.TelegramUsername,
		&u.XUsername, &u.UserClass, &u.Role, &u.UniteBalance, &u.UniteStaked,
		&u.TotalWins, &u.TotalEthWon, &u.TotalEthWagered, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

// GetOrCreateUser resolves a wallet address to a user row, creating it on
// first contact. Addresses are stored lowercased.
func (s *Store) GetOrCreateUser(ctx context.Context, address string) (*model.User, error) {
	address = strings.ToLower(address)
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`INSERT INTO users (wallet_address) VALUES ($1)
		 ON CONFLICT (wallet_address) DO NOTHING
		 RETURNING `+userCols, address))
	if err != nil {
		return nil, err
	}
	if u != nil {
		return u, nil
	}
	return s.GetUserByAddress(ctx, address)
}

func (s *Store) GetUserByAddress(ctx context.Context, address string) (*model.User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE wallet_address=$1`,
		strings.ToLower(address)))
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	return scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id=$1`, id))
}

// UpdateProfile applies non-nil fields; a taken username surfaces as
// ErrConflict.
func (s *Store) UpdateProfile(ctx context.Context, userID string, username, telegram, x *string) (*model.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`UPDATE users
		 SET username          = COALESCE($1, username),
		     telegram_username = COALESCE($2, telegram_username),
		     x_username        = COALESCE($3, x_username)
		 WHERE id=$4
		 RETURNING `+userCols, username, telegram, x, userID))
	if err != nil && isUniqueViolation(err) {
		return nil, model.ErrConflict
	}
	if err == nil && u == nil {
		return nil, model.ErrNotFound
	}
	return u, err
}

func (s *Store) SetUserRole(ctx context.Context, address string, role model.Role) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE users SET role=$1 WHERE wallet_address=$2`, role, strings.ToLower(address))
	return err
}

// ── Leaderboard ──────────────────────────────────────

var leaderboardSorts = map[string]string{
	"total_wins":        "total_wins",
	"total_eth_won":     "total_eth_won",
	"total_eth_wagered": "total_eth_wagered",
	"win_percentage":    "win_percentage",
	"total_matches":     "total_matches",
}

type LeaderboardRow struct {
	model.User
	TotalMatches  int    `json:"total_matches"`
	WinPercentage string `json:"win_percentage"`
}

func (s *Store) Leaderboard(ctx context.Context, sortBy string, limit, offset int) ([]LeaderboardRow, error) {
	col, ok := leaderboardSorts[sortBy]
	if !ok {
		col = "total_eth_won"
	}
	rows, err := s.q.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, wallet_address, username, user_class, total_wins,
		        total_eth_won, total_eth_wagered, total_matches, win_percentage
		 FROM leaderboard_view
		 ORDER BY %s DESC, total_wins DESC
		 LIMIT $1 OFFSET $2`, col), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LeaderboardRow
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.ID, &r.WalletAddress, &r.Username, &r.UserClass,
			&r.TotalWins, &r.TotalEthWon, &r.TotalEthWagered,
			&r.TotalMatches, &r.WinPercentage); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) UserRanking(ctx context.Context, address, sortBy string) (*LeaderboardRow, int, error) {
	col, ok := leaderboardSorts[sortBy]
	if !ok {
		col = "total_eth_won"
	}
	var r LeaderboardRow
	var rank int
	err := s.q.QueryRowContext(ctx, fmt.Sprintf(
		`WITH ranked AS (
		   SELECT *, ROW_NUMBER() OVER (ORDER BY %s DESC, total_wins DESC) AS rank
		   FROM leaderboard_view
		 )
		 SELECT id, wallet_address, username, user_class, total_wins,
		        total_eth_won, total_eth_wagered, total_matches, win_percentage, rank
		 FROM ranked WHERE wallet_address=$1`, col),
		strings.ToLower(address),
	).Scan(&r.ID, &r.WalletAddress, &r.Username, &r.UserClass, &r.TotalWins,
		&r.TotalEthWon, &r.TotalEthWagered, &r.TotalMatches, &r.WinPercentage, &rank)
	if err == sql.ErrNoRows {
		return nil, 0, model.ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	return &r, rank, nil
}

// ── Platform stats ───────────────────────────────────

type PlatformStats struct {
	TotalMatches  int64  `json:"total_matches"`
	TotalWagered  string `json:"total_wagered"`
	TotalEscrowed string `json:"total_escrowed"`
}

func (s *Store) GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	p := &PlatformStats{}
	err := s.q.QueryRowContext(ctx,
		`SELECT total_matches, total_wagered, total_escrowed
		 FROM platform_stats ORDER BY id DESC LIMIT 1`,
	).Scan(&p.TotalMatches, &p.TotalWagered, &p.TotalEscrowed)
	if err == sql.ErrNoRows {
		return &PlatformStats{}, nil
	}
	return p, err
}
