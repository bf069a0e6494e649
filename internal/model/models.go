package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Enums ────────────────────────────────────────────

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type UserClass string

const (
	ClassBarnacle UserClass = "Barnacle"
	ClassGuppie   UserClass = "Guppie"
	ClassShark    UserClass = "Shark"
	ClassWhale    UserClass = "Whale"
	ClassPoseidon UserClass = "Poseidon"
)

// ValidClass reports whether c is one of the five tier labels.
func ValidClass(c UserClass) bool {
	switch c {
	case ClassBarnacle, ClassGuppie, ClassShark, ClassWhale, ClassPoseidon:
		return true
	}
	return false
}

type QueueStatus string

const (
	QueueWaiting QueueStatus = "waiting"
	QueueMatched QueueStatus = "matched"
)

type MatchStatus string

const (
	MatchWaiting   MatchStatus = "waiting"
	MatchMatched   MatchStatus = "matched"
	MatchActive    MatchStatus = "active"
	MatchCompleted MatchStatus = "completed"
)

type LeagueStatus string

const (
	LeagueFilling   LeagueStatus = "filling"
	LeagueFilled    LeagueStatus = "filled"
	LeagueDrafting  LeagueStatus = "drafting"
	LeagueActive    LeagueStatus = "active"
	LeagueCompleted LeagueStatus = "completed"
)

const (
	NotifyTelegram = "telegram"
	NotifyTwitter  = "twitter"
)

// ── Domain Objects ───────────────────────────────────

type User struct {
	ID               string          `json:"id"`
	WalletAddress    string          `json:"wallet_address"`
	Username         *string         `json:"username,omitempty"`
	TelegramUsername *string         `json:"telegram_username,omitempty"`
	XUsername        *string         `json:"x_username,omitempty"`
	UserClass        UserClass       `json:"user_class"`
	Role             Role            `json:"role"`
	UniteBalance     decimal.Decimal `json:"unite_balance"`
	UniteStaked      decimal.Decimal `json:"unite_staked"`
	TotalWins        int             `json:"total_wins"`
	TotalEthWon      decimal.Decimal `json:"total_eth_won"`
	TotalEthWagered  decimal.Decimal `json:"total_eth_wagered"`
	CreatedAt        time.Time       `json:"created_at"`
}

// QueueEntry is one user's waiting request for a PvP opponent. A user holds
// at most one waiting entry at a time; entries expire QueueEntryTTL after
// creation unless matched or withdrawn first.
type QueueEntry struct {
	ID                 string          `json:"id"`
	UserID             string          `json:"user_id"`
	WagerAmount        decimal.Decimal `json:"wager_amount"`
	PositionSize       decimal.Decimal `json:"position_size"`
	UserClass          UserClass       `json:"user_class"`
	Status             QueueStatus     `json:"status"`
	NotificationMethod *string         `json:"notification_method,omitempty"`
	NotificationHandle *string         `json:"notification_handle,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
}

// QueueCandidate is a queue entry joined with the owner's wallet address,
// as returned by the opponent search.
type QueueCandidate struct {
	QueueEntry
	WalletAddress string `json:"wallet_address"`
}

// QueueEntryTTL is how long an entry waits before the maintenance sweep may
// delete it.
const QueueEntryTTL = 30 * time.Minute

type Match struct {
	ID           string          `json:"id"`
	Player1ID    string          `json:"player1_id"`
	Player2ID    *string         `json:"player2_id,omitempty"`
	WagerAmount  decimal.Decimal `json:"wager_amount"`
	PositionSize decimal.Decimal `json:"position_size"`
	EscrowAmount decimal.Decimal `json:"escrow_amount"`
	Status       MatchStatus     `json:"status"`
	Player1PnL   decimal.Decimal `json:"player1_pnl"`
	Player2PnL   decimal.Decimal `json:"player2_pnl"`
	StartTime    *time.Time      `json:"start_time,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Escrow pools both sides' stake for the duration of a match.
func Escrow(wager decimal.Decimal) decimal.Decimal {
	return wager.Mul(decimal.NewFromInt(2))
}

// UserMatch is a match projected for one caller: PnL columns are relabelled
// your/opponent depending on which side the caller occupies.
type UserMatch struct {
	Match
	Player1Address string          `json:"player1_address"`
	Player2Address *string         `json:"player2_address,omitempty"`
	YourPnL        decimal.Decimal `json:"your_pnl"`
	OpponentPnL    decimal.Decimal `json:"opponent_pnl"`
}

type DraftedCoin struct {
	ID         string          `json:"id"`
	MatchID    string          `json:"match_id"`
	UserID     string          `json:"user_id"`
	CoinSymbol string          `json:"coin_symbol"`
	CoinName   string          `json:"coin_name"`
	Position   string          `json:"position"` // long | short
	DraftOrder int             `json:"draft_order"`
	DraftPrice decimal.Decimal `json:"draft_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type League struct {
	ID              string          `json:"id"`
	LeagueClass     UserClass       `json:"league_class"`
	WagerAmount     decimal.Decimal `json:"wager_amount"`
	PositionSize    decimal.Decimal `json:"position_size"`
	Status          LeagueStatus    `json:"status"`
	MaxParticipants int             `json:"max_participants"`
	SeasonStart     time.Time       `json:"season_start"`
	SeasonEnd       time.Time       `json:"season_end"`
	DraftTime       *time.Time      `json:"draft_time,omitempty"`
	Participants    int             `json:"participants,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

type LeagueParticipant struct {
	ID            string          `json:"id"`
	LeagueID      string          `json:"league_id"`
	UserID        string          `json:"user_id"`
	WalletAddress string          `json:"wallet_address,omitempty"`
	Username      *string         `json:"username,omitempty"`
	StakedAtDraft decimal.Decimal `json:"staked_at_draft"`
	DraftPosition *int            `json:"draft_position,omitempty"`
	FinalPosition *int            `json:"final_position,omitempty"`
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	OpenPnL       decimal.Decimal `json:"open_pnl"`
	JoinedAt      time.Time       `json:"joined_at"`
}

type Coin struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Change24h    decimal.Decimal `json:"change_24h"`
	MarketCap    decimal.Decimal `json:"market_cap"`
	IsAvailable  bool            `json:"is_available"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type StakingRecord struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Action    string          `json:"action"` // stake | unstake | reward
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

type UniteReward struct {
	ID         string          `json:"id"`
	UserID     string          `json:"user_id"`
	RewardType string          `json:"reward_type"`
	Amount     decimal.Decimal `json:"amount"`
	MatchID    *string         `json:"match_id,omitempty"`
	LeagueID   *string         `json:"league_id,omitempty"`
	IsClaimed  bool            `json:"is_claimed"`
	ClaimedAt  *time.Time      `json:"claimed_at,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// RewardPoolSupply caps total UNITE ever distributable as rewards.
var RewardPoolSupply = decimal.NewFromInt(1_000_000)

// DraftCandidate is a league participant as seen by the draft-position
// assigner: identity plus the governance stake read at assignment time.
type DraftCandidate struct {
	UserID string
	Staked decimal.Decimal
}

// DraftAssignment is one row of a computed draft order.
type DraftAssignment struct {
	UserID        string          `json:"user_id"`
	Position      int             `json:"position"`
	StakedAtDraft decimal.Decimal `json:"staked_at_draft"`
}

// ── League class configuration ───────────────────────

type LeagueConfig struct {
	WagerAmount  decimal.Decimal
	PositionSize decimal.Decimal
}

var leagueConfigs = map[UserClass]LeagueConfig{
	ClassBarnacle: {decimal.RequireFromString("0.1"), decimal.NewFromInt(1_000)},
	ClassGuppie:   {decimal.RequireFromString("0.5"), decimal.NewFromInt(5_000)},
	ClassShark:    {decimal.NewFromInt(1), decimal.NewFromInt(10_000)},
	ClassWhale:    {decimal.NewFromInt(100), decimal.NewFromInt(100_000)},
	ClassPoseidon: {decimal.NewFromInt(1_000), decimal.NewFromInt(1_000_000)},
}

// LeagueConfigFor returns the fixed wager/position sizing for a class.
func LeagueConfigFor(c UserClass) (LeagueConfig, bool) {
	cfg, ok := leagueConfigs[c]
	return cfg, ok
}

// ── Stake weighting ──────────────────────────────────

// StakeWeight maps a staked UNITE amount onto the deterministic bonus used
// during draft-position assignment. Step thresholds, not interpolation.
func StakeWeight(staked decimal.Decimal) float64 {
	switch {
	case staked.GreaterThanOrEqual(decimal.NewFromInt(50_000)):
		return 0.5
	case staked.GreaterThanOrEqual(decimal.NewFromInt(40_000)):
		return 0.4
	case staked.GreaterThanOrEqual(decimal.NewFromInt(30_000)):
		return 0.3
	case staked.GreaterThanOrEqual(decimal.NewFromInt(20_000)):
		return 0.2
	case staked.GreaterThanOrEqual(decimal.NewFromInt(10_000)):
		return 0.1
	default:
		return 0.05
	}
}

// StakeTier describes a staking tier and the leverage it unlocks.
type StakeTier struct {
	Tier     int    `json:"tier"`
	MinStake int64  `json:"min_stake"`
	Leverage string `json:"leverage"`
	Label    string `json:"label"`
}

var stakeTiers = []StakeTier{
	{5, 50_000, "10x", "Poseidon"},
	{4, 40_000, "5x", "Tier 4"},
	{3, 30_000, "4x", "Tier 3"},
	{2, 20_000, "3x", "Tier 2"},
	{1, 10_000, "2x", "Tier 1"},
}

// TierFor returns the highest tier the staked amount qualifies for.
func TierFor(staked decimal.Decimal) StakeTier {
	for _, t := range stakeTiers {
		if staked.GreaterThanOrEqual(decimal.NewFromInt(t.MinStake)) {
			return t
		}
	}
	return StakeTier{0, 0, "1x", "No Tier"}
}

// NextTierFor returns the next tier above the staked amount, or nil at the top.
func NextTierFor(staked decimal.Decimal) *StakeTier {
	for i := len(stakeTiers) - 1; i >= 0; i-- {
		t := stakeTiers[i]
		if staked.LessThan(decimal.NewFromInt(t.MinStake)) {
			return &t
		}
	}
	return nil
}
