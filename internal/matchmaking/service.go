package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/obsanitylabs/fantasy-crypto/internal/metrics"
	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// Store is the persistence surface the service needs. *db.Store satisfies it.
type Store interface {
	Enqueue(ctx context.Context, e *model.QueueEntry) error
	WaitingCandidates(ctx context.Context, class model.UserClass, excludeUserID string) ([]model.QueueCandidate, error)
	FormMatch(ctx context.Context, m *model.Match) error
	WaitingEntry(ctx context.Context, userID string) (*model.QueueEntry, error)
	Withdraw(ctx context.Context, userID string) error
	UpdateNotificationPrefs(ctx context.Context, userID string, method, handle *string) error
}

// Notifier delivers match-found notices. Deliveries happen after the match
// is committed and must never fail the request.
type Notifier interface {
	MatchFound(address string, entry *model.QueueEntry, match *model.Match)
}

type Service struct {
	store    Store
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(store Store, notifier Notifier, m *metrics.Metrics) *Service {
	return &Service{store: store, notifier: notifier, metrics: m, now: time.Now}
}

// Request is one user asking for an opponent.
type Request struct {
	User               *model.User
	WagerAmount        decimal.Decimal
	PositionSize       decimal.Decimal
	UserClass          model.UserClass
	NotificationMethod *string
	NotificationHandle *string
}

func (r Request) validate() error {
	if r.User == nil {
		return fmt.Errorf("%w: missing user", model.ErrValidation)
	}
	if !r.WagerAmount.IsPositive() {
		return fmt.Errorf("%w: wager amount must be positive", model.ErrValidation)
	}
	if !r.PositionSize.IsPositive() {
		return fmt.Errorf("%w: position size must be positive", model.ErrValidation)
	}
	if !model.ValidClass(r.UserClass) {
		return fmt.Errorf("%w: unknown user class %q", model.ErrValidation, r.UserClass)
	}
	if r.NotificationMethod != nil {
		switch *r.NotificationMethod {
		case model.NotifyTelegram, model.NotifyTwitter:
		default:
			return fmt.Errorf("%w: unknown notification method %q", model.ErrValidation, *r.NotificationMethod)
		}
	}
	return nil
}

// Result is the outcome of a match request: either a formed match or the
// queue entry now waiting for one.
type Result struct {
	Matched bool              `json:"matched"`
	Match   *model.Match      `json:"match,omitempty"`
	Entry   *model.QueueEntry `json:"queue_entry,omitempty"`
}

// RequestMatch enqueues the user and immediately tries to pair them with the
// best waiting opponent. Losing a formation race is not an error: the entry
// stays queued and the caller sees the same "searching" result as an empty
// pool.
func (s *Service) RequestMatch(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	entry := &model.QueueEntry{
		UserID:             req.User.ID,
		WagerAmount:        req.WagerAmount,
		PositionSize:       req.PositionSize,
		UserClass:          req.UserClass,
		NotificationMethod: req.NotificationMethod,
		NotificationHandle: req.NotificationHandle,
		ExpiresAt:          s.now().Add(model.QueueEntryTTL),
	}
	if err := s.store.Enqueue(ctx, entry); err != nil {
		return nil, err
	}
	s.metrics.QueueJoined.WithLabelValues(string(req.UserClass)).Inc()

	pool, err := s.store.WaitingCandidates(ctx, req.UserClass, req.User.ID)
	if err != nil {
		// The entry is safely queued; a later request or the opponent's
		// own search can still pair it.
		log.Printf("[matchmaking] opponent search failed for %s: %v", req.User.ID, err)
		return &Result{Entry: entry}, nil
	}

	opponent := BestCandidate(pool, req.WagerAmount, req.PositionSize)
	if opponent == nil {
		return &Result{Entry: entry}, nil
	}

	m := &model.Match{
		ID:           uuid.New().String(),
		Player1ID:    req.User.ID,
		Player2ID:    &opponent.UserID,
		WagerAmount:  req.WagerAmount,
		PositionSize: req.PositionSize,
		EscrowAmount: model.Escrow(req.WagerAmount),
		Status:       model.MatchMatched,
	}
	if err := s.store.FormMatch(ctx, m); err != nil {
		if errors.Is(err, model.ErrConflict) {
			s.metrics.FormationRaces.Inc()
			return &Result{Entry: entry}, nil
		}
		return nil, err
	}
	s.metrics.MatchesFormed.WithLabelValues(string(req.UserClass)).Inc()
	log.Printf("[matchmaking] formed match %s: %s vs %s (wager %s)",
		m.ID, req.User.ID, opponent.UserID, m.WagerAmount)

	if s.notifier != nil {
		s.notifier.MatchFound(req.User.WalletAddress, entry, m)
		s.notifier.MatchFound(opponent.WalletAddress, &opponent.QueueEntry, m)
	}
	return &Result{Matched: true, Match: m}, nil
}

// Status returns the user's current waiting entry, or nil when none.
func (s *Service) Status(ctx context.Context, userID string) (*model.QueueEntry, error) {
	return s.store.WaitingEntry(ctx, userID)
}

// Withdraw removes the user's waiting entry.
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	if err := s.store.Withdraw(ctx, userID); err != nil {
		return err
	}
	s.metrics.QueueWithdrawn.Inc()
	return nil
}

// UpdateNotifications rewrites delivery preferences on the waiting entry.
func (s *Service) UpdateNotifications(ctx context.Context, userID string, method, handle *string) error {
	if method != nil {
		switch *method {
		case model.NotifyTelegram, model.NotifyTwitter:
		default:
			return fmt.Errorf("%w: unknown notification method %q", model.ErrValidation, *method)
		}
	}
	return s.store.UpdateNotificationPrefs(ctx, userID, method, handle)
}
