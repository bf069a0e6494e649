// Package league handles season leagues: creation, joining, and the
// filled-league transition into draft-position assignment.
package league

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

// Store is the persistence surface the service needs. *db.Store satisfies it.
type Store interface {
	CreateLeague(ctx context.Context, l *model.League) error
	GetLeague(ctx context.Context, id string) (*model.League, error)
	AvailableLeagues(ctx context.Context, class model.UserClass) ([]model.League, error)
	UserLeagues(ctx context.Context, userID string) ([]model.League, error)
	AddParticipant(ctx context.Context, leagueID, userID string) (int, error)
	MarkLeagueFilled(ctx context.Context, leagueID string, draftTime time.Time) (bool, error)
	LeagueParticipants(ctx context.Context, leagueID string) ([]model.LeagueParticipant, error)
	LeagueRankings(ctx context.Context, leagueID string) ([]model.LeagueParticipant, error)
}

// Assigner runs draft-position assignment once a league fills.
type Assigner interface {
	Assign(ctx context.Context, leagueID string) ([]model.DraftAssignment, error)
}

type Service struct {
	store    Store
	assigner Assigner
	now      func() time.Time
}

func NewService(store Store, assigner Assigner) *Service {
	return &Service{store: store, assigner: assigner, now: time.Now}
}

// Create opens a new filling league for a class. Wager and position sizing
// come from the class configuration, not the caller.
func (s *Service) Create(ctx context.Context, class model.UserClass, maxParticipants int, seasonStart, seasonEnd time.Time) (*model.League, error) {
	cfg, ok := model.LeagueConfigFor(class)
	if !ok {
		return nil, fmt.Errorf("%w: unknown league class %q", model.ErrValidation, class)
	}
	if maxParticipants < 2 {
		return nil, fmt.Errorf("%w: league needs at least 2 participants", model.ErrValidation)
	}
	if !seasonEnd.After(seasonStart) {
		return nil, fmt.Errorf("%w: season end must follow season start", model.ErrValidation)
	}
	l := &model.League{
		LeagueClass:     class,
		WagerAmount:     cfg.WagerAmount,
		PositionSize:    cfg.PositionSize,
		MaxParticipants: maxParticipants,
		SeasonStart:     seasonStart,
		SeasonEnd:       seasonEnd,
	}
	if err := s.store.CreateLeague(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Join adds a user to a filling league. The join that brings the league to
// capacity also flips it to filled, schedules the draft and runs position
// assignment; the filled transition is conditional, so only one joiner ever
// runs the lottery.
func (s *Service) Join(ctx context.Context, leagueID, userID string) (*model.League, error) {
	l, err := s.store.GetLeague(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, model.ErrNotFound
	}
	if l.Status != model.LeagueFilling {
		return nil, fmt.Errorf("league is %s: %w", l.Status, model.ErrConflict)
	}

	count, err := s.store.AddParticipant(ctx, leagueID, userID)
	if err != nil {
		return nil, err
	}
	l.Participants = count

	if count >= l.MaxParticipants {
		draftTime := s.draftTime()
		won, err := s.store.MarkLeagueFilled(ctx, leagueID, draftTime)
		if err != nil {
			return nil, err
		}
		if won {
			l.Status = model.LeagueFilled
			l.DraftTime = &draftTime
			if _, err := s.assigner.Assign(ctx, leagueID); err != nil {
				// The league stays filled; assignment can be retried
				// against the same pool since no position was written.
				log.Printf("[league] draft assignment failed for %s: %v", leagueID, err)
				return nil, err
			}
			l.Status = model.LeagueDrafting
		}
	}
	return l, nil
}

// draftTime schedules the draft three days out at 14:00 UTC.
func (s *Service) draftTime() time.Time {
	d := s.now().UTC().Add(72 * time.Hour)
	return time.Date(d.Year(), d.Month(), d.Day(), 14, 0, 0, 0, time.UTC)
}

func (s *Service) Get(ctx context.Context, id string) (*model.League, error) {
	return s.store.GetLeague(ctx, id)
}

func (s *Service) Available(ctx context.Context, class model.UserClass) ([]model.League, error) {
	if !model.ValidClass(class) {
		return nil, fmt.Errorf("%w: unknown league class %q", model.ErrValidation, class)
	}
	return s.store.AvailableLeagues(ctx, class)
}

func (s *Service) Mine(ctx context.Context, userID string) ([]model.League, error) {
	return s.store.UserLeagues(ctx, userID)
}

func (s *Service) Participants(ctx context.Context, leagueID string) ([]model.LeagueParticipant, error) {
	return s.store.LeagueParticipants(ctx, leagueID)
}

func (s *Service) Rankings(ctx context.Context, leagueID string) ([]model.LeagueParticipant, error) {
	return s.store.LeagueRankings(ctx, leagueID)
}
