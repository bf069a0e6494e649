package matchmaking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/obsanitylabs/fantasy-crypto/internal/metrics"
	"github.com/obsanitylabs/fantasy-crypto/internal/model"
)

type fakeStore struct {
	entries    []*model.QueueEntry
	pool       []model.QueueCandidate
	poolErr    error
	formErr    error
	formed     []*model.Match
	withdrawn  []string
	enqueueErr error
}

func (f *fakeStore) Enqueue(_ context.Context, e *model.QueueEntry) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	e.ID = "entry-" + e.UserID
	e.Status = model.QueueWaiting
	e.CreatedAt = time.Now()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeStore) WaitingCandidates(_ context.Context, _ model.UserClass, _ string) ([]model.QueueCandidate, error) {
	return f.pool, f.poolErr
}

func (f *fakeStore) FormMatch(_ context.Context, m *model.Match) error {
	if f.formErr != nil {
		return f.formErr
	}
	m.CreatedAt = time.Now()
	f.formed = append(f.formed, m)
	return nil
}

func (f *fakeStore) WaitingEntry(_ context.Context, userID string) (*model.QueueEntry, error) {
	for _, e := range f.entries {
		if e.UserID == userID && e.Status == model.QueueWaiting {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) Withdraw(_ context.Context, userID string) error {
	f.withdrawn = append(f.withdrawn, userID)
	return nil
}

func (f *fakeStore) UpdateNotificationPrefs(_ context.Context, _ string, _, _ *string) error {
	return nil
}

type fakeNotifier struct {
	notified []string
}

func (f *fakeNotifier) MatchFound(address string, _ *model.QueueEntry, _ *model.Match) {
	f.notified = append(f.notified, address)
}

func testUser(id string) *model.User {
	return &model.User{ID: id, WalletAddress: "0x" + id, UserClass: model.ClassShark}
}

func testRequest(u *model.User) Request {
	return Request{
		User:         u,
		WagerAmount:  dec("1.0"),
		PositionSize: dec("10000"),
		UserClass:    model.ClassShark,
	}
}

func TestRequestMatchQueuesWhenPoolEmpty(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeNotifier{}, metrics.New())

	result, err := svc.RequestMatch(context.Background(), testRequest(testUser("u1")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matched {
		t.Fatal("expected no match with empty pool")
	}
	if result.Entry == nil || result.Entry.UserID != "u1" {
		t.Fatalf("expected queued entry for u1, got %+v", result.Entry)
	}
	if result.Entry.ExpiresAt.Sub(result.Entry.CreatedAt) > model.QueueEntryTTL+time.Minute {
		t.Fatal("entry expiry exceeds TTL")
	}
}

func TestRequestMatchFormsMatch(t *testing.T) {
	store := &fakeStore{
		pool: []model.QueueCandidate{candidate("u2", "1.05", "9500", time.Now())},
	}
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, metrics.New())

	result, err := svc.RequestMatch(context.Background(), testRequest(testUser("u1")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched || result.Match == nil {
		t.Fatalf("expected match, got %+v", result)
	}
	m := result.Match
	if m.Player1ID != "u1" || m.Player2ID == nil || *m.Player2ID != "u2" {
		t.Fatalf("wrong pairing: %+v", m)
	}
	if !m.EscrowAmount.Equal(dec("2.0")) {
		t.Fatalf("expected escrow 2x wager, got %s", m.EscrowAmount)
	}
	if m.Status != model.MatchMatched {
		t.Fatalf("expected matched status, got %s", m.Status)
	}
	if len(notifier.notified) != 2 {
		t.Fatalf("expected both participants notified, got %v", notifier.notified)
	}
}

func TestRequestMatchLostRaceStaysQueued(t *testing.T) {
	store := &fakeStore{
		pool:    []model.QueueCandidate{candidate("u2", "1.0", "10000", time.Now())},
		formErr: model.ErrConflict,
	}
	notifier := &fakeNotifier{}
	svc := NewService(store, notifier, metrics.New())

	result, err := svc.RequestMatch(context.Background(), testRequest(testUser("u1")))
	if err != nil {
		t.Fatalf("lost race must not be an error, got %v", err)
	}
	if result.Matched {
		t.Fatal("expected no match after lost race")
	}
	if result.Entry == nil {
		t.Fatal("expected entry to remain queued")
	}
	if len(notifier.notified) != 0 {
		t.Fatal("nobody should be notified after a lost race")
	}
}

func TestRequestMatchSearchFailureDegradesToQueued(t *testing.T) {
	store := &fakeStore{poolErr: errors.New("db down")}
	svc := NewService(store, &fakeNotifier{}, metrics.New())

	result, err := svc.RequestMatch(context.Background(), testRequest(testUser("u1")))
	if err != nil {
		t.Fatalf("search failure must not fail the request, got %v", err)
	}
	if result.Matched || result.Entry == nil {
		t.Fatalf("expected queued result, got %+v", result)
	}
}

func TestRequestMatchValidation(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeNotifier{}, metrics.New())

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"zero wager", func(r *Request) { r.WagerAmount = dec("0") }},
		{"negative wager", func(r *Request) { r.WagerAmount = dec("-1") }},
		{"zero position", func(r *Request) { r.PositionSize = dec("0") }},
		{"bad class", func(r *Request) { r.UserClass = "Kraken" }},
		{"bad notify method", func(r *Request) {
			m := "carrier-pigeon"
			r.NotificationMethod = &m
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := testRequest(testUser("u1"))
			tc.mutate(&req)
			_, err := svc.RequestMatch(context.Background(), req)
			if !errors.Is(err, model.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestRequestMatchDoubleEnqueueConflict(t *testing.T) {
	store := &fakeStore{enqueueErr: model.ErrConflict}
	svc := NewService(store, &fakeNotifier{}, metrics.New())

	_, err := svc.RequestMatch(context.Background(), testRequest(testUser("u1")))
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict for double enqueue, got %v", err)
	}
}

func TestWithdraw(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(store, &fakeNotifier{}, metrics.New())

	if err := svc.Withdraw(context.Background(), "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.withdrawn) != 1 || store.withdrawn[0] != "u1" {
		t.Fatalf("expected withdraw for u1, got %v", store.withdrawn)
	}
}
