package matchmaking

import (
	"context"
	"errors"
	"testing"

	"github.com/obsanitylabs/fantasy-crypto/internal/metrics"
)

type fakeDeleter struct {
	n     int64
	err   error
	calls int
}

func (f *fakeDeleter) DeleteExpired(_ context.Context) (int64, error) {
	f.calls++
	return f.n, f.err
}

func TestSweepReturnsCount(t *testing.T) {
	d := &fakeDeleter{n: 7}
	s := NewSweeper(d, metrics.New())

	n, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 removed, got %d", n)
	}
}

func TestSweepIdempotentWhenNothingExpired(t *testing.T) {
	d := &fakeDeleter{n: 0}
	s := NewSweeper(d, metrics.New())

	for i := 0; i < 3; i++ {
		if n, err := s.Sweep(context.Background()); err != nil || n != 0 {
			t.Fatalf("pass %d: got n=%d err=%v", i, n, err)
		}
	}
	if d.calls != 3 {
		t.Fatalf("expected 3 store calls, got %d", d.calls)
	}
}

func TestSweepPropagatesError(t *testing.T) {
	d := &fakeDeleter{err: errors.New("db down")}
	s := NewSweeper(d, metrics.New())

	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
