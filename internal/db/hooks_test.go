package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

type recordingQuerier struct {
	delay   time.Duration
	execErr error
	queries []string
}

func (r *recordingQuerier) ExecContext(_ context.Context, query string, _ ...any) (sql.Result, error) {
	time.Sleep(r.delay)
	r.queries = append(r.queries, query)
	return nil, r.execErr
}

func (r *recordingQuerier) QueryContext(_ context.Context, query string, _ ...any) (*sql.Rows, error) {
	r.queries = append(r.queries, query)
	return nil, nil
}

func (r *recordingQuerier) QueryRowContext(_ context.Context, query string, _ ...any) *sql.Row {
	r.queries = append(r.queries, query)
	return nil
}

func TestHooksObserveEveryStatement(t *testing.T) {
	inner := &recordingQuerier{}
	var before, after []string
	q := WithHooks(inner, Hooks{
		Before: func(query string) { before = append(before, query) },
		After:  func(query string, _ time.Duration, _ error) { after = append(after, query) },
	})

	q.ExecContext(context.Background(), "UPDATE a")
	q.QueryContext(context.Background(), "SELECT b")
	q.QueryRowContext(context.Background(), "SELECT c")

	if len(before) != 3 || len(after) != 3 {
		t.Fatalf("expected 3 before/after calls, got %d/%d", len(before), len(after))
	}
	if before[0] != "UPDATE a" || after[2] != "SELECT c" {
		t.Fatalf("hooks saw wrong queries: before=%v after=%v", before, after)
	}
}

func TestHooksSlowWarning(t *testing.T) {
	inner := &recordingQuerier{delay: 5 * time.Millisecond}
	var warned string
	q := WithHooks(inner, Hooks{
		SlowThreshold: time.Millisecond,
		Warnf: func(format string, args ...any) {
			warned = fmt.Sprintf(format, args...)
		},
	})

	q.ExecContext(context.Background(), "SELECT pg_sleep(10)")
	if warned == "" {
		t.Fatal("expected slow-query warning")
	}
	if !strings.Contains(warned, "slow query") {
		t.Fatalf("unexpected warning: %q", warned)
	}
}

func TestHooksFastQueryNoWarning(t *testing.T) {
	inner := &recordingQuerier{}
	q := WithHooks(inner, Hooks{
		SlowThreshold: time.Second,
		Warnf: func(format string, args ...any) {
			t.Fatalf("unexpected warning: "+format, args...)
		},
	})
	q.ExecContext(context.Background(), "SELECT 1")
}

func TestHooksPassThroughError(t *testing.T) {
	wantErr := errors.New("boom")
	inner := &recordingQuerier{execErr: wantErr}
	var gotErr error
	q := WithHooks(inner, Hooks{
		After: func(_ string, _ time.Duration, err error) { gotErr = err },
	})

	if _, err := q.ExecContext(context.Background(), "UPDATE a"); !errors.Is(err, wantErr) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !errors.Is(gotErr, wantErr) {
		t.Fatalf("after hook did not see the error: %v", gotErr)
	}
}
