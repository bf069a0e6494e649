package db

import (
	"context"
	"database/sql"
	"log"
	"time"
)

// Querier is the read/write surface shared by *sql.DB and the hooked wrapper.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Hooks observe every statement issued through the wrapped querier. This is
// the explicit replacement for runtime method reassignment on the client:
// the wrapper is a plain type with defined extension points.
type Hooks struct {
	Before func(query string)
	After  func(query string, d time.Duration, err error)

	// SlowThreshold triggers a warning through Warnf when a statement takes
	// longer. Zero disables the check.
	SlowThreshold time.Duration
	Warnf         func(format string, args ...any)
}

// DefaultHooks warns on statements slower than 5 seconds, matching the
// checkout warning the service has always logged.
func DefaultHooks() Hooks {
	return Hooks{
		SlowThreshold: 5 * time.Second,
		Warnf:         log.Printf,
	}
}

type hookedQuerier struct {
	inner Querier
	hooks Hooks
}

// WithHooks decorates a querier with timing hooks.
func WithHooks(inner Querier, h Hooks) Querier {
	if h.Warnf == nil {
		h.Warnf = log.Printf
	}
	return &hookedQuerier{inner: inner, hooks: h}
}

func (h *hookedQuerier) observe(query string) func(err error) {
	if h.hooks.Before != nil {
		h.hooks.Before(query)
	}
	start := time.Now()
	return func(err error) {
		d := time.Since(start)
		if h.hooks.After != nil {
			h.hooks.After(query, d, err)
		}
		if h.hooks.SlowThreshold > 0 && d > h.hooks.SlowThreshold {
			h.hooks.Warnf("[db] slow query (%s): %.60s", d, query)
		}
	}
}

func (h *hookedQuerier) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	done := h.observe(query)
	res, err := h.inner.ExecContext(ctx, query, args...)
	done(err)
	return res, err
}

func (h *hookedQuerier) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	done := h.observe(query)
	rows, err := h.inner.QueryContext(ctx, query, args...)
	done(err)
	return rows, err
}

func (h *hookedQuerier) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	// *sql.Row defers execution and its error until Scan, so this timing
	// covers only the call itself and the hook never sees a row error.
	done := h.observe(query)
	row := h.inner.QueryRowContext(ctx, query, args...)
	done(nil)
	return row
}
