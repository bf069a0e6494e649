package model

import "errors"

// Sentinel errors shared across store, services and API. The API layer maps
// them onto HTTP status codes with errors.Is.
var (
	// ErrNotFound: a referenced user/match/league row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict: a conditional update lost a race — the queue entry was
	// already matched or withdrawn, the user is already queued, or the
	// league already left the expected state.
	ErrConflict = errors.New("conflict")

	// ErrExhausted: a bounded resource (reward pool, league capacity) is full.
	ErrExhausted = errors.New("exhausted")

	// ErrInsufficientBalance: a stake/unstake asked for more than the user holds.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrValidation: the request failed input validation before touching storage.
	ErrValidation = errors.New("validation failed")
)
