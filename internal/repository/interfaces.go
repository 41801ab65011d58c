package repository

import (
	"context"
	"time"
)

// LastRunStore records when each module last did its work
type LastRunStore interface {
	// LastRun returns the last recorded run, or ErrNeverRun
	LastRun(ctx context.Context, module string) (time.Time, error)

	// SetLastRun records a run at the given time
	SetLastRun(ctx context.Context, module string, at time.Time) error

	// Close releases any resources held by the store
	Close() error
}

// BreakerState is what a circuit breaker needs to carry between processes
type BreakerState struct {
	// Failures counts consecutive failed calls
	Failures int

	// OpenUntil is zero unless the breaker tripped
	OpenUntil time.Time
}

// BreakerStore keeps circuit breaker state by breaker name
type BreakerStore interface {
	// BreakerState returns the saved state, or the zero state when none was saved
	BreakerState(ctx context.Context, name string) (BreakerState, error)

	// SetBreakerState replaces the saved state
	SetBreakerState(ctx context.Context, name string, state BreakerState) error
}

// Store is the state shared by one-shot module invocations
type Store interface {
	LastRunStore
	BreakerStore
}
