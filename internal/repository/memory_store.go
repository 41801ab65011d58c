package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps last-run times for the lifetime of the process
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]time.Time
	breakers map[string]BreakerState
	closed   bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:     make(map[string]time.Time),
		breakers: make(map[string]BreakerState),
	}
}

// LastRun returns the last recorded run for module
func (s *MemoryStore) LastRun(ctx context.Context, module string) (time.Time, error) {
	if module == "" {
		return time.Time{}, ErrInvalidModule
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return time.Time{}, ErrRepositoryUnavailable
	}
	at, ok := s.runs[module]
	if !ok {
		return time.Time{}, ErrNeverRun
	}
	return at, nil
}

// SetLastRun records a run for module
func (s *MemoryStore) SetLastRun(ctx context.Context, module string, at time.Time) error {
	if module == "" {
		return ErrInvalidModule
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrRepositoryUnavailable
	}
	s.runs[module] = at
	return nil
}

// BreakerState returns the saved state for name
func (s *MemoryStore) BreakerState(ctx context.Context, name string) (BreakerState, error) {
	if name == "" {
		return BreakerState{}, ErrInvalidModule
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return BreakerState{}, ErrRepositoryUnavailable
	}
	return s.breakers[name], nil
}

// SetBreakerState saves state for name
func (s *MemoryStore) SetBreakerState(ctx context.Context, name string, state BreakerState) error {
	if name == "" {
		return ErrInvalidModule
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrRepositoryUnavailable
	}
	s.breakers[name] = state
	return nil
}

// Close marks the store unusable
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
