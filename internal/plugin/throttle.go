package plugin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anime-shed/allsky-modules-go/internal/repository"
)

// Throttle limits periodic modules to one run per period
type Throttle struct {
	store repository.LastRunStore
	now   func() time.Time
}

// NewThrottle creates a throttle over store. now defaults to time.Now.
func NewThrottle(store repository.LastRunStore, now func() time.Time) *Throttle {
	if now == nil {
		now = time.Now
	}
	return &Throttle{store: store, now: now}
}

// ShouldRun reports whether module is due and how long ago it last ran.
// A module that never ran is due with a zero elapsed time.
func (t *Throttle) ShouldRun(ctx context.Context, module string, period time.Duration) (bool, time.Duration, error) {
	last, err := t.store.LastRun(ctx, module)
	if errors.Is(err, repository.ErrNeverRun) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read last run: %w", err)
	}

	elapsed := t.now().Sub(last)
	return elapsed >= period, elapsed, nil
}

// MarkRun records that module ran now
func (t *Throttle) MarkRun(ctx context.Context, module string) error {
	if err := t.store.SetLastRun(ctx, module, t.now()); err != nil {
		return fmt.Errorf("failed to record last run: %w", err)
	}
	return nil
}

// SkipMessage is the status line for a throttled run
func SkipMessage(elapsed, period time.Duration) string {
	return fmt.Sprintf("Last run %d seconds ago. Running every %d seconds",
		int64(elapsed/time.Second), int64(period/time.Second))
}
