package history

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// StaleDeleter removes history rows that never completed
type StaleDeleter interface {
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Sweeper deletes history left open by runs that died without closing or
// discarding it, such as after a process crash
type Sweeper struct {
	store      StaleDeleter
	staleAfter time.Duration
	now        func() time.Time
}

// NewSweeper creates a new sweeper
func NewSweeper(store StaleDeleter, staleAfter time.Duration) *Sweeper {
	return &Sweeper{store: store, staleAfter: staleAfter, now: time.Now}
}

// Sweep deletes open history rows older than the stale threshold together
// with their message rows and returns how many runs were removed
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-s.staleAfter).UTC()
	deleted, err := s.store.DeleteStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale history: %w", err)
	}

	if deleted > 0 {
		logrus.Infof("Cleaned up %d stale history rows older than %s", deleted, cutoff.Format(time.RFC3339))
	} else {
		logrus.Debug("No stale history rows to clean up")
	}
	return deleted, nil
}
