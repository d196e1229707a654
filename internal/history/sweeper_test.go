package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staleStore struct {
	cutoff  time.Time
	deleted int64
	err     error
}

func (s *staleStore) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.cutoff = cutoff
	return s.deleted, s.err
}

func TestSweeper_Sweep(t *testing.T) {
	store := &staleStore{deleted: 3}
	sweeper := NewSweeper(store, 24*time.Hour)
	now := time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return now }

	deleted, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
	assert.Equal(t, now.Add(-24*time.Hour), store.cutoff)
}

func TestSweeper_Error(t *testing.T) {
	sweeper := NewSweeper(&staleStore{err: errors.New("db down")}, time.Hour)

	_, err := sweeper.Sweep(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stale history")
}
