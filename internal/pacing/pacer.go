// Package pacing spaces out successive platform posts.
package pacing

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer blocks until the next post may be sent
type Pacer interface {
	Wait(ctx context.Context) error
}

// IntervalPacer allows one post per interval
type IntervalPacer struct {
	limiter *rate.Limiter
}

var _ Pacer = (*IntervalPacer)(nil)

// NewIntervalPacer creates a pacer that admits one post every interval. The
// first post is admitted immediately.
func NewIntervalPacer(interval time.Duration) Pacer {
	if interval <= 0 {
		return None{}
	}
	return &IntervalPacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *IntervalPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Factory builds the pacer of one run
type Factory func() Pacer

// PerRun returns a Factory handing every run its own interval pacer, so
// concurrent runs in different channels do not share a budget.
func PerRun(interval time.Duration) Factory {
	return func() Pacer {
		return NewIntervalPacer(interval)
	}
}

// None never waits
type None struct{}

func (None) Wait(ctx context.Context) error {
	return ctx.Err()
}
