package scheduler

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Limiter bounds the number of completions in flight across every goroutine
// sharing it. It records the active and peak counts it has seen.
type Limiter struct {
	sem    *semaphore.Weighted
	size   int64
	active atomic.Int64
	peak   atomic.Int64
	total  atomic.Int64
}

// NewLimiter returns a Limiter admitting n holders at once. n < 1 means 1.
func NewLimiter(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(n)), size: int64(n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.total.Add(1)
	current := l.active.Add(1)
	for {
		peak := l.peak.Load()
		if current <= peak || l.peak.CompareAndSwap(peak, current) {
			return nil
		}
	}
}

// Release frees a slot taken by Acquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// Size is the number of slots.
func (l *Limiter) Size() int { return int(l.size) }

// Active is the number of slots currently held.
func (l *Limiter) Active() int { return int(l.active.Load()) }

// Peak is the largest number of slots ever held at once.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }

// Acquired counts successful acquisitions.
func (l *Limiter) Acquired() int { return int(l.total.Load()) }
