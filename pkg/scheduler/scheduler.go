// Package scheduler runs units of work against a completion backend under a
// concurrency bound.
//
// Two strategies exist. Parallel fans independent units out and reassembles
// their results in input order. Fold threads an accumulator through the units
// one at a time. Operators pick the strategy their semantics require.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Strategy names how an operator schedules its units.
type Strategy string

const (
	StrategyParallel   Strategy = "parallel"
	StrategySequential Strategy = "sequential"
)

// ErrUnitPanic marks a unit of work that panicked.
var ErrUnitPanic = errors.New("unit panicked")

// Recover turns a panic in the calling goroutine into an error wrapping
// ErrUnitPanic, stored in *errp. Use it directly with defer.
func Recover(errp *error) {
	if r := recover(); r != nil {
		*errp = fmt.Errorf("%w: %v", ErrUnitPanic, r)
	}
}

// UnitError reports the failure of one unit of work.
type UnitError struct {
	Index int
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %d: %v", e.Index, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// Parallel runs fn for every index in [0, n) with at most limit calls in
// flight (limit < 1 means 1) and returns the results in index order.
//
// A unit that panics fails with an error wrapping ErrUnitPanic.
//
// After the first failure no further units are started. Units already running
// finish with the caller's ctx, which is never cancelled on their behalf, and
// their results are discarded. The returned error is a *UnitError for the
// lowest failed index.
func Parallel[T any](ctx context.Context, n, limit int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]T, n)
	errs := make([]error, n)

	var g errgroup.Group
	g.SetLimit(limit)

	var failed atomic.Bool
	started := 0
	for i := 0; i < n; i++ {
		if failed.Load() || ctx.Err() != nil {
			break
		}
		started++
		g.Go(func() error {
			if failed.Load() {
				return nil
			}
			v, err := call(ctx, i, fn)
			if err != nil {
				errs[i] = err
				failed.Store(true)
				return nil
			}
			results[i] = v
			return nil
		})
	}
	g.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, &UnitError{Index: i, Err: err}
		}
	}
	if started < n {
		return nil, ctx.Err()
	}
	return results, nil
}

// Fold is a strict left fold: step i+1 receives the accumulator returned by
// step i. Units never overlap.
func Fold[T, A any](ctx context.Context, items []T, init A, step func(ctx context.Context, acc A, item T, i int) (A, error)) (A, error) {
	acc := init
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return acc, err
		}
		next, err := call(ctx, i, func(ctx context.Context, i int) (A, error) {
			return step(ctx, acc, item, i)
		})
		if err != nil {
			return acc, &UnitError{Index: i, Err: err}
		}
		acc = next
	}
	return acc, nil
}

func call[T any](ctx context.Context, i int, fn func(ctx context.Context, i int) (T, error)) (v T, err error) {
	defer Recover(&err)
	return fn(ctx, i)
}
