package listops

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/scheduler"
)

// SortArgs are the arguments of SortList.
type SortArgs[T any] struct {
	Goal string
	List []T

	// VerifyOrder checks the sorted result against the model and fails with
	// ErrOrderingInconsistency when an answer contradicts it. Adjacent pairs
	// are asked again with the items swapped; every other pair not compared
	// during the sort is asked once. Costs up to n*(n-1)/2 extra completions.
	VerifyOrder bool

	Options
}

// SortList orders the list by pairwise model comparisons using a top-down
// merge sort. Both halves of every split are sorted concurrently; a shared
// limiter keeps at most ParallelCompletions comparisons in flight.
//
// A comparison answered EQUAL keeps the earlier item first, so ties retain
// their input order.
func SortList[T any](ctx context.Context, e *Engine, args SortArgs[T]) Result[[]T] {
	return run(ctx, e, "sort", scheduler.StrategyParallel, len(args.List), args.Options, func(ctx context.Context, op *operation) ([]T, error) {
		if err := requireGoal(args.Goal); err != nil {
			return nil, err
		}

		s := &sorter[T]{
			op:      op,
			list:    args.List,
			system:  fmt.Sprintf(sortSystemPrompt, args.Goal, withInstructions(op.instructions)),
			shape:   extract.Ordering("sort_item_a"),
			limiter: scheduler.NewLimiter(op.parallel),
			memo:    make(map[[2]int]int),
		}

		idx := make([]int, len(args.List))
		for i := range idx {
			idx[i] = i
		}
		order, err := s.sort(ctx, idx)
		if err != nil {
			return nil, err
		}
		if args.VerifyOrder {
			if err := s.verify(ctx, order); err != nil {
				return nil, err
			}
		}

		sorted := make([]T, len(order))
		for i, j := range order {
			sorted[i] = args.List[j]
		}
		return sorted, nil
	})
}

type sorter[T any] struct {
	op      *operation
	list    []T
	system  string
	shape   extract.Shape
	limiter *scheduler.Limiter

	mu   sync.Mutex
	memo map[[2]int]int // decision for (a, b) by original index
}

func (s *sorter[T]) sort(ctx context.Context, idx []int) ([]int, error) {
	if len(idx) < 2 {
		return idx, nil
	}
	mid := len(idx) / 2

	var left, right []int
	var g errgroup.Group
	g.Go(func() (err error) {
		defer scheduler.Recover(&err)
		left, err = s.sort(ctx, idx[:mid])
		return err
	})
	g.Go(func() (err error) {
		defer scheduler.Recover(&err)
		right, err = s.sort(ctx, idx[mid:])
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return s.merge(ctx, left, right)
}

func (s *sorter[T]) merge(ctx context.Context, left, right []int) ([]int, error) {
	out := make([]int, 0, len(left)+len(right))
	i, j := 0, 0
	for i < len(left) && j < len(right) {
		d, err := s.compare(ctx, left[i], right[j])
		if err != nil {
			return nil, err
		}
		if d <= extract.Equal {
			out = append(out, left[i])
			i++
		} else {
			out = append(out, right[j])
			j++
		}
	}
	out = append(out, left[i:]...)
	return append(out, right[j:]...), nil
}

// compare asks whether item a sorts before item b. Decisions are memoized in
// both directions so no pair is asked twice.
func (s *sorter[T]) compare(ctx context.Context, a, b int) (int, error) {
	s.mu.Lock()
	d, ok := s.memo[[2]int{a, b}]
	s.mu.Unlock()
	if ok {
		return d, nil
	}

	d, err := s.ask(ctx, a, b)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.memo[[2]int{a, b}] = d
	s.memo[[2]int{b, a}] = -d
	s.mu.Unlock()
	return d, nil
}

func (s *sorter[T]) ask(ctx context.Context, a, b int) (int, error) {
	var d int
	err := s.limiter.Do(ctx, func(ctx context.Context) error {
		prompt := fmt.Sprintf(sortItemPrompt, itemString(s.list[a]), itemString(s.list[b]))
		got, raw, err := complete[int](ctx, s.op, s.op.request(s.system, prompt), s.shape)
		if err != nil {
			return fmt.Errorf("compare items %d and %d: %w", a, b, err)
		}
		d = got
		if s.op.logExplanations {
			s.op.log.Info("comparison",
				zap.Int("a", a), zap.Int("b", b), zap.Int("decision", d),
				zap.String("explanation", extract.Explanation(raw)))
		}
		return nil
	})
	return d, err
}

// verify checks order in two passes. Adjacent pairs are asked again with the
// items swapped, which exposes answers that depend on presentation order.
// Non-adjacent pairs go through the memo, so only pairs the sort never
// compared are asked; this exposes cycles such as a < b < c < a, whose
// adjacent pairs all agree with the order.
func (s *sorter[T]) verify(ctx context.Context, order []int) error {
	for k := 0; k+1 < len(order); k++ {
		a, b := order[k], order[k+1]
		d, err := s.ask(ctx, b, a)
		if err != nil {
			return err
		}
		if d == extract.Before {
			return fmt.Errorf("%w: item %d was placed before item %d but the reversed comparison disagrees", ErrOrderingInconsistency, a, b)
		}
	}
	for i := range order {
		for j := i + 2; j < len(order); j++ {
			a, b := order[i], order[j]
			d, err := s.compare(ctx, a, b)
			if err != nil {
				return err
			}
			if d == extract.After {
				return fmt.Errorf("%w: item %d was placed before item %d but the model orders them the other way", ErrOrderingInconsistency, a, b)
			}
		}
	}
	return nil
}
