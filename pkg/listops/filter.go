package listops

import (
	"context"
	"fmt"

	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/scheduler"
)

// FilterArgs are the arguments of FilterList.
type FilterArgs[T any] struct {
	Goal string
	List []T
	Options
}

// FilterList keeps the items the model does not choose to remove, preserving
// their relative order.
func FilterList[T any](ctx context.Context, e *Engine, args FilterArgs[T]) Result[[]T] {
	return run(ctx, e, "filter", scheduler.StrategyParallel, len(args.List), args.Options, func(ctx context.Context, op *operation) ([]T, error) {
		if err := requireGoal(args.Goal); err != nil {
			return nil, err
		}

		system := fmt.Sprintf(filterSystemPrompt, args.Goal, withInstructions(op.instructions))
		shape := extract.Boolean("remove_item")

		remove, err := forEach(ctx, op, args.List, func(ctx context.Context, i int, item T) (bool, error) {
			remove, raw, err := complete[bool](ctx, op, op.request(system, itemPrompt(i, len(args.List), item)), shape)
			if err != nil {
				return false, err
			}
			op.explain(i, raw)
			return remove, nil
		})
		if err != nil {
			return nil, err
		}

		kept := make([]T, 0, len(args.List))
		for i, item := range args.List {
			if !remove[i] {
				kept = append(kept, item)
			}
		}
		return kept, nil
	})
}
