package listops

import (
	"context"
	"fmt"
	"strings"

	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/scheduler"
)

// ClassifyArgs are the arguments of ClassifyList.
type ClassifyArgs[T any] struct {
	Goal       string
	List       []T
	Categories []string
	Options
}

// ClassifiedItem pairs an item with its assigned category.
type ClassifiedItem[T any] struct {
	Item        T      `json:"item"`
	Category    string `json:"category"`
	Explanation string `json:"explanation,omitempty"`
}

// ClassifyList assigns one of args.Categories to every item. A category
// outside the set is treated as a malformed answer and retried.
func ClassifyList[T any](ctx context.Context, e *Engine, args ClassifyArgs[T]) Result[[]ClassifiedItem[T]] {
	return run(ctx, e, "classify", scheduler.StrategyParallel, len(args.List), args.Options, func(ctx context.Context, op *operation) ([]ClassifiedItem[T], error) {
		if err := requireGoal(args.Goal); err != nil {
			return nil, err
		}
		if len(args.Categories) == 0 {
			return nil, fmt.Errorf("%w: at least one category is required", ErrInvalidArgument)
		}

		bullets := make([]string, len(args.Categories))
		for i, c := range args.Categories {
			bullets[i] = "* " + c
		}
		system := fmt.Sprintf(classifySystemPrompt, strings.Join(bullets, "\n"), args.Goal, withInstructions(op.instructions))
		shape := extract.Category("category", args.Categories)

		return forEach(ctx, op, args.List, func(ctx context.Context, i int, item T) (ClassifiedItem[T], error) {
			category, raw, err := complete[string](ctx, op, op.request(system, itemPrompt(i, len(args.List), item)), shape)
			if err != nil {
				return ClassifiedItem[T]{}, err
			}
			return ClassifiedItem[T]{Item: item, Category: category, Explanation: op.explain(i, raw)}, nil
		})
	})
}

// BinaryClassifyArgs are the arguments of BinaryClassifyList.
type BinaryClassifyArgs[T any] struct {
	Goal string
	List []T
	Options
}

// BinaryClassifiedItem pairs an item with whether it matches the goal.
type BinaryClassifiedItem[T any] struct {
	Item        T      `json:"item"`
	Matches     bool   `json:"matches"`
	Explanation string `json:"explanation,omitempty"`
}

// BinaryClassifyList decides for every item whether it matches args.Goal.
func BinaryClassifyList[T any](ctx context.Context, e *Engine, args BinaryClassifyArgs[T]) Result[[]BinaryClassifiedItem[T]] {
	return run(ctx, e, "binary_classify", scheduler.StrategyParallel, len(args.List), args.Options, func(ctx context.Context, op *operation) ([]BinaryClassifiedItem[T], error) {
		if err := requireGoal(args.Goal); err != nil {
			return nil, err
		}

		system := fmt.Sprintf(binaryClassifySystemPrompt, args.Goal, withInstructions(op.instructions))
		shape := extract.Boolean("matches")

		return forEach(ctx, op, args.List, func(ctx context.Context, i int, item T) (BinaryClassifiedItem[T], error) {
			matches, raw, err := complete[bool](ctx, op, op.request(system, itemPrompt(i, len(args.List), item)), shape)
			if err != nil {
				return BinaryClassifiedItem[T]{}, err
			}
			return BinaryClassifiedItem[T]{Item: item, Matches: matches, Explanation: op.explain(i, raw)}, nil
		})
	})
}
