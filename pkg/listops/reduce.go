package listops

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/llm"
	"github.com/dan-solli/listops/pkg/scheduler"
)

const explanationPlaceholder = "<explanation supporting your answer>"

// ReduceArgs are the arguments of ReduceList. InitialValue must encode to a
// JSON object; the result has the same shape.
type ReduceArgs[T, A any] struct {
	Goal         string
	List         []T
	InitialValue A

	// JSONSchema optionally constrains each intermediate output.
	JSONSchema json.RawMessage

	// MaxHistory overrides Config.MaxHistory.
	MaxHistory int

	Options
}

// ReduceList folds the list into a single value, one item at a time and in
// order. Each step sees the previous output through a sliding window of prior
// turns. Fields the model leaves out of a step are carried forward. The
// "explanation" field the model is asked for is removed from the result
// unless InitialValue already has one.
//
// ParallelCompletions is ignored: every step depends on the one before it.
func ReduceList[T, A any](ctx context.Context, e *Engine, args ReduceArgs[T, A]) Result[A] {
	return run(ctx, e, "reduce", scheduler.StrategySequential, len(args.List), args.Options, func(ctx context.Context, op *operation) (A, error) {
		var zero A
		if err := requireGoal(args.Goal); err != nil {
			return zero, err
		}
		initial, err := toObject(args.InitialValue)
		if err != nil {
			return zero, fmt.Errorf("%w: initial value: %v", ErrInvalidArgument, err)
		}
		shape, err := extract.Object(args.JSONSchema)
		if err != nil {
			return zero, fmt.Errorf("%w: json schema: %v", ErrInvalidArgument, err)
		}

		maxHistory := e.config.MaxHistory
		if args.MaxHistory > 0 {
			maxHistory = max(args.MaxHistory, 2)
		}

		// An accumulator with its own explanation field keeps it.
		_, ownsExplanation := initial["explanation"]
		sketch := maps.Clone(initial)
		if !ownsExplanation {
			sketch["explanation"] = explanationPlaceholder
		}
		system := fmt.Sprintf(reduceSystemPrompt, args.Goal, withInstructions(op.instructions), itemString(sketch))

		var schema *llm.JSONSchema
		if len(args.JSONSchema) > 0 {
			schema = &llm.JSONSchema{Name: "output", Schema: args.JSONSchema}
		}

		var history []llm.Message
		final, err := scheduler.Fold(ctx, args.List, initial, func(ctx context.Context, acc map[string]any, item T, i int) (map[string]any, error) {
			prompt := itemPrompt(i, len(args.List), item)
			req := op.request(system, prompt)
			req.History = history
			req.Schema = schema

			out, raw, err := complete[map[string]any](ctx, op, req, shape)
			if err != nil {
				return nil, err
			}
			op.explain(i, raw)

			next := maps.Clone(acc)
			maps.Copy(next, out)

			history = append(history,
				llm.Message{Role: llm.RoleUser, Content: prompt},
				llm.Message{Role: llm.RoleAssistant, Content: itemString(next)})
			if len(history) > maxHistory {
				history = append([]llm.Message(nil), history[len(history)-maxHistory:]...)
			}
			return next, nil
		})
		if err != nil {
			return zero, batchError(err)
		}

		if !ownsExplanation {
			delete(final, "explanation")
		}
		return fromObject[A](final)
	})
}

func toObject(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("must encode to a JSON object, got %s", data)
	}
	return obj, nil
}

func fromObject[A any](obj map[string]any) (A, error) {
	var out A
	data, err := json.Marshal(obj)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode reduced value: %w", err)
	}
	return out, nil
}
