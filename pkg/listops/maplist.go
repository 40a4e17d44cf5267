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

// MapArgs are the arguments of MapList. Exactly one of JSONShape and
// JSONSchema must be set.
type MapArgs[T any] struct {
	Goal string
	List []T

	// JSONShape is an example object shown to the model, with instructions as
	// field values, e.g. {"name": "<artist name>"}.
	JSONShape any

	// JSONSchema constrains and validates every mapped object.
	JSONSchema json.RawMessage

	Options
}

// MapList maps every item to a JSON object described by the shape or schema.
// The explanation the model gives for each mapping is not part of the result.
func MapList[T any](ctx context.Context, e *Engine, args MapArgs[T]) Result[[]map[string]any] {
	return run(ctx, e, "map", scheduler.StrategyParallel, len(args.List), args.Options, func(ctx context.Context, op *operation) ([]map[string]any, error) {
		if err := requireGoal(args.Goal); err != nil {
			return nil, err
		}
		hasShape, hasSchema := args.JSONShape != nil, len(args.JSONSchema) > 0
		if hasShape == hasSchema {
			return nil, fmt.Errorf("%w: exactly one of JSONShape and JSONSchema is required", ErrInvalidArgument)
		}

		var (
			system string
			schema *llm.JSONSchema
			shape  extract.Shape
		)
		instructions := withInstructions(op.instructions)
		if hasSchema {
			withExplanation, err := addExplanation(args.JSONSchema)
			if err != nil {
				return nil, fmt.Errorf("%w: json schema: %v", ErrInvalidArgument, err)
			}
			schema = &llm.JSONSchema{Name: "output", Schema: withExplanation}
			shape, err = extract.Object(withExplanation)
			if err != nil {
				return nil, fmt.Errorf("%w: json schema: %v", ErrInvalidArgument, err)
			}
			system = fmt.Sprintf(mapSchemaSystemPrompt, args.Goal, instructions)
		} else {
			sketch, err := toObject(args.JSONShape)
			if err != nil {
				return nil, fmt.Errorf("%w: json shape: %v", ErrInvalidArgument, err)
			}
			sketch["explanation"] = "<explanation supporting the mapping you did>"
			shape, err = extract.Object(nil)
			if err != nil {
				return nil, err
			}
			system = fmt.Sprintf(mapShapeSystemPrompt, args.Goal, instructions, itemString(sketch))
		}

		return forEach(ctx, op, args.List, func(ctx context.Context, i int, item T) (map[string]any, error) {
			req := op.request(system, itemPrompt(i, len(args.List), item))
			req.Schema = schema
			obj, raw, err := complete[map[string]any](ctx, op, req, shape)
			if err != nil {
				return nil, err
			}
			op.explain(i, raw)
			out := maps.Clone(obj)
			delete(out, "explanation")
			return out, nil
		})
	})
}

// addExplanation returns a copy of schema whose root object also requires a
// string "explanation" property.
func addExplanation(schema json.RawMessage) (json.RawMessage, error) {
	var doc map[string]any
	if err := json.Unmarshal(schema, &doc); err != nil {
		return nil, err
	}
	props, _ := doc["properties"].(map[string]any)
	if props == nil {
		props = make(map[string]any)
	}
	props["explanation"] = map[string]any{
		"type":        "string",
		"description": "explanation supporting the mapping you did",
	}
	doc["properties"] = props

	required, _ := doc["required"].([]any)
	doc["required"] = append(required, "explanation")

	return json.Marshal(doc)
}

// ProjectArgs are the arguments of ProjectList.
type ProjectArgs[T any] struct {
	Goal     string
	List     []T
	Template string
	Options
}

// ProjectedItem pairs an item with its rendering.
type ProjectedItem[T any] struct {
	Item       T      `json:"item"`
	Projection string `json:"projection"`
}

// ProjectList renders every item as free text following args.Template.
func ProjectList[T any](ctx context.Context, e *Engine, args ProjectArgs[T]) Result[[]ProjectedItem[T]] {
	return run(ctx, e, "project", scheduler.StrategyParallel, len(args.List), args.Options, func(ctx context.Context, op *operation) ([]ProjectedItem[T], error) {
		if err := requireGoal(args.Goal); err != nil {
			return nil, err
		}
		if args.Template == "" {
			return nil, fmt.Errorf("%w: template is required", ErrInvalidArgument)
		}

		system := fmt.Sprintf(projectSystemPrompt, args.Template, args.Goal, withInstructions(op.instructions))
		shape := extract.Text()

		return forEach(ctx, op, args.List, func(ctx context.Context, i int, item T) (ProjectedItem[T], error) {
			req := op.request(system, "<ITEM>\n"+itemString(item))
			req.JSONMode = false
			projection, _, err := complete[string](ctx, op, req, shape)
			if err != nil {
				return ProjectedItem[T]{}, err
			}
			return ProjectedItem[T]{Item: item, Projection: projection}, nil
		})
	})
}
