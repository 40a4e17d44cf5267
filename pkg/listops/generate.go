package listops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/llm"
	"github.com/dan-solli/listops/pkg/scheduler"
)

// GenerateObjectArgs are the arguments of GenerateObject.
type GenerateObjectArgs struct {
	// Goal tells the model what object to produce.
	Goal string

	Schema json.RawMessage

	// SchemaName names the schema for backends that require one (default: "object").
	SchemaName string

	// Strict asks backends that support it to enforce the schema while decoding.
	Strict bool

	// Context is optional reference material placed ahead of the instructions.
	Context string

	Options
}

// GenerateObject produces one JSON object that validates against args.Schema.
func GenerateObject(ctx context.Context, e *Engine, args GenerateObjectArgs) Result[map[string]any] {
	return run(ctx, e, "generate_object", scheduler.StrategySequential, 1, args.Options, func(ctx context.Context, op *operation) (map[string]any, error) {
		return op.generateObject(ctx, args)
	})
}

func (op *operation) generateObject(ctx context.Context, args GenerateObjectArgs) (map[string]any, error) {
	if err := requireGoal(args.Goal); err != nil {
		return nil, err
	}
	if len(args.Schema) == 0 {
		return nil, fmt.Errorf("%w: schema is required", ErrInvalidArgument)
	}
	shape, err := extract.Object(args.Schema)
	if err != nil {
		return nil, fmt.Errorf("%w: schema: %v", ErrInvalidArgument, err)
	}

	name := args.SchemaName
	if name == "" {
		name = "object"
	}
	var reference string
	if args.Context != "" {
		reference = "<CONTEXT>\n" + args.Context + "\n\n"
	}

	req := op.request(fmt.Sprintf(generateObjectSystemPrompt, reference, withInstructions(op.instructions)), args.Goal)
	req.Schema = &llm.JSONSchema{Name: name, Schema: args.Schema, Strict: args.Strict}

	obj, _, err := complete[map[string]any](ctx, op, req, shape)
	return obj, err
}

// ArgumentSpec describes one named argument: a JSON schema fragment for its
// value and whether it must be present.
type ArgumentSpec struct {
	Schema map[string]any

	// Required is nil when the argument does not say.
	Required *bool
}

// ParseArgumentsArgs are the arguments of ParseArguments.
type ParseArgumentsArgs struct {
	Goal      string
	Argv      []string
	Arguments map[string]ArgumentSpec
	Options
}

// ParseArguments interprets a command line against a set of argument specs
// and returns the parsed values as an object keyed by argument name. The
// generated schema is strict only when every spec states it is required.
func ParseArguments(ctx context.Context, e *Engine, args ParseArgumentsArgs) Result[map[string]any] {
	return run(ctx, e, "parse_arguments", scheduler.StrategySequential, 1, args.Options, func(ctx context.Context, op *operation) (map[string]any, error) {
		if len(args.Arguments) == 0 {
			return nil, fmt.Errorf("%w: at least one argument spec is required", ErrInvalidArgument)
		}
		schema, strict, err := argumentSchema(args.Arguments)
		if err != nil {
			return nil, err
		}

		argv := "NONE"
		if len(args.Argv) > 0 {
			argv = itemString(args.Argv)
		}
		return op.generateObject(ctx, GenerateObjectArgs{
			Goal:       args.Goal,
			Schema:     schema,
			SchemaName: "ParsedArguments",
			Strict:     strict,
			Context:    "ARGUMENTS: " + argv,
		})
	})
}

func argumentSchema(specs map[string]ArgumentSpec) (json.RawMessage, bool, error) {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	properties := make(map[string]any, len(specs))
	required := []string{}
	strict := true
	for _, name := range names {
		spec := specs[name]
		prop := make(map[string]any, len(spec.Schema))
		for k, v := range spec.Schema {
			if k != "required" {
				prop[k] = v
			}
		}
		properties[name] = prop

		switch {
		case spec.Required == nil:
			strict = false
		case *spec.Required:
			required = append(required, name)
		default:
			strict = false
		}
	}

	schema, err := json.Marshal(map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	})
	if err != nil {
		return nil, false, fmt.Errorf("%w: argument schema: %v", ErrInvalidArgument, err)
	}
	return schema, strict, nil
}
