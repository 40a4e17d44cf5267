package listops

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/llm"
	"github.com/dan-solli/listops/pkg/scheduler"
)

// ExplainedAnswer is an answer together with the reasoning behind it.
type ExplainedAnswer struct {
	Explanation string `json:"explanation"`
	Answer      string `json:"answer"`
}

var answerSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"explanation": {"type": "string"},
		"answer": {"type": "string"}
	},
	"required": ["explanation", "answer"],
	"additionalProperties": false
}`)

// ChainOfThoughtArgs are the arguments of ChainOfThought.
type ChainOfThoughtArgs struct {
	Question string

	// History holds earlier turns of the conversation, oldest first.
	History []llm.Message

	Options
}

// ChainOfThought answers a question, asking the model to explain its
// reasoning before committing to the answer.
func ChainOfThought(ctx context.Context, e *Engine, args ChainOfThoughtArgs) Result[ExplainedAnswer] {
	return run(ctx, e, "chain_of_thought", scheduler.StrategySequential, 1, args.Options, func(ctx context.Context, op *operation) (ExplainedAnswer, error) {
		if args.Question == "" {
			return ExplainedAnswer{}, fmt.Errorf("%w: question is required", ErrInvalidArgument)
		}
		req := op.request(fmt.Sprintf(chainOfThoughtSystemPrompt, withInstructions(op.instructions)), args.Question)
		req.History = args.History
		return op.answer(ctx, req)
	})
}

// GroundedAnswerArgs are the arguments of GroundedAnswer.
type GroundedAnswerArgs struct {
	Question string

	// Context is the only material the answer may draw on. It is sent in a
	// single request; a context too large for the model fails the operation.
	Context string

	Options
}

// GroundedAnswer answers a question from the supplied context alone.
func GroundedAnswer(ctx context.Context, e *Engine, args GroundedAnswerArgs) Result[ExplainedAnswer] {
	return run(ctx, e, "grounded_answer", scheduler.StrategySequential, 1, args.Options, func(ctx context.Context, op *operation) (ExplainedAnswer, error) {
		if args.Question == "" {
			return ExplainedAnswer{}, fmt.Errorf("%w: question is required", ErrInvalidArgument)
		}
		system := fmt.Sprintf(groundedSystemPrompt, args.Context, withInstructions(op.instructions))
		return op.answer(ctx, op.request(system, args.Question))
	})
}

func (op *operation) answer(ctx context.Context, req llm.Request) (ExplainedAnswer, error) {
	shape, err := extract.Object(answerSchema)
	if err != nil {
		return ExplainedAnswer{}, err
	}
	req.Schema = &llm.JSONSchema{Name: "answer", Schema: answerSchema, Strict: true}

	obj, raw, err := complete[map[string]any](ctx, op, req, shape)
	if err != nil {
		return ExplainedAnswer{}, err
	}
	answer, _ := obj["answer"].(string)
	return ExplainedAnswer{Answer: answer, Explanation: op.explain(0, raw)}, nil
}
