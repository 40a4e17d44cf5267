package listops

import (
	"context"
	"fmt"

	"github.com/dan-solli/listops/pkg/chunker"
	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/scheduler"
)

// SummarizeArgs are the arguments of SummarizeList.
type SummarizeArgs[T any] struct {
	Goal string
	List []T

	// Rolling summarizes the documents in order, each summary also covering
	// every document before it. The last entry then summarizes the whole list.
	Rolling bool

	// MaxChunkTokens splits documents longer than this many tokens and
	// summarizes them chunk by chunk. Zero disables chunking.
	MaxChunkTokens int

	Options
}

// SummarizedItem pairs a document with its summary.
type SummarizedItem[T any] struct {
	Item    T      `json:"item"`
	Summary string `json:"summary"`
}

// SummarizeList summarizes every document following args.Goal.
func SummarizeList[T any](ctx context.Context, e *Engine, args SummarizeArgs[T]) Result[[]SummarizedItem[T]] {
	strategy := scheduler.StrategyParallel
	if args.Rolling {
		strategy = scheduler.StrategySequential
	}
	return run(ctx, e, "summarize", strategy, len(args.List), args.Options, func(ctx context.Context, op *operation) ([]SummarizedItem[T], error) {
		if err := requireGoal(args.Goal); err != nil {
			return nil, err
		}
		if args.MaxChunkTokens < 0 {
			return nil, fmt.Errorf("%w: max chunk tokens must be positive, got %d", ErrInvalidArgument, args.MaxChunkTokens)
		}

		s := &summarizer{
			op:     op,
			system: fmt.Sprintf(summarizeSystemPrompt, args.Goal, withInstructions(op.instructions)),
			shape:  extract.String("summary"),
		}
		if args.MaxChunkTokens > 0 {
			s.chunker = &chunker.Chunker{MaxTokens: args.MaxChunkTokens}
		}

		if !args.Rolling {
			return forEach(ctx, op, args.List, func(ctx context.Context, i int, item T) (SummarizedItem[T], error) {
				summary, err := s.summarize(ctx, i, itemString(item), "")
				if err != nil {
					return SummarizedItem[T]{}, err
				}
				return SummarizedItem[T]{Item: item, Summary: summary}, nil
			})
		}

		out := make([]SummarizedItem[T], 0, len(args.List))
		_, err := scheduler.Fold(ctx, args.List, "", func(ctx context.Context, previous string, item T, i int) (string, error) {
			summary, err := s.summarize(ctx, i, itemString(item), previous)
			if err != nil {
				return "", err
			}
			out = append(out, SummarizedItem[T]{Item: item, Summary: summary})
			return summary, nil
		})
		if err != nil {
			return nil, batchError(err)
		}
		return out, nil
	})
}

type summarizer struct {
	op      *operation
	system  string
	shape   extract.Shape
	chunker *chunker.Chunker
}

// summarize returns the summary of one document, folding in previous when it
// is non-empty. Chunked documents are summarized piece by piece, each piece
// extending the summary of the pieces before it.
func (s *summarizer) summarize(ctx context.Context, index int, document, previous string) (string, error) {
	pieces := []string{document}
	if s.chunker != nil {
		if chunks := s.chunker.Chunk(document); len(chunks) > 1 {
			pieces = make([]string, len(chunks))
			for i, c := range chunks {
				pieces[i] = c.Text
			}
		}
	}

	summary := previous
	for _, piece := range pieces {
		prompt := "<ITEM>\n" + piece
		if summary != "" {
			prompt = "<SUMMARY_SO_FAR>\n" + summary + "\n\n" + prompt
		}
		next, raw, err := complete[string](ctx, s.op, s.op.request(s.system, prompt), s.shape)
		if err != nil {
			return "", err
		}
		s.op.explain(index, raw)
		summary = next
	}
	return summary, nil
}
