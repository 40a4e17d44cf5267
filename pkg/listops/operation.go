package listops

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dan-solli/listops/pkg/extract"
	"github.com/dan-solli/listops/pkg/llm"
	"github.com/dan-solli/listops/pkg/scheduler"
	"github.com/dan-solli/listops/pkg/trace"
)

// operation carries the state of one operator call.
type operation struct {
	e     *Engine
	name  string
	id    string
	items int
	settings
	log *zap.Logger

	completions atomic.Int64
	retries     atomic.Int64
	inFlight    atomic.Int64
}

// run wraps fn with the bookkeeping shared by every operator: settings
// resolution, logging, metrics, span and trace record, and panic recovery.
// strategy names how fn schedules its units.
func run[T any](ctx context.Context, e *Engine, name string, strategy scheduler.Strategy, items int, opts Options, fn func(ctx context.Context, op *operation) (T, error)) (res Result[T]) {
	op := &operation{e: e, name: name, id: uuid.NewString(), items: items}
	op.log = e.logger.With(zap.String("operation", name), zap.String("op_id", op.id), zap.String("strategy", string(strategy)))

	s, err := e.resolve(opts)
	op.settings = s

	ctx, span := e.tracer.Start(ctx, "listops."+name, oteltrace.WithAttributes(
		attribute.String("listops.operation_id", op.id),
		attribute.Int("listops.items", items),
		attribute.String("listops.strategy", string(strategy)),
		attribute.Int("listops.parallel", s.parallel),
	))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = failed[T](fmt.Errorf("%s: %w: %v", name, scheduler.ErrUnitPanic, r))
		}
		op.finish(ctx, span, start, res.err)
	}()

	if err != nil {
		return failed[T](err)
	}

	op.log.Debug("operation started", zap.Int("items", items), zap.Int("parallel", s.parallel))
	v, err := fn(ctx, op)
	if err != nil {
		return failed[T](err)
	}
	return succeeded(v)
}

func (op *operation) finish(ctx context.Context, span oteltrace.Span, start time.Time, err error) {
	defer span.End()

	elapsed := time.Since(start)
	status := "success"
	errType := ClassifyError(err)
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, errType)
		op.e.metrics.RecordError(ctx, op.name, errType)
		op.log.Debug("operation failed", zap.Duration("elapsed", elapsed), zap.String("error_type", errType), zap.Error(err))
	} else {
		op.log.Debug("operation finished", zap.Duration("elapsed", elapsed),
			zap.Int64("completions", op.completions.Load()), zap.Int64("retries", op.retries.Load()))
	}
	span.SetAttributes(
		attribute.Int64("listops.completions", op.completions.Load()),
		attribute.Int64("listops.retries", op.retries.Load()),
	)

	op.e.metrics.RecordOperation(ctx, op.name, status, elapsed.Milliseconds())

	record := &trace.TraceRecord{
		Timestamp:   start,
		OperationID: op.id,
		Operation:   op.name,
		DurationMs:  elapsed.Milliseconds(),
		Status:      status,
		ErrorType:   errType,
		Items:       op.items,
		Completions: op.completions.Load(),
		Retries:     op.retries.Load(),
	}
	if xerr := op.e.traces.Export(ctx, record); xerr != nil {
		op.log.Warn("trace export failed", zap.Error(xerr))
	}
}

// request builds the completion request for one unit of work.
func (op *operation) request(system, prompt string) llm.Request {
	return llm.Request{
		System:      system,
		Prompt:      prompt,
		JSONMode:    true,
		MaxTokens:   op.maxTokens,
		Temperature: op.temperature,
	}
}

// complete sends req and extracts shape from the answer as a T, retrying up
// to maxAttempts times. Context errors and oversized prompts are never
// retried. It returns the extracted value and the raw completion text.
func complete[T any](ctx context.Context, op *operation, req llm.Request, shape extract.Shape) (T, string, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, "", err
		}

		raw, err := op.send(ctx, req)
		if err == nil {
			var v T
			if v, err = extract.As[T](shape, raw); err == nil {
				return v, raw, nil
			}
		}

		if terminal(ctx, err) || attempt >= op.maxAttempts {
			return zero, raw, err
		}

		reason := ClassifyError(err)
		op.retries.Add(1)
		op.e.metrics.RecordRetry(ctx, op.name, reason)
		op.log.Warn("retrying unit", zap.Int("attempt", attempt), zap.String("reason", reason), zap.Error(err))
	}
}

// send performs one completion. Panics in the port and errors that do not
// already say so are reported as port failures.
func (op *operation) send(ctx context.Context, req llm.Request) (text string, err error) {
	op.completions.Add(1)
	op.e.metrics.SetInFlight(ctx, op.name, int(op.inFlight.Add(1)))
	defer func() {
		op.e.metrics.SetInFlight(ctx, op.name, int(op.inFlight.Add(-1)))

		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", llm.ErrPortFailure, r)
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		op.e.metrics.RecordCompletion(ctx, op.name, status)
	}()

	resp, err := op.e.port.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrPortFailure) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", llm.ErrPortFailure, err)
	}
	return resp.Text, nil
}

func terminal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		llm.IsTerminal(err) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// explain logs a unit's explanation when the caller asked for it.
func (op *operation) explain(index int, raw string) string {
	explanation := extract.Explanation(raw)
	if op.logExplanations && explanation != "" {
		op.log.Info("explanation", zap.Int("index", index), zap.String("explanation", explanation))
	}
	return explanation
}

// forEach runs fn for every item with the operation's concurrency bound and
// returns the results in input order.
func forEach[T, R any](ctx context.Context, op *operation, list []T, fn func(ctx context.Context, i int, item T) (R, error)) ([]R, error) {
	out, err := scheduler.Parallel(ctx, len(list), op.parallel, func(ctx context.Context, i int) (R, error) {
		return fn(ctx, i, list[i])
	})
	return out, batchError(err)
}

// batchError rewrites a scheduler unit failure as ErrPartialBatch.
func batchError(err error) error {
	var ue *scheduler.UnitError
	if errors.As(err, &ue) {
		return fmt.Errorf("%w: item %d: %w", ErrPartialBatch, ue.Index, ue.Err)
	}
	return err
}

func requireGoal(goal string) error {
	if goal == "" {
		return fmt.Errorf("%w: goal is required", ErrInvalidArgument)
	}
	return nil
}
