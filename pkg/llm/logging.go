package llm

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// LoggingCompleter logs every completion that passes through it.
type LoggingCompleter struct {
	next    Completer
	logger  *zap.Logger
	details bool
}

// NewLoggingCompleter wraps next. When details is set, token usage and the
// finish reason are logged along with the outcome.
func NewLoggingCompleter(next Completer, logger *zap.Logger, details bool) *LoggingCompleter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingCompleter{next: next, logger: logger, details: details}
}

// Complete forwards to the wrapped Completer.
func (l *LoggingCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := l.next.Complete(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		// cancellations are the caller's decision, not a backend problem
		if errors.Is(err, context.Canceled) {
			return resp, err
		}
		l.logger.Error("completion failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return resp, err
	}

	fields := []zap.Field{zap.Duration("elapsed", elapsed), zap.Int("chars", len(resp.Text))}
	if l.details {
		fields = append(fields,
			zap.Int("input_tokens", resp.Details.InputTokens),
			zap.Int("output_tokens", resp.Details.OutputTokens),
			zap.String("finish_reason", string(resp.Details.FinishReason)))
	}
	l.logger.Debug("completion", fields...)
	return resp, nil
}
