package metrics

import "context"

// NoopCollector discards everything.
type NoopCollector struct{}

func NewNoopCollector() *NoopCollector {
	return &NoopCollector{}
}

func (n *NoopCollector) RecordOperation(ctx context.Context, operation string, status string, durationMs int64) {
}

func (n *NoopCollector) RecordCompletion(ctx context.Context, operation string, status string) {}

func (n *NoopCollector) RecordRetry(ctx context.Context, operation string, reason string) {}

func (n *NoopCollector) RecordError(ctx context.Context, operation string, errorType string) {}

func (n *NoopCollector) SetInFlight(ctx context.Context, operation string, inFlight int) {}
