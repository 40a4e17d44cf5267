// Package metrics records engine activity: operations, individual
// completions, retries, errors and the number of completions in flight.
package metrics

import "context"

// Collector receives engine measurements. PrometheusCollector exports them;
// NoopCollector discards them and is the engine default.
type Collector interface {
	RecordOperation(ctx context.Context, operation string, status string, durationMs int64)
	RecordCompletion(ctx context.Context, operation string, status string)
	RecordRetry(ctx context.Context, operation string, reason string)
	RecordError(ctx context.Context, operation string, errorType string)
	SetInFlight(ctx context.Context, operation string, n int)
}
