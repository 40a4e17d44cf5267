package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

var _ Collector = (*PrometheusCollector)(nil)
var _ Collector = (*NoopCollector)(nil)

func TestPrometheusCollector_RecordOperation(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "filter", "success", 1000)
	collector.RecordOperation(ctx, "filter", "success", 1500)
	collector.RecordOperation(ctx, "filter", "error", 500)
	collector.RecordOperation(ctx, "sort", "success", 200)

	if got := testutil.CollectAndCount(collector.operationsTotal); got != 3 {
		t.Errorf("expected 3 metric series (filter/success, filter/error, sort/success), got %d", got)
	}

	if got := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("filter", "success")); got != 2 {
		t.Errorf("expected 2 filter/success operations, got %f", got)
	}
	if got := testutil.ToFloat64(collector.operationsTotal.WithLabelValues("filter", "error")); got != 1 {
		t.Errorf("expected 1 filter/error operation, got %f", got)
	}

	if got := testutil.CollectAndCount(collector.operationDuration); got != 2 {
		t.Errorf("expected 2 histogram series, got %d", got)
	}
}

func TestPrometheusCollector_RecordCompletionAndRetry(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordCompletion(ctx, "classify", "success")
	collector.RecordCompletion(ctx, "classify", "success")
	collector.RecordCompletion(ctx, "classify", "error")
	collector.RecordRetry(ctx, "classify", "extraction")

	if got := testutil.ToFloat64(collector.completionsTotal.WithLabelValues("classify", "success")); got != 2 {
		t.Errorf("expected 2 successful completions, got %f", got)
	}
	if got := testutil.ToFloat64(collector.retriesTotal.WithLabelValues("classify", "extraction")); got != 1 {
		t.Errorf("expected 1 extraction retry, got %f", got)
	}
}

func TestPrometheusCollector_RecordError(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordError(ctx, "reduce", "port")
	collector.RecordError(ctx, "reduce", "port")
	collector.RecordError(ctx, "reduce", "extraction")

	if got := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("reduce", "port")); got != 2 {
		t.Errorf("expected 2 port errors, got %f", got)
	}
	if got := testutil.ToFloat64(collector.errorsTotal.WithLabelValues("reduce", "extraction")); got != 1 {
		t.Errorf("expected 1 extraction error, got %f", got)
	}
}

func TestPrometheusCollector_SetInFlight(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.SetInFlight(ctx, "sort", 4)
	if got := testutil.ToFloat64(collector.inFlight.WithLabelValues("sort")); got != 4 {
		t.Errorf("expected 4 in flight, got %f", got)
	}

	collector.SetInFlight(ctx, "sort", 0)
	if got := testutil.ToFloat64(collector.inFlight.WithLabelValues("sort")); got != 0 {
		t.Errorf("expected 0 in flight after update, got %f", got)
	}
}

func TestPrometheusCollector_Registry(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	// series only appear in Gather once they have a value
	collector.RecordOperation(ctx, "map", "success", 100)
	collector.RecordCompletion(ctx, "map", "success")
	collector.RecordRetry(ctx, "map", "port")
	collector.RecordError(ctx, "map", "port")
	collector.SetInFlight(ctx, "map", 1)

	registry := collector.Registry()
	if registry == nil {
		t.Fatal("expected non-nil registry")
	}

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if len(metricFamilies) != 6 {
		t.Errorf("expected 6 metric families, got %d", len(metricFamilies))
	}
}

// Labels carry operator names and error classes only, never goals or items.
func TestPrometheusCollector_NoPayloadLeakage(t *testing.T) {
	collector := NewCollector()
	ctx := context.Background()

	collector.RecordOperation(ctx, "filter", "success", 1000)
	collector.RecordCompletion(ctx, "filter", "success")
	collector.RecordError(ctx, "filter", "port")

	metricFamilies, err := collector.Registry().Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	allowed := map[string]bool{"filter": true, "success": true, "port": true}
	for _, mf := range metricFamilies {
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if !allowed[label.GetValue()] {
					t.Errorf("unexpected label value %q in %s", label.GetValue(), mf.GetName())
				}
			}
		}
	}
}

func TestNoopCollector(t *testing.T) {
	n := NewNoopCollector()
	ctx := context.Background()
	n.RecordOperation(ctx, "filter", "success", 1)
	n.RecordCompletion(ctx, "filter", "success")
	n.RecordRetry(ctx, "filter", "port")
	n.RecordError(ctx, "filter", "port")
	n.SetInFlight(ctx, "filter", 2)
}
