// Package listops performs goal-directed operations over lists using a
// language-model completion backend.
//
// Every operator takes a natural-language goal and a list, fans one request
// per unit of work out to an llm.Completer under a concurrency bound, extracts
// a typed answer from each completion and recombines the answers according to
// the operator's semantics. Operators never panic and never return partial
// results: the outcome is always a Result envelope.
package listops

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dan-solli/listops/pkg/llm"
	"github.com/dan-solli/listops/pkg/metrics"
	"github.com/dan-solli/listops/pkg/trace"
)

const tracerName = "github.com/dan-solli/listops"

// Config holds engine-wide defaults. Each operator call may override them
// through Options.
type Config struct {
	// Completions in flight per operation (default: 1)
	ParallelCompletions int

	// Attempts per unit of work, between 1 and 5 (default: 2)
	MaxAttempts int

	// Completion token limit (default: 1000)
	MaxTokens int

	// Sampling temperature (default: 0)
	Temperature float64

	// Prior turns replayed to the model by ReduceList (default: 8, minimum: 2)
	MaxHistory int
}

func (c *Config) applyDefaults() {
	if c.ParallelCompletions == 0 {
		c.ParallelCompletions = 1
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 2
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1000
	}
	if c.MaxHistory == 0 {
		c.MaxHistory = 8
	}
	if c.MaxHistory < 2 {
		c.MaxHistory = 2
	}
}

// Validate reports out-of-range settings.
func (c Config) Validate() error {
	if c.ParallelCompletions < 0 {
		return fmt.Errorf("%w: parallel completions must be positive, got %d", ErrInvalidArgument, c.ParallelCompletions)
	}
	if c.MaxAttempts < 0 || c.MaxAttempts > 5 {
		return fmt.Errorf("%w: max attempts must be between 1 and 5, got %d", ErrInvalidArgument, c.MaxAttempts)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("%w: max tokens must be positive, got %d", ErrInvalidArgument, c.MaxTokens)
	}
	return nil
}

// Engine runs list operations against one completion backend. It holds no
// per-operation state and is safe for concurrent use.
type Engine struct {
	port    llm.Completer
	config  Config
	logger  *zap.Logger
	metrics metrics.Collector
	traces  trace.Exporter
	tracer  oteltrace.Tracer
}

// New creates an Engine sending completions to port.
func New(port llm.Completer, cfg Config) (*Engine, error) {
	if port == nil {
		return nil, errors.New("listops: completion port is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return &Engine{
		port:    port,
		config:  cfg,
		logger:  zap.NewNop(),
		metrics: metrics.NewNoopCollector(),
		traces:  &trace.NoopExporter{},
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Config returns the engine configuration with defaults applied.
func (e *Engine) Config() Config {
	return e.config
}

// WithLogger sets the logger and returns e. A nil logger disables logging.
func (e *Engine) WithLogger(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e.logger = logger
	return e
}

// WithMetrics sets the metrics collector and returns e.
func (e *Engine) WithMetrics(c metrics.Collector) *Engine {
	if c == nil {
		c = metrics.NewNoopCollector()
	}
	e.metrics = c
	return e
}

// WithTraceExporter sets the exporter receiving one record per operation and
// returns e.
func (e *Engine) WithTraceExporter(x trace.Exporter) *Engine {
	if x == nil {
		x = &trace.NoopExporter{}
	}
	e.traces = x
	return e
}

// WithTracerProvider sets the OpenTelemetry provider used for operation
// spans and returns e. The global provider is used by default.
func (e *Engine) WithTracerProvider(tp oteltrace.TracerProvider) *Engine {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	e.tracer = tp.Tracer(tracerName)
	return e
}
