// Package trace exports one record per list operation for offline analysis.
//
// Records carry timings, counts and error classes only; goals, items and
// model output never leave the process through this package.
package trace

import (
	"context"
	"time"
)

// Exporter writes operation records. Implementations must be safe for
// concurrent use.
type Exporter interface {
	Export(ctx context.Context, record *TraceRecord) error

	// Close flushes buffered records and releases resources.
	Close() error
}

// TraceRecord summarises one finished operation.
type TraceRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	OperationID string    `json:"operationId"`

	// Operation is the operator name: "classify", "filter", "sort", ...
	Operation  string `json:"operation"`
	DurationMs int64  `json:"durationMs"`

	// Status is "success" or "error"
	Status string `json:"status"`

	// ErrorType is one of the engine's error classes when Status is "error"
	ErrorType string `json:"errorType,omitempty"`

	Items       int   `json:"items"`
	Completions int64 `json:"completions"`
	Retries     int64 `json:"retries"`
}

type fileConfig struct {
	maxSizeBytes    int64
	maxRotatedFiles int
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		maxSizeBytes:    10 * 1024 * 1024,
		maxRotatedFiles: 5,
	}
}

// FileExporterOption configures NewFileExporter. Options are accepted in
// every build so callers compile with or without the tracing tag.
type FileExporterOption func(*fileConfig)

// WithMaxSize sets the file size that triggers rotation (default 10MB).
func WithMaxSize(bytes int64) FileExporterOption {
	return func(c *fileConfig) { c.maxSizeBytes = bytes }
}

// WithMaxRotatedFiles sets how many rotated files are kept (default 5).
func WithMaxRotatedFiles(count int) FileExporterOption {
	return func(c *fileConfig) { c.maxRotatedFiles = count }
}
