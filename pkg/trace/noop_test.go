package trace

import (
	"context"
	"testing"
	"time"
)

func TestNewFileExporter_EmptyPathIsNoop(t *testing.T) {
	exporter, err := NewFileExporter("")
	if err != nil {
		t.Fatalf("NewFileExporter(\"\") failed: %v", err)
	}
	if _, ok := exporter.(*NoopExporter); !ok {
		t.Fatalf("Expected *NoopExporter, got %T", exporter)
	}

	record := &TraceRecord{Timestamp: time.Now(), OperationID: "noop-op", Operation: "sort", Status: "success"}
	if err := exporter.Export(context.Background(), record); err != nil {
		t.Fatalf("Export on noop exporter should succeed, got: %v", err)
	}
	if err := exporter.Close(); err != nil {
		t.Fatalf("Close on noop exporter should succeed, got: %v", err)
	}
}
