//go:build !tracing

package trace

// NewFileExporter returns a NoopExporter; file export needs the tracing
// build tag.
func NewFileExporter(filePath string, opts ...FileExporterOption) (Exporter, error) {
	return &NoopExporter{}, nil
}
