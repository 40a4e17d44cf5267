//go:build tracing

package trace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileExporter appends records as JSON lines and rotates the file once it
// grows past the configured size: path.1 is the newest rotated file.
type FileExporter struct {
	path string
	cfg  fileConfig

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	closed  bool
}

// NewFileExporter opens filePath for appending, creating parent directories.
// An empty path yields a NoopExporter.
func NewFileExporter(filePath string, opts ...FileExporterOption) (Exporter, error) {
	if filePath == "" {
		return &NoopExporter{}, nil
	}

	cfg := defaultFileConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}

	fe := &FileExporter{path: filePath, cfg: cfg}
	if err := fe.open(); err != nil {
		return nil, err
	}
	return fe, nil
}

func (fe *FileExporter) open() error {
	file, err := os.OpenFile(fe.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open trace file: %w", err)
	}
	fe.file = file
	fe.encoder = json.NewEncoder(file)
	return nil
}

// Export writes record as one line and rotates when the size limit is reached.
func (fe *FileExporter) Export(ctx context.Context, record *TraceRecord) error {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	if fe.closed {
		return errors.New("exporter closed")
	}
	if err := fe.encoder.Encode(record); err != nil {
		return fmt.Errorf("encode trace record: %w", err)
	}

	info, err := fe.file.Stat()
	if err != nil {
		return fmt.Errorf("stat trace file: %w", err)
	}
	if info.Size() < fe.cfg.maxSizeBytes {
		return nil
	}
	if err := fe.rotate(); err != nil {
		return fmt.Errorf("rotate trace file: %w", err)
	}
	return nil
}

// Close syncs and closes the file. Calling it twice is harmless.
func (fe *FileExporter) Close() error {
	fe.mu.Lock()
	defer fe.mu.Unlock()

	if fe.closed {
		return nil
	}
	fe.closed = true

	if err := fe.file.Sync(); err != nil {
		fe.file.Close()
		return fmt.Errorf("sync trace file: %w", err)
	}
	return fe.file.Close()
}

// rotate must be called with mu held.
func (fe *FileExporter) rotate() error {
	if err := fe.file.Close(); err != nil {
		return fmt.Errorf("close for rotation: %w", err)
	}

	oldest := fe.rotatedPath(fe.cfg.maxRotatedFiles)
	if err := os.Remove(oldest); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", oldest, err)
	}
	for i := fe.cfg.maxRotatedFiles - 1; i >= 1; i-- {
		from, to := fe.rotatedPath(i), fe.rotatedPath(i+1)
		if err := os.Rename(from, to); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("shift %s: %w", from, err)
		}
	}
	if err := os.Rename(fe.path, fe.rotatedPath(1)); err != nil {
		return fmt.Errorf("move current file: %w", err)
	}

	return fe.open()
}

func (fe *FileExporter) rotatedPath(n int) string {
	return fmt.Sprintf("%s.%d", fe.path, n)
}
