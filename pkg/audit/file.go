package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileRecorder appends events as JSON lines to audit.log under a base
// directory, rotating by size.
type FileRecorder struct {
	basePath string
	maxSize  int64
	maxFiles int

	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	written int64
}

// FileConfig configures the file recorder. Zero values fall back to
// 100MB per file and 10 retained files.
type FileConfig struct {
	BasePath string
	MaxSize  int64
	MaxFiles int
}

// NewFileRecorder opens (or creates) the audit log under cfg.BasePath.
func NewFileRecorder(cfg FileConfig) (*FileRecorder, error) {
	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	r := &FileRecorder{
		basePath: cfg.BasePath,
		maxSize:  cfg.MaxSize,
		maxFiles: cfg.MaxFiles,
	}
	if r.maxSize == 0 {
		r.maxSize = 100 * 1024 * 1024
	}
	if r.maxFiles == 0 {
		r.maxFiles = 10
	}

	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

// Record appends one event. A rotation happens before the write when the
// current file is over the size limit.
func (r *FileRecorder) Record(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.written >= r.maxSize {
		if err := r.rotate(); err != nil {
			return err
		}
	}
	if err := r.encoder.Encode(event); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	// Encode adds a trailing newline; the estimate only has to be close
	// enough to trigger rotation.
	r.written += 128
	return nil
}

// Close flushes and closes the current file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

func (r *FileRecorder) open() error {
	name := filepath.Join(r.basePath, "audit.log")
	file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("stat audit log: %w", err)
	}
	r.file = file
	r.encoder = json.NewEncoder(file)
	r.written = info.Size()
	return nil
}

func (r *FileRecorder) rotate() error {
	if r.file != nil {
		r.file.Close()
		r.file = nil
	}

	current := filepath.Join(r.basePath, "audit.log")
	rotated := filepath.Join(r.basePath,
		fmt.Sprintf("audit-%s.log", time.Now().UTC().Format("2006-01-02-15-04-05")))
	if err := os.Rename(current, rotated); err != nil {
		return fmt.Errorf("rotate audit log: %w", err)
	}

	if err := r.pruneRotated(); err != nil {
		fmt.Fprintf(os.Stderr, "audit: prune rotated logs: %v\n", err)
	}
	return r.open()
}

// pruneRotated deletes the oldest rotated files beyond maxFiles.
func (r *FileRecorder) pruneRotated() error {
	entries, err := os.ReadDir(r.basePath)
	if err != nil {
		return err
	}

	var rotated []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, "audit-") && strings.HasSuffix(name, ".log") {
			rotated = append(rotated, name)
		}
	}
	if len(rotated) <= r.maxFiles {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(rotated)
	for _, name := range rotated[:len(rotated)-r.maxFiles] {
		if err := os.Remove(filepath.Join(r.basePath, name)); err != nil {
			return err
		}
	}
	return nil
}
