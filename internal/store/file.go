package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// FileStore writes each saved Record as its own JSON file under a
// directory, one file per run, grounded on the teacher's JSONStorage
// (internal/storage/file.go) narrowed from a buffered multi-item array
// to one record per call.
type FileStore struct {
	dir    string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewFileStore creates a FileStore writing into dir, creating it if
// necessary.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{
		dir:    dir,
		logger: logger.With("component", "file_store"),
	}, nil
}

func (s *FileStore) Save(ctx context.Context, record Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, record.ID+".json")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create record file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return "", fmt.Errorf("encode record: %w", err)
	}

	s.count++
	s.logger.Info("record written", "path", path, "total", s.count)
	return record.ID, nil
}

func (s *FileStore) Close() error {
	s.logger.Info("file store closing", "total_records", s.count)
	return nil
}
