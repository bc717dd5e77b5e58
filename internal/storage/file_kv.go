package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// ErrCorruptStore is returned by Get when the store file is not a JSON object.
var ErrCorruptStore = errors.New("store file is corrupt")

// FileKV keeps all keys in one JSON document, rewritten atomically on every change.
// A corrupt document fails reads; the next write moves it aside to <path>.corrupt
// and starts a new one.
type FileKV struct {
	path   string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewFileKV(path string, logger *zap.Logger) *FileKV {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileKV{path: path, logger: logger}
}

func (s *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, ok := data[key]
	return value, ok, nil
}

func (s *FileKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadForWrite()
	if err != nil {
		return err
	}
	data[key] = value
	return s.save(data)
}

func (s *FileKV) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.loadForWrite()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return s.save(data)
}

func (s *FileKV) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	data := make(map[string]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	return data, nil
}

func (s *FileKV) loadForWrite() (map[string]string, error) {
	data, err := s.load()
	if !errors.Is(err, ErrCorruptStore) {
		return data, err
	}

	aside := s.path + ".corrupt"
	if err := os.Rename(s.path, aside); err != nil {
		return nil, fmt.Errorf("move corrupt store: %w", err)
	}
	s.logger.Warn("store file unreadable, starting a new one",
		zap.String("path", s.path),
		zap.String("moved_to", aside),
	)
	return map[string]string{}, nil
}

func (s *FileKV) save(data map[string]string) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create store dir: %w", err)
		}
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write store tmp: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename store: %w", err)
	}
	return nil
}
