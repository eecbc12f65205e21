package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes artifacts beneath a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

// Put writes data atomically via a temporary file and rename.
func (l *LocalStore) Put(_ context.Context, key string, data []byte) error {
	dst := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Close is a no-op.
func (l *LocalStore) Close() error { return nil }
