// Package generated keeps the documents produced at approval time. Files are
// written once and served byte-for-byte afterwards.
package generated

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"barangay/pkg/platform/atomicfile"
	"barangay/pkg/platform/sentinel"
)

// ErrInvalidName rejects names that would escape the storage directory.
var ErrInvalidName = errors.New("invalid generated file name")

// FileStore stores generated documents as flat files in one directory.
type FileStore struct {
	dir string
}

// New creates the directory when missing.
func New(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create generated documents dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Write durably stores data under name, replacing any previous file.
func (s *FileStore) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(p, data, 0o640); err != nil {
		return fmt.Errorf("write generated document %s: %w", name, err)
	}
	return nil
}

// Read returns the stored bytes or sentinel.ErrNotFound.
func (s *FileStore) Read(_ context.Context, name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read generated document %s: %w", name, err)
	}
	return data, nil
}

// Remove deletes name. A missing file is not an error.
func (s *FileStore) Remove(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove generated document %s: %w", name, err)
	}
	return nil
}

// Create stores data under name only when the name is free. A taken name
// returns sentinel.ErrConflict and the existing file is left as it was.
func (s *FileStore) Create(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	err = atomicfile.Create(p, data, 0o640)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("generated document %s: %w", name, sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create generated document %s: %w", name, err)
	}
	return nil
}
