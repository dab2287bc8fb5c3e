package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"barangay/pkg/platform/atomicfile"
	"barangay/pkg/platform/sentinel"
)

// ErrInvalidImageName rejects names that would escape the image directory.
var ErrInvalidImageName = errors.New("invalid image name")

// ImageStore keeps uploaded announcement images as flat files under random
// names, so an upload never replaces another announcement's image.
type ImageStore struct {
	dir string
}

func NewImageStore(dir string) (*ImageStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create announcement images dir %s: %w", dir, err)
	}
	return &ImageStore{dir: dir}, nil
}

func (s *ImageStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidImageName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Save stores data under a fresh name ending in ext and returns the name.
func (s *ImageStore) Save(ctx context.Context, ext string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(ext)
	p, err := s.path(name)
	if err != nil {
		return "", err
	}
	if err := atomicfile.Create(p, data, 0o640); err != nil {
		return "", fmt.Errorf("store announcement image: %w", err)
	}
	return name, nil
}

// Read returns the image bytes or sentinel.ErrNotFound.
func (s *ImageStore) Read(_ context.Context, name string) ([]byte, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, sentinel.ErrNotFound
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read announcement image %s: %w", name, err)
	}
	return data, nil
}

// Remove deletes name. A missing file is not an error.
func (s *ImageStore) Remove(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove announcement image %s: %w", name, err)
	}
	return nil
}
