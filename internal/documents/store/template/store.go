// Package template stores one DOCX template per document type on disk.
//
// Reads go through an expiring LRU cache. A filesystem watcher drops cache
// entries when template files are replaced outside the service.
package template

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"barangay/internal/documents/models"
	"barangay/pkg/platform/atomicfile"
	"barangay/pkg/platform/sentinel"
)

const (
	extension       = ".docx"
	defaultCacheTTL = 10 * time.Minute
	defaultCacheLen = 16
)

// CacheObserver receives template cache hit and miss counts.
type CacheObserver interface {
	IncrementTemplateCacheHit()
	IncrementTemplateCacheMiss()
}

// FileStore is the filesystem-backed template store.
type FileStore struct {
	dir      string
	cache    *expirable.LRU[models.DocumentType, []byte]
	logger   *slog.Logger
	observer CacheObserver
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithCache sets the LRU size and entry lifetime.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *FileStore) {
		if size <= 0 {
			size = defaultCacheLen
		}
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		s.cache = expirable.NewLRU[models.DocumentType, []byte](size, nil, ttl)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *FileStore) {
		s.logger = logger
	}
}

func WithCacheObserver(o CacheObserver) Option {
	return func(s *FileStore) {
		s.observer = o
	}
}

// New creates the template directory when missing.
func New(dir string, opts ...Option) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create templates dir %s: %w", dir, err)
	}
	s := &FileStore{
		dir:    dir,
		cache:  expirable.NewLRU[models.DocumentType, []byte](defaultCacheLen, nil, defaultCacheTTL),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path is where the template for t lives.
func (s *FileStore) Path(t models.DocumentType) string {
	return filepath.Join(s.dir, string(t)+extension)
}

// Get returns the template bytes for t, or sentinel.ErrNotFound.
func (s *FileStore) Get(_ context.Context, t models.DocumentType) ([]byte, error) {
	if data, ok := s.cache.Get(t); ok {
		s.hit()
		return data, nil
	}
	s.miss()

	data, err := os.ReadFile(s.Path(t))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", t, err)
	}
	s.cache.Add(t, data)
	return data, nil
}

// Put replaces the template for t.
func (s *FileStore) Put(ctx context.Context, t models.DocumentType, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := atomicfile.Write(s.Path(t), data, 0o640); err != nil {
		return fmt.Errorf("write template %s: %w", t, err)
	}
	s.cache.Add(t, data)
	return nil
}

// Status reports whether a template for t exists and when it last changed.
func (s *FileStore) Status(_ context.Context, t models.DocumentType) (models.TemplateStatus, error) {
	st := models.TemplateStatus{Type: t, DisplayName: t.DisplayName()}
	info, err := os.Stat(s.Path(t))
	if errors.Is(err, fs.ErrNotExist) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("stat template %s: %w", t, err)
	}
	mod := info.ModTime().UTC()
	st.Exists = true
	st.UpdatedAt = &mod
	return st, nil
}

// Watch invalidates cached templates whenever files in the template
// directory change. It blocks until ctx is done.
func (s *FileStore) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create template watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(s.dir); err != nil {
		return fmt.Errorf("watch templates dir %s: %w", s.dir, err)
	}
	s.logger.InfoContext(ctx, "template watcher started", "dir", s.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ctx, event)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.WarnContext(ctx, "template watcher error", "error", err)
		}
	}
}

func (s *FileStore) handleEvent(ctx context.Context, event fsnotify.Event) {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || !strings.EqualFold(filepath.Ext(base), extension) {
		return
	}
	t := models.DocumentType(strings.TrimSuffix(base, filepath.Ext(base)))
	if !t.IsValid() {
		return
	}
	if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		s.Invalidate(t)
		s.logger.DebugContext(ctx, "template cache invalidated", "type", t, "op", event.Op.String())
	}
}

// Invalidate drops the cached bytes for t.
func (s *FileStore) Invalidate(t models.DocumentType) {
	s.cache.Remove(t)
}

func (s *FileStore) hit() {
	if s.observer != nil {
		s.observer.IncrementTemplateCacheHit()
	}
}

func (s *FileStore) miss() {
	if s.observer != nil {
		s.observer.IncrementTemplateCacheMiss()
	}
}
