package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/eugenenazirov/bucket-config-server/internal/objectstore"
)

// Store serves objects from a local directory laid out like a bucket.
type Store struct {
	root string
	name string
}

// New creates a store rooted at dir, which must exist.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve root directory: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat root directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}
	return &Store{root: abs, name: filepath.Base(abs)}, nil
}

// Get opens the file for key. The version is the modification time in nanoseconds.
func (s *Store) Get(_ context.Context, key string) (*objectstore.Object, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("get %s: key escapes root", key)
	}
	path := filepath.Join(s.root, rel)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("get %s: %w", path, objectstore.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("get %s: %w", path, objectstore.ErrObjectNotFound)
	}

	return &objectstore.Object{
		Key:     key,
		Version: strconv.FormatInt(info.ModTime().UnixNano(), 10),
		Body:    f,
	}, nil
}

// Bucket returns the base name of the root directory so that the host
// filesystem layout stays out of error messages.
func (s *Store) Bucket() string {
	return s.name
}

// Name returns the backend name.
func (s *Store) Name() string {
	return "file"
}
