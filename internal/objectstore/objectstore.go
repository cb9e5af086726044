package objectstore

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrObjectNotFound is returned when the backend reports that the object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object is an opened storage object. Callers own Body and must close it.
type Object struct {
	Key     string
	Version string
	Body    io.ReadCloser
}

// Store reads objects from a single bucket.
type Store interface {
	Get(ctx context.Context, key string) (*Object, error)
	Bucket() string
	Name() string
}

// JoinKey prefixes key with a bucket-relative folder, tolerating stray slashes.
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
