package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
)

type memoryObject struct {
	data    []byte
	version string
}

// MemoryStore keeps objects in-memory and guards access with a RWMutex.
type MemoryStore struct {
	bucket string

	mu      sync.RWMutex
	objects map[string]memoryObject
	seq     int
	failing map[string]error
}

// NewMemoryStore initialises an empty in-memory bucket.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{
		bucket:  bucket,
		objects: make(map[string]memoryObject),
		failing: make(map[string]error),
	}
}

// Put stores a copy of data under key and returns the new version.
func (s *MemoryStore) Put(key string, data []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	version := strconv.Itoa(s.seq)
	s.objects[key] = memoryObject{
		data:    bytes.Clone(data),
		version: version,
	}
	return version
}

// Fail makes subsequent reads of key return err, simulating access errors.
func (s *MemoryStore) Fail(key string, err error) {
	s.mu.Lock()
	s.failing[key] = err
	s.mu.Unlock()
}

// Get returns a reader over a copy of the stored object.
func (s *MemoryStore) Get(_ context.Context, key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err, ok := s.failing[key]; ok {
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, key, err)
	}
	obj, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s/%s: %w", s.bucket, key, ErrObjectNotFound)
	}

	return &Object{
		Key:     key,
		Version: obj.version,
		Body:    io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))),
	}, nil
}

// Bucket returns the bucket name.
func (s *MemoryStore) Bucket() string {
	return s.bucket
}

// Name returns the backend name.
func (s *MemoryStore) Name() string {
	return "memory"
}
