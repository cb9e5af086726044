package gcsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/eugenenazirov/bucket-config-server/internal/objectstore"
)

// Config contains configuration for Google Cloud Storage.
type Config struct {
	// Bucket is the GCS bucket name
	Bucket string

	// Prefix is the path prefix within the bucket
	Prefix string

	// CredentialsFile is the path to the service account JSON file (optional)
	// If empty, uses Application Default Credentials
	CredentialsFile string

	// Endpoint overrides the storage endpoint (optional), e.g. for an emulator
	Endpoint string
}

type openFunc func(ctx context.Context, key string) (io.ReadCloser, int64, error)

// Store reads configuration objects from a GCS bucket.
type Store struct {
	bucket string
	prefix string
	open   openFunc
	close  func() error
}

// New creates a GCS backed store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("GCS bucket name is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		//nolint:staticcheck // SA1019: WithCredentialsFile is deprecated but needed for file-based credentials
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	bucket := client.Bucket(cfg.Bucket)
	return &Store{
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		open: func(ctx context.Context, key string) (io.ReadCloser, int64, error) {
			reader, err := bucket.Object(key).NewReader(ctx)
			if err != nil {
				return nil, 0, err
			}
			return reader, reader.Attrs.Generation, nil
		},
		close: client.Close,
	}, nil
}

// Get opens the object. The version is the object generation.
func (s *Store) Get(ctx context.Context, key string) (*objectstore.Object, error) {
	fullKey := objectstore.JoinKey(s.prefix, key)
	body, generation, err := s.open(ctx, fullKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("get gs://%s/%s: %w", s.bucket, fullKey, objectstore.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get gs://%s/%s: %w", s.bucket, fullKey, err)
	}

	return &objectstore.Object{
		Key:     key,
		Version: strconv.FormatInt(generation, 10),
		Body:    body,
	}, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Name returns the backend name.
func (s *Store) Name() string {
	return "gcs"
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
