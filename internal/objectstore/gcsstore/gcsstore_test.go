package gcsstore

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eugenenazirov/bucket-config-server/internal/objectstore"
)

func newFakeStore(objects map[string]string, failures map[string]error) (*Store, *[]string) {
	var requested []string
	return &Store{
		bucket: "configs",
		prefix: "config/",
		open: func(_ context.Context, key string) (io.ReadCloser, int64, error) {
			requested = append(requested, key)
			if err, ok := failures[key]; ok {
				return nil, 0, err
			}
			data, ok := objects[key]
			if !ok {
				return nil, 0, storage.ErrObjectNotExist
			}
			return io.NopCloser(strings.NewReader(data)), 1700000000000001, nil
		},
	}, &requested
}

func TestGetUsesGenerationAsVersion(t *testing.T) {
	store, requested := newFakeStore(map[string]string{"config/app-default.yml": "a: 1"}, nil)

	obj, err := store.Get(context.Background(), "app-default.yml")
	require.NoError(t, err)
	defer obj.Body.Close()

	assert.Equal(t, "1700000000000001", obj.Version)
	assert.Equal(t, "app-default.yml", obj.Key)
	assert.Equal(t, []string{"config/app-default.yml"}, *requested)
}

func TestGetMapsMissingObject(t *testing.T) {
	store, _ := newFakeStore(nil, nil)

	_, err := store.Get(context.Background(), "app-default.yml")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestGetMapsMissingBucket(t *testing.T) {
	store, _ := newFakeStore(nil, map[string]error{"config/k": storage.ErrBucketNotExist})

	_, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestGetKeepsOtherErrors(t *testing.T) {
	denied := errors.New("googleapi: Error 403: forbidden")
	store, _ := newFakeStore(nil, map[string]error{"config/k": denied})

	_, err := store.Get(context.Background(), "k")
	assert.ErrorIs(t, err, denied)
	assert.NotErrorIs(t, err, objectstore.ErrObjectNotFound)
}

func TestStoreMetadata(t *testing.T) {
	store, _ := newFakeStore(nil, nil)

	assert.Equal(t, "gcs", store.Name())
	assert.Equal(t, "configs", store.Bucket())
	assert.NoError(t, store.Close())
}

func TestNewRequiresBucket(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}
