package objectstore

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
)

func TestMemoryStoreGetReturnsStoredObject(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore("configs")
	version := store.Put("app-default.yml", []byte("a: 1"))

	obj, err := store.Get(context.Background(), "app-default.yml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(data) != "a: 1" {
		t.Fatalf("unexpected content %q", data)
	}
	if obj.Version != version || obj.Key != "app-default.yml" {
		t.Fatalf("unexpected object metadata: %+v", obj)
	}
}

func TestMemoryStorePutBumpsVersion(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore("configs")
	first := store.Put("k", []byte("1"))
	second := store.Put("k", []byte("2"))

	if first == second {
		t.Fatalf("expected distinct versions, got %s twice", first)
	}
}

func TestMemoryStoreCopiesData(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore("configs")
	data := []byte("a=1")
	store.Put("k", data)
	data[0] = 'z'

	obj, err := store.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := io.ReadAll(obj.Body)
	if string(got) != "a=1" {
		t.Fatalf("expected defensive copy, got %q", got)
	}
}

func TestMemoryStoreMissingObject(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore("configs")
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestMemoryStoreFail(t *testing.T) {
	t.Parallel()

	denied := errors.New("access denied")
	store := NewMemoryStore("configs")
	store.Put("k", []byte("a=1"))
	store.Fail("k", denied)

	_, err := store.Get(context.Background(), "k")
	if !errors.Is(err, denied) {
		t.Fatalf("expected injected error, got %v", err)
	}
	if errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("access errors must not look like not found")
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore("configs")
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(2)

		go func() {
			defer wg.Done()
			store.Put("k", []byte("a=1"))
		}()

		go func() {
			defer wg.Done()
			if obj, err := store.Get(context.Background(), "k"); err == nil {
				_ = obj.Body.Close()
			}
		}()
	}

	wg.Wait()

	if _, err := store.Get(context.Background(), "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJoinKey(t *testing.T) {
	testCases := map[string]struct {
		prefix, key, want string
	}{
		"no prefix":       {prefix: "", key: "app-default.yml", want: "app-default.yml"},
		"plain prefix":    {prefix: "config", key: "app-default.yml", want: "config/app-default.yml"},
		"slashed prefix":  {prefix: "/config/", key: "app-default.yml", want: "config/app-default.yml"},
		"only separators": {prefix: "//", key: "k", want: "k"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			if got := JoinKey(tc.prefix, tc.key); got != tc.want {
				t.Fatalf("JoinKey(%q, %q) = %q, want %q", tc.prefix, tc.key, got, tc.want)
			}
		})
	}
}
