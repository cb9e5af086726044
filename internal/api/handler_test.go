package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/bucket-config-server/internal/config"
	"github.com/eugenenazirov/bucket-config-server/internal/environment"
	"github.com/eugenenazirov/bucket-config-server/internal/objectstore"
	"github.com/eugenenazirov/bucket-config-server/internal/repository"
)

type controllableClock struct {
	mu  sync.RWMutex
	now time.Time
}

func newControllableClock(initial time.Time) *controllableClock {
	return &controllableClock{now: initial}
}

func (c *controllableClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

type recordingRepository struct {
	env   *environment.Environment
	err   error
	calls [][3]string
}

func (r *recordingRepository) FindOne(_ context.Context, application, profile, label string) (*environment.Environment, error) {
	r.calls = append(r.calls, [3]string{application, profile, label})
	return r.env, r.err
}

func (r *recordingRepository) Order() int { return environment.LowestPrecedence }

func setupTestRouter(t *testing.T) (http.Handler, *objectstore.MemoryStore, *controllableClock) {
	t.Helper()

	store := objectstore.NewMemoryStore("configs")
	props := config.ServerProperties{
		DefaultApplication: "application",
		DefaultProfile:     "default",
		Overrides:          map[string]string{"server.overridden": "true"},
	}
	logger := zaptest.NewLogger(t)
	repo := repository.New(store, props, logger)
	clock := newControllableClock(time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC))

	handler := NewHandler(repo, logger, WithClock(clock.Now))
	router := NewRouter(handler, logger, WithLogging(false))

	return router, store, clock
}

type environmentBody struct {
	Name            string   `json:"name"`
	Profiles        []string `json:"profiles"`
	Label           string   `json:"label"`
	Version         string   `json:"version"`
	PropertySources []struct {
		Name   string            `json:"name"`
		Source map[string]string `json:"source"`
	} `json:"propertySources"`
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	resp := httptest.NewRecorder()
	writeInternalError(resp, assertError("boom"))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 status, got %d", resp.Code)
	}
}

type assertError string

func (a assertError) Error() string { return string(a) }

func TestHealthEndpoint(t *testing.T) {
	router, _, clock := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body struct {
		Status    string    `json:"status"`
		Timestamp time.Time `json:"timestamp"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Status != "ok" {
		t.Fatalf("expected status ok, got %s", body.Status)
	}
	if !body.Timestamp.Equal(clock.Now()) {
		t.Fatalf("expected timestamp %s, got %s", clock.Now(), body.Timestamp)
	}
}

func TestEnvironmentEndpoint(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	version := store.Put("billing-prod.properties", []byte("a=1\nserver.overridden=false"))

	req := httptest.NewRequest(http.MethodGet, "/billing/prod", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var body environmentBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if body.Name != "billing" || len(body.Profiles) != 1 || body.Profiles[0] != "prod" {
		t.Fatalf("unexpected environment: %+v", body)
	}
	if body.Version != version {
		t.Fatalf("expected version %s, got %s", version, body.Version)
	}
	if len(body.PropertySources) != 1 {
		t.Fatalf("expected 1 property source, got %d", len(body.PropertySources))
	}
	source := body.PropertySources[0]
	if source.Name != "billing" || source.Source["a"] != "1" {
		t.Fatalf("unexpected property source: %+v", source)
	}
	if source.Source["server.overridden"] != "true" {
		t.Fatalf("expected override to win, got %q", source.Source["server.overridden"])
	}
}

func TestEnvironmentEndpointWithLabel(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	store.Put("billing-prod-release/1.0.yml", []byte("feature:\n  enabled: true\n"))

	req := httptest.NewRequest(http.MethodGet, "/billing/prod/release(_)1.0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body environmentBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Label != "release/1.0" {
		t.Fatalf("expected label release/1.0, got %q", body.Label)
	}
	if body.PropertySources[0].Source["feature.enabled"] != "true" {
		t.Fatalf("unexpected source: %v", body.PropertySources[0].Source)
	}
}

func TestEnvironmentEndpointNotFound(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/billing/prod", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error != "No such repository" || body.Details == "" {
		t.Fatalf("unexpected error body: %+v", body)
	}
}

func TestEnvironmentEndpointUnloadable(t *testing.T) {
	router, store, _ := setupTestRouter(t)
	store.Put("billing-prod.yml", []byte("a: [\n"))

	req := httptest.NewRequest(http.MethodGet, "/billing/prod", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}

func TestEnvironmentEndpointPassesPathValues(t *testing.T) {
	repo := &recordingRepository{err: fmt.Errorf("wrapped: %w", environment.ErrNoSuchRepository)}
	router := NewRouter(NewHandler(repo, zaptest.NewLogger(t)), zaptest.NewLogger(t), WithLogging(false))

	for _, target := range []string{"/billing/prod", "/billing/prod,eu/main"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for %s, got %d", target, rec.Code)
		}
	}

	want := [][3]string{{"billing", "prod", ""}, {"billing", "prod,eu", "main"}}
	if len(repo.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d", len(want), len(repo.calls))
	}
	for i := range want {
		if repo.calls[i] != want[i] {
			t.Fatalf("call %d: expected %v, got %v", i, want[i], repo.calls[i])
		}
	}
}

func TestEnvironmentEndpointInternalError(t *testing.T) {
	repo := &recordingRepository{err: errors.New("backend exploded")}
	router := NewRouter(NewHandler(repo, zaptest.NewLogger(t)), zaptest.NewLogger(t), WithLogging(false))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/billing/prod", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestCorsPreflight(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/billing/prod", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Fatalf("expected Access-Control-Allow-Origin header to be set")
	}
}

func TestRequestIDPropagation(t *testing.T) {
	router, _, _ := setupTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "test-request-id")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "test-request-id" {
		t.Fatalf("expected X-Request-ID header to be echoed, got %s", got)
	}
}
