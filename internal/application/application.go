package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/eugenenazirov/bucket-config-server/internal/api"
	"github.com/eugenenazirov/bucket-config-server/internal/config"
	"github.com/eugenenazirov/bucket-config-server/internal/metrics"
	"github.com/eugenenazirov/bucket-config-server/internal/objectstore"
	"github.com/eugenenazirov/bucket-config-server/internal/objectstore/filestore"
	"github.com/eugenenazirov/bucket-config-server/internal/objectstore/gcsstore"
	"github.com/eugenenazirov/bucket-config-server/internal/objectstore/s3store"
	"github.com/eugenenazirov/bucket-config-server/internal/repository"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	store      objectstore.Store
	repository *repository.Repository
	handler    *api.Handler
	router     http.Handler
	registry   *prometheus.Registry
	logger     *zap.Logger
	server     *http.Server
}

// New initializes the application with all dependencies from the provided configuration.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	store, err := NewObjectStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store: %w", err)
	}
	return NewWithStore(cfg, store, logger)
}

// NewWithStore wires the application around an already constructed object store.
func NewWithStore(cfg config.Config, store objectstore.Store, logger *zap.Logger) (*App, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	repo := repository.New(store, cfg.Server, logger,
		repository.WithOrder(cfg.Server.Order),
		repository.WithMetrics(m),
	)
	handler := api.NewHandler(repo, logger)
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithMetrics(m, registry),
	)

	logger.Info("object storage repository configured",
		zap.String("backend", store.Name()),
		zap.String("bucket", store.Bucket()),
		zap.Int("order", repo.Order()),
	)

	return &App{
		store:      store,
		repository: repo,
		handler:    handler,
		router:     router,
		registry:   registry,
		logger:     logger,
		server:     NewServer(cfg, router),
	}, nil
}

// NewObjectStore creates the storage backend selected by cfg.Backend.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (objectstore.Store, error) {
	switch cfg.Backend {
	case config.BackendS3:
		return s3store.New(ctx, s3store.Config{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			UsePathStyle:    cfg.UsePathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	case config.BackendGCS:
		return gcsstore.New(ctx, gcsstore.Config{
			Bucket:          cfg.Bucket,
			Prefix:          cfg.Prefix,
			CredentialsFile: cfg.CredentialsFile,
			Endpoint:        cfg.Endpoint,
		})
	case config.BackendFile:
		return filestore.New(cfg.Root)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Close releases resources held by the object store, if any.
func (a *App) Close() error {
	if closer, ok := a.store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
