package repository

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/bucket-config-server/internal/config"
	"github.com/eugenenazirov/bucket-config-server/internal/configfile"
	"github.com/eugenenazirov/bucket-config-server/internal/environment"
	"github.com/eugenenazirov/bucket-config-server/internal/metrics"
	"github.com/eugenenazirov/bucket-config-server/internal/objectstore"
)

// Repository resolves environments from configuration objects stored in a bucket.
type Repository struct {
	store   objectstore.Store
	props   config.ServerProperties
	logger  *zap.Logger
	metrics *metrics.Metrics
	order   int
}

var _ environment.Repository = (*Repository)(nil)

// Option configures Repository behaviour.
type Option func(*Repository)

// WithOrder sets the precedence reported by Order.
func WithOrder(order int) Option {
	return func(r *Repository) {
		r.order = order
	}
}

// WithMetrics records fetch and lookup outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Repository) {
		r.metrics = m
	}
}

// New constructs a Repository reading from store.
func New(store objectstore.Store, props config.ServerProperties, logger *zap.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		store:  store,
		props:  props,
		logger: logger,
		order:  environment.LowestPrecedence,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Order returns the repository precedence.
func (r *Repository) Order() int {
	return r.order
}

// FindOne loads the environment stored under application-profile[-label].
// The properties object is tried first, then the YAML one. When neither can be
// fetched the error wraps environment.ErrNoSuchRepository; when the object
// cannot be parsed it wraps environment.ErrUnloadableContent.
func (r *Repository) FindOne(ctx context.Context, application, profile, label string) (*environment.Environment, error) {
	application = withDefault(application, r.props.DefaultApplication)
	profile = withDefault(profile, r.props.DefaultProfile)
	label = withDefault(label, r.props.DefaultLabel)

	key := ObjectKey(application, profile, label)
	obj, format, ok := r.fetch(ctx, key)
	if !ok {
		r.metrics.RecordLookup(metrics.OutcomeNotFound)
		return nil, fmt.Errorf("%w: %s/%s(%s|%s)", environment.ErrNoSuchRepository,
			r.store.Bucket(), key, configfile.FormatProperties.Extension(), configfile.FormatYAML.Extension())
	}

	values, err := configfile.Decode(format, obj.Body)
	if err != nil {
		r.metrics.RecordLookup(metrics.OutcomeUnloadable)
		r.logger.Error("configuration object cannot be loaded",
			zap.String("bucket", r.store.Bucket()),
			zap.String("key", obj.Key),
			zap.Error(err),
		)
		return nil, fmt.Errorf("load %s: %w", obj.Key, err)
	}
	maps.Copy(values, r.props.Overrides)

	env := environment.New(application, profile, label)
	env.Version = obj.Version
	env.Add(environment.PropertySource{
		Name:   application,
		Source: values,
	})

	r.metrics.RecordLookup(metrics.OutcomeFound)
	r.logger.Debug("environment resolved",
		zap.String("key", obj.Key),
		zap.String("version", obj.Version),
		zap.Int("properties", len(values)),
	)
	return env, nil
}

// fetch tries every format in lookup order. Absent and inaccessible objects
// both fall through to the next format.
func (r *Repository) fetch(ctx context.Context, key string) (*objectstore.Object, configfile.Format, bool) {
	for _, format := range configfile.Formats() {
		objectKey := key + format.Extension()
		obj, err := r.store.Get(ctx, objectKey)
		if err == nil {
			r.metrics.RecordFetch(format.String(), metrics.OutcomeFound)
			return obj, format, true
		}

		if errors.Is(err, objectstore.ErrObjectNotFound) {
			r.metrics.RecordFetch(format.String(), metrics.OutcomeNotFound)
			r.logger.Debug("configuration object not found",
				zap.String("bucket", r.store.Bucket()),
				zap.String("key", objectKey),
			)
			continue
		}

		r.metrics.RecordFetch(format.String(), metrics.OutcomeError)
		r.logger.Warn("configuration object fetch failed",
			zap.String("backend", r.store.Name()),
			zap.String("bucket", r.store.Bucket()),
			zap.String("key", objectKey),
			zap.Error(err),
		)
	}
	return nil, 0, false
}

// ObjectKey builds the object key, without extension, for an application,
// profile and optional label.
func ObjectKey(application, profile, label string) string {
	var b strings.Builder
	b.WriteString(application)
	b.WriteString("-")
	b.WriteString(profile)
	if label != "" {
		b.WriteString("-")
		b.WriteString(label)
	}
	return b.String()
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
