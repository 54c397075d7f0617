// Package service implements the TaskZen operations on top of the store.
// It validates input, keeps the board cache coherent, publishes change
// events and records a span for every mutation.
package service

import (
	"context"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"taskzen/internal/auth"
	"taskzen/internal/avatars"
	"taskzen/internal/cache"
	"taskzen/internal/events"
	"taskzen/internal/storage/sqlite"
)

const tracerName = "taskzen/service"

// Options wires the dependencies of a Service. Cache and Bus are optional.
type Options struct {
	Store   *sqlite.Store
	Auth    *auth.Auth
	Avatars *avatars.Store
	Cache   *cache.Cache
	Bus     events.Bus
	Logger  *slog.Logger
	Now     func() time.Time
}

// Service exposes the user facing operations.
type Service struct {
	store   *sqlite.Store
	auth    *auth.Auth
	avatars *avatars.Store
	cache   *cache.Cache
	bus     events.Bus
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// New creates a Service.
func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewLocalBus()
	}
	return &Service{
		store:   opts.Store,
		auth:    opts.Auth,
		avatars: opts.Avatars,
		cache:   opts.Cache,
		bus:     bus,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
		now:     now,
	}
}

// Ping checks the database.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Subscribe streams the change events of a user.
func (s *Service) Subscribe(ctx context.Context, userID string) (<-chan events.Event, func(), error) {
	return s.bus.Subscribe(ctx, userID)
}

func (s *Service) startSpan(ctx context.Context, name, userID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("taskzen.user_id", userID))
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func projectAttr(projectID string) attribute.KeyValue {
	return attribute.String("taskzen.project_id", projectID)
}

// changed evicts the cached board of projectID and notifies the user.
func (s *Service) changed(ctx context.Context, kind, userID, projectID, entityID string) {
	if projectID != "" {
		s.cache.Evict(ctx, projectID)
	}
	ev := events.Event{
		Type:      kind,
		UserID:    userID,
		ProjectID: projectID,
		EntityID:  entityID,
		At:        s.now().UTC(),
	}
	if err := s.bus.Publish(ctx, ev); err != nil {
		s.logger.Warn("publish event failed", slog.String("type", kind), slog.Any("error", err))
	}
}
