package blob

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"orgstructure/internal/platform/metrics"
)

var tracer = otel.Tracer("orgstructure/blob")

// Instrumented decorates a Store with spans, metrics and debug logs.
type Instrumented struct {
	next    Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func Instrument(next Store, logger *slog.Logger, m *metrics.Metrics) *Instrumented {
	return &Instrumented{next: next, logger: logger, metrics: m}
}

func (s *Instrumented) observe(ctx context.Context, op, key string) (context.Context, func(error)) {
	ctx, span := tracer.Start(ctx, "blob."+op, trace.WithAttributes(attribute.String("blob.key", key)))
	return ctx, func(err error) {
		// A missing key is an answer, not a failure.
		if err != nil && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.WarnContext(ctx, "blob operation failed", "op", op, "key", key, "error", err)
		}
		s.metrics.IncrementBlobOp(op, err)
		span.End()
	}
}

func (s *Instrumented) Save(ctx context.Context, key string, r io.Reader) (err error) {
	ctx, done := s.observe(ctx, "save", key)
	defer func() { done(err) }()
	return s.next.Save(ctx, key, r)
}

func (s *Instrumented) Open(ctx context.Context, key string) (rc io.ReadCloser, err error) {
	ctx, done := s.observe(ctx, "open", key)
	defer func() { done(err) }()
	return s.next.Open(ctx, key)
}

func (s *Instrumented) Delete(ctx context.Context, key string) (err error) {
	ctx, done := s.observe(ctx, "delete", key)
	defer func() { done(err) }()
	return s.next.Delete(ctx, key)
}

func (s *Instrumented) List(ctx context.Context, prefix string) (objs []Object, err error) {
	ctx, done := s.observe(ctx, "list", prefix)
	defer func() { done(err) }()
	return s.next.List(ctx, prefix)
}
