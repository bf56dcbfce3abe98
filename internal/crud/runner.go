// Package crud runs entity mutations inside a storage transaction and emits
// the audit log line, the mutation metric and the change event once the
// transaction commits. Domain services build on Resource for their plain
// create/get/list/update/delete paths and on Runner.Mutate for the rest.
package crud

import (
	"context"
	"log/slog"

	"orgstructure/internal/platform/metrics"
	"orgstructure/internal/storage"
	"orgstructure/pkg/platform/changes"
	"orgstructure/pkg/requestcontext"
)

// Runner owns the store and the post-commit side effects.
type Runner struct {
	store     storage.Store
	logger    *slog.Logger
	metrics   *metrics.Metrics
	publisher changes.Publisher
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithPublisher(p changes.Publisher) Option {
	return func(r *Runner) {
		if p != nil {
			r.publisher = p
		}
	}
}

func NewRunner(store storage.Store, opts ...Option) *Runner {
	r := &Runner{
		store:     store,
		logger:    slog.Default(),
		publisher: changes.Noop{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the non-transactional gateway for reads.
func (r *Runner) Store() storage.Store {
	return r.store
}

func (r *Runner) Logger() *slog.Logger {
	return r.logger
}

// Mutate runs fn in a transaction. fn returns the id of the row it changed.
// Errors are translated with storage.DomainError using entity as the subject.
func (r *Runner) Mutate(ctx context.Context, entity string, action changes.Action, fn func(ctx context.Context, tx storage.Gateway) (int64, error)) (int64, error) {
	var id int64
	err := r.store.RunInTx(ctx, func(ctx context.Context, tx storage.Gateway) error {
		var err error
		id, err = fn(ctx, tx)
		return err
	})
	if err != nil {
		return 0, storage.DomainError(err, entity)
	}
	r.committed(ctx, entity, action, id)
	return id, nil
}

func (r *Runner) committed(ctx context.Context, entity string, action changes.Action, id int64) {
	actor := requestcontext.Principal(ctx)
	r.logAudit(ctx, entity+"_"+string(action),
		"entity", entity,
		"action", string(action),
		"id", id,
		"actor", actor.Email,
	)
	r.metrics.IncrementMutation(entity, string(action))
	r.publisher.Publish(ctx, changes.Event{
		Entity: entity,
		Action: action,
		ID:     id,
		Actor:  actor.Email,
		At:     requestcontext.Now(ctx).UTC(),
	})
}

func (r *Runner) logAudit(ctx context.Context, event string, attrs ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attrs = append(attrs, "request_id", requestID)
	}
	args := append(attrs, "event", event, "log_type", "audit")
	if r.logger != nil {
		r.logger.InfoContext(ctx, event, args...)
	}
}
