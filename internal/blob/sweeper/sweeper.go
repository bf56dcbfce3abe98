// Package sweeper removes staff blobs that no staff row references. Blobs
// younger than the grace period are left alone so uploads whose row has not
// committed yet survive.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"orgstructure/internal/blob"
	"orgstructure/internal/platform/metrics"
)

// Referencer reports every blob key currently owned by a row.
type Referencer interface {
	ReferencedBlobs(ctx context.Context) (map[string]bool, error)
}

type Sweeper struct {
	store   blob.Store
	refs    Referencer
	grace   time.Duration
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	cron    *cron.Cron
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func WithGrace(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.grace = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

func New(store blob.Store, refs Referencer, opts ...Option) *Sweeper {
	s := &Sweeper{
		store:   store,
		refs:    refs,
		grace:   time.Hour,
		timeout: 10 * time.Minute,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sweep deletes unreferenced staff blobs older than the grace period and
// returns how many were removed. A failed delete is logged and skipped.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	objs, err := s.store.List(ctx, blob.StaffPrefix)
	if err != nil {
		return 0, fmt.Errorf("list blobs: %w", err)
	}
	cutoff := s.now().Add(-s.grace)

	var candidates []blob.Object
	for _, o := range objs {
		if o.ModTime.Before(cutoff) {
			candidates = append(candidates, o)
		}
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	// References are read after listing: a blob attached in between is
	// seen as referenced.
	refs, err := s.refs.ReferencedBlobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load blob references: %w", err)
	}

	swept := 0
	for _, o := range candidates {
		if refs[o.Key] {
			continue
		}
		if err := s.store.Delete(ctx, o.Key); err != nil {
			s.logger.WarnContext(ctx, "orphan blob delete failed", "key", o.Key, "error", err)
			continue
		}
		swept++
	}
	s.metrics.AddBlobsSwept(swept)
	return swept, nil
}

// Start schedules Sweep with a cron spec such as "@every 1h".
func (s *Sweeper) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, s.run)
	if err != nil {
		return fmt.Errorf("schedule blob sweep %q: %w", spec, err)
	}
	s.cron = c
	c.Start()
	s.logger.Info("blob sweeper scheduled", "schedule", spec, "grace", s.grace.String())
	return nil
}

// Stop waits for a running sweep or for ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.Sweep(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "blob sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "orphan blobs swept", "count", n)
	}
}
