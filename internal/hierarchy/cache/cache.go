// Package cache keeps rendered org trees in Redis. Entries are keyed under a
// version number that any write to the hierarchy inputs bumps, so stale
// trees are never read and expire on their own.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"orgstructure/internal/hierarchy"
	"orgstructure/internal/platform/metrics"
	"orgstructure/pkg/platform/changes"
)

const (
	keyPrefix  = "orgtree:"
	versionKey = keyPrefix + "version"
)

// Builder renders a tree from storage.
type Builder interface {
	Build(ctx context.Context, p hierarchy.Params) (*hierarchy.Tree, error)
}

// Cache serves trees from Redis when a client is configured and coalesces
// concurrent builds of the same tree either way.
type Cache struct {
	builder Builder
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

type Option func(*Cache)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New wraps builder. client may be nil.
func New(builder Builder, client *redis.Client, opts ...Option) *Cache {
	c := &Cache{
		builder: builder,
		client:  client,
		ttl:     5 * time.Minute,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tree returns the tree for p. Redis failures degrade to a direct build.
func (c *Cache) Tree(ctx context.Context, p hierarchy.Params) (*hierarchy.Tree, error) {
	if c.client == nil {
		return c.build(ctx, p.Key(), p)
	}

	version, err := c.version(ctx)
	if err != nil {
		c.degraded(ctx, "read version", err)
		return c.build(ctx, p.Key(), p)
	}
	key := keyPrefix + version + ":" + p.Key()

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var tree hierarchy.Tree
		if err := json.Unmarshal(raw, &tree); err == nil {
			c.metrics.IncrementTreeCache("hit")
			return &tree, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached tree", "key", key)
	case !errors.Is(err, redis.Nil):
		c.degraded(ctx, "read tree", err)
		return c.build(ctx, key, p)
	}

	c.metrics.IncrementTreeCache("miss")
	tree, err := c.build(ctx, key, p)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(tree)
	if err != nil {
		return tree, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.degraded(ctx, "write tree", err)
	}
	return tree, nil
}

func (c *Cache) build(ctx context.Context, key string, p hierarchy.Params) (*hierarchy.Tree, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		return c.builder.Build(context.WithoutCancel(ctx), p)
	})
	if err != nil {
		return nil, err
	}
	return v.(*hierarchy.Tree), nil
}

func (c *Cache) version(ctx context.Context) (string, error) {
	v, err := c.client.Get(ctx, versionKey).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	return v, err
}

func (c *Cache) degraded(ctx context.Context, op string, err error) {
	c.metrics.IncrementTreeCache("error")
	c.logger.WarnContext(ctx, "tree cache unavailable", "op", op, "error", err)
}

// Invalidate makes every cached tree unreachable.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey).Err()
}

// Publish implements changes.Publisher: writes to the entities a tree is
// rendered from invalidate the cache.
func (c *Cache) Publish(ctx context.Context, e changes.Event) {
	if !affectsTree(e.Entity) {
		return
	}
	if err := c.Invalidate(ctx); err != nil {
		c.degraded(ctx, "invalidate", err)
	}
}

func affectsTree(entity string) bool {
	switch entity {
	case "position", "hierarchy_relation", "staff", "staff_position", "organization":
		return true
	}
	return false
}
