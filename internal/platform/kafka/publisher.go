// Package kafka publishes the change feed to a Kafka-compatible broker.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"orgstructure/internal/platform/metrics"
	"orgstructure/pkg/platform/changes"
)

// Publisher implements changes.Publisher over a franz-go client. Records are
// keyed by entity and id so a row's events stay ordered within a partition.
type Publisher struct {
	client  *kgo.Client
	topic   string
	logger  *slog.Logger
	metrics *metrics.Metrics
	breaker *changes.Breaker
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// New connects to brokers. It returns nil, nil when no brokers are configured.
func New(ctx context.Context, brokers []string, topic string, opts ...Option) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(50*time.Millisecond),
		kgo.RecordDeliveryTimeout(10*time.Second),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}
	p := &Publisher{
		client:  client,
		topic:   topic,
		logger:  slog.Default(),
		breaker: changes.NewBreaker(5, 30*time.Second),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (p *Publisher) EnsureTopic(ctx context.Context, partitions int32, replication int16) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", p.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

// Publish enqueues e without waiting for delivery. Events are dropped while
// the breaker is open or the producer buffer is full.
func (p *Publisher) Publish(ctx context.Context, e changes.Event) {
	if !p.breaker.Allow() {
		p.metrics.IncrementChangesFailed()
		return
	}
	value, err := json.Marshal(e)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode change event", "error", err, "entity", e.Entity)
		return
	}
	rec := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(e.Entity + ":" + strconv.FormatInt(e.ID, 10)),
		Value: value,
	}
	p.client.TryProduce(ctx, rec, func(r *kgo.Record, err error) {
		if err != nil {
			p.breaker.Failure()
			p.metrics.IncrementChangesFailed()
			p.logger.Warn("change event not delivered",
				"error", err,
				"key", string(r.Key),
			)
			return
		}
		p.breaker.Success()
	})
}

// Close flushes buffered events, waiting at most until ctx ends.
func (p *Publisher) Close(ctx context.Context) error {
	err := p.client.Flush(ctx)
	p.client.Close()
	return err
}
