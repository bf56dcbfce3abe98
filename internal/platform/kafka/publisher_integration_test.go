//go:build integration

package kafka_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"orgstructure/internal/platform/kafka"
	"orgstructure/pkg/platform/changes"
	"orgstructure/pkg/testutil/containers"
)

type PublisherSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PublisherSuite))
}

func (s *PublisherSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *PublisherSuite) TestPublishedEventIsConsumable() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "orgstructure.changes.test"
	pub, err := kafka.New(ctx, s.redpanda.Brokers, topic,
		kafka.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))))
	s.Require().NoError(err)
	s.Require().NoError(pub.EnsureTopic(ctx, 1, 1))

	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	pub.Publish(ctx, changes.Event{Entity: "organization", Action: changes.ActionCreate, ID: 7, Actor: "root@example.com", At: at})
	s.Require().NoError(pub.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var got changes.Event
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal("organization", got.Entity)
	s.Equal(int64(7), got.ID)
	s.Equal("organization:7", string(records[0].Key))
}
