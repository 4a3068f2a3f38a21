//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"xs2acms/internal/platform/kafka/producer"
	"xs2acms/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())

	cfg := producer.DefaultConfig()
	cfg.Brokers = s.kafka.Brokers
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.Require().NoError(s.producer.Close())
	}
}

func (s *ProducerIntegrationSuite) TestProduceIsReadableWithHeaders() {
	ctx := context.Background()
	topic := "cms-events-produce"
	s.Require().NoError(s.kafka.CreateTopics(ctx, topic))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("consent-1"),
		Value:   []byte(`{"action":"consent_created"}`),
		Headers: map[string]string{"request_id": "req-1"},
	})
	s.Require().NoError(err)

	reader, err := s.kafka.NewReader("produce-verify", topic)
	s.Require().NoError(err)
	defer reader.Close()

	record := s.kafka.WaitForRecord(ctx, reader, 10*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "consent-1"
	})
	s.Require().NotNil(record)
	s.JSONEq(`{"action":"consent_created"}`, string(record.Value))
	s.Require().Len(record.Headers, 1)
	s.Equal("request_id", record.Headers[0].Key)
	s.Equal("req-1", string(record.Headers[0].Value))
}

func (s *ProducerIntegrationSuite) TestHealth() {
	s.NoError(s.producer.Health(context.Background()))
}

func (s *ProducerIntegrationSuite) TestClosedProducerRefuses() {
	cfg := producer.DefaultConfig()
	cfg.Brokers = s.kafka.Brokers
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.Require().NoError(prod.Close())

	s.Error(prod.Produce(context.Background(), &producer.Message{Topic: "cms-events-closed"}))
	s.Error(prod.Health(context.Background()))
}
