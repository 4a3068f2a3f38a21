package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"xs2acms/internal/platform/kafka/producer"
)

// MessageProducer is satisfied by producer.Producer and producer.NoopProducer.
type MessageProducer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// KafkaStore publishes events as JSON records keyed by entity ID, so all
// events of one consent or payment land on the same partition in order.
type KafkaStore struct {
	producer MessageProducer
	topic    string
}

func NewKafkaStore(p MessageProducer, topic string) *KafkaStore {
	return &KafkaStore{producer: p, topic: topic}
}

func (s *KafkaStore) Append(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.EntityID),
		Value: value,
		Headers: map[string]string{
			"action":      string(event.Action),
			"entity_type": string(event.EntityType),
			"instance_id": event.InstanceID,
		},
	})
}
