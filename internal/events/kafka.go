package events

import (
	"context"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"crm-connect/internal/common/errors"
)

// KafkaPublisher produces to a Kafka topic keyed by owner so one owner's
// events stay ordered within a partition
type KafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.ConfigError("at least one Kafka broker is required")
	}
	if topic == "" {
		return nil, errors.ConfigError("Kafka topic is required")
	}
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": strings.Join(brokers, ","),
		"client.id":         "crm-connect",
		"acks":              "all",
	})
	if err != nil {
		return nil, errors.ConnectionError("failed to create Kafka producer", err)
	}
	return &KafkaPublisher{producer: producer, topic: topic}, nil
}

func (p *KafkaPublisher) Name() string { return "kafka" }

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	body, err := event.Encode()
	if err != nil {
		return errors.InternalError("failed to encode event", err)
	}

	topic := p.topic
	delivery := make(chan kafka.Event, 1)
	err = p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.Owner),
		Value:          body,
		Timestamp:      event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "provider", Value: []byte(event.Provider)},
		},
	}, delivery)
	if err != nil {
		return errors.ConnectionError("failed to produce Kafka message", err)
	}

	select {
	case e := <-delivery:
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			return errors.ConnectionError("Kafka delivery failed", m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		return errors.TimeoutError("kafka delivery")
	}
}

func (p *KafkaPublisher) Close() error {
	p.producer.Flush(5000)
	p.producer.Close()
	return nil
}
