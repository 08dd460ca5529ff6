package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

// Publisher writes keyed records to one topic. The hash balancer routes
// equal keys to the same partition; RequireAll acks keep producer retries
// from acknowledging a record the brokers have not replicated.
type Publisher struct {
	writer *kafka.Writer
	topic  string
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka publisher requires a topic")
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  10,
			BatchTimeout: 10 * time.Millisecond,
		},
		topic: topic,
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now().UTC(),
	})
}

func (p *Publisher) Topic() string {
	return p.topic
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

var _ ports.Publisher = (*Publisher)(nil)
