package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/macmajerczyk-dot/ml-pipeline/internal/ports"
)

// Consumer fetches records for one topic as part of a consumer group.
// Offsets advance only through Commit, so a crash between Fetch and
// Commit redelivers the record instead of losing it. Partition ownership
// within the group is rebalanced by the broker; running more instances
// with the same group id scales consumption horizontally.
type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka consumer requires at least one broker")
	}
	if groupID == "" {
		return nil, fmt.Errorf("kafka consumer requires a group id")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka consumer requires a topic")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{reader: reader}, nil
}

func (c *Consumer) Fetch(ctx context.Context) (ports.BrokerMessage, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return ports.BrokerMessage{}, err
	}
	return ports.BrokerMessage{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       msg.Key,
		Value:     msg.Value,
	}, nil
}

func (c *Consumer) Commit(ctx context.Context, msg ports.BrokerMessage) error {
	return c.reader.CommitMessages(ctx, kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
	})
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

var _ ports.Consumer = (*Consumer)(nil)
