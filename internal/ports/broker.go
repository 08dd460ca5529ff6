package ports

import "context"

// BrokerMessage carries one record fetched from a topic partition,
// together with the coordinates needed to commit it.
type BrokerMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
}

// Publisher writes keyed records to a single topic. Records sharing a key
// land on the same partition, so per-id ordering holds end to end.
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// Consumer fetches records as part of a consumer group. Offsets move only
// through Commit; a record fetched but never committed is redelivered.
type Consumer interface {
	Fetch(ctx context.Context) (BrokerMessage, error)
	Commit(ctx context.Context, msg BrokerMessage) error
	Close() error
}
