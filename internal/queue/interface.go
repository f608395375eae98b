package queue

import (
	"context"
)

// Publisher is the write side of the change-notification bus.
type Publisher interface {
	// Publish emits a row change event. Best effort: callers log and
	// continue on failure, the authoritative row is already written.
	Publish(ctx context.Context, change *RowChange) error
}

// Bus is the full change-notification contract. Consume models the
// remote subscription as a message channel with explicit teardown:
// cancelling the context unsubscribes and closes the channel.
type Bus interface {
	Publisher

	// Consume returns a channel of change messages. The caller is
	// responsible for acknowledging each message. Prefetch controls how
	// many unacknowledged messages the consumer may hold.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the bus connection.
	Close() error

	// HealthCheck verifies the bus connection is healthy.
	HealthCheck(ctx context.Context) error
}
