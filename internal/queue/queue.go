package queue

import (
	"context"
	"time"
)

const (
	// WorkQueue is the queue delivery requests are consumed from.
	WorkQueue = "email.queue"
	// DeadLetterQueue receives messages that can or should not be retried.
	DeadLetterQueue = "dlq.email"

	// RoutingKeyWork routes delivery requests to the work queue.
	RoutingKeyWork = "email"
	// RoutingKeyDeadLetter routes exhausted or permanently failed messages.
	RoutingKeyDeadLetter = "failed"

	// DelayHeader carries the redelivery delay in milliseconds and is honored
	// by the broker's delayed-message exchange.
	DelayHeader = "x-delay"

	// PrefetchPerWorker is the Qos prefetch applied to each consumer channel.
	// Every worker slot runs its own channel, so the aggregate unacked budget
	// equals the pool size only when each channel prefetches a single message.
	PrefetchPerWorker = 1
)

// Publisher publishes delivery requests back to the broker.
type Publisher interface {
	// PublishDelayed republishes a request that becomes visible to consumers
	// only after the given delay. A zero delay publishes immediately.
	PublishDelayed(ctx context.Context, req NotificationRequest, delay time.Duration) error
	// PublishDeadLetter routes the original message body, unmodified, to the
	// dead-letter destination.
	PublishDeadLetter(ctx context.Context, body []byte) error
	Close() error
}

// MessageHandler handles a consumed queue message. The raw body is passed
// alongside the parsed request so dead-letter publishes can preserve the
// payload byte for byte.
type MessageHandler func(ctx context.Context, raw []byte, req NotificationRequest) error

// Consumer consumes delivery requests from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}
