// Package queue publishes audit result events to a message broker and lets
// tools follow them. NATS JetStream, Redis Streams, Kafka and an in-process
// queue are supported.
package queue

import "context"

// Publisher publishes messages to a queue
type Publisher interface {
	// Publish publishes a message to a subject/topic
	Publish(ctx context.Context, subject string, data []byte) error

	// Close closes the connection
	Close() error
}

// Subscriber subscribes to messages from a queue
type Subscriber interface {
	// Subscribe subscribes to a subject/topic with a handler
	Subscribe(subject string, handler MessageHandler) error

	// Unsubscribe unsubscribes from a subject/topic
	Unsubscribe(subject string) error

	// Close closes the connection
	Close() error
}

// MessageHandler handles incoming messages. Returning an error leaves the
// message unacknowledged where the backend supports redelivery.
type MessageHandler func(data []byte) error

// Queue combines Publisher and Subscriber interfaces
type Queue interface {
	Publisher
	Subscriber
}

var (
	_ Queue = (*NATSQueue)(nil)
	_ Queue = (*RedisQueue)(nil)
	_ Queue = (*KafkaQueue)(nil)
	_ Queue = (*MemoryQueue)(nil)
	_ Queue = NoopQueue{}
)
