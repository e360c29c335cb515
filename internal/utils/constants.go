package utils

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

// HTTP Handler Timeouts
const (
	// DefaultRequestTimeout is the default timeout for HTTP requests
	DefaultRequestTimeout = 30 * time.Second

	// SessionStoreTimeout bounds a single session load or save
	SessionStoreTimeout = 5 * time.Second

	// PublishTimeout bounds publishing one result event
	PublishTimeout = 5 * time.Second

	// ConnectTimeout is the timeout for connecting to Redis/NATS/Kafka at startup
	ConnectTimeout = 5 * time.Second
)

// =============================================================================
// Session Constants
// =============================================================================

const (
	// DefaultSessionTTL is how long an idle session survives
	DefaultSessionTTL = 12 * time.Hour

	// DefaultSessionPrefix namespaces session keys in Redis
	DefaultSessionPrefix = "airaudit:session:"

	// DefaultResultSubject is the prefix of result-event subjects
	DefaultResultSubject = "airaudit.results"
)

// SessionBackend represents where sessions are stored
type SessionBackend string

const (
	// SessionBackendMemory keeps sessions in process (default)
	SessionBackendMemory SessionBackend = "memory"

	// SessionBackendRedis stores snappy-compressed snapshots in Redis
	SessionBackendRedis SessionBackend = "redis"
)

// =============================================================================
// Queue Type Constants
// =============================================================================

// QueueType represents the type of message queue
type QueueType string

const (
	// QueueTypeNone disables result events (default)
	QueueTypeNone QueueType = "none"

	// QueueTypeNATS represents NATS JetStream queue
	QueueTypeNATS QueueType = "nats"

	// QueueTypeRedis represents Redis Streams queue
	QueueTypeRedis QueueType = "redis"

	// QueueTypeKafka represents Apache Kafka queue
	QueueTypeKafka QueueType = "kafka"

	// QueueTypeMemory represents in-memory queue (for testing)
	QueueTypeMemory QueueType = "memory"
)
