package queue

import (
	"fmt"
	"strings"

	"github.com/soltixdb/airaudit/internal/config"
	"github.com/soltixdb/airaudit/internal/utils"
)

// NewQueue creates a Queue based on configuration. Default is none.
func NewQueue(cfg config.QueueConfig) (Queue, error) {
	queueType := utils.QueueType(strings.ToLower(cfg.Type))
	if queueType == "" {
		queueType = utils.QueueTypeNone
	}

	prefix := cfg.Subject
	if prefix == "" {
		prefix = utils.DefaultResultSubject
	}

	switch queueType {
	case utils.QueueTypeNone:
		return NoopQueue{}, nil

	case utils.QueueTypeNATS:
		return newNATSQueue(NATSConfig{
			URL:      cfg.URL,
			Username: cfg.Username,
			Password: cfg.Password,
			Subject:  prefix,
		})

	case utils.QueueTypeRedis:
		return newRedisQueue(RedisConfig{
			URL:      cfg.URL,
			Password: cfg.Password,
			DB:       cfg.RedisDB,
		})

	case utils.QueueTypeKafka:
		return newKafkaQueue(KafkaConfig{
			Brokers:  cfg.KafkaBrokers,
			Username: cfg.Username,
			Password: cfg.Password,
		})

	case utils.QueueTypeMemory:
		return newMemoryQueue(), nil

	default:
		return nil, fmt.Errorf("unsupported queue type: %s (supported: none, nats, redis, kafka, memory)", queueType)
	}
}

// NewPublisher creates a Publisher based on configuration
func NewPublisher(cfg config.QueueConfig) (Publisher, error) {
	return NewQueue(cfg)
}

// NewSubscriber creates a Subscriber based on configuration
func NewSubscriber(cfg config.QueueConfig) (Subscriber, error) {
	return NewQueue(cfg)
}
