// Package sessionstore keeps uploaded audit sessions between requests
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soltixdb/airaudit/internal/compression"
	"github.com/soltixdb/airaudit/internal/config"
	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/utils"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session not found")

// Store persists sessions
type Store interface {
	// Put stores a new session or overwrites an existing one
	Put(ctx context.Context, s *dataset.Session) error

	// Get loads a session and refreshes its expiry
	Get(ctx context.Context, id string) (*dataset.Session, error)

	// Delete removes a session; deleting an unknown id returns ErrNotFound
	Delete(ctx context.Context, id string) error

	// Close releases backend resources
	Close() error
}

// New creates a Store based on configuration. Default is memory.
func New(cfg config.SessionConfig, logger *logging.Logger) (Store, error) {
	if logger == nil {
		logger = logging.Global()
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = utils.DefaultSessionTTL
	}

	backend := utils.SessionBackend(strings.ToLower(cfg.Backend))
	if backend == "" {
		backend = utils.SessionBackendMemory
	}

	switch backend {
	case utils.SessionBackendMemory:
		return NewMemoryStore(ttl, cfg.MaxCount, logger), nil

	case utils.SessionBackendRedis:
		algo, err := compression.ParseAlgorithm(cfg.Compression)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(RedisConfig{
			URL:         cfg.URL,
			Password:    cfg.Password,
			DB:          cfg.RedisDB,
			Prefix:      cfg.Prefix,
			TTL:         ttl,
			Compression: algo,
		}, logger)

	default:
		return nil, fmt.Errorf("unsupported session backend: %s (supported: memory, redis)", backend)
	}
}

// clock is replaced in tests
var clock = time.Now
