package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/soltixdb/airaudit/internal/compression"
	"github.com/soltixdb/airaudit/internal/dataset"
	"github.com/soltixdb/airaudit/internal/logging"
	"github.com/soltixdb/airaudit/internal/utils"
)

// RedisConfig represents Redis session store configuration
type RedisConfig struct {
	URL         string        // Redis URL (e.g., redis://localhost:6379)
	Password    string        // Optional password
	DB          int           // Database number (default: 0)
	Prefix      string        // Key prefix (default: "airaudit:session:")
	TTL         time.Duration // Expiry, refreshed on every read and write
	Compression compression.Algorithm
}

// RedisStore keeps JSON session snapshots in Redis, framed by the compression package.
// Every Get returns a fresh copy, so flag writes must be saved back with Put.
type RedisStore struct {
	client     *redis.Client
	config     RedisConfig
	compressor compression.Compressor
	logger     *logging.Logger
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(cfg RedisConfig, logger *logging.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), utils.ConnectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return newRedisStoreWithClient(client, cfg, logger)
}

func newRedisStoreWithClient(client *redis.Client, cfg RedisConfig, logger *logging.Logger) (*RedisStore, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = utils.DefaultSessionPrefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = utils.DefaultSessionTTL
	}
	if logger == nil {
		logger = logging.Global()
	}

	compressor, err := compression.GetCompressor(cfg.Compression)
	if err != nil {
		return nil, err
	}

	return &RedisStore{
		client:     client,
		config:     cfg,
		compressor: compressor,
		logger:     logger,
	}, nil
}

func (r *RedisStore) key(id string) string {
	return r.config.Prefix + id
}

// Put stores the session snapshot with the configured TTL
func (r *RedisStore) Put(ctx context.Context, s *dataset.Session) error {
	raw, err := json.Marshal(s.Snapshot())
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	framed, err := compression.Encode(r.compressor, raw)
	if err != nil {
		return fmt.Errorf("compress session %s: %w", s.ID, err)
	}

	if err := r.client.Set(ctx, r.key(s.ID), framed, r.config.TTL).Err(); err != nil {
		return fmt.Errorf("store session %s: %w", s.ID, err)
	}

	r.logger.Debug("Session saved",
		"session_id", s.ID,
		"bytes", len(framed),
		"uncompressed", len(raw),
		"compression", r.compressor.Algorithm().String())
	return nil
}

// Get loads a session and slides its expiry
func (r *RedisStore) Get(ctx context.Context, id string) (*dataset.Session, error) {
	framed, err := r.client.GetEx(ctx, r.key(id), r.config.TTL).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}

	raw, err := compression.Decode(framed)
	if err != nil {
		return nil, fmt.Errorf("decompress session %s: %w", id, err)
	}

	var snap dataset.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return dataset.Restore(snap)
}

// Delete removes a session
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, r.key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return nil
}

// Close closes the Redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}
