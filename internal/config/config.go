package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Audit   AuditConfig   `mapstructure:"audit"`
	Session SessionConfig `mapstructure:"session"`
	Queue   QueueConfig   `mapstructure:"queue"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`  // Enable/disable API key authentication
	APIKeys []string `mapstructure:"api_keys"` // List of valid API keys
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`          // Bind address (e.g., 0.0.0.0 for all interfaces)
	HTTPPort     int           `mapstructure:"http_port"`     // HTTP server port
	BodyLimit    int           `mapstructure:"body_limit"`    // Max upload size in bytes
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`  // Fiber read timeout
	WriteTimeout time.Duration `mapstructure:"write_timeout"` // Fiber write timeout
	ShutdownWait time.Duration `mapstructure:"shutdown_wait"` // Graceful shutdown budget
}

// AuditConfig holds the analysis parameters
type AuditConfig struct {
	// Timezone is the reference zone for window times and audit dates
	// (e.g., "America/Denver", "-07:00", "UTC")
	Timezone            string  `mapstructure:"timezone"`
	Compound            string  `mapstructure:"compound"`              // Channel cleaned with the GSU pump/valve state
	MinGroupSize        int     `mapstructure:"min_group_size"`        // Ideal grouping stops at this size
	IQRMultiplier       float64 `mapstructure:"iqr_multiplier"`        // Outlier fence multiplier
	LowerTailPercentile float64 `mapstructure:"lower_tail_percentile"` // Above/below classification
	UpperTailPercentile float64 `mapstructure:"upper_tail_percentile"`
	MDLConfidence       float64 `mapstructure:"mdl_confidence"` // One-sided Student-t confidence
	RankThreshold       int     `mapstructure:"rank_threshold"` // Blank sizes above this use the percentile rank
}

// SessionConfig selects where uploaded datasets live between requests
type SessionConfig struct {
	Backend  string        `mapstructure:"backend"`   // memory (default), redis
	URL      string        `mapstructure:"url"`       // redis://host:port
	Password string        `mapstructure:"password"`  // Optional authentication
	RedisDB  int           `mapstructure:"redis_db"`  // Redis database number (default: 0)
	Prefix   string        `mapstructure:"prefix"`    // Key prefix (default: "airaudit:session:")
	TTL      time.Duration `mapstructure:"ttl"`       // Idle sessions expire after this
	MaxCount int           `mapstructure:"max_count"` // Memory backend cap, 0 = unlimited

	// Compression applies to redis snapshots: snappy (default), none
	Compression string `mapstructure:"compression"`
}

// QueueConfig represents result-event queue configuration
type QueueConfig struct {
	Type     string `mapstructure:"type"`     // Queue type: none (default), nats, redis, kafka, memory
	URL      string `mapstructure:"url"`      // Queue server URL (e.g., nats://localhost:4222, redis://localhost:6379)
	Username string `mapstructure:"username"` // Optional authentication
	Password string `mapstructure:"password"` // Optional authentication
	Subject  string `mapstructure:"subject"`  // Subject/stream/topic prefix (default: "airaudit.results")

	// Redis-specific options
	RedisDB int `mapstructure:"redis_db"` // Redis database number (default: 0)

	// Kafka-specific options
	KafkaBrokers []string `mapstructure:"kafka_brokers"` // Kafka broker addresses
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, file path
	TimeFormat string `mapstructure:"time_format"` // RFC3339, Unix, Kitchen
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Audit.Validate(); err != nil {
		return fmt.Errorf("audit config: %w", err)
	}

	if err := c.Session.Validate(); err != nil {
		return fmt.Errorf("session config: %w", err)
	}

	if err := c.Queue.Validate(); err != nil {
		return fmt.Errorf("queue config: %w", err)
	}

	if err := c.Auth.Validate(); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (c *ServerConfig) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid http_port: %d", c.HTTPPort)
	}

	if c.BodyLimit < 0 {
		return fmt.Errorf("body_limit cannot be negative")
	}

	return nil
}

// Validate validates audit configuration
func (c *AuditConfig) Validate() error {
	if c.MinGroupSize < 1 {
		return fmt.Errorf("audit.min_group_size must be at least 1")
	}

	if c.IQRMultiplier <= 0 {
		return fmt.Errorf("audit.iqr_multiplier must be positive")
	}

	if c.LowerTailPercentile < 0 || c.UpperTailPercentile > 100 || c.LowerTailPercentile >= c.UpperTailPercentile {
		return fmt.Errorf("audit tail percentiles must satisfy 0 <= lower < upper <= 100")
	}

	if c.MDLConfidence <= 0 || c.MDLConfidence >= 1 {
		return fmt.Errorf("audit.mdl_confidence must be in (0, 1)")
	}

	if c.RankThreshold < 1 {
		return fmt.Errorf("audit.rank_threshold must be at least 1")
	}

	if _, err := ParseTimezone(c.Timezone); err != nil {
		return fmt.Errorf("audit.timezone: %w", err)
	}

	return nil
}

// Validate validates session configuration
func (c *SessionConfig) Validate() error {
	switch c.Backend {
	case "", "memory":
	case "redis":
		if c.URL == "" {
			return fmt.Errorf("session.url is required for redis backend")
		}
	default:
		return fmt.Errorf("session.backend must be 'memory' or 'redis'")
	}

	if c.TTL < 0 {
		return fmt.Errorf("session.ttl cannot be negative")
	}

	if c.Compression != "" && c.Compression != "snappy" && c.Compression != "none" {
		return fmt.Errorf("session.compression must be 'snappy' or 'none'")
	}

	return nil
}

// Validate validates queue configuration
func (c *QueueConfig) Validate() error {
	switch c.Type {
	case "", "none", "memory":
	case "nats", "redis":
		if c.URL == "" {
			return fmt.Errorf("queue.url is required for %s", c.Type)
		}
	case "kafka":
		if len(c.KafkaBrokers) == 0 && c.URL == "" {
			return fmt.Errorf("queue.kafka_brokers is required for kafka")
		}
	default:
		return fmt.Errorf("queue.type must be one of: none, nats, redis, kafka, memory")
	}

	return nil
}

// Validate validates auth configuration
func (c *AuthConfig) Validate() error {
	if c.Enabled && len(c.APIKeys) == 0 {
		return fmt.Errorf("auth.api_keys is required when auth is enabled")
	}
	return nil
}

// Validate validates logging configuration
func (c *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[c.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}

	validFormats := map[string]bool{
		"json":    true,
		"console": true,
	}

	if !validFormats[c.Format] {
		return fmt.Errorf("logging.format must be 'json' or 'console'")
	}

	return nil
}
