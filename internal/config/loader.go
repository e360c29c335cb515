package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Load loads configuration from file
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/airaudit")
	}

	setDefaults(v)

	// AIRAUDIT_AUDIT_TIMEZONE overrides audit.timezone
	v.SetEnvPrefix("AIRAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return parseConfig(v)
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return parseConfig(v)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.http_port", d.Server.HTTPPort)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout.String())
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout.String())
	v.SetDefault("server.shutdown_wait", d.Server.ShutdownWait.String())

	v.SetDefault("audit.timezone", d.Audit.Timezone)
	v.SetDefault("audit.compound", d.Audit.Compound)
	v.SetDefault("audit.min_group_size", d.Audit.MinGroupSize)
	v.SetDefault("audit.iqr_multiplier", d.Audit.IQRMultiplier)
	v.SetDefault("audit.lower_tail_percentile", d.Audit.LowerTailPercentile)
	v.SetDefault("audit.upper_tail_percentile", d.Audit.UpperTailPercentile)
	v.SetDefault("audit.mdl_confidence", d.Audit.MDLConfidence)
	v.SetDefault("audit.rank_threshold", d.Audit.RankThreshold)

	v.SetDefault("session.backend", d.Session.Backend)
	v.SetDefault("session.prefix", d.Session.Prefix)
	v.SetDefault("session.ttl", d.Session.TTL.String())
	v.SetDefault("session.max_count", d.Session.MaxCount)
	v.SetDefault("session.compression", d.Session.Compression)

	v.SetDefault("queue.type", d.Queue.Type)
	v.SetDefault("queue.subject", d.Queue.Subject)

	v.SetDefault("auth.enabled", false)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output_path", d.Logging.OutputPath)
}

// parseConfig parses viper config into Config struct
func parseConfig(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// LoadOrDefault loads configuration from file or returns default config
func LoadOrDefault(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			HTTPPort:     5580,
			BodyLimit:    64 * 1024 * 1024,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			ShutdownWait: 10 * time.Second,
		},
		Audit: AuditConfig{
			Timezone:            "America/Denver",
			Compound:            "Benzene C6H6+",
			MinGroupSize:        15,
			IQRMultiplier:       1.5,
			LowerTailPercentile: 10,
			UpperTailPercentile: 90,
			MDLConfidence:       0.99,
			RankThreshold:       100,
		},
		Session: SessionConfig{
			Backend:     "memory",
			Prefix:      "airaudit:session:",
			TTL:         12 * time.Hour,
			MaxCount:    64,
			Compression: "snappy",
		},
		Queue: QueueConfig{
			Type:    "none",
			Subject: "airaudit.results",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			OutputPath: "stdout",
		},
	}
}
