// Package config loads stock-keeper configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	Redis   RedisConfig   `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
	Events  EventsConfig  `yaml:"events"`
	Log     LogConfig     `yaml:"log"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

// RedisConfig configures the lease and idempotency cache. When disabled an
// in-process cache is used and sessions are local to this node.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	PoolSize int    `yaml:"pool_size"`
}

type SessionConfig struct {
	// IdleTTL is how long a session survives without any request
	IdleTTL      time.Duration `yaml:"idle_ttl"`
	ReapInterval time.Duration `yaml:"reap_interval"`
	// SeedExamples pre-fills new sessions with two example records
	SeedExamples bool `yaml:"seed_examples"`
}

type EventsConfig struct {
	QueueSize int `yaml:"queue_size"`
	Workers   int `yaml:"workers"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ShutdownTimeout: 5 * time.Second,
		},
		GRPC: GRPCConfig{
			Addr: ":50051",
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 100,
		},
		Session: SessionConfig{
			IdleTTL:      30 * time.Minute,
			ReapInterval: time.Minute,
			SeedExamples: true,
		},
		Events: EventsConfig{
			QueueSize: 10000,
			Workers:   4,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must be positive"))
	}
	if c.GRPC.Addr == "" {
		errs = append(errs, errors.New("grpc.addr is required"))
	}
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required when redis is enabled"))
		}
		if c.Redis.PoolSize <= 0 {
			errs = append(errs, errors.New("redis.pool_size must be positive"))
		}
	}
	if c.Session.IdleTTL <= 0 {
		errs = append(errs, errors.New("session.idle_ttl must be positive"))
	}
	if c.Session.ReapInterval <= 0 {
		errs = append(errs, errors.New("session.reap_interval must be positive"))
	}
	if c.Events.QueueSize <= 0 {
		errs = append(errs, errors.New("events.queue_size must be positive"))
	}
	if c.Events.Workers <= 0 {
		errs = append(errs, errors.New("events.workers must be positive"))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
