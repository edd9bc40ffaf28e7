// Package config loads EMS configuration from environment variables, with
// an optional .env file underneath them. Command-line flags are applied by
// each binary on top of the returned Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPoolSize is the number of session workers when EMS_POOL_SIZE is
// unset.
const DefaultPoolSize = 8

// Config holds the server's runtime settings. Each field corresponds to an
// environment variable.
type Config struct {
	Env         string        // APP_ENV
	ServerPipe  string        // EMS_SERVER_PIPE, well-known pipe path
	AccessDelay time.Duration // EMS_ACCESS_DELAY_US, microseconds before each store access
	PoolSize    int           // EMS_POOL_SIZE
	OpsAddr     string        // EMS_OPS_ADDR, empty disables the ops HTTP server
	LogLevel    string        // LOG_LEVEL
	AMQPURL     string        // RABBITMQ_URL or AMQP_URL, empty disables publishing
	AuditLogDir string        // EMS_AUDIT_LOG_DIR
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Cache       CacheConfig
}

// LoadDotEnv reads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load builds a Config from the environment. Unset variables take their
// defaults; malformed numbers fall back to the default as well.
func Load() Config {
	return Config{
		Env:         envStr("APP_ENV", "dev"),
		ServerPipe:  os.Getenv("EMS_SERVER_PIPE"),
		AccessDelay: time.Duration(envInt("EMS_ACCESS_DELAY_US", 0)) * time.Microsecond,
		PoolSize:    envInt("EMS_POOL_SIZE", DefaultPoolSize),
		OpsAddr:     os.Getenv("EMS_OPS_ADDR"),
		LogLevel:    envStr("LOG_LEVEL", "info"),
		AMQPURL:     amqpURL(),
		AuditLogDir: envStr("EMS_AUDIT_LOG_DIR", "logs"),
		Redis:       LoadRedisConfig(),
		RateLimit:   LoadRateLimitConfig(),
		Cache:       LoadCacheConfig(),
	}
}

// Validate reports the first setting the server cannot start with.
func (c Config) Validate() error {
	if c.ServerPipe == "" {
		return errors.New("server pipe path is required")
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("pool size must be at least 1, got %d", c.PoolSize)
	}
	if c.AccessDelay < 0 {
		return fmt.Errorf("access delay must not be negative, got %v", c.AccessDelay)
	}
	return nil
}

// amqpURL prefers RABBITMQ_URL and falls back to AMQP_URL.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}
