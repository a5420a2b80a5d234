package shardqueue

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Config groups all tunables. Values are taken from environment variables with
// the prefix "HEARTBOOK_CLIENT_", e.g. HEARTBOOK_CLIENT_SHARDS=8.
type Config struct {
	Shards         int           `envconfig:"SHARDS"          default:"6"`
	QueueSize      int           `envconfig:"QUEUE_SIZE"      default:"256"`
	EnqueueTimeout time.Duration `envconfig:"ENQUEUE_TIMEOUT" default:"100ms"`

	MaxAttempts int           `envconfig:"MAX_ATTEMPTS" default:"5"`
	BaseBackoff time.Duration `envconfig:"BASE_BACKOFF" default:"100ms"`
	MaxInterval time.Duration `envconfig:"MAX_INTERVAL" default:"5s"`

	// ErrorHandler is called synchronously with the final error of a job
	// that did not succeed. Leave nil if you do not care.
	ErrorHandler func(error) `envconfig:"-"`

	Logger zerolog.Logger `envconfig:"-"`
}

// LoadConfig populates Config from environment variables (prefix HEARTBOOK_CLIENT_).
func LoadConfig() (Config, error) {
	var c Config
	c.Logger = zerolog.Nop()
	return c, envconfig.Process("HEARTBOOK_CLIENT", &c)
}

func (c Config) withDefaults() Config {
	if c.Shards <= 0 {
		c.Shards = 6
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.EnqueueTimeout <= 0 {
		c.EnqueueTimeout = 100 * time.Millisecond
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 100 * time.Millisecond
	}
	if c.MaxInterval <= 0 {
		c.MaxInterval = 5 * time.Second
	}
	return c
}
