package client

// Functional options that configure the Client during construction.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPTimeout bounds every single HTTP request made by the client.
// Prefer per-call context deadlines; this is a coarse safety net.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.rc.SetTimeout(d)
		return nil
	}
}

// WithDebugLogging logs every request and response at debug level. Do not
// enable it in production: dumps include full bodies.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			c.debug = true
		}
		return nil
	}
}

// WithLogger replaces the client's logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithRetryPolicy sets how often a failed background write is attempted and
// the first backoff interval between attempts.
func WithRetryPolicy(maxAttempts int, baseBackoff time.Duration) Option {
	return func(c *Client) error {
		if maxAttempts < 1 {
			return fmt.Errorf("max attempts must be >= 1")
		}
		if baseBackoff <= 0 {
			return fmt.Errorf("base backoff must be > 0")
		}
		c.queueCfg.MaxAttempts = maxAttempts
		c.queueCfg.BaseBackoff = baseBackoff
		return nil
	}
}

// WithClock overrides the time source used for createdAt, default dates and ids.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		c.now = now
		return nil
	}
}
