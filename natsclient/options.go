package natsclient

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gluonch/carrot2/metric"
)

// ClientOption is a functional option for configuring the Client
type ClientOption func(*Client) error

// WithName sets the connection name reported to the server
func WithName(name string) ClientOption {
	return func(c *Client) error {
		if name != "" {
			c.name = name
		}
		return nil
	}
}

// WithTimeout sets the dial and request timeout
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %v", d)
		}
		c.timeout = d
		return nil
	}
}

// WithCircuitBreaker opens the breaker after threshold consecutive failures
// and keeps it open for backoff.
func WithCircuitBreaker(threshold int32, backoff time.Duration) ClientOption {
	return func(c *Client) error {
		if threshold < 1 {
			threshold = 5
		}
		if backoff <= 0 {
			backoff = time.Second
		}
		c.threshold = threshold
		c.backoff = backoff
		return nil
	}
}

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// WithMetrics registers connection metrics with registrar. The metrics are
// unregistered when the client is closed.
func WithMetrics(registrar metric.MetricsRegistrar) ClientOption {
	return func(c *Client) error {
		c.registrar = registrar
		return nil
	}
}
