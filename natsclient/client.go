package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/gluonch/carrot2/errors"
	"github.com/gluonch/carrot2/health"
	"github.com/gluonch/carrot2/metric"
	"github.com/gluonch/carrot2/pkg/retry"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int32

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusCircuitOpen
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error messages
var (
	ErrNotConnected = stderrors.New("not connected to NATS")
	ErrCircuitOpen  = stderrors.New("circuit breaker is open")
)

// Client owns a NATS connection and hands out JetStream key-value buckets.
// Consecutive connection failures open a circuit breaker that rejects
// further attempts until its backoff elapses.
type Client struct {
	url       string
	name      string
	timeout   time.Duration
	threshold int32
	backoff   time.Duration
	logger    *slog.Logger
	registrar metric.MetricsRegistrar
	metrics   *clientMetrics

	status    atomic.Int32
	failures  atomic.Int32
	openUntil atomic.Int64 // unix nanos

	mu     sync.RWMutex
	conn   *nats.Conn
	js     jetstream.JetStream
	closed atomic.Bool
}

// NewClient creates a disconnected client for url
func NewClient(url string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Client", "NewClient", "url check")
	}

	c := &Client{
		url:       url,
		name:      "carrot2",
		timeout:   5 * time.Second,
		threshold: 5,
		backoff:   time.Second,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	if c.registrar != nil {
		m, err := newClientMetrics(c.registrar)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "metrics registration")
		}
		c.metrics = m
	}
	c.logger = c.logger.With("component", "natsclient", "url", url)
	return c, nil
}

// URL returns the NATS server URL
func (c *Client) URL() string {
	return c.url
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return ConnectionStatus(c.status.Load())
}

func (c *Client) setStatus(s ConnectionStatus) {
	c.status.Store(int32(s))
}

// Failures returns the consecutive connection failures since the last success
func (c *Client) Failures() int32 {
	return c.failures.Load()
}

// IsHealthy reports whether the connection is up
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

func (c *Client) recordFailure() {
	n := c.failures.Add(1)
	if n < c.threshold {
		c.setStatus(StatusDisconnected)
		return
	}
	c.openUntil.Store(time.Now().Add(c.backoff).UnixNano())
	c.setStatus(StatusCircuitOpen)
	c.metrics.setCircuitOpen(true)
	c.logger.Warn("Circuit breaker opened", "failures", n, "backoff", c.backoff)
}

func (c *Client) resetCircuit() {
	c.failures.Store(0)
	c.openUntil.Store(0)
	c.metrics.setCircuitOpen(false)
}

func (c *Client) circuitOpen() bool {
	if c.Status() != StatusCircuitOpen {
		return false
	}
	return time.Now().UnixNano() < c.openUntil.Load()
}

// Connect dials the server. It fails fast with ErrCircuitOpen while the
// breaker is open.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.WrapFatal(ErrNotConnected, "Client", "Connect", "client closed")
	}
	if c.circuitOpen() {
		c.metrics.recordConnect("rejected", 0)
		return errors.WrapTransient(ErrCircuitOpen, "Client", "Connect", "circuit check")
	}

	c.setStatus(StatusConnecting)
	c.logger.Debug("Connecting to NATS")
	start := time.Now()

	type result struct {
		conn *nats.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := nats.Connect(c.url,
			nats.Name(c.name),
			nats.Timeout(c.timeout),
			nats.MaxReconnects(-1),
		)
		done <- result{conn: conn, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		go func() {
			if late := <-done; late.conn != nil {
				late.conn.Close()
			}
		}()
		c.recordFailure()
		c.metrics.recordConnect("failed", time.Since(start))
		return errors.WrapTransient(ctx.Err(), "Client", "Connect", "connection cancelled")
	}
	if res.err != nil {
		c.recordFailure()
		c.metrics.recordConnect("failed", time.Since(start))
		return errors.WrapTransient(errors.Join(errors.ErrNoConnection, res.err), "Client", "Connect", "establish connection")
	}

	js, err := jetstream.New(res.conn)
	if err != nil {
		res.conn.Close()
		c.recordFailure()
		c.metrics.recordConnect("failed", time.Since(start))
		return errors.WrapTransient(err, "Client", "Connect", "jetstream init")
	}

	c.mu.Lock()
	c.conn = res.conn
	c.js = js
	c.mu.Unlock()

	c.resetCircuit()
	c.setStatus(StatusConnected)
	c.metrics.recordConnect("connected", time.Since(start))
	c.logger.Info("Connected to NATS")
	return nil
}

// ConnectWithRetry calls Connect with backoff until it succeeds, the
// attempts run out or the circuit breaker opens.
func (c *Client) ConnectWithRetry(ctx context.Context, cfg retry.Config) error {
	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		err := c.Connect(ctx)
		if errors.Is(err, ErrCircuitOpen) {
			return retry.NonRetryable(err)
		}
		return err
	})
}

// JetStream returns the JetStream context of the live connection
func (c *Client) JetStream() (jetstream.JetStream, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.js == nil || c.Status() != StatusConnected {
		return nil, errors.WrapTransient(ErrNotConnected, "Client", "JetStream", "connection check")
	}
	return c.js, nil
}

// KeyValue returns the named bucket, creating it when it does not exist
func (c *Client) KeyValue(ctx context.Context, cfg jetstream.KeyValueConfig) (jetstream.KeyValue, error) {
	js, err := c.JetStream()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	bucket, err := js.KeyValue(ctx, cfg.Bucket)
	if err == nil {
		return bucket, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, errors.WrapTransient(err, "Client", "KeyValue", fmt.Sprintf("open bucket %s", cfg.Bucket))
	}

	bucket, err = js.CreateKeyValue(ctx, cfg)
	if err != nil {
		if !isAlreadyExistsError(err) {
			return nil, errors.WrapTransient(err, "Client", "KeyValue", fmt.Sprintf("create bucket %s", cfg.Bucket))
		}
		// lost a creation race
		bucket, err = js.KeyValue(ctx, cfg.Bucket)
		if err != nil {
			return nil, errors.WrapTransient(err, "Client", "KeyValue", fmt.Sprintf("open bucket %s", cfg.Bucket))
		}
		return bucket, nil
	}

	c.metrics.recordBucketCreated()
	c.logger.Info("Created KV bucket", "bucket", cfg.Bucket)
	return bucket, nil
}

// Health reports the connection state
func (c *Client) Health() health.Status {
	switch c.Status() {
	case StatusConnected:
		return health.NewHealthy("nats", "connected to "+c.url)
	case StatusCircuitOpen:
		return health.FromError("nats", ErrCircuitOpen)
	case StatusConnecting:
		return health.NewDegraded("nats", "connecting to "+c.url)
	default:
		return health.FromError("nats", ErrNotConnected)
	}
}

// Close drains and closes the connection. It is safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.metrics.unregister()

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.js = nil
	c.mu.Unlock()
	c.setStatus(StatusDisconnected)

	if conn == nil {
		return nil
	}

	drained := make(chan error, 1)
	go func() { drained <- conn.Drain() }()

	var err error
	select {
	case err = <-drained:
		if err != nil {
			err = errors.Wrap(err, "Client", "Close", "drain connection")
		}
	case <-ctx.Done():
		err = errors.Wrap(ctx.Err(), "Client", "Close", "context cancelled during drain")
	}
	conn.Close()
	return err
}

func isAlreadyExistsError(err error) bool {
	if errors.Is(err, jetstream.ErrBucketExists) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "bucket name already in use") ||
		strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "stream name already in use")
}
