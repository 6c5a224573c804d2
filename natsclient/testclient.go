package natsclient

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestClient is a connected Client backed by a NATS container
type TestClient struct {
	Client    *Client
	URL       string
	container testcontainers.Container
}

type testConfig struct {
	natsVersion  string
	timeout      time.Duration
	startTimeout time.Duration
	buckets      []string
}

// TestOption configures NewTestClient
type TestOption func(*testConfig)

// WithKVBuckets pre-creates key-value buckets
func WithKVBuckets(buckets ...string) TestOption {
	return func(cfg *testConfig) {
		cfg.buckets = append(cfg.buckets, buckets...)
	}
}

// WithNATSVersion selects the nats image tag
func WithNATSVersion(version string) TestOption {
	return func(cfg *testConfig) {
		cfg.natsVersion = version
	}
}

// NewTestClient starts a JetStream-enabled NATS container and connects to
// it. The container is terminated when the test ends.
func NewTestClient(t testing.TB, opts ...TestOption) *TestClient {
	t.Helper()

	cfg := &testConfig{
		natsVersion:  "2.11.7-alpine",
		timeout:      5 * time.Second,
		startTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:" + cfg.natsVersion,
			ExposedPorts: []string{"4222/tcp"},
			Cmd:          []string{"--port", "4222", "--js"},
			WaitingFor:   wait.ForListeningPort("4222/tcp").WithStartupTimeout(cfg.startTimeout),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start NATS container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		t.Fatalf("Failed to get mapped port: %v", err)
	}
	url := fmt.Sprintf("nats://%s:%s", host, port.Port())

	client, err := NewClient(url, WithTimeout(cfg.timeout), WithName("carrot2-test"))
	if err != nil {
		t.Fatalf("Failed to create NATS client: %v", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		t.Fatalf("Failed to connect to NATS: %v", err)
	}
	t.Cleanup(func() { _ = client.Close(context.Background()) })

	for _, bucket := range cfg.buckets {
		if _, err := client.KeyValue(ctx, jetstream.KeyValueConfig{Bucket: bucket}); err != nil {
			t.Fatalf("Failed to create KV bucket %s: %v", bucket, err)
		}
	}

	return &TestClient{Client: client, URL: url, container: container}
}

// Bucket opens an existing or new bucket on the test server
func (tc *TestClient) Bucket(ctx context.Context, name string) (jetstream.KeyValue, error) {
	return tc.Client.KeyValue(ctx, jetstream.KeyValueConfig{Bucket: name})
}
