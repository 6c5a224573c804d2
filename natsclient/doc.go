// Package natsclient connects to NATS and opens the JetStream key-value
// bucket that stores component descriptors.
//
// The client dials lazily, counts consecutive failures and opens a circuit
// breaker after a threshold so a dead server is not hammered:
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//		natsclient.WithTimeout(2*time.Second),
//		natsclient.WithCircuitBreaker(3, 10*time.Second),
//	)
//	if err != nil {
//		return err
//	}
//	if err := client.Connect(ctx); err != nil {
//		return err
//	}
//	defer client.Close(context.Background())
//
//	kv, err := client.KeyValue(ctx, jetstream.KeyValueConfig{Bucket: "carrot2-descriptors"})
//	locator := descriptor.NewKVLocator("carrot2-descriptors", kv)
//
// TestClient starts a throwaway NATS server with testcontainers for
// integration tests.
package natsclient
