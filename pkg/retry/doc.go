// Package retry provides exponential backoff for transient failures.
//
// Errors are classified with the errors package: only transient errors are
// retried.
//
//	err := retry.Do(ctx, retry.Quick(), func(ctx context.Context) error {
//		return client.Connect(ctx)
//	})
//
// Wrap an error with NonRetryable to stop early even though it is transient,
// for example when a circuit breaker already rejects calls.
package retry
