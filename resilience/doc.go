// Package resilience provides the fault-tolerance primitives recoverykit's
// services are built on.
//
// This package includes:
//   - ExecuteWithRetry: bounded retries with linear backoff (attempt * BaseDelay)
//   - CircuitBreaker: fails fast while the backend keeps failing
//   - Guard / SingleFlight: one in-flight piece of work per key, duplicates get a fallback
//   - WaitFor: bounded polling wait for a dependency that is still initializing
//   - Bulkhead: caps concurrent holders of a slot
//   - RateLimiter: token bucket for operator endpoints
//
// Example:
//
//	models, err := resilience.ExecuteWithRetry(ctx, resilience.RetryConfig{
//	    MaxRetries: 2,
//	    BaseDelay:  time.Second,
//	    RetryIf:    errors.IsRetryable,
//	}, client.ListModels)
package resilience
