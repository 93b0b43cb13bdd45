package recovery

import (
	"context"
	"time"

	"github.com/kbukum/recoverykit/errors"
	"github.com/kbukum/recoverykit/logger"
	"github.com/kbukum/recoverykit/observability"
	"github.com/kbukum/recoverykit/resilience"
)

// OperationOptions bounds one service operation.
type OperationOptions struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay feeds LinearBackoff. Zero uses the registry default.
	BaseDelay time.Duration
	// Timeout spans every attempt and backoff. Zero uses the registry default.
	Timeout time.Duration
	// Context is attached to the error state if the operation fails.
	Context map[string]any
}

// OperationOptions returns options built from the registry defaults.
func (r *Registry) OperationOptions() OperationOptions {
	return OperationOptions{
		MaxRetries: r.config.Retries(),
		BaseDelay:  r.config.BaseDelay,
		Timeout:    r.config.OperationTimeout,
	}
}

// ExecuteServiceOperation runs op with retries for errors the classifier
// considers retryable, all under a single timeout. If the operation still
// fails, the error is handed to reg.HandleServiceError before it is returned.
func ExecuteServiceOperation[T any](ctx context.Context, reg *Registry, service, operation string, opts OperationOptions, op func(ctx context.Context) (T, error)) (T, error) {
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = reg.config.BaseDelay
	}
	if opts.Timeout <= 0 {
		opts.Timeout = reg.config.OperationTimeout
	}

	opCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	opCtx, tracked := observability.StartOperation(opCtx, reg.metrics, service, operation)

	log := reg.log.WithContext(opCtx)
	result, err := resilience.ExecuteWithRetry(opCtx, resilience.RetryConfig{
		MaxRetries: opts.MaxRetries,
		BaseDelay:  opts.BaseDelay,
		RetryIf:    errors.IsRetryable,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			tracked.Retry(opCtx, attempt)
			log.Debug("retrying service operation", logger.MergeWithError(logger.Fields(
				logger.FieldTarget, service,
				logger.FieldOperation, operation,
				logger.FieldAttempt, attempt,
				"backoff", backoff.String(),
			), err))
		},
	}, op)
	tracked.End(opCtx, err)

	if err == nil {
		return result, nil
	}
	// A caller that gave up is not a service failure.
	if ctx.Err() != nil {
		return result, err
	}
	// Recovery gets the caller's context: the operation timeout may
	// already have expired.
	reg.HandleServiceError(ctx, service, err, operation, opts.Context)
	return result, err
}
