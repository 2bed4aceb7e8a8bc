package cashfree

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/config"
)

// retryPolicy applies to read-only calls. Order creation is never retried.
type retryPolicy struct {
	baseDelay  time.Duration
	maxRetries int
}

func newRetryPolicy(cfg config.RetryConfig) retryPolicy {
	p := retryPolicy{baseDelay: cfg.BaseDelay, maxRetries: cfg.MaxRetries}
	if p.maxRetries < 1 {
		p.maxRetries = 1
	}
	return p
}

func retry[T any](ctx context.Context, p retryPolicy, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < p.maxRetries; attempt++ {
		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < p.maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.backoff(attempt)):
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}

	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.IsRetryable()
	}

	// Transport errors and deadlines.
	return true
}

// backoff doubles the base delay per attempt and adds up to 10% jitter.
func (p retryPolicy) backoff(attempt int) time.Duration {
	base := p.baseDelay * time.Duration(1<<attempt)
	if base <= 0 {
		return 0
	}
	jitter := time.Duration(rand.Int63n(int64(base)/10 + 1))
	return base + jitter
}
