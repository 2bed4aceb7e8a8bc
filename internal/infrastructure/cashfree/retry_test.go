package cashfree

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetched struct{ id string }

func TestRetry(t *testing.T) {
	policy := retryPolicy{baseDelay: time.Millisecond, maxRetries: 3}

	tests := []struct {
		name          string
		errs          []error
		expectedCalls int
		expectErr     bool
	}{
		{name: "success first try", errs: []error{nil}, expectedCalls: 1},
		{name: "success after 5xx", errs: []error{&GatewayError{StatusCode: 503}, nil}, expectedCalls: 2},
		{name: "transport error is retried", errs: []error{errors.New("connection reset"), nil}, expectedCalls: 2},
		{name: "4xx is not retried", errs: []error{&GatewayError{StatusCode: 400}}, expectedCalls: 1, expectErr: true},
		{name: "cancellation is not retried", errs: []error{context.Canceled}, expectedCalls: 1, expectErr: true},
		{
			name:          "exhausted",
			errs:          []error{&GatewayError{StatusCode: 500}, &GatewayError{StatusCode: 500}, &GatewayError{StatusCode: 500}},
			expectedCalls: 3,
			expectErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			resp, err := retry(context.Background(), policy, func(ctx context.Context) (*fetched, error) {
				err := tt.errs[calls]
				calls++
				if err != nil {
					return nil, err
				}
				return &fetched{id: "ok"}, nil
			})

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", resp.id)
		})
	}
}

func TestRetry_StopsWhenContextDone(t *testing.T) {
	policy := retryPolicy{baseDelay: time.Second, maxRetries: 5}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	_, err := retry(ctx, policy, func(ctx context.Context) (*fetched, error) {
		calls++
		cancel()
		return nil, &GatewayError{StatusCode: http.StatusBadGateway}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBackoff_Grows(t *testing.T) {
	policy := retryPolicy{baseDelay: 100 * time.Millisecond, maxRetries: 3}

	first := policy.backoff(0)
	second := policy.backoff(1)

	assert.GreaterOrEqual(t, first, 100*time.Millisecond)
	assert.Less(t, first, 111*time.Millisecond)
	assert.GreaterOrEqual(t, second, 200*time.Millisecond)
}
