package cashfree

import (
	"errors"
	"fmt"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
)

// GatewayError is a non-2xx answer from the Cashfree API.
type GatewayError struct {
	Code       string
	Type       string
	Message    string
	StatusCode int
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("cashfree error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
}

func (e *GatewayError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}

var (
	ErrMissingSession   = fmt.Errorf("%w: missing payment_session_id", application.ErrInvalidGatewayResponse)
	ErrInvalidSignature = errors.New("webhook signature mismatch")
	ErrMissingSignature = errors.New("webhook signature headers are missing")
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)
