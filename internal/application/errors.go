package application

import (
	"errors"
	"fmt"
	"net/http"
)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	// Details is surfaced to callers next to Message; keep it free of secrets.
	Details string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeInvalidTransition      = "INVALID_TRANSITION"
	ErrCodeRequestInProgress      = "REQUEST_IN_PROGRESS"
	ErrCodeGatewayUnavailable     = "GATEWAY_UNAVAILABLE"
	ErrCodeInvalidGatewayResponse = "INVALID_GATEWAY_RESPONSE"
	ErrCodeInvalidSignature       = "INVALID_SIGNATURE"
	ErrCodeInternal               = "INTERNAL_ERROR"
	ErrCodeRechargeFailed         = "RECHARGE_FAILED"
)

func NewValidationError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func NewNotFoundError(what, id string) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNotFound,
		Message:    fmt.Sprintf("%s not found", what),
		HTTPStatus: http.StatusNotFound,
		Details:    id,
	}
}

func NewInvalidTransitionError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidTransition,
		Message:    "Transaction can no longer change to the requested status",
		HTTPStatus: http.StatusConflict,
		Details:    err.Error(),
		Err:        err,
	}
}

func NewRequestInProgressError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeRequestInProgress,
		Message:    "A request with this idempotency key is being processed. Please retry in a moment.",
		HTTPStatus: http.StatusConflict,
	}
}

// NewGatewayUnavailableError normalises upstream failures. The raw error only
// appears in Details.
func NewGatewayUnavailableError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGatewayUnavailable,
		Message:    "Payment gateway is unavailable",
		HTTPStatus: http.StatusInternalServerError,
		Details:    err.Error(),
		Err:        err,
	}
}

func NewInvalidGatewayResponseError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidGatewayResponse,
		Message:    "Payment gateway returned an invalid response",
		HTTPStatus: http.StatusInternalServerError,
		Details:    err.Error(),
		Err:        err,
	}
}

func NewInvalidSignatureError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidSignature,
		Message:    "Webhook signature verification failed",
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

// NewRechargeFailedError reports a recharge the provider declined.
func NewRechargeFailedError(message string) *ServiceError {
	if message == "" {
		message = "Recharge failed"
	}
	return &ServiceError{
		Code:       ErrCodeRechargeFailed,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}
