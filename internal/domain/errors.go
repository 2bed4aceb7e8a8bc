package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business rule violation
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
	ErrCodeInvalidOrderID       = "INVALID_ORDER_ID"
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidMobile        = "INVALID_MOBILE"
)

var (
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already in use")
	ErrInvalidTransition       = errors.New("invalid status transition")
)

// TransitionError is returned when a status precondition does not hold.
// It matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %s to %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidAmountError(amount string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %q", amount),
	}
}

func NewInvalidPaymentMethodError(method string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidPaymentMethod,
		Message: fmt.Sprintf("unsupported payment method %q", method),
	}
}

func NewInvalidOrderIDError(orderID string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidOrderID,
		Message: fmt.Sprintf("invalid order id %q: use 3-45 letters, digits, '-' or '_'", orderID),
	}
}

func NewInvalidMobileError(mobile string) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidMobile,
		Message: fmt.Sprintf("invalid mobile number %q: must be 10 digits", mobile),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
