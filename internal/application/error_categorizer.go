package application

import (
	"errors"
	"net/http"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

// ToHTTPStatus maps error to appropriate HTTP status code
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var domainErr *domain.DomainError
	switch {
	case errors.As(err, &domainErr):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// ToErrorCode returns the stable code reported in error envelopes.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	switch {
	case errors.As(err, &domainErr):
		return ErrCodeValidation
	case errors.Is(err, domain.ErrTransactionNotFound):
		return ErrCodeNotFound
	case errors.Is(err, domain.ErrInvalidTransition):
		return ErrCodeInvalidTransition
	case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		return ErrCodeRequestInProgress
	}

	return ErrCodeInternal
}

// ToMessage returns a human-readable message safe to show callers.
func ToMessage(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Message
	}

	var domainErr *domain.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr.Message
	case errors.Is(err, domain.ErrTransactionNotFound):
		return "Transaction not found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "Transaction can no longer change to the requested status"
	}

	return "An internal error occurred"
}
