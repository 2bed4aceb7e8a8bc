package services

import (
	"errors"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

// toServiceError maps store and domain errors to the caller-facing taxonomy.
func toServiceError(err error, id string) error {
	if err == nil {
		return nil
	}
	if _, ok := application.IsServiceError(err); ok {
		return err
	}

	var domainErr *domain.DomainError
	switch {
	case errors.As(err, &domainErr):
		return application.NewValidationError(domainErr.Message, err)
	case errors.Is(err, domain.ErrTransactionNotFound):
		return application.NewNotFoundError("Transaction", id)
	case errors.Is(err, domain.ErrInvalidTransition):
		return application.NewInvalidTransitionError(err)
	case errors.Is(err, domain.ErrDuplicateIdempotencyKey):
		return application.NewRequestInProgressError()
	}
	return application.NewInternalError(err)
}

// currentStatus extracts the stored status from a rejected transition.
func currentStatus(err error) (domain.Status, bool) {
	var te *domain.TransitionError
	if errors.As(err, &te) {
		return te.From, true
	}
	return "", false
}
