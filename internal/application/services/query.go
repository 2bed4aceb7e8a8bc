package services

import (
	"context"
	"strings"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

type QueryService struct {
	store    domain.TransactionStore
	recharge application.RechargeService
}

func NewQueryService(store domain.TransactionStore, recharge application.RechargeService) *QueryService {
	return &QueryService{
		store:    store,
		recharge: recharge,
	}
}

// FindByAnyID resolves an internal id, gateway payment id (or UTR) or order id.
func (s *QueryService) FindByAnyID(ctx context.Context, id string) (*domain.Transaction, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("id"), "")
	}
	tx, err := s.store.FindByAnyID(ctx, id)
	if err != nil {
		return nil, toServiceError(err, id)
	}
	return tx, nil
}

func (s *QueryService) RechargeStatus(ctx context.Context, rechargeID string) (*domain.RechargeResult, error) {
	rechargeID = strings.TrimSpace(rechargeID)
	if rechargeID == "" {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("id"), "")
	}
	result, err := s.recharge.Status(ctx, rechargeID)
	if err != nil {
		return nil, application.NewInternalError(err)
	}
	return result, nil
}

func (s *QueryService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}
