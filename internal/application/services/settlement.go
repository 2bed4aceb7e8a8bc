package services

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/domain"
)

const recordTimeout = 10 * time.Second

type SettlementResult struct {
	Transaction *domain.Transaction
	SettledAt   time.Time
	// Recharge is nil when the transaction carries no recharge request.
	Recharge *domain.RechargeResult
	Replayed bool
}

type SettlementService struct {
	ledger   *Ledger
	recharge application.RechargeService
	minDelay time.Duration
	maxDelay time.Duration
	logger   *slog.Logger
}

func NewSettlementService(
	ledger *Ledger,
	recharge application.RechargeService,
	minDelay, maxDelay time.Duration,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		ledger:   ledger,
		recharge: recharge,
		minDelay: minDelay,
		maxDelay: maxDelay,
		logger:   logger,
	}
}

// Settle simulates bank settlement for the transaction identified by id
// (internal id, gateway payment id or order id) and then runs any attached
// recharge. Settling twice replays the first result without recharging again.
func (s *SettlementService) Settle(ctx context.Context, id string) (*SettlementResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, toServiceError(domain.NewMissingRequiredFieldError("transactionId"), "")
	}

	tx, err := s.ledger.store.FindByAnyID(ctx, id)
	if err != nil {
		return nil, toServiceError(err, id)
	}
	if tx.Status == domain.StatusSettled {
		return replayed(tx), nil
	}
	if err := domain.CanTransition(tx.Status, domain.StatusSettled); err != nil {
		return nil, toServiceError(err, id)
	}

	logger := s.logger.With("transaction_id", tx.ID, "order_id", tx.OrderID)
	logger.Info("processing bank settlement")

	if err := sleep(ctx, s.delay()); err != nil {
		return nil, application.NewInternalError(err)
	}

	settledAt := s.ledger.now()
	settled, err := s.ledger.Transition(ctx, tx.OrderID, domain.TransactionPatch{
		Status:    domain.Ptr(domain.StatusSettled),
		SettledAt: &settledAt,
	}, SourceSettlement)
	if err != nil {
		if current, ok := currentStatus(err); ok && current == domain.StatusSettled {
			// A concurrent settlement won the race.
			latest, ferr := s.ledger.store.FindByOrderID(ctx, tx.OrderID)
			if ferr != nil {
				return nil, toServiceError(ferr, id)
			}
			return replayed(latest), nil
		}
		return nil, toServiceError(err, id)
	}

	result := &SettlementResult{Transaction: settled, SettledAt: settledAt}
	if !settled.HasRecharge() {
		return result, nil
	}

	result.Recharge = s.runRecharge(ctx, settled, logger)

	// The recharge already happened; its outcome is stored even when the
	// caller has gone away.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	updated, err := s.ledger.Transition(recordCtx, settled.OrderID, domain.TransactionPatch{
		RechargeResult: result.Recharge,
	}, SourceSettlement)
	if err != nil {
		logger.Error("failed to record recharge outcome", "error", err)
	} else {
		result.Transaction = updated
	}
	return result, nil
}

func (s *SettlementService) runRecharge(ctx context.Context, tx *domain.Transaction, logger *slog.Logger) *domain.RechargeResult {
	logger.Info("triggering mobile recharge", "mobile", tx.Recharge.Mobile, "operator", tx.Recharge.Operator)

	result, err := s.recharge.Execute(ctx, application.RechargeRequest{
		Mobile:   tx.Recharge.Mobile,
		Operator: tx.Recharge.Operator,
		Amount:   tx.Amount,
		PlanID:   tx.Recharge.PlanID,
	})
	if err != nil {
		logger.Error("recharge failed", "error", err)
		return &domain.RechargeResult{Status: domain.RechargeFailed, Message: err.Error()}
	}

	logger.Info("recharge finished", "status", result.Status, "message", result.Message)
	return result
}

func (s *SettlementService) delay() time.Duration {
	spread := s.maxDelay - s.minDelay
	if spread <= 0 {
		return s.minDelay
	}
	return s.minDelay + rand.N(spread+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func replayed(tx *domain.Transaction) *SettlementResult {
	result := &SettlementResult{Transaction: tx, Replayed: true}
	if tx.SettledAt != nil {
		result.SettledAt = *tx.SettledAt
	}
	if tx.Recharge != nil && tx.Recharge.Status != "" {
		result.Recharge = &domain.RechargeResult{
			Status:        tx.Recharge.Status,
			TransactionID: tx.Recharge.TransactionID,
			Message:       tx.Recharge.Message,
		}
	}
	return result
}
